package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindUser      = "user"
	kindApp       = "app"
	kindAuthorize = "authorize"

	resultSuccess         = "success"
	resultUnauthenticated = "unauthenticated"
	resultTransient       = "transient"
)

// Prometheus counter for token endpoint calls
var tokenRefreshes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "soundbridge_token_refresh_total",
		Help: "Total number of identity provider token requests by kind (user, app, authorize) and result",
	},
	[]string{"kind", "result"},
)
