package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// Prometheus counter for read-through lookups
var cacheRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "soundbridge_cache_requests_total",
		Help: "Total number of read-through cache lookups by result (hit, miss, error)",
	},
	[]string{"result"},
)
