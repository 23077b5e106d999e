package media

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultFound    = "found"
	resultNotFound = "not_found"
	resultFailed   = "failed"
	resultReused   = "reused"
)

var resolutions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "soundbridge_media_resolutions_total",
		Help: "Media resolutions by outcome",
	},
	[]string{"result"},
)
