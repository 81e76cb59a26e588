package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

var dispatchRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "dispatch_requests_total",
		Help:      "Dispatched action requests by terminal outcome",
	},
	[]string{
		"api_version",
		"service",
		"action",
		"outcome",
	},
)

var dispatchDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "gateway",
		Name:      "dispatch_duration_seconds",
		Help:      "Dispatch latency from decode to envelope",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{
		"api_version",
		"service",
		"action",
	},
)

func init() {
	prometheus.MustRegister(dispatchRequests)
	prometheus.MustRegister(dispatchDuration)
}
