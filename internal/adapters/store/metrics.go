package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var logDropCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatguard_log_dropped_total",
	Help: "Moderation log entries dropped because the writer fell behind",
})

var storeOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "chatguard_store_duration_seconds",
	Help:    "Duration of store operations",
	Buckets: prometheus.DefBuckets,
}, []string{"backend", "op"})
