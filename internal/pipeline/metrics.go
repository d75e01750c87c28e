package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_events_total",
	Help: "Number of moderated events, by category and outcome",
}, []string{"category", "outcome"})

var degradedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_not_ready_total",
	Help: "Number of events degraded because session data was not loaded",
}, []string{"category"})

var sessionLoadCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_session_loads_total",
	Help: "Number of session loads, by result",
}, []string{"result"})
