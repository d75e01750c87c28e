package rules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ruleMatchCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_rule_matches",
	Help: "Number of times a rule matched a fragment",
}, []string{"rule", "category"})

var classifierCacheCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatguard_classifier_cache_total",
	Help: "Classifier verdict cache lookups by result",
}, []string{"result"})
