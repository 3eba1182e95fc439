package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elysium_turns_total",
			Help: "Total number of turn pipeline runs, partitioned by outcome.",
		},
		[]string{"outcome"}, // success | partial | failed
	)
	stageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elysium_stage_failures_total",
			Help: "Total number of pipeline stage failures, partitioned by stage.",
		},
		[]string{"stage"},
	)
)
