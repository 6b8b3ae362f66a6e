package lock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "command_lock_accepted_total",
		Help: "Commands recorded by the lock",
	})

	metricDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "command_lock_duplicates_total",
		Help: "Repeated commands refused inside the cooldown window",
	})
)
