package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_events_total",
		Help: "Events handled by the session loop",
	}, []string{"type"})

	metricCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_commands_total",
		Help: "Commands applied, by source (voice, touch)",
	}, []string{"source"})

	metricDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_duplicate_transcripts_total",
		Help: "Transcripts dropped because the same command is still locked",
	})
)
