package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_state_transitions_total",
		Help: "Playback state transitions",
	}, []string{"from", "to"})

	metricAnnouncements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_announcements_total",
		Help: "System announcements by outcome (spoken, dropped, failed)",
	}, []string{"outcome"})
)
