package speech

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRecognizerStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speech_recognizer_starts_total",
		Help: "Recognizer start attempts by outcome (ok, restart, error)",
	}, []string{"outcome"})

	metricRecognizerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speech_recognizer_errors_total",
		Help: "Recognition errors reported by the engine, by code",
	}, []string{"code"})
)
