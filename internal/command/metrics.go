package command

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"voicereader/agent/internal/nav"
)

var (
	metricDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "command_decisions_total",
		Help: "Commands taken, by rule tier and action kind",
	}, []string{"tier", "kind"})

	metricRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "command_rejections_total",
		Help: "Phrases that matched no command, by view",
	}, []string{"view"})
)

// Observe records a routing outcome. Route itself stays side-effect free, so
// the caller reports decisions it acts on.
func Observe(view nav.View, a Action, ok bool) {
	if !ok {
		metricRejections.WithLabelValues(view.String()).Inc()
		return
	}
	metricDecisions.WithLabelValues(a.Tier.String(), a.Kind.String()).Inc()
}
