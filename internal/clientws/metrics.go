package clientws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clientws_connections",
		Help: "Attached client connections",
	})

	metricMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clientws_messages_total",
		Help: "Client messages by direction and type",
	}, []string{"direction", "type"})

	metricSendDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clientws_send_dropped_total",
		Help: "Outbound messages dropped because the client queue was full",
	})
)
