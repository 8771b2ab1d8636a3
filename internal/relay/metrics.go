package relay

import "github.com/prometheus/client_golang/prometheus"

var (
	relayConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "todo_app_relay_connections",
			Help: "Current number of open relay connections.",
		},
	)
	relayRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "todo_app_relay_rooms",
			Help: "Current number of rooms with at least one member.",
		},
	)
	relayDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "todo_app_relay_frames_delivered_total",
			Help: "Total frames queued to relay recipients.",
		},
	)
	relayDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "todo_app_relay_frames_dropped_total",
			Help: "Frames dropped because the recipient queue was full or the frame could not be routed.",
		},
	)
	relayBridged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_app_relay_bridge_frames_total",
			Help: "Frames exchanged with other relay instances.",
		},
		[]string{"direction"},
	)
)

func init() {
	prometheus.MustRegister(relayConnections, relayRooms, relayDelivered, relayDropped, relayBridged)
}

func incConnections() {
	relayConnections.Inc()
}

func decConnections() {
	relayConnections.Dec()
}

func setRooms(count int) {
	relayRooms.Set(float64(count))
}

func addDelivered(count int) {
	relayDelivered.Add(float64(count))
}

func addDropped(count int) {
	relayDropped.Add(float64(count))
}

func incBridged(direction string) {
	relayBridged.WithLabelValues(direction).Inc()
}
