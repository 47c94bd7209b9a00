package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the realtime engine's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Connections  prometheus.Gauge
	WaitingRooms prometheus.Gauge
	ActiveRooms  prometheus.Gauge
	Pairings     prometheus.Counter
	Messages     *prometheus.CounterVec
	Translations *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lingochat", Name: "connections",
			Help: "Registered live connections.",
		}),
		WaitingRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lingochat", Name: "waiting_rooms",
			Help: "Chat rooms waiting for a second participant.",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lingochat", Name: "active_rooms",
			Help: "Chat rooms with two participants.",
		}),
		Pairings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lingochat", Name: "pairings_total",
			Help: "Users paired into a chat room.",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lingochat", Name: "messages_total",
			Help: "Relayed chat messages by result.",
		}, []string{"result"}),
		Translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lingochat", Name: "translations_total",
			Help: "Translation requests by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Connections, m.WaitingRooms, m.ActiveRooms, m.Pairings, m.Messages, m.Translations)
	}
	return m
}

func (m *Metrics) SetRooms(waiting, active int) {
	if m == nil {
		return
	}
	m.WaitingRooms.Set(float64(waiting))
	m.ActiveRooms.Set(float64(active))
}

func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.Connections.Set(float64(n))
}

func (m *Metrics) Paired() {
	if m == nil {
		return
	}
	m.Pairings.Inc()
}

func (m *Metrics) Message(result string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(result).Inc()
}

func (m *Metrics) Translation(result string) {
	if m == nil {
		return
	}
	m.Translations.WithLabelValues(result).Inc()
}
