package console

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the console bridge counters.
type Metrics struct {
	ConnectAttempts *prometheus.CounterVec
	Connected       prometheus.Gauge
	FramesReceived  *prometheus.CounterVec
	FramesDropped   *prometheus.CounterVec
	CommandsSent    *prometheus.CounterVec
	RulesFired      *prometheus.CounterVec
	MIDIErrors      prometheus.Counter
}

// NewMetrics creates unregistered metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ConnectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uad2midi",
				Subsystem: "console",
				Name:      "connect_attempts_total",
				Help:      "Console connection attempts by result",
			},
			[]string{"result"},
		),

		Connected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "uad2midi",
				Subsystem: "console",
				Name:      "connected",
				Help:      "Console connection status (0=disconnected, 1=connected)",
			},
		),

		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uad2midi",
				Subsystem: "frames",
				Name:      "received_total",
				Help:      "Frames received from the console by route",
			},
			[]string{"route"},
		),

		FramesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uad2midi",
				Subsystem: "frames",
				Name:      "dropped_total",
				Help:      "Frames dropped because they could not be parsed",
			},
			[]string{"reason"},
		),

		CommandsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uad2midi",
				Subsystem: "commands",
				Name:      "sent_total",
				Help:      "Commands sent to the console by verb",
			},
			[]string{"verb"},
		),

		RulesFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uad2midi",
				Subsystem: "rules",
				Name:      "fired_total",
				Help:      "Rules fired by action kind",
			},
			[]string{"action"},
		),

		MIDIErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "uad2midi",
				Subsystem: "midi",
				Name:      "send_errors_total",
				Help:      "MIDI messages the sink failed to send",
			},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.ConnectAttempts,
		m.Connected,
		m.FramesReceived,
		m.FramesDropped,
		m.CommandsSent,
		m.RulesFired,
		m.MIDIErrors,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
