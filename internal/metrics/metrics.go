// Package metrics exports fan and button activity as Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/pi-cooler/internal/events"
	"github.com/sweeney/pi-cooler/internal/logic"
)

const namespace = "pi_cooler"

// Collector holds the daemon's metrics.
type Collector struct {
	fanOn          prometheus.Gauge
	temperature    prometheus.Gauge
	fanChecks      *prometheus.CounterVec
	fanSwitches    *prometheus.CounterVec
	sampleFailures prometheus.Counter
	activations    *prometheus.CounterVec
	commands       *prometheus.CounterVec
	mqttConnected  prometheus.Gauge
}

// New creates a Collector and registers its metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		fanOn: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fan",
			Name:      "on",
			Help:      "1 if the cooler fan is driven on",
		}),
		temperature: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fan",
			Name:      "temperature_celsius",
			Help:      "Last temperature reading",
		}),
		fanChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fan",
			Name:      "checks_total",
			Help:      "Fan checks by decision reason",
		}, []string{"reason"}),
		fanSwitches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fan",
			Name:      "switches_total",
			Help:      "Fan level changes by new state",
		}, []string{"state"}),
		sampleFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fan",
			Name:      "sample_failures_total",
			Help:      "Fan checks where the temperature command gave no reading",
		}),
		activations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "button",
			Name:      "activations_total",
			Help:      "Finished power button activations by outcome",
		}, []string{"outcome"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "button",
			Name:      "commands_total",
			Help:      "Commands started by the power button, by stage",
		}, []string{"stage"}),
		mqttConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "connected",
			Help:      "1 if the MQTT broker connection is up",
		}),
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ObserveFan records a fan check.
func (c *Collector) ObserveFan(e events.FanChecked) {
	c.fanOn.Set(boolFloat(e.On))
	c.fanChecks.WithLabelValues(string(e.Reason)).Inc()
	if e.Changed {
		c.fanSwitches.WithLabelValues(string(logic.StateOf(e.On))).Inc()
	}
	if e.HasTemp {
		c.temperature.Set(e.Temp)
	}
	if e.Reason == logic.ReasonNoReading {
		c.sampleFailures.Inc()
	}
}

// ObserveButton records a finished button activation.
func (c *Collector) ObserveButton(e events.ButtonActivated) {
	c.activations.WithLabelValues(string(e.Result.Outcome)).Inc()
	if e.Result.Outcome == logic.OutcomeCommand {
		c.commands.WithLabelValues(strconv.Itoa(e.Result.Stage)).Inc()
	}
}

// SetMQTTConnected records the broker connection state.
func (c *Collector) SetMQTTConnected(connected bool) {
	c.mqttConnected.Set(boolFloat(connected))
}

// Subscribe feeds the collector from bus and returns the unsubscribe function.
func (c *Collector) Subscribe(bus *events.Bus) func() {
	unsubFan := bus.Subscribe(c.ObserveFan)
	unsubButton := bus.Subscribe(c.ObserveButton)
	return func() {
		unsubFan()
		unsubButton()
	}
}
