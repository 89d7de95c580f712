// Package metrics собирает Prometheus метрики слоя привязки: события
// движка, жизненный цикл агентов и handle, шаги реактора и аварии в
// callback.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace префикс всех метрик
const Namespace = "sofia"

// Collector набор метрик. Все методы безопасны для nil получателя,
// тогда они ничего не делают.
type Collector struct {
	events              *prometheus.CounterVec
	agentsCreated       prometheus.Counter
	agentCreateFailures prometheus.Counter
	agentsActive        prometheus.Gauge
	handlesActive       prometheus.Gauge
	handleFailures      prometheus.Counter
	rootCreateFailures  prometheus.Counter
	reactorSteps        prometheus.Counter
	trampolineFailures  *prometheus.CounterVec
}

// New регистрирует метрики в reg
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_total",
			Help:      "Events delivered by the engine, by event name",
		}, []string{"event"}),
		agentsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "nua",
			Name:      "agents_created_total",
			Help:      "Agents successfully created",
		}),
		agentCreateFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "nua",
			Name:      "agent_create_failures_total",
			Help:      "Agent creations rejected by the engine",
		}),
		agentsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "nua",
			Name:      "agents_active",
			Help:      "Agents not yet destroyed",
		}),
		handlesActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "nua",
			Name:      "handles_active",
			Help:      "Dialog handles not yet destroyed",
		}),
		handleFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "nua",
			Name:      "handle_create_failures_total",
			Help:      "Dialog handle creations rejected by the engine",
		}),
		rootCreateFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "su",
			Name:      "root_create_failures_total",
			Help:      "Reactor creations rejected by the engine",
		}),
		reactorSteps: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "su",
			Name:      "steps_total",
			Help:      "Reactor steps performed",
		}),
		trampolineFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "nua",
			Name:      "trampoline_failures_total",
			Help:      "Fatal failures inside the event callback, by reason",
		}, []string{"reason"}),
	}
}

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
)

// Default набор метрик, зарегистрированный в prometheus.DefaultRegisterer
func Default() *Collector {
	defaultOnce.Do(func() {
		defaultCollector = New(prometheus.DefaultRegisterer)
	})
	return defaultCollector
}

// Event учитывает доставленное событие
func (c *Collector) Event(name string) {
	if c == nil {
		return
	}
	c.events.WithLabelValues(name).Inc()
}

func (c *Collector) AgentCreated() {
	if c == nil {
		return
	}
	c.agentsCreated.Inc()
	c.agentsActive.Inc()
}

func (c *Collector) AgentCreateFailed() {
	if c == nil {
		return
	}
	c.agentCreateFailures.Inc()
}

func (c *Collector) AgentDestroyed() {
	if c == nil {
		return
	}
	c.agentsActive.Dec()
}

func (c *Collector) HandleCreated() {
	if c == nil {
		return
	}
	c.handlesActive.Inc()
}

func (c *Collector) HandleCreateFailed() {
	if c == nil {
		return
	}
	c.handleFailures.Inc()
}

func (c *Collector) HandleDestroyed() {
	if c == nil {
		return
	}
	c.handlesActive.Dec()
}

func (c *Collector) RootCreateFailed() {
	if c == nil {
		return
	}
	c.rootCreateFailures.Inc()
}

func (c *Collector) ReactorStep() {
	if c == nil {
		return
	}
	c.reactorSteps.Inc()
}

// TrampolineFailure учитывает аварию в callback перед завершением
// процесса
func (c *Collector) TrampolineFailure(reason string) {
	if c == nil {
		return
	}
	c.trampolineFailures.WithLabelValues(reason).Inc()
}
