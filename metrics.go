package eventhandler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "eventhandler"

// Rejection reasons reported by the rejected events counter
const (
	reasonPaused     = "paused"
	reasonCatchingUp = "catching_up"
	reasonNotFound   = "handler_not_found"
)

// loopMetrics holds the event loop's collectors. A nil *loopMetrics records nothing.
type loopMetrics struct {
	scheduled  *prometheus.CounterVec
	dispatched *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	panics     *prometheus.CounterVec
	cancelled  prometheus.Counter
}

func newLoopMetrics(reg prometheus.Registerer) *loopMetrics {
	factory := promauto.With(reg)
	return &loopMetrics{
		scheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "events_scheduled_total",
				Help:      "Total number of events accepted by the event loop by handler",
			},
			[]string{"handler"},
		),
		dispatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "events_dispatched_total",
				Help:      "Total number of events handed to their handler",
			},
			[]string{"handler"},
		),
		rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "events_rejected_total",
				Help:      "Total number of events refused at scheduling time by reason",
			},
			[]string{"reason"},
		),
		panics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "handler_panics_total",
				Help:      "Total number of recovered handler panics",
			},
			[]string{"handler"},
		),
		cancelled: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "events_cancelled_total",
				Help:      "Total number of pending events cancelled before firing",
			},
		),
	}
}

func (m *loopMetrics) observeScheduled(handler string) {
	if m != nil {
		m.scheduled.WithLabelValues(handler).Inc()
	}
}

func (m *loopMetrics) observeDispatched(handler string) {
	if m != nil {
		m.dispatched.WithLabelValues(handler).Inc()
	}
}

func (m *loopMetrics) observeRejected(reason string) {
	if m != nil {
		m.rejected.WithLabelValues(reason).Inc()
	}
}

func (m *loopMetrics) observePanic(handler string) {
	if m != nil {
		m.panics.WithLabelValues(handler).Inc()
	}
}

func (m *loopMetrics) observeCancelled() {
	if m != nil {
		m.cancelled.Inc()
	}
}
