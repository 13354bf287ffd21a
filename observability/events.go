package observability

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"quickart/core/events"
	"quickart/core/types"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking structured ledger events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "quickart",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of ledger events segmented by event type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// Record increments the emitted counter for the supplied event type.
func (m *eventMetrics) Record(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.emitted.WithLabelValues(eventType).Inc()
}

// payloadCarrier is implemented by engine events that wrap a typed payload.
type payloadCarrier interface {
	Event() *types.Event
}

// LogEmitter forwards engine events to the structured logger and the event
// counter so external observers see every listing, sale and relist.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter wires an emitter to the supplied logger. A nil logger falls
// back to the process default.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit implements events.Emitter.
func (l *LogEmitter) Emit(evt events.Event) {
	if l == nil || evt == nil {
		return
	}
	Events().Record(evt.EventType())
	attrs := []any{slog.String("type", evt.EventType())}
	if carrier, ok := evt.(payloadCarrier); ok {
		if payload := carrier.Event(); payload != nil {
			for key, value := range payload.Attributes {
				attrs = append(attrs, slog.String(key, value))
			}
		}
	}
	l.logger.Info("ledger event", attrs...)
}
