// Package notify turns domain events into notification jobs for an
// external delivery component. The dispatcher formats nothing and sends
// nothing itself; it throttles and hands off.
package notify

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"hearth/internal/events"
	"hearth/internal/qualification"
)

// Notice is one notification job handed to the external sender.
type Notice struct {
	EventType string
	Payload   []byte
}

// Sender delivers notices. Implementations live outside the core
// (email, SMS, chat); a logging sender is used when none is configured.
type Sender interface {
	Send(ctx context.Context, n Notice) error
}

// Metrics holds Prometheus metrics for the dispatcher.
type Metrics struct {
	Dispatched *prometheus.CounterVec
	Dropped    prometheus.Counter
}

// NewMetrics registers dispatcher metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Dispatched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_dispatched_total",
				Help:      "Notifications handed to the sender by outcome.",
			},
			[]string{"outcome", "event_type"},
		),
		Dropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_dropped_total",
				Help:      "Notifications dropped because the queue was full.",
			},
		),
	}
}

// Dispatcher subscribes to the event bus and forwards events to the
// sender under a token-bucket rate limit.
type Dispatcher struct {
	sender  Sender
	limiter *rate.Limiter
	metrics *Metrics
	logger  zerolog.Logger

	queue chan Notice
	wg    sync.WaitGroup
}

// NewDispatcher creates a dispatcher sending at most perSecond notices
// per second with the given burst.
func NewDispatcher(sender Sender, perSecond float64, burst int, metrics *Metrics, logger zerolog.Logger) *Dispatcher {
	if perSecond <= 0 {
		perSecond = 20
	}
	if burst <= 0 {
		burst = 30
	}
	return &Dispatcher{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		metrics: metrics,
		logger:  logger.With().Str("component", "notify").Logger(),
		queue:   make(chan Notice, 256),
	}
}

// SubscribeAll registers the dispatcher for every notification-worthy
// event type on the bus.
func (d *Dispatcher) SubscribeAll(bus *events.EventBus) {
	types := []string{
		events.ReservationCreated,
		events.ReservationConfirmed,
		events.ReservationCancelled,
		qualification.EventSubmitted,
		qualification.EventStageAdvanced,
		qualification.EventRejected,
	}
	for _, t := range types {
		eventType := t
		bus.Subscribe(eventType, func(e events.Event) error {
			d.enqueue(Notice{EventType: eventType, Payload: e.Payload})
			return nil
		})
	}
}

func (d *Dispatcher) enqueue(n Notice) {
	select {
	case d.queue <- n:
	default:
		if d.metrics != nil {
			d.metrics.Dropped.Inc()
		}
		d.logger.Warn().Str("event", n.EventType).Msg("notification queue full, dropping")
	}
}

// Start runs the dispatch loop until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-d.queue:
				d.dispatch(ctx, n)
			}
		}
	}()
	d.logger.Info().Msg("notification dispatcher started")
}

// Wait blocks until the dispatch loop exits.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, n Notice) {
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}
	err := d.sender.Send(ctx, n)
	outcome := "sent"
	if err != nil {
		outcome = "failed"
		d.logger.Error().Err(err).Str("event", n.EventType).Msg("send notification failed")
	}
	if d.metrics != nil {
		d.metrics.Dispatched.WithLabelValues(outcome, n.EventType).Inc()
	}
}

// LogSender is the default sender: it only logs, for deployments where
// delivery is wired up elsewhere.
type LogSender struct {
	Logger zerolog.Logger
}

// Send logs the notice.
func (s *LogSender) Send(ctx context.Context, n Notice) error {
	s.Logger.Info().Str("event", n.EventType).RawJSON("payload", n.Payload).Msg("notification")
	return nil
}
