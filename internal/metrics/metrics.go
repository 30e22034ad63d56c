package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Webhook outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeSkipped  = "skipped"
	OutcomeIgnored  = "ignored"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Recorder exports processor and webhook telemetry. A nil *Recorder is a
// valid no-op.
type Recorder struct {
	processorRequests *prometheus.CounterVec
	processorDuration *prometheus.HistogramVec
	webhookEvents     *prometheus.CounterVec
}

// New registers the billing metrics on reg (the default registerer when nil).
func New(namespace string, reg prometheus.Registerer) (*Recorder, error) {
	if namespace == "" {
		namespace = "billing_relay"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "processor_requests_total",
		Help:      "Calls made to the payment processor API.",
	}, []string{"operation", "outcome"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "processor_request_duration_seconds",
		Help:      "Latency of payment processor API calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	events, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Webhook deliveries by event type and outcome.",
	}, []string{"type", "outcome"}))
	if err != nil {
		return nil, err
	}
	r := &Recorder{
		processorRequests: requests,
		processorDuration: duration,
		webhookEvents:     events,
	}
	return r, nil
}

// register reuses an identical collector when one is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register billing metric: %w", err)
	}
	return c, nil
}

// ObserveProcessorCall records one processor API call.
func (r *Recorder) ObserveProcessorCall(operation string, started time.Time, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.processorRequests.WithLabelValues(operation, outcome).Inc()
	r.processorDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// WebhookEvent records how one webhook delivery was handled.
func (r *Recorder) WebhookEvent(eventType, outcome string) {
	if r == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	r.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}
