package services

import (
	"context"
	"errors"
	"log"
	"time"

	"billing-relay/backend/internal/metrics"
	"billing-relay/backend/internal/models"
	"billing-relay/backend/internal/processor"
	"billing-relay/backend/internal/store"
	"billing-relay/backend/internal/tracing"

	"github.com/stripe/stripe-go/v81"
	"go.opentelemetry.io/otel/attribute"
)

// Notifier is told about every subscription row a webhook changed.
type Notifier interface {
	SubscriptionChanged(sub *models.Subscription)
}

// WebhookService verifies deliveries and applies them to the store. A
// verified delivery is always acknowledged; handler failures are logged and
// counted, never returned.
type WebhookService struct {
	verifier processor.Verifier
	store    store.Store
	notifier Notifier
	metrics  *metrics.Recorder
	timeout  time.Duration
}

type WebhookOption func(*WebhookService)

func WithNotifier(n Notifier) WebhookOption {
	return func(s *WebhookService) { s.notifier = n }
}

func WithMetrics(r *metrics.Recorder) WebhookOption {
	return func(s *WebhookService) { s.metrics = r }
}

func WithHandlerTimeout(d time.Duration) WebhookOption {
	return func(s *WebhookService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewWebhookService(verifier processor.Verifier, st store.Store, opts ...WebhookOption) *WebhookService {
	s := &WebhookService{verifier: verifier, store: st, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleDelivery verifies payload against signature and dispatches it. The
// only errors returned are verification errors; nothing has been written
// when one is returned.
func (s *WebhookService) HandleDelivery(ctx context.Context, payload []byte, signature string) (string, error) {
	event, err := s.verifier.Verify(payload, signature)
	if err != nil {
		s.metrics.WebhookEvent("", metrics.OutcomeRejected)
		return metrics.OutcomeRejected, err
	}
	return s.Dispatch(ctx, event), nil
}

// Dispatch applies a verified event and returns the outcome label. Handler
// work ignores ctx cancellation and is bounded by the handler timeout.
func (s *WebhookService) Dispatch(ctx context.Context, event stripe.Event) string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	eventType := string(event.Type)
	ctx, span := tracing.StartSpan(ctx, "billing.webhook.dispatch",
		attribute.String("stripe.event_id", event.ID),
		attribute.String("stripe.event_type", eventType),
	)
	defer span.End()

	outcome, err := s.apply(ctx, event)
	switch {
	case err == nil:
	case outcome == metrics.OutcomeSkipped:
		log.Printf("webhook: skipped event_id=%s type=%s reason=%v", event.ID, eventType, err)
	default:
		tracing.RecordError(span, err)
		log.Printf("webhook: handler failed event_id=%s type=%s err=%v", event.ID, eventType, err)
	}
	span.SetAttributes(attribute.String("billing.outcome", outcome))
	s.metrics.WebhookEvent(eventType, outcome)
	return outcome
}

func (s *WebhookService) apply(ctx context.Context, event stripe.Event) (string, error) {
	payload, err := decodeEvent(event)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return metrics.OutcomeSkipped, err
		}
		return metrics.OutcomeFailed, err
	}

	var sub *models.Subscription
	switch p := payload.(type) {
	case nil:
		return metrics.OutcomeIgnored, nil
	case *CheckoutCompleted:
		err = s.checkoutCompleted(ctx, p)
	case *SubscriptionCreated:
		sub, err = s.subscriptionCreated(ctx, p)
	case *SubscriptionUpdated:
		sub, err = s.subscriptionUpdated(ctx, p)
	case *SubscriptionDeleted:
		sub, err = s.store.SetSubscriptionStatus(ctx, p.SubscriptionID, models.StatusCanceled)
	case *InvoicePayment:
		if p.SubscriptionID == "" {
			return metrics.OutcomeSkipped, nil
		}
		status := models.StatusPastDue
		if p.Succeeded {
			status = models.StatusActive
		}
		sub, err = s.store.SetSubscriptionStatus(ctx, p.SubscriptionID, status)
	}

	if errors.Is(err, models.ErrNotFound) {
		return metrics.OutcomeSkipped, err
	}
	if err != nil {
		return metrics.OutcomeFailed, err
	}
	if sub != nil && s.notifier != nil {
		s.notifier.SubscriptionChanged(sub)
	}
	return metrics.OutcomeApplied, nil
}

func (s *WebhookService) checkoutCompleted(ctx context.Context, p *CheckoutCompleted) error {
	return s.store.InsertPayment(ctx, &models.Payment{
		UserID:                p.UserID,
		Plan:                  p.Plan,
		StripePaymentIntentID: p.PaymentIntentID,
		StripeSessionID:       p.SessionID,
		Amount:                p.Amount,
		Currency:              p.Currency,
		Status:                firstNonEmpty(p.PaymentStatus, "paid"),
	})
}

func (s *WebhookService) subscriptionCreated(ctx context.Context, p *SubscriptionCreated) (*models.Subscription, error) {
	return s.store.UpsertSubscription(ctx, &models.Subscription{
		UserID:               p.UserID,
		Plan:                 p.Plan,
		StripeCustomerID:     p.CustomerID,
		StripeSubscriptionID: p.SubscriptionID,
		Status:               p.Status,
		CurrentPeriodStart:   p.CurrentPeriodStart,
		CurrentPeriodEnd:     p.CurrentPeriodEnd,
		CancelAtPeriodEnd:    p.CancelAtPeriodEnd,
	})
}

func (s *WebhookService) subscriptionUpdated(ctx context.Context, p *SubscriptionUpdated) (*models.Subscription, error) {
	return s.store.UpdateSubscriptionState(ctx, p.SubscriptionID, models.SubscriptionState{
		Status:             p.Status,
		CurrentPeriodStart: p.CurrentPeriodStart,
		CurrentPeriodEnd:   p.CurrentPeriodEnd,
		CancelAtPeriodEnd:  p.CancelAtPeriodEnd,
	})
}
