// Package processor wraps the Stripe API calls the billing endpoints make.
package processor

import (
	"context"
	"errors"
	"time"

	"billing-relay/backend/internal/metrics"
	"billing-relay/backend/internal/tracing"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// ErrNotConfigured is returned when no Stripe secret key was supplied.
var ErrNotConfigured = errors.New("payment processor not configured")

// Metadata keys attached to sessions, intents and subscriptions so webhook
// events can be correlated back to a user and plan.
const (
	MetadataUserID = "user_id"
	MetadataPlan   = "plan"
)

type CheckoutRequest struct {
	PriceID    string
	Plan       string
	UserID     string
	Email      string
	SuccessURL string
	CancelURL  string
}

type PaymentIntentRequest struct {
	Amount   int64
	Currency string
	Plan     string
	UserID   string
	Email    string
}

// Client is the subset of the Stripe API this service uses.
type Client interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*stripe.CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*stripe.PaymentIntent, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}

// StripeClient talks to the live Stripe API with a per-instance key rather
// than the package-level stripe.Key.
type StripeClient struct {
	api     *client.API
	metrics *metrics.Recorder
}

// NewStripeClient returns ErrNotConfigured when secretKey is empty.
func NewStripeClient(secretKey string, rec *metrics.Recorder) (*StripeClient, error) {
	if secretKey == "" {
		return nil, ErrNotConfigured
	}
	return &StripeClient{api: client.New(secretKey, nil), metrics: rec}, nil
}

func metadataFor(userID, plan string) map[string]string {
	return map[string]string{
		MetadataUserID: userID,
		MetadataPlan:   plan,
	}
}

func (s *StripeClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*stripe.CheckoutSession, error) {
	ctx, span := tracing.StartSpan(ctx, "stripe.checkout_session.create")
	defer span.End()

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
		Metadata:          metadataFor(req.UserID, req.Plan),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadataFor(req.UserID, req.Plan),
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx

	started := time.Now()
	sess, err := s.api.CheckoutSessions.New(params)
	s.metrics.ObserveProcessorCall("checkout_session.create", started, err)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return sess, nil
}

func (s *StripeClient) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*stripe.PaymentIntent, error) {
	ctx, span := tracing.StartSpan(ctx, "stripe.payment_intent.create")
	defer span.End()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: metadataFor(req.UserID, req.Plan),
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.Context = ctx

	started := time.Now()
	pi, err := s.api.PaymentIntents.New(params)
	s.metrics.ObserveProcessorCall("payment_intent.create", started, err)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return pi, nil
}

func (s *StripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	ctx, span := tracing.StartSpan(ctx, "stripe.billing_portal_session.create")
	defer span.End()

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	started := time.Now()
	sess, err := s.api.BillingPortalSessions.New(params)
	s.metrics.ObserveProcessorCall("billing_portal_session.create", started, err)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return sess, nil
}

func (s *StripeClient) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	ctx, span := tracing.StartSpan(ctx, "stripe.checkout_session.get")
	defer span.End()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	started := time.Now()
	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	s.metrics.ObserveProcessorCall("checkout_session.get", started, err)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return sess, nil
}
