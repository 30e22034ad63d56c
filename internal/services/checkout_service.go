package services

import (
	"context"
	"strings"

	"billing-relay/backend/internal/processor"
	"billing-relay/backend/internal/tracing"
)

const (
	ModeSubscription = "subscription"
	ModePayment      = "payment"
)

// Identity is the caller a session is created for. It is copied into the
// processor metadata so webhook events can be correlated later.
type Identity struct {
	UserID string
	Email  string
}

type CreateSessionInput struct {
	Plan       string
	Mode       string
	Identity   Identity
	SuccessURL string
	CancelURL  string
}

// CreateSessionResult carries either a hosted checkout session or a
// payment-intent client secret, depending on the mode.
type CreateSessionResult struct {
	SessionID    string `json:"sessionId,omitempty"`
	URL          string `json:"url,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

type CheckoutDefaults struct {
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
}

type CheckoutService struct {
	processor processor.Client
	plans     PriceTable
	defaults  CheckoutDefaults
}

// NewCheckoutService accepts a nil client; every call then fails with
// ErrNotConfigured after input validation.
func NewCheckoutService(client processor.Client, plans PriceTable, defaults CheckoutDefaults) *CheckoutService {
	return &CheckoutService{processor: client, plans: plans, defaults: defaults}
}

func (s *CheckoutService) Plans() []Plan { return s.plans.List() }

// CreateSession validates the plan before anything else so unknown plans
// never reach the processor.
func (s *CheckoutService) CreateSession(ctx context.Context, in CreateSessionInput) (*CreateSessionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "billing.create_session")
	defer span.End()

	plan, err := s.plans.Lookup(in.Plan)
	if err != nil {
		return nil, err
	}

	mode := strings.ToLower(strings.TrimSpace(in.Mode))
	if mode == "" {
		mode = ModeSubscription
	}
	if mode != ModeSubscription && mode != ModePayment {
		return nil, ErrInvalidMode
	}

	userID := strings.TrimSpace(in.Identity.UserID)
	if userID == "" {
		return nil, ErrMissingIdentity
	}
	if s.processor == nil {
		return nil, ErrNotConfigured
	}

	if mode == ModePayment {
		pi, err := s.processor.CreatePaymentIntent(ctx, processor.PaymentIntentRequest{
			Amount:   plan.Amount,
			Currency: plan.Currency,
			Plan:     plan.Name,
			UserID:   userID,
			Email:    in.Identity.Email,
		})
		if err != nil {
			tracing.RecordError(span, err)
			return nil, upstream(err)
		}
		return &CreateSessionResult{ClientSecret: pi.ClientSecret}, nil
	}

	successURL := firstNonEmpty(in.SuccessURL, s.defaults.SuccessURL)
	cancelURL := firstNonEmpty(in.CancelURL, s.defaults.CancelURL)
	sess, err := s.processor.CreateCheckoutSession(ctx, processor.CheckoutRequest{
		PriceID:    plan.PriceID,
		Plan:       plan.Name,
		UserID:     userID,
		Email:      in.Identity.Email,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, upstream(err)
	}
	return &CreateSessionResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// CreatePortalSession returns a single-use billing-portal URL.
func (s *CheckoutService) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "billing.create_portal_session")
	defer span.End()

	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", missingParameter("customerId")
	}
	if s.processor == nil {
		return "", ErrNotConfigured
	}
	sess, err := s.processor.CreatePortalSession(ctx, customerID, firstNonEmpty(returnURL, s.defaults.PortalReturnURL))
	if err != nil {
		tracing.RecordError(span, err)
		return "", upstream(err)
	}
	return sess.URL, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
