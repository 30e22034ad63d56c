package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"billing-relay/backend/internal/models"
	"billing-relay/backend/internal/processor"
	"billing-relay/backend/internal/store"
	"billing-relay/backend/internal/tracing"

	"github.com/stripe/stripe-go/v81"
	"go.opentelemetry.io/otel/attribute"
)

type SessionSummary struct {
	ID            string `json:"id"`
	PaymentStatus string `json:"payment_status"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

type VerificationResult struct {
	Subscription *models.Subscription `json:"subscription"`
	Session      SessionSummary       `json:"session"`
}

// VerifyService answers "did this checkout succeed" by reading the session
// from the processor and the subscription from the store. It races the
// webhook path; a paid session whose subscription hasn't landed yet is a
// not-found.
type VerifyService struct {
	processor processor.Client
	store     store.Store
}

func NewVerifyService(client processor.Client, st store.Store) *VerifyService {
	return &VerifyService{processor: client, store: st}
}

func (s *VerifyService) VerifyPayment(ctx context.Context, sessionID string) (*VerificationResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	ctx, span := tracing.StartSpan(ctx, "billing.verify_payment", attribute.String("stripe.session_id", sessionID))
	defer span.End()

	if sessionID == "" {
		return nil, missingParameter("sessionId")
	}
	if s.processor == nil {
		return nil, ErrNotConfigured
	}

	sess, err := s.processor.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("checkout session %s: %w", sessionID, models.ErrNotFound)
		}
		tracing.RecordError(span, err)
		return nil, upstream(err)
	}

	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, fmt.Errorf("%w: payment status %s", ErrPaymentDeclined, sess.PaymentStatus)
	}

	userID := firstNonEmpty(sess.Metadata[processor.MetadataUserID], sess.ClientReferenceID)
	if userID == "" {
		return nil, missingParameter("session metadata user_id")
	}

	sub, err := s.store.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := SessionSummary{
		ID:            sess.ID,
		PaymentStatus: string(sess.PaymentStatus),
		CustomerEmail: sess.CustomerEmail,
	}
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		summary.CustomerEmail = sess.CustomerDetails.Email
	}
	return &VerificationResult{Subscription: sub, Session: summary}, nil
}
