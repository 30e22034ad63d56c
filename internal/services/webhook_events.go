package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"billing-relay/backend/internal/processor"

	"github.com/go-playground/validator/v10"
	"github.com/stripe/stripe-go/v81"
)

// Event types with a state mutation. Anything else is acknowledged and
// ignored.
const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventSubscriptionCreated     = "customer.subscription.created"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
)

type CheckoutCompleted struct {
	SessionID       string `json:"session_id" validate:"required"`
	UserID          string `json:"user_id" validate:"required"`
	Plan            string `json:"plan" validate:"required"`
	PaymentIntentID string `json:"payment_intent" validate:"required"`
	PaymentStatus   string `json:"payment_status"`
	Amount          int64  `json:"amount_total" validate:"gte=0"`
	Currency        string `json:"currency" validate:"required"`
}

type SubscriptionCreated struct {
	SubscriptionID     string `json:"subscription_id" validate:"required"`
	CustomerID         string `json:"customer" validate:"required"`
	UserID             string `json:"user_id" validate:"required"`
	Plan               string `json:"plan" validate:"required"`
	Status             string `json:"status" validate:"required"`
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

type SubscriptionUpdated struct {
	SubscriptionID     string `json:"subscription_id" validate:"required"`
	Status             string `json:"status" validate:"required"`
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

type SubscriptionDeleted struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
}

// InvoicePayment covers both invoice outcomes. SubscriptionID is empty for
// one-off invoices.
type InvoicePayment struct {
	InvoiceID      string
	SubscriptionID string
	Succeeded      bool
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func validatePayload(eventType string, payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{EventType: eventType, Fields: fields}
}

// decodeEvent turns a verified event into the typed payload for its handler.
// It returns (nil, nil) for event types without a handler.
func decodeEvent(event stripe.Event) (any, error) {
	eventType := string(event.Type)
	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	var payload any
	switch eventType {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		payload = checkoutCompletedFrom(&sess)
	case EventSubscriptionCreated:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		payload = subscriptionCreatedFrom(&sub)
	case EventSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		payload = &SubscriptionUpdated{
			SubscriptionID:     sub.ID,
			Status:             string(sub.Status),
			CurrentPeriodStart: unixTime(sub.CurrentPeriodStart),
			CurrentPeriodEnd:   unixTime(sub.CurrentPeriodEnd),
			CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		}
	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		payload = &SubscriptionDeleted{SubscriptionID: sub.ID}
	case EventInvoicePaymentSucceeded, EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, fmt.Errorf("failed to parse invoice: %w", err)
		}
		ip := &InvoicePayment{InvoiceID: inv.ID, Succeeded: eventType == EventInvoicePaymentSucceeded}
		if inv.Subscription != nil {
			ip.SubscriptionID = inv.Subscription.ID
		}
		return ip, nil
	default:
		return nil, nil
	}

	if err := validatePayload(eventType, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func checkoutCompletedFrom(sess *stripe.CheckoutSession) *CheckoutCompleted {
	cc := &CheckoutCompleted{
		SessionID:     sess.ID,
		UserID:        firstNonEmpty(sess.Metadata[processor.MetadataUserID], sess.ClientReferenceID),
		Plan:          sess.Metadata[processor.MetadataPlan],
		PaymentStatus: string(sess.PaymentStatus),
		Amount:        sess.AmountTotal,
		Currency:      string(sess.Currency),
	}
	// Subscription-mode sessions carry no payment intent; the session id
	// stands in so the row still has a processor key.
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		cc.PaymentIntentID = sess.PaymentIntent.ID
	} else {
		cc.PaymentIntentID = sess.ID
	}
	return cc
}

func subscriptionCreatedFrom(sub *stripe.Subscription) *SubscriptionCreated {
	sc := &SubscriptionCreated{
		SubscriptionID:     sub.ID,
		UserID:             sub.Metadata[processor.MetadataUserID],
		Plan:               sub.Metadata[processor.MetadataPlan],
		Status:             string(sub.Status),
		CurrentPeriodStart: unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		sc.CustomerID = sub.Customer.ID
	}
	return sc
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
