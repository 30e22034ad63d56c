package processor

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// ErrInvalidSignature covers every way a delivery can fail verification:
// missing header, stale timestamp, or an HMAC that doesn't match the body.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// SignatureHeader carries the processor's signature over the raw body.
const SignatureHeader = "Stripe-Signature"

// Verifier turns an unverified delivery (raw body + claimed signature) into
// a verified event.
type Verifier interface {
	Verify(payload []byte, signature string) (stripe.Event, error)
}

type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: secret}
}

// Verify recomputes the signature over the exact payload. The event's API
// version is not checked against the SDK's pinned version: handlers only
// read fields that are stable across versions.
func (v *StripeVerifier) Verify(payload []byte, signature string) (stripe.Event, error) {
	if v.secret == "" {
		return stripe.Event{}, fmt.Errorf("%w: webhook secret not configured", ErrNotConfigured)
	}
	if signature == "" {
		return stripe.Event{}, fmt.Errorf("%w: missing %s header", ErrInvalidSignature, SignatureHeader)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}
