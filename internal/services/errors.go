package services

import (
	"errors"
	"fmt"
	"strings"

	"billing-relay/backend/internal/processor"
)

var (
	ErrInvalidPlan      = errors.New("invalid subscription plan")
	ErrInvalidMode      = errors.New("invalid checkout mode")
	ErrMissingIdentity  = errors.New("missing caller identity")
	ErrMissingParameter = errors.New("missing required parameter")
	ErrUpstream         = errors.New("payment processor request failed")
	ErrPaymentDeclined  = errors.New("payment not completed")
	ErrForbidden        = errors.New("resource belongs to another user")

	ErrNotConfigured = processor.ErrNotConfigured
	ErrSignature     = processor.ErrInvalidSignature
)

func missingParameter(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, name)
}

func upstream(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

// ValidationError reports a verified webhook event whose payload lacks the
// fields its handler needs. Events that fail validation are skipped.
type ValidationError struct {
	EventType string
	Fields    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event %s missing required fields: %s", e.EventType, strings.Join(e.Fields, ", "))
}
