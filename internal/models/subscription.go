package models

import "time"

// Subscription statuses this service writes itself. Other processor statuses
// (trialing, incomplete, unpaid, paused, ...) are stored verbatim.
const (
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// Subscription mirrors one processor subscription. StripeSubscriptionID is
// the match key for every webhook-driven update.
type Subscription struct {
	ID                   string     `json:"id" gorm:"primaryKey;type:text"`
	UserID               string     `json:"user_id" gorm:"index;not null"`
	Plan                 string     `json:"plan" gorm:"not null"`
	StripeCustomerID     string     `json:"stripe_customer_id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id" gorm:"uniqueIndex;not null"`
	Status               string     `json:"status" gorm:"not null"`
	CurrentPeriodStart   time.Time  `json:"current_period_start"`
	CurrentPeriodEnd     time.Time  `json:"current_period_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end" gorm:"not null;default:false"`
	CanceledAt           *time.Time `json:"canceled_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// SubscriptionState is the subset of a subscription that
// customer.subscription.updated carries.
type SubscriptionState struct {
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

// IsEntitled reports whether the subscription currently grants access.
func (s *Subscription) IsEntitled() bool {
	if s == nil {
		return false
	}
	switch s.Status {
	case StatusActive, "trialing", StatusPastDue:
		return true
	}
	return false
}
