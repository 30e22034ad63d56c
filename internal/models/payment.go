package models

import "time"

// Payment is one completed checkout. Rows are append-only.
type Payment struct {
	ID                    string    `json:"id" gorm:"primaryKey;type:text"`
	UserID                string    `json:"user_id" gorm:"index;not null"`
	Plan                  string    `json:"plan" gorm:"not null"`
	StripePaymentIntentID string    `json:"stripe_payment_intent_id" gorm:"index;not null"`
	StripeSessionID       string    `json:"stripe_session_id,omitempty"`
	Amount                int64     `json:"amount" gorm:"not null"`
	Currency              string    `json:"currency" gorm:"not null"`
	Status                string    `json:"status" gorm:"not null"`
	CreatedAt             time.Time `json:"created_at"`
}
