// Package store persists the payments and subscriptions mirrored from
// processor webhooks.
package store

import (
	"context"
	"fmt"

	"billing-relay/backend/internal/database"
	"billing-relay/backend/internal/models"
)

// Store is the backend the webhook mutators and the verification endpoint
// read and write. Subscription updates match on the processor subscription
// id only; a miss returns models.ErrNotFound and writes nothing.
type Store interface {
	InsertPayment(ctx context.Context, p *models.Payment) error
	ListPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error)

	UpsertSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	UpdateSubscriptionState(ctx context.Context, stripeSubscriptionID string, st models.SubscriptionState) (*models.Subscription, error)
	SetSubscriptionStatus(ctx context.Context, stripeSubscriptionID, status string) (*models.Subscription, error)

	GetSubscriptionByUserID(ctx context.Context, userID string) (*models.Subscription, error)
	GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)

	Driver() string
	Close() error
}

// Open picks the driver from the URL: postgres:// URLs go through gorm,
// anything else is treated as a sqlite path.
func Open(storeURL, serviceKey string) (Store, error) {
	if database.IsPostgresURL(storeURL) {
		db, err := database.OpenPostgres(storeURL, serviceKey)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	}
	db, err := database.OpenAndMigrate(storeURL)
	if err != nil {
		return nil, fmt.Errorf("db open/migrate: %w", err)
	}
	return NewSQLiteStore(db), nil
}
