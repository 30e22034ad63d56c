package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"billing-relay/backend/internal/database"
	"billing-relay/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore backs the service with a hosted postgres database.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *GormStore) Driver() string { return "postgres" }

func (s *GormStore) Close() error {
	database.ClosePostgres(s.db)
	return nil
}

func (s *GormStore) InsertPayment(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *GormStore) ListPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	var out []*models.Payment
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	return out, nil
}

func (s *GormStore) UpsertSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	now := s.now()
	row := *sub
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	row.CreatedAt = now
	row.UpdatedAt = now

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "plan", "stripe_customer_id", "status",
			"current_period_start", "current_period_end", "cancel_at_period_end", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return s.GetSubscriptionByStripeID(ctx, sub.StripeSubscriptionID)
}

func (s *GormStore) UpdateSubscriptionState(ctx context.Context, stripeSubscriptionID string, st models.SubscriptionState) (*models.Subscription, error) {
	return s.update(ctx, stripeSubscriptionID, map[string]any{
		"status":               st.Status,
		"current_period_start": st.CurrentPeriodStart.UTC(),
		"current_period_end":   st.CurrentPeriodEnd.UTC(),
		"cancel_at_period_end": st.CancelAtPeriodEnd,
		"updated_at":           s.now(),
	})
}

func (s *GormStore) SetSubscriptionStatus(ctx context.Context, stripeSubscriptionID, status string) (*models.Subscription, error) {
	now := s.now()
	fields := map[string]any{"status": status, "updated_at": now}
	if status == models.StatusCanceled {
		fields["canceled_at"] = now
	}
	return s.update(ctx, stripeSubscriptionID, fields)
}

func (s *GormStore) update(ctx context.Context, stripeSubscriptionID string, fields map[string]any) (*models.Subscription, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.ErrNotFound
	}
	return s.GetSubscriptionByStripeID(ctx, stripeSubscriptionID)
}

func (s *GormStore) GetSubscriptionByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	return first(s.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC"))
}

func (s *GormStore) GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	return first(s.db.WithContext(ctx).Where("stripe_subscription_id = ?", stripeSubscriptionID))
}

func first(q *gorm.DB) (*models.Subscription, error) {
	var sub models.Subscription
	if err := q.First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}
