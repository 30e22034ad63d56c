package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"billing-relay/backend/internal/models"

	"github.com/google/uuid"
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLiteStore) Driver() string { return "sqlite" }

func (s *SQLiteStore) Close() error { return s.db.Close() }

const subscriptionColumns = `id, user_id, plan, stripe_customer_id, stripe_subscription_id,
	status, current_period_start, current_period_end, cancel_at_period_end,
	canceled_at, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	var sub models.Subscription
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.Plan, &sub.StripeCustomerID, &sub.StripeSubscriptionID,
		&sub.Status, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd,
		&sub.CanceledAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SQLiteStore) InsertPayment(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (
			id, user_id, plan, stripe_payment_intent_id, stripe_session_id,
			amount, currency, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Plan, p.StripePaymentIntentID, p.StripeSessionID,
		p.Amount, p.Currency, p.Status, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, plan, stripe_payment_intent_id, stripe_session_id,
		       amount, currency, status, created_at
		FROM payments
		WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []*models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Plan, &p.StripePaymentIntentID, &p.StripeSessionID,
			&p.Amount, &p.Currency, &p.Status, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) UpsertSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	now := s.now()
	id := sub.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (
			id, user_id, plan, stripe_customer_id, stripe_subscription_id,
			status, current_period_start, current_period_end, cancel_at_period_end,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stripe_subscription_id) DO UPDATE SET
			user_id = excluded.user_id,
			plan = excluded.plan,
			stripe_customer_id = excluded.stripe_customer_id,
			status = excluded.status,
			current_period_start = excluded.current_period_start,
			current_period_end = excluded.current_period_end,
			cancel_at_period_end = excluded.cancel_at_period_end,
			updated_at = excluded.updated_at`,
		id, sub.UserID, sub.Plan, sub.StripeCustomerID, sub.StripeSubscriptionID,
		sub.Status, sub.CurrentPeriodStart.UTC(), sub.CurrentPeriodEnd.UTC(), sub.CancelAtPeriodEnd,
		now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return s.GetSubscriptionByStripeID(ctx, sub.StripeSubscriptionID)
}

func (s *SQLiteStore) UpdateSubscriptionState(ctx context.Context, stripeSubscriptionID string, st models.SubscriptionState) (*models.Subscription, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = ?, current_period_start = ?, current_period_end = ?,
		    cancel_at_period_end = ?, updated_at = ?
		WHERE stripe_subscription_id = ?`,
		st.Status, st.CurrentPeriodStart.UTC(), st.CurrentPeriodEnd.UTC(),
		st.CancelAtPeriodEnd, s.now(), stripeSubscriptionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetSubscriptionByStripeID(ctx, stripeSubscriptionID)
}

func (s *SQLiteStore) SetSubscriptionStatus(ctx context.Context, stripeSubscriptionID, status string) (*models.Subscription, error) {
	now := s.now()
	var (
		res sql.Result
		err error
	)
	if status == models.StatusCanceled {
		res, err = s.db.ExecContext(ctx, `
			UPDATE subscriptions
			SET status = ?, canceled_at = ?, updated_at = ?
			WHERE stripe_subscription_id = ?`,
			status, now, now, stripeSubscriptionID,
		)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE subscriptions
			SET status = ?, updated_at = ?
			WHERE stripe_subscription_id = ?`,
			status, now, stripeSubscriptionID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set subscription status: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetSubscriptionByStripeID(ctx, stripeSubscriptionID)
}

func (s *SQLiteStore) GetSubscriptionByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = ?
		ORDER BY updated_at DESC
		LIMIT 1`, userID)
	sub, err := scanSubscription(row)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, err
}

func (s *SQLiteStore) GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE stripe_subscription_id = ?`, stripeSubscriptionID)
	sub, err := scanSubscription(row)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
