package services

import (
	"context"
	"errors"

	"billing-relay/backend/internal/models"
	"billing-relay/backend/internal/store"
)

type AccountOverview struct {
	Subscription *models.Subscription `json:"subscription"`
	Entitled     bool                 `json:"entitled"`
	Payments     []*models.Payment    `json:"payments"`
}

// AccountService reads the mirrored billing state for one user.
type AccountService struct {
	store store.Store
}

func NewAccountService(st store.Store) *AccountService {
	return &AccountService{store: st}
}

func (s *AccountService) Overview(ctx context.Context, userID string) (*AccountOverview, error) {
	if userID == "" {
		return nil, ErrMissingIdentity
	}
	sub, err := s.store.GetSubscriptionByUserID(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	payments, err := s.store.ListPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return &AccountOverview{Subscription: sub, Entitled: sub.IsEntitled(), Payments: payments}, nil
}

// AuthorizeCustomer checks that customerID is the processor customer on
// userID's subscription. Users without a subscription own no customer.
func (s *AccountService) AuthorizeCustomer(ctx context.Context, userID, customerID string) error {
	if userID == "" {
		return ErrMissingIdentity
	}
	sub, err := s.store.GetSubscriptionByUserID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if sub.StripeCustomerID != customerID {
		return ErrForbidden
	}
	return nil
}
