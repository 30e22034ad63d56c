package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckout(fp *fakeProcessor) *CheckoutService {
	defaults := CheckoutDefaults{
		SuccessURL:      "https://app.test/success",
		CancelURL:       "https://app.test/cancel",
		PortalReturnURL: "https://app.test/account",
	}
	if fp == nil {
		return NewCheckoutService(nil, DefaultPriceTable(nil), defaults)
	}
	return NewCheckoutService(fp, DefaultPriceTable(nil), defaults)
}

func TestCreateSessionUnknownPlanNeverCallsProcessor(t *testing.T) {
	fp := &fakeProcessor{}
	svc := newCheckout(fp)

	for _, plan := range []string{"", "gold", "enterprise"} {
		_, err := svc.CreateSession(context.Background(), CreateSessionInput{
			Plan:     plan,
			Identity: Identity{UserID: "user-1"},
		})
		assert.ErrorIs(t, err, ErrInvalidPlan, "plan %q", plan)
	}
	assert.Zero(t, fp.calls())
}

func TestCreateSessionSubscriptionMode(t *testing.T) {
	fp := &fakeProcessor{}
	svc := NewCheckoutService(fp, DefaultPriceTable(map[string]string{"premium": "price_live_premium"}), CheckoutDefaults{
		SuccessURL: "https://app.test/success",
		CancelURL:  "https://app.test/cancel",
	})

	res, err := svc.CreateSession(context.Background(), CreateSessionInput{
		Plan:     "Premium",
		Identity: Identity{UserID: "user-1", Email: "u1@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", res.SessionID)
	assert.NotEmpty(t, res.URL)
	assert.Empty(t, res.ClientSecret)

	require.Len(t, fp.checkoutReqs, 1)
	req := fp.checkoutReqs[0]
	assert.Equal(t, "price_live_premium", req.PriceID)
	assert.Equal(t, "premium", req.Plan)
	assert.Equal(t, "user-1", req.UserID)
	assert.Equal(t, "u1@example.com", req.Email)
	assert.Equal(t, "https://app.test/success", req.SuccessURL)
	assert.Equal(t, "https://app.test/cancel", req.CancelURL)
}

func TestCreateSessionPaymentMode(t *testing.T) {
	fp := &fakeProcessor{}
	svc := newCheckout(fp)

	res, err := svc.CreateSession(context.Background(), CreateSessionInput{
		Plan:     "standard",
		Mode:     ModePayment,
		Identity: Identity{UserID: "user-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_test_1_secret", res.ClientSecret)
	assert.Empty(t, res.SessionID)

	require.Len(t, fp.intentReqs, 1)
	assert.Equal(t, int64(999), fp.intentReqs[0].Amount)
	assert.Equal(t, "usd", fp.intentReqs[0].Currency)
	assert.Equal(t, "standard", fp.intentReqs[0].Plan)
	assert.Empty(t, fp.checkoutReqs)
}

func TestCreateSessionRejectsBadInput(t *testing.T) {
	fp := &fakeProcessor{}
	svc := newCheckout(fp)

	_, err := svc.CreateSession(context.Background(), CreateSessionInput{Plan: "standard", Mode: "lifetime", Identity: Identity{UserID: "u"}})
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, err = svc.CreateSession(context.Background(), CreateSessionInput{Plan: "standard", Identity: Identity{UserID: "  "}})
	assert.ErrorIs(t, err, ErrMissingIdentity)

	assert.Zero(t, fp.calls())
}

func TestCreateSessionWithoutProcessor(t *testing.T) {
	svc := newCheckout(nil)
	_, err := svc.CreateSession(context.Background(), CreateSessionInput{Plan: "standard", Identity: Identity{UserID: "u"}})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = svc.CreateSession(context.Background(), CreateSessionInput{Plan: "gold", Identity: Identity{UserID: "u"}})
	assert.ErrorIs(t, err, ErrInvalidPlan, "plan is checked before configuration")
}

func TestCreateSessionWrapsProcessorFailure(t *testing.T) {
	fp := &fakeProcessor{err: errors.New("card network down")}
	svc := newCheckout(fp)

	_, err := svc.CreateSession(context.Background(), CreateSessionInput{Plan: "standard", Identity: Identity{UserID: "u"}})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "card network down")
}

func TestCreatePortalSession(t *testing.T) {
	fp := &fakeProcessor{}
	svc := newCheckout(fp)

	_, err := svc.CreatePortalSession(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingParameter)
	assert.Zero(t, fp.calls())

	url, err := svc.CreatePortalSession(context.Background(), "cus_1", "")
	require.NoError(t, err)
	assert.Contains(t, url, "cus_1")
	assert.Contains(t, url, "https://app.test/account")

	_, err = newCheckout(nil).CreatePortalSession(context.Background(), "cus_1", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPriceTable(t *testing.T) {
	table := DefaultPriceTable(map[string]string{"standard": "price_x", "gold": "price_gold"})

	p, err := table.Lookup(" STANDARD ")
	require.NoError(t, err)
	assert.Equal(t, "price_x", p.PriceID)

	_, err = table.Lookup("gold")
	assert.ErrorIs(t, err, ErrInvalidPlan)

	list := table.List()
	require.Len(t, list, 2)
	assert.Equal(t, "standard", list[0].Name)
	assert.Equal(t, "premium", list[1].Name)
}
