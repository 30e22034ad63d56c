package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"billing-relay/backend/internal/models"
	"billing-relay/backend/internal/processor"
	"billing-relay/backend/internal/store"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

const testWebhookSecret = "whsec_services_test"

type fakeProcessor struct {
	mu sync.Mutex

	checkoutReqs []processor.CheckoutRequest
	intentReqs   []processor.PaymentIntentRequest
	portalCalls  int
	getCalls     int

	session *stripe.CheckoutSession
	err     error
}

func (f *fakeProcessor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.checkoutReqs) + len(f.intentReqs) + f.portalCalls + f.getCalls
}

func (f *fakeProcessor) CreateCheckoutSession(_ context.Context, req processor.CheckoutRequest) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkoutReqs = append(f.checkoutReqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (f *fakeProcessor) CreatePaymentIntent(_ context.Context, req processor.PaymentIntentRequest) (*stripe.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intentReqs = append(f.intentReqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.PaymentIntent{ID: "pi_test_1", ClientSecret: "pi_test_1_secret"}, nil
}

func (f *fakeProcessor) CreatePortalSession(_ context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.portalCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.BillingPortalSession{URL: "https://billing.stripe.test/" + customerID + "?return=" + returnURL}, nil
}

func (f *fakeProcessor) GetCheckoutSession(_ context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	if f.session == nil {
		return nil, &stripe.Error{HTTPStatusCode: 404, Msg: "No such checkout.session: " + sessionID}
	}
	return f.session, nil
}

// spyStore counts every call before delegating.
type spyStore struct {
	store.Store
	mu    sync.Mutex
	calls int
}

func (s *spyStore) hit() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *spyStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *spyStore) InsertPayment(ctx context.Context, p *models.Payment) error {
	s.hit()
	return s.Store.InsertPayment(ctx, p)
}

func (s *spyStore) ListPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	s.hit()
	return s.Store.ListPaymentsByUser(ctx, userID)
}

func (s *spyStore) UpsertSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	s.hit()
	return s.Store.UpsertSubscription(ctx, sub)
}

func (s *spyStore) UpdateSubscriptionState(ctx context.Context, id string, st models.SubscriptionState) (*models.Subscription, error) {
	s.hit()
	return s.Store.UpdateSubscriptionState(ctx, id, st)
}

func (s *spyStore) SetSubscriptionStatus(ctx context.Context, id, status string) (*models.Subscription, error) {
	s.hit()
	return s.Store.SetSubscriptionStatus(ctx, id, status)
}

func (s *spyStore) GetSubscriptionByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	s.hit()
	return s.Store.GetSubscriptionByUserID(ctx, userID)
}

func (s *spyStore) GetSubscriptionByStripeID(ctx context.Context, id string) (*models.Subscription, error) {
	s.hit()
	return s.Store.GetSubscriptionByStripeID(ctx, id)
}

func newSpyStore(t *testing.T) *spyStore {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "billing.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return &spyStore{Store: st}
}

type recordingNotifier struct {
	mu   sync.Mutex
	subs []*models.Subscription
}

func (n *recordingNotifier) SubscriptionChanged(sub *models.Subscription) {
	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()
}

func signPayload(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	}).Header
}

func eventJSON(id, eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","api_version":"2024-06-20","type":%q,"data":{"object":%s}}`, id, eventType, object))
}

func subscriptionObject(subID, status string, cancelAtPeriodEnd bool, metadata string) string {
	return fmt.Sprintf(`{"id":%q,"object":"subscription","customer":"cus_1","status":%q,"current_period_start":1700000000,"current_period_end":1702592000,"cancel_at_period_end":%t,"metadata":%s}`,
		subID, status, cancelAtPeriodEnd, metadata)
}

func invoiceObject(subID string) string {
	if subID == "" {
		return `{"id":"in_1","object":"invoice","subscription":null}`
	}
	return fmt.Sprintf(`{"id":"in_1","object":"invoice","subscription":%q}`, subID)
}
