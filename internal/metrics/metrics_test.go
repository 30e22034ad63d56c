package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := New("test", reg)
	require.NoError(t, err)

	r.WebhookEvent("invoice.payment_failed", OutcomeSkipped)
	r.WebhookEvent("invoice.payment_failed", OutcomeSkipped)
	r.WebhookEvent("", OutcomeRejected)
	r.ObserveProcessorCall("checkout_session.create", time.Now(), nil)
	r.ObserveProcessorCall("checkout_session.create", time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.webhookEvents.WithLabelValues("invoice.payment_failed", OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.webhookEvents.WithLabelValues("unknown", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.processorRequests.WithLabelValues("checkout_session.create", "error")))
}

func TestRecorderRegistersTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New("test", reg)
	require.NoError(t, err)
	_, err = New("test", reg)
	require.NoError(t, err)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.WebhookEvent("x", OutcomeApplied)
	r.ObserveProcessorCall("x", time.Now(), nil)
}
