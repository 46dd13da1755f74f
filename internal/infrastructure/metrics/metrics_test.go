package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveTransition("submit", "ok", 20*time.Millisecond)
	m.ObserveTransition("submit", "ok", 10*time.Millisecond)
	m.ObserveTransition("manager_approve", "forbidden", time.Millisecond)
	m.NotificationDelivered("email", "FAILED")
	m.InviteRedeemed("limit_exceeded")
	m.ObserveHTTP("GET", "/api/v1/orgs/:slug", http.StatusOK, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("submit", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("manager_approve", "forbidden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("email", "FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redemptions.WithLabelValues("limit_exceeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/orgs/:slug", "200")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.InviteRedeemed("joined")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `expenses_invite_redemptions_total{outcome="joined"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
