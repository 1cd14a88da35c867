package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-movements/internal/domain"
)

func TestOutcome(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{&domain.InsufficientQuantityError{Available: 1, Requested: 2}, OutcomeInsufficient},
		{fmt.Errorf("x: %w", domain.ErrWarehouseNotFound), OutcomeNotFound},
		{domain.ErrInvalidMovementType, OutcomeInvalid},
		{domain.WrapPersistence("create movement", errors.New("conexión perdida")), OutcomeError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Outcome(tc.err), "%v", tc.err)
	}
}

func TestObserveMovementOp(t *testing.T) {
	m := New()
	m.ObserveMovementOp("create", nil, 10*time.Millisecond)
	m.ObserveMovementOp("create", nil, 5*time.Millisecond)
	m.ObserveMovementOp("edit", domain.ErrMovementNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.movementOps.WithLabelValues("create", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.movementOps.WithLabelValues("edit", OutcomeNotFound)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.movementDur))
}

func TestHandler_ExponeMetricas(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodPost, "/api/stock-movements", http.StatusCreated, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, MetricHTTPRequestsTotal)
	assert.Contains(t, body, `route="/api/stock-movements"`)
	assert.Contains(t, body, "go_goroutines")
}
