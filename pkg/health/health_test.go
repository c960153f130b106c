package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, endpoint http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	endpoint(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestReadyEndpoint_GateClosedByDefault(t *testing.T) {
	s := New()
	rec := probe(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyEndpoint_GateOpens(t *testing.T) {
	s := New()
	s.SetReady(true)
	rec := probe(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestReadyEndpoint_FailingCheck(t *testing.T) {
	s := New()
	s.SetReady(true)
	s.AddReadinessCheck("postgres", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, time.Minute)
	defer s.Stop()

	require.Eventually(t, func() bool {
		return probe(t, s.ReadyEndpoint).Code == http.StatusServiceUnavailable
	}, time.Second, 10*time.Millisecond)

	rec := probe(t, s.ReadyEndpoint)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestLiveEndpoint_HealthyCheck(t *testing.T) {
	s := New()
	s.AddLivenessCheck("noop", time.Second, func(context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, time.Minute)
	defer s.Stop()

	require.Eventually(t, func() bool {
		return probe(t, s.LiveEndpoint).Code == http.StatusOK
	}, time.Second, 10*time.Millisecond)
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
