package paystack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL, "sk_test_secret")
}

func TestVerify_Success(t *testing.T) {
	var gotPath, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {"status": "success", "amount": 5000, "currency": "GHS", "channel": "mobile_money"}
		}`))
	})

	v, err := c.Verify(context.Background(), "ref-001")
	require.NoError(t, err)

	assert.True(t, v.Verified)
	assert.Equal(t, int64(5000), v.AmountMinor)
	assert.Equal(t, "/transaction/verify/ref-001", gotPath)
	assert.Equal(t, "Bearer sk_test_secret", gotAuth)
}

func TestVerify_FailedTransaction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": true, "data": {"status": "failed", "amount": 5000}}`))
	})

	v, err := c.Verify(context.Background(), "ref-001")
	require.NoError(t, err)
	assert.False(t, v.Verified)
}

func TestVerify_StatusFlagFalse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": false, "message": "Transaction reference not found", "data": null}`))
	})

	v, err := c.Verify(context.Background(), "missing-ref")
	require.NoError(t, err)
	assert.False(t, v.Verified)
}

func TestVerify_MissingAmount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": true, "data": {"status": "success"}}`))
	})

	_, err := c.Verify(context.Background(), "ref-001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.amount")
}

func TestVerify_MalformedAmount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": true, "data": {"status": "success", "amount": "fifty"}}`))
	})

	_, err := c.Verify(context.Background(), "ref-001")
	require.Error(t, err)
}

func TestVerify_Non2xx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status": false, "message": "Invalid key"}`))
	})

	_, err := c.Verify(context.Background(), "ref-001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestVerify_ReferenceIsEscaped(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"status": true, "data": {"status": "success", "amount": 100}}`))
	})

	_, err := c.Verify(context.Background(), "ref/../admin")
	require.NoError(t, err)
	assert.Equal(t, "/transaction/verify/ref%2F..%2Fadmin", gotPath)
}
