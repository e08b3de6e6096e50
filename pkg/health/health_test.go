package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, serve func(w *httptest.ResponseRecorder)) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	serve(rec)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadyEndpoint_Gate(t *testing.T) {
	h := New()

	code, _ := probe(t, func(rec *httptest.ResponseRecorder) {
		h.ReadyEndpoint(rec, httptest.NewRequest("GET", "/readyz", nil))
	})
	assert.Equal(t, 503, code, "not ready before SetReady(true)")

	h.SetReady(true)
	code, body := probe(t, func(rec *httptest.ResponseRecorder) {
		h.ReadyEndpoint(rec, httptest.NewRequest("GET", "/readyz", nil))
	})
	assert.Equal(t, 200, code)
	assert.Equal(t, true, body["healthy"])
}

func TestFailureThreshold(t *testing.T) {
	c := &check{name: "db", timeout: 0, fn: func(_ context.Context) error {
		return errors.New("down")
	}}
	c.healthy.Store(true)

	c.run(context.Background())
	c.run(context.Background())
	assert.True(t, c.healthy.Load(), "stays healthy below the threshold")

	c.run(context.Background())
	assert.False(t, c.healthy.Load(), "third consecutive failure flips it")

	c.fn = func(_ context.Context) error { return nil }
	c.run(context.Background())
	assert.True(t, c.healthy.Load(), "recovers on the next success")
}

func TestReadyEndpoint_UnhealthyCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("db", 0, func(_ context.Context) error {
		return errors.New("connection refused")
	})

	// Drive the check past the threshold without starting the runner.
	h.mu.Lock()
	c := h.checks[0]
	h.mu.Unlock()
	for range failureThreshold {
		c.run(context.Background())
	}

	code, body := probe(t, func(rec *httptest.ResponseRecorder) {
		h.ReadyEndpoint(rec, httptest.NewRequest("GET", "/readyz", nil))
	})
	assert.Equal(t, 503, code)

	checks := body["checks"].(map[string]any)
	assert.Equal(t, "connection refused", checks["db"])
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
