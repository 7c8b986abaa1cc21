package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func probe(t *testing.T, handler http.HandlerFunc, path string) (int, statusResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler(w, req)

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLiveEndpointAllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("store", time.Second, passing())
	h.AddLivenessCheck("goroutines", time.Second, passing())

	code, body := probe(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestLiveEndpointFailure(t *testing.T) {
	h := New()
	h.AddLivenessCheck("store", time.Second, failing("connection refused"))

	code, body := probe(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["store"])
}

func TestLiveEndpointEvaluatesOnEachRequest(t *testing.T) {
	down := true
	h := New()
	h.AddLivenessCheck("catalog", time.Second, func(context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	})

	code, _ := probe(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	down = false
	code, _ = probe(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusOK, code)
}

func TestReadyEndpointNotReadyByDefault(t *testing.T) {
	h := New()
	h.AddReadinessCheck("store", time.Second, passing())

	code, body := probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Checks, "_readiness")
}

func TestReadyEndpointReadyAndPassing(t *testing.T) {
	h := New()
	h.AddReadinessCheck("store", time.Second, passing())
	h.SetReady(true)

	code, body := probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestReadyEndpointDrainsOnSetReadyFalse(t *testing.T) {
	h := New()
	h.SetReady(true)

	code, _ := probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusOK, code)

	h.SetReady(false)

	code, _ = probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestReadyEndpointReportsOnlyFailures(t *testing.T) {
	h := New()
	h.AddReadinessCheck("store", time.Second, passing())
	h.AddReadinessCheck("catalog", time.Second, failing("initial sync pending"))
	h.SetReady(true)

	code, body := probe(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "catalog")
	assert.NotContains(t, body.Checks, "store")
}

func TestIsReady(t *testing.T) {
	ctx := context.Background()

	h := New()
	h.AddReadinessCheck("store", time.Second, passing())

	assert.False(t, h.IsReady(ctx))

	h.SetReady(true)
	assert.True(t, h.IsReady(ctx))

	h.AddReadinessCheck("catalog", time.Second, failing("down"))
	assert.False(t, h.IsReady(ctx))
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.AddLivenessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	code, body := probe(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks["slow"], "context deadline exceeded")
}

func TestConcurrentProbes(t *testing.T) {
	h := New()
	h.AddLivenessCheck("a", time.Second, passing())
	h.AddReadinessCheck("b", time.Second, failing("err"))
	h.SetReady(true)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady(context.Background())

				w := httptest.NewRecorder()
				h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

				w = httptest.NewRecorder()
				h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit 0")
}
