package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mohammadhprp/windowlimit/internal/clock"
	"github.com/mohammadhprp/windowlimit/internal/handler"
	"github.com/mohammadhprp/windowlimit/internal/service"
	"github.com/mohammadhprp/windowlimit/internal/storage"
)

var errStoreDown = errors.New("connection refused")

// downStore fails every operation
type downStore struct{}

func (downStore) IncrementWindow(context.Context, string, time.Duration) (int64, error) {
	return 0, errStoreDown
}

func (downStore) Count(context.Context, string) (int64, error) {
	return 0, errStoreDown
}

func (downStore) RecordEvent(context.Context, string, string, time.Time, time.Duration) (int64, error) {
	return 0, errStoreDown
}

func (downStore) CountEvents(context.Context, string, time.Time) (int64, error) {
	return 0, errStoreDown
}

func (downStore) Delete(context.Context, string) error { return errStoreDown }
func (downStore) Ping(context.Context) error           { return errStoreDown }
func (downStore) Close() error                         { return nil }

// newRouter wires the handlers the way the HTTP transport does
func newRouter(t *testing.T, store storage.Store) *mux.Router {
	t.Helper()

	logger := zaptest.NewLogger(t)
	svc := service.NewRateLimitService(store, logger,
		service.WithClock(clock.NewVirtualClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))),
	)
	require.NoError(t, svc.Register(context.Background(), service.LimiterConfig{
		Namespace: "api", Strategy: "sliding_window", Threshold: 2, Interval: 60,
	}))

	rl := handler.NewRateLimitHandler(svc, logger)
	health := handler.NewHealthCheckHandler(service.NewHealthService(store, logger))

	r := mux.NewRouter()
	r.HandleFunc("/health", health.HealthCheck()).Methods(http.MethodGet)
	r.HandleFunc("/limits", rl.List()).Methods(http.MethodGet)
	r.HandleFunc("/limits/{namespace}/check", rl.Check()).Methods(http.MethodPost)
	r.HandleFunc("/limits/{namespace}/current/{id}", rl.Current()).Methods(http.MethodGet)
	r.HandleFunc("/limits/{namespace}/reset/{id}", rl.Reset()).Methods(http.MethodDelete)
	r.HandleFunc("/limits/{namespace}/quota", rl.UpdateQuota()).Methods(http.MethodPut)
	return r
}

func newMemoryRouter(t *testing.T) *mux.Router {
	t.Helper()
	store := storage.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return newRouter(t, store)
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheckHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		w := do(t, newMemoryRouter(t), http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp service.HealthStatus
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, service.HealthStatusHealthy, resp.Status)
		assert.NotEmpty(t, resp.Timestamp)
		assert.Empty(t, resp.Error)
	})

	t.Run("store down", func(t *testing.T) {
		w := do(t, newRouter(t, downStore{}), http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp service.HealthStatus
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, service.HealthStatusUnhealthy, resp.Status)
		assert.Equal(t, errStoreDown.Error(), resp.Error)
	})
}

func TestCheckHandler(t *testing.T) {
	r := newMemoryRouter(t)

	w := do(t, r, http.MethodPost, "/limits/api/check", handler.CheckRequest{ID: "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Empty(t, w.Header().Get("Retry-After"))

	var resp handler.CheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, handler.CheckResponse{
		Exceeded:        false,
		Count:           1,
		Threshold:       2,
		Remaining:       1,
		IntervalSeconds: 60,
	}, resp)

	w = do(t, r, http.MethodPost, "/limits/api/check", handler.CheckRequest{ID: "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Exceeded)
	assert.Equal(t, int64(2), resp.Count)
	assert.Zero(t, resp.Remaining)
	assert.Equal(t, int64(60), resp.RetryAfter)
}

func TestCheckHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		store  storage.Store
		path   string
		body   any
		status int
	}{
		{"unknown namespace", nil, "/limits/missing/check", handler.CheckRequest{ID: "a"}, http.StatusNotFound},
		{"missing id", nil, "/limits/api/check", handler.CheckRequest{}, http.StatusBadRequest},
		{"malformed body", nil, "/limits/api/check", "not an object", http.StatusBadRequest},
		{"store down", downStore{}, "/limits/api/check", handler.CheckRequest{ID: "a"}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newMemoryRouter(t)
			if tt.store != nil {
				r = newRouter(t, tt.store)
			}

			w := do(t, r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)

			var resp map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestCurrentAndResetHandlers(t *testing.T) {
	r := newMemoryRouter(t)

	for i := 0; i < 3; i++ {
		do(t, r, http.MethodPost, "/limits/api/check", handler.CheckRequest{ID: "bob"})
	}

	w := do(t, r, http.MethodGet, "/limits/api/current/bob", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var current handler.CurrentResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&current))
	assert.Equal(t, handler.CurrentResponse{Namespace: "api", ID: "bob", Count: 3}, current)

	w = do(t, r, http.MethodDelete, "/limits/api/reset/bob", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/limits/api/current/bob", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&current))
	assert.Zero(t, current.Count)

	w = do(t, r, http.MethodGet, "/limits/missing/current/bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodDelete, "/limits/missing/reset/bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateQuotaHandler(t *testing.T) {
	r := newMemoryRouter(t)

	threshold, interval := 5.0, 10.0
	w := do(t, r, http.MethodPut, "/limits/api/quota", handler.QuotaRequest{Threshold: &threshold, Interval: &interval})
	require.Equal(t, http.StatusOK, w.Code)

	var status service.LimiterStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, service.LimiterStatus{
		Namespace: "api",
		Strategy:  "sliding_window",
		Threshold: 5,
		Interval:  10,
	}, status)

	w = do(t, r, http.MethodPost, "/limits/api/check", handler.CheckRequest{ID: "carol"})
	var resp handler.CheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(5), resp.Threshold)
	assert.Equal(t, int64(10), resp.IntervalSeconds)

	short := 0.5
	w = do(t, r, http.MethodPut, "/limits/api/quota", handler.QuotaRequest{Threshold: &threshold, Interval: &short})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPut, "/limits/api/quota", handler.QuotaRequest{Threshold: &threshold})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPut, "/limits/missing/quota", handler.QuotaRequest{Threshold: &threshold, Interval: &interval})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListHandler(t *testing.T) {
	w := do(t, newMemoryRouter(t), http.MethodGet, "/limits", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.ListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Limiters, 1)
	assert.Equal(t, "api", resp.Limiters[0].Namespace)
	assert.Equal(t, 2.0, resp.Limiters[0].Threshold)
}
