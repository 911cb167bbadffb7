package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohammadhprp/windowlimit/internal/service"
	"go.uber.org/zap"
)

// CheckRequest represents a rate limit check request
type CheckRequest struct {
	ID string `json:"id"`
}

// CheckResponse represents a rate limit check response
type CheckResponse struct {
	Exceeded        bool  `json:"exceeded"`
	Count           int64 `json:"count"`
	Threshold       int64 `json:"threshold"`
	Remaining       int64 `json:"remaining"`
	IntervalSeconds int64 `json:"interval_seconds"`
	RetryAfter      int64 `json:"retry_after"` // seconds
}

// CurrentResponse represents the current count of an identifier
type CurrentResponse struct {
	Namespace string `json:"namespace"`
	ID        string `json:"id"`
	Count     int64  `json:"count"`
}

// QuotaRequest represents a quota update
type QuotaRequest struct {
	Threshold *float64 `json:"threshold"`
	Interval  *float64 `json:"interval_seconds"`
}

// ListResponse lists every registered limiter
type ListResponse struct {
	Limiters []*service.LimiterStatus `json:"limiters"`
}

// RateLimitHandler handles rate limit operations
type RateLimitHandler struct {
	service *service.RateLimitService
	logger  *zap.Logger
}

// NewRateLimitHandler creates a new rate limit handler
func NewRateLimitHandler(svc *service.RateLimitService, logger *zap.Logger) *RateLimitHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitHandler{
		service: svc,
		logger:  logger,
	}
}

// Check handles POST /limits/{namespace}/check - record an event and decide
func (h *RateLimitHandler) Check() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		namespace := mux.Vars(r)["namespace"]

		var req CheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.ID == "" {
			writeError(w, http.StatusBadRequest, service.ErrIDRequired)
			return
		}

		result, err := h.service.Check(r.Context(), namespace, req.ID)
		if err != nil {
			h.handleError(w, "failed to check rate limit", namespace, err)
			return
		}

		resp := CheckResponse{
			Exceeded:        result.Exceeded,
			Count:           result.Count,
			Threshold:       result.Threshold,
			Remaining:       result.Remaining,
			IntervalSeconds: int64(result.Interval / time.Second),
			RetryAfter:      int64(result.RetryAfter / time.Second),
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Threshold, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		if result.Exceeded {
			w.Header().Set("Retry-After", strconv.FormatInt(resp.RetryAfter, 10))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// Current handles GET /limits/{namespace}/current/{id} - read without recording
func (h *RateLimitHandler) Current() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		namespace, id := vars["namespace"], vars["id"]

		count, err := h.service.Current(r.Context(), namespace, id)
		if err != nil {
			h.handleError(w, "failed to read current count", namespace, err)
			return
		}

		writeJSON(w, http.StatusOK, CurrentResponse{
			Namespace: namespace,
			ID:        id,
			Count:     count,
		})
	}
}

// Reset handles DELETE /limits/{namespace}/reset/{id} - clear recorded events
func (h *RateLimitHandler) Reset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		namespace, id := vars["namespace"], vars["id"]

		if err := h.service.Reset(r.Context(), namespace, id); err != nil {
			h.handleError(w, "failed to reset rate limit", namespace, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"message":   "rate limit reset",
			"namespace": namespace,
			"id":        id,
		})
	}
}

// UpdateQuota handles PUT /limits/{namespace}/quota - change threshold and interval
func (h *RateLimitHandler) UpdateQuota() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		namespace := mux.Vars(r)["namespace"]

		var req QuotaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Threshold == nil || req.Interval == nil {
			writeError(w, http.StatusBadRequest, "threshold and interval_seconds are required")
			return
		}

		if err := h.service.UpdateQuota(r.Context(), namespace, *req.Threshold, *req.Interval); err != nil {
			h.handleError(w, "failed to update quota", namespace, err)
			return
		}

		status, err := h.service.Status(namespace)
		if err != nil {
			h.handleError(w, "failed to read quota", namespace, err)
			return
		}

		writeJSON(w, http.StatusOK, status)
	}
}

// List handles GET /limits - list registered limiters
func (h *RateLimitHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ListResponse{Limiters: []*service.LimiterStatus{}}
		for _, namespace := range h.service.Namespaces() {
			status, err := h.service.Status(namespace)
			if err != nil {
				continue
			}
			resp.Limiters = append(resp.Limiters, status)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// handleError maps service errors onto status codes
func (h *RateLimitHandler) handleError(w http.ResponseWriter, msg, namespace string, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownNamespace):
		writeError(w, http.StatusNotFound, "rate limit not found")
	case service.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(msg, zap.String("namespace", namespace), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "counter store unavailable")
	}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
