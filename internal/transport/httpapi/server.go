// Package httpapi provides the HTTP API for the prepaid meter tracker.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voltwise/prepaid-meter-service/internal/assistant"
	"github.com/voltwise/prepaid-meter-service/internal/logging"
	"github.com/voltwise/prepaid-meter-service/internal/meter"
	"github.com/voltwise/prepaid-meter-service/internal/metrics"
	"github.com/voltwise/prepaid-meter-service/internal/service"
)

// Server is the HTTP API server.
type Server struct {
	readings  *service.ReadingService
	usage     *service.UsageService
	assistant *assistant.Assistant
	logger    *zap.Logger
}

// NewServer creates a new API server. assistant may be nil when no provider
// is configured; the chat endpoint then reports the collaborator as
// unavailable.
func NewServer(
	readings *service.ReadingService,
	usage *service.UsageService,
	assistant *assistant.Assistant,
	logger *zap.Logger,
) *Server {
	return &Server{
		readings:  readings,
		usage:     usage,
		assistant: assistant,
		logger:    logger,
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/readings", s.handleSubmitReading)
		r.Get("/readings", s.handleListReadings)
		r.Put("/readings/{id}", s.handleUpdateReading)
		r.Post("/tokens", s.handleRecordToken)
		r.Get("/tokens", s.handleListTokens)
		r.Get("/usage/summary", s.handleUsageSummary)
		r.Get("/usage/monthly", s.handleMonthlyUsage)
		r.Post("/assistant/chat", s.handleAssistantChat)
	})

	return r
}

type readingResponse struct {
	ID        string  `json:"id"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
	Date      string  `json:"date"`
	Period    string  `json:"period"`
	Kind      string  `json:"kind"`
}

func toReadingResponse(r *meter.Reading) readingResponse {
	return readingResponse{
		ID:        r.ID.String(),
		Value:     r.Value,
		Timestamp: r.Timestamp.Format(time.RFC3339),
		Date:      r.LocalDate,
		Period:    string(r.Period),
		Kind:      string(r.Kind),
	}
}

type tokenResponse struct {
	ID               string   `json:"id"`
	Units            float64  `json:"units"`
	Cost             *float64 `json:"cost,omitempty"`
	ResultingReading float64  `json:"resultingReading"`
	Timestamp        string   `json:"timestamp"`
}

func toTokenResponse(p *meter.TokenPurchase) tokenResponse {
	return tokenResponse{
		ID:               p.ID.String(),
		Units:            p.Units,
		Cost:             p.Cost,
		ResultingReading: p.ResultingReading,
		Timestamp:        p.Timestamp.Format(time.RFC3339),
	}
}

func (s *Server) handleSubmitReading(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Value     float64 `json:"value"`
		Timestamp string  `json:"timestamp"`
		Override  bool    `json:"override"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reading, err := s.readings.SubmitReading(r.Context(), userID, req.Value, req.Timestamp, req.Override)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReadingResponse(reading))
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	readings, err := s.readings.ListReadings(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	items := make([]readingResponse, 0, len(readings))
	for i := range readings {
		items = append(items, toReadingResponse(&readings[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"readings": items})
}

func (s *Server) handleUpdateReading(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reading id")
		return
	}

	var req struct {
		Value     float64 `json:"value"`
		Timestamp string  `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reading, err := s.readings.UpdateReading(r.Context(), userID, id, req.Value, req.Timestamp)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReadingResponse(reading))
}

func (s *Server) handleRecordToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Units     float64  `json:"units"`
		Cost      *float64 `json:"cost"`
		Timestamp string   `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	purchase, companion, err := s.readings.RecordTokenPurchase(r.Context(), userID, req.Units, req.Cost, req.Timestamp)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"purchase": toTokenResponse(purchase),
		"reading":  toReadingResponse(companion),
	})
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	purchases, err := s.readings.ListTokenPurchases(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	items := make([]tokenResponse, 0, len(purchases))
	for i := range purchases {
		items = append(items, toTokenResponse(&purchases[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"purchases": items})
}

func (s *Server) handleUsageSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	summary, err := s.usage.Summary(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMonthlyUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	months := 0
	if raw := r.URL.Query().Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "months must be a non-negative integer")
			return
		}
		months = parsed
	}

	totals, err := s.usage.Monthly(r.Context(), userID, months)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"months": totals})
}

func (s *Server) handleAssistantChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant is not configured")
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	summary, err := s.usage.Summary(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	reply, err := s.assistant.Chat(r.Context(), req.Message, summary)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// userID resolves the caller from the X-User-ID header. Authentication
// proper lives in front of this service.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "X-User-ID header is required")
		return "", false
	}
	return userID, true
}

// writeDomainError maps domain errors to HTTP statuses. A duplicate slot
// returns 409 with the existing reading attached so the UI can offer a
// keep-or-overwrite decision.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.WithRequestID(s.logger, middleware.GetReqID(r.Context()))

	var conflict *meter.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":    err.Error(),
			"existing": toReadingResponse(conflict.Existing),
		})
	case errors.Is(err, meter.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, meter.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, meter.ErrUpstream):
		logger.Error("upstream failure", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "upstream unavailable, retry later")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
