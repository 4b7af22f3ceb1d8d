package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/alert"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/narrative"
	"github.com/opensource-finance/kestrel/internal/report"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// dateLayout is the calendar-date wire format for report windows.
const dateLayout = "2006-01-02"

// latestCaseTTL bounds how long the per-client latest case stays cached.
const latestCaseTTL = 15 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	repo       domain.Repository
	cache      domain.Cache
	bus        domain.EventBus
	classifier domain.Classifier
	compiler   *narrative.Compiler
	assembler  *report.Assembler
	dispatcher *alert.Dispatcher
	loc        *time.Location
	version    string
}

// NewHandler creates a new API handler. loc is the reporting time zone
// used to interpret report window dates.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, classifier domain.Classifier, compiler *narrative.Compiler, assembler *report.Assembler, dispatcher *alert.Dispatcher, loc *time.Location, version string) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		repo:       repo,
		cache:      cache,
		bus:        bus,
		classifier: classifier,
		compiler:   compiler,
		assembler:  assembler,
		dispatcher: dispatcher,
		loc:        loc,
		version:    version,
	}
}

// PredictRequest is the request body for POST /predict.
type PredictRequest struct {
	ClientID         string  `json:"client_id"`
	Country          string  `json:"country"`
	AccountType      string  `json:"account_type"`
	DepositAmount    int64   `json:"deposit_amount"`
	WithdrawalAmount int64   `json:"withdrawal_amount"`
	NumTrades        int64   `json:"num_trades"`
	AvgTradeAmount   int64   `json:"avg_trade_amount"`
	TradeDuration    int64   `json:"trade_duration"`
	TotalProfit      int64   `json:"total_profit"`
	FeesPaid         float64 `json:"fees_paid"`
	PaymentMethod    string  `json:"payment_method"`
}

func (r *PredictRequest) validate() error {
	if r.ClientID == "" {
		return &domain.ValidationError{Field: "client_id", Reason: "is required"}
	}
	if r.Country == "" {
		return &domain.ValidationError{Field: "country", Reason: "is required"}
	}
	if r.AccountType == "" {
		return &domain.ValidationError{Field: "account_type", Reason: "is required"}
	}
	if r.PaymentMethod == "" {
		return &domain.ValidationError{Field: "payment_method", Reason: "is required"}
	}
	if r.DepositAmount < 0 {
		return &domain.ValidationError{Field: "deposit_amount", Reason: "must not be negative"}
	}
	if r.WithdrawalAmount < 0 {
		return &domain.ValidationError{Field: "withdrawal_amount", Reason: "must not be negative"}
	}
	if r.NumTrades < 0 {
		return &domain.ValidationError{Field: "num_trades", Reason: "must not be negative"}
	}
	if r.TradeDuration < 0 {
		return &domain.ValidationError{Field: "trade_duration", Reason: "must not be negative"}
	}
	if r.FeesPaid < 0 {
		return &domain.ValidationError{Field: "fees_paid", Reason: "must not be negative"}
	}
	return nil
}

// PredictResponse is the response for POST /predict.
type PredictResponse struct {
	CaseID    string           `json:"case_id"`
	RiskLevel domain.RiskLevel `json:"risk_level"`
}

// Predict handles POST /predict: classifies the submitted features,
// persists the resulting case, and raises an alert for High Risk.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	features := &domain.CaseFeatures{
		Country:          req.Country,
		AccountType:      req.AccountType,
		DepositAmount:    req.DepositAmount,
		WithdrawalAmount: req.WithdrawalAmount,
		NumTrades:        req.NumTrades,
		AvgTradeAmount:   req.AvgTradeAmount,
		TradeDuration:    req.TradeDuration,
		TotalProfit:      req.TotalProfit,
		FeesPaid:         req.FeesPaid,
		PaymentMethod:    req.PaymentMethod,
	}

	level, err := h.classifier.Classify(ctx, features)
	if err != nil {
		slog.Error("classification failed", "client_id", req.ClientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "classification failed",
		})
		return
	}

	fc := &domain.FraudCase{
		ID:                 uuid.New().String(),
		ClientID:           req.ClientID,
		Country:            req.Country,
		AccountType:        req.AccountType,
		DepositAmount:      req.DepositAmount,
		WithdrawalAmount:   req.WithdrawalAmount,
		NumTrades:          req.NumTrades,
		AvgTradeAmount:     req.AvgTradeAmount,
		TradeDuration:      req.TradeDuration,
		TotalProfit:        req.TotalProfit,
		FeesPaid:           req.FeesPaid,
		PaymentMethod:      req.PaymentMethod,
		RiskLevel:          level,
		DetectionTimestamp: time.Now().In(h.loc),
	}

	if err := h.repo.SaveCase(ctx, fc); err != nil {
		slog.Error("failed to save case", "case_id", fc.ID, "error", err)
		writeError(w, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.SetLatestCase(ctx, fc.ClientID, fc, latestCaseTTL); err != nil {
			slog.Warn("failed to cache latest case", "client_id", fc.ClientID, "error", err)
		}
	}

	// High Risk raises an alert. Delivery is best effort; a publish
	// failure never fails the classification itself.
	if level == domain.RiskHigh && h.bus != nil {
		event := domain.AlertEvent{
			Message: fmt.Sprintf("High Risk classification for client %s", fc.ClientID),
			Case:    fc,
		}
		payload, _ := json.Marshal(event)
		if err := h.bus.Publish(ctx, domain.TopicFraudAlert, payload); err != nil {
			slog.Error("failed to publish fraud alert", "case_id", fc.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		CaseID:    fc.ID,
		RiskLevel: level,
	})
}

// ListCases handles GET /fraud_cases.
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	cases, err := h.repo.ListCases(r.Context())
	if err != nil {
		slog.Error("failed to list cases", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cases": cases,
		"count": len(cases),
	})
}

// GetCase handles GET /fraud_cases/{id}.
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "case id is required",
		})
		return
	}

	fc, err := h.repo.GetCase(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "case not found",
			})
			return
		}
		slog.Error("failed to get case", "id", id, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fc)
}

// SummaryRequest is the request body for POST /generate_summary.
type SummaryRequest struct {
	ClientID string `json:"client_id"`
}

// GenerateSummary handles POST /generate_summary: narrates the most
// recent case for one client.
func (h *Handler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.ClientID == "" {
		writeError(w, &domain.ValidationError{Field: "client_id", Reason: "is required"})
		return
	}

	fc := h.latestCase(ctx, req.ClientID)
	if fc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no cases recorded for client",
		})
		return
	}

	text, err := h.compiler.Narrate(ctx, narrative.SummaryPrompt(fc))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"client_id": req.ClientID,
		"summary":   text,
	})
}

// latestCase resolves the most recent case for a client, cache first.
func (h *Handler) latestCase(ctx context.Context, clientID string) *domain.FraudCase {
	if h.cache != nil {
		if fc, err := h.cache.GetLatestCase(ctx, clientID); err == nil && fc != nil {
			return fc
		}
	}

	fc, err := h.repo.LatestCaseByClient(ctx, clientID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("failed to load latest case", "client_id", clientID, "error", err)
		}
		return nil
	}

	if h.cache != nil {
		if err := h.cache.SetLatestCase(ctx, clientID, fc, latestCaseTTL); err != nil {
			slog.Warn("failed to cache latest case", "client_id", clientID, "error", err)
		}
	}
	return fc
}

// ReportRequest is the request body for POST /generate_report.
type ReportRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// GenerateReport handles POST /generate_report: aggregates the window,
// narrates the statistics, assembles the PDF, and streams it back.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	start, err := time.ParseInLocation(dateLayout, req.StartDate, h.loc)
	if err != nil {
		writeError(w, &domain.ValidationError{Field: "start_date", Reason: "must be a YYYY-MM-DD date"})
		return
	}
	end, err := time.ParseInLocation(dateLayout, req.EndDate, h.loc)
	if err != nil {
		writeError(w, &domain.ValidationError{Field: "end_date", Reason: "must be a YYYY-MM-DD date"})
		return
	}
	if end.Before(start) {
		writeError(w, &domain.ValidationError{Field: "end_date", Reason: "must not be before start_date"})
		return
	}

	window := domain.NewWindow(start, end)

	cases, err := h.repo.CasesInWindow(ctx, window)
	if err != nil {
		slog.Error("failed to load window cases", "window", window.String(), "error", err)
		writeError(w, err)
		return
	}

	reportStats, err := stats.Aggregate(cases, window, h.loc)
	if err != nil {
		writeError(w, err)
		return
	}

	text, err := h.compiler.Narrate(ctx, narrative.ReportPrompt(reportStats, window))
	if err != nil {
		writeError(w, err)
		return
	}

	artifact, err := h.assembler.Build(text, reportStats)
	if err != nil {
		slog.Error("failed to assemble report", "window", window.String(), "error", err)
		writeError(w, err)
		return
	}

	slog.Info("report generated",
		"window", window.String(),
		"case_count", reportStats.TotalCases,
		"artifact", artifact.Filename,
		"size_bytes", artifact.Size,
	)

	f, err := os.Open(artifact.Path)
	if err != nil {
		slog.Error("failed to open artifact", "path", artifact.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to read report artifact",
		})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", artifact.Size))
	http.ServeContent(w, r, artifact.Filename, time.Now(), f)
}

// RecentAlerts handles GET /alerts/recent.
func (h *Handler) RecentAlerts(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "alert dispatcher not available",
		})
		return
	}

	alerts := h.dispatcher.Recent()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// StreamAlerts handles GET /alerts/stream as server-sent events.
func (h *Handler) StreamAlerts(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "alert dispatcher not available",
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "streaming not supported",
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := h.dispatcher.Listen(16)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr  *domain.ValidationError
		emptyWindowErr *domain.EmptyWindowError
		integrityErr   *domain.DataIntegrityError
		narrativeErr   *domain.NarrativeUnavailableError
		storageErr     *domain.StorageError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationErr.Error()})
	case errors.As(err, &emptyWindowErr):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": emptyWindowErr.Error()})
	case errors.As(err, &narrativeErr):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": narrativeErr.Error()})
	case errors.As(err, &integrityErr):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": integrityErr.Error()})
	case errors.As(err, &storageErr):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
