package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
	"github.com/ekaya-inc/ekaya-reliability/pkg/scoring"
	"github.com/ekaya-inc/ekaya-reliability/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// ScoreRequest for POST /score
type ScoreRequest struct {
	Model string                     `json:"model"`
	Data  map[string]json.RawMessage `json:"data"`
}

// ScoreResponse for POST /score
type ScoreResponse struct {
	Success bool `json:"success"`
	*services.ProvisionalScore
}

// VerifyChecksumRequest for POST /reliability/verify-checksum
type VerifyChecksumRequest struct {
	Model      string `json:"model"`
	ForeignKey string `json:"foreign_key"`
	LogID      string `json:"log_id"`
}

// VerifyChecksumResponse for POST /reliability/verify-checksum
type VerifyChecksumResponse struct {
	Success bool `json:"success"`
	*services.ChecksumVerification
}

// FieldStatsResponse for GET /reliability/field-stats/{model}
type FieldStatsResponse struct {
	Success   bool                        `json:"success"`
	Model     string                      `json:"model"`
	Stats     map[string]models.FieldStat `json:"stats"`
	Timestamp time.Time                   `json:"timestamp"`
}

// FieldScoreInput is one field of a RecordRequest. MaxScore defaults to 1.
type FieldScoreInput struct {
	Field    string   `json:"field"`
	Score    float64  `json:"score"`
	Weight   float64  `json:"weight"`
	MaxScore *float64 `json:"max_score"`
	Notes    *string  `json:"notes"`
}

// RecordRequest for POST /reliability/record
type RecordRequest struct {
	Model        string                     `json:"model"`
	ForeignKey   string                     `json:"foreign_key"`
	Fields       []FieldScoreInput          `json:"fields"`
	Data         map[string]json.RawMessage `json:"data"`
	Source       string                     `json:"source"`
	ActorUserID  *string                    `json:"actor_user_id"`
	ActorService *string                    `json:"actor_service"`
	Message      *string                    `json:"message"`
}

// LogEntryResponse for POST /reliability/record and /reliability/recalculate
type LogEntryResponse struct {
	Success bool `json:"success"`
	services.LogEntryView
}

// RecalculateRequest for POST /reliability/recalculate
type RecalculateRequest struct {
	Model      string `json:"model"`
	ForeignKey string `json:"foreign_key"`
}

// HistoryResponse for GET /reliability/history/{model}/{foreign_key}
type HistoryResponse struct {
	Success    bool                    `json:"success"`
	Model      string                  `json:"model"`
	ForeignKey string                  `json:"foreign_key"`
	Entries    []services.LogEntryView `json:"entries"`
	Count      int                     `json:"count"`
}

// TrendsResponse for GET /reliability/trends/{model}
type TrendsResponse struct {
	Success bool `json:"success"`
	*services.ScoreTrends
}

// BulkVerifyRequest for POST /reliability/bulk-verify
type BulkVerifyRequest struct {
	Model      string `json:"model"`
	ForeignKey string `json:"foreign_key"`
	Limit      int    `json:"limit"`
}

// BulkVerifyResponse for POST /reliability/bulk-verify
type BulkVerifyResponse struct {
	Success bool `json:"success"`
	*services.BulkVerification
}

// FieldImportanceResponse for GET /reliability/field-importance/{model}/{foreign_key}
type FieldImportanceResponse struct {
	Success    bool                       `json:"success"`
	Model      string                     `json:"model"`
	ForeignKey string                     `json:"foreign_key"`
	Fields     []services.FieldImportance `json:"fields"`
}

// ============================================================================
// Handler
// ============================================================================

// ReliabilityHandler exposes scoring, change recording and checksum verification.
type ReliabilityHandler struct {
	reliabilityService services.ReliabilityService
	logger             *zap.Logger
}

// NewReliabilityHandler creates a new reliability handler.
func NewReliabilityHandler(reliabilityService services.ReliabilityService, logger *zap.Logger) *ReliabilityHandler {
	return &ReliabilityHandler{
		reliabilityService: reliabilityService,
		logger:             logger,
	}
}

// RegisterRoutes registers the reliability handler's routes on the given mux.
func (h *ReliabilityHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /score", h.Score)

	base := "/reliability"
	mux.HandleFunc("POST "+base+"/verify-checksum", h.VerifyChecksum)
	mux.HandleFunc("GET "+base+"/field-stats/{model}", h.FieldStats)
	mux.HandleFunc("POST "+base+"/record", h.Record)
	mux.HandleFunc("POST "+base+"/recalculate", h.Recalculate)
	mux.HandleFunc("GET "+base+"/history/{model}/{foreign_key}", h.History)
	mux.HandleFunc("GET "+base+"/trends/{model}", h.Trends)
	mux.HandleFunc("POST "+base+"/bulk-verify", h.BulkVerify)
	mux.HandleFunc("GET "+base+"/field-importance/{model}/{foreign_key}", h.FieldImportance)
}

// Score handles POST /score
func (h *ReliabilityHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.reliabilityService.ComputeProvisionalScore(r.Context(), req.Model, req.Data)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to compute provisional score", zap.String("model", req.Model))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ScoreResponse{Success: true, ProvisionalScore: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// VerifyChecksum handles POST /reliability/verify-checksum
func (h *ReliabilityHandler) VerifyChecksum(w http.ResponseWriter, r *http.Request) {
	var req VerifyChecksumRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.reliabilityService.VerifyChecksum(r.Context(), req.Model, req.ForeignKey, req.LogID)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to verify checksum",
			zap.String("model", req.Model),
			zap.String("foreign_key", req.ForeignKey),
			zap.String("log_id", req.LogID))
		return
	}

	if err := WriteJSON(w, http.StatusOK, VerifyChecksumResponse{Success: true, ChecksumVerification: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// FieldStats handles GET /reliability/field-stats/{model}
func (h *ReliabilityHandler) FieldStats(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")

	stats, err := h.reliabilityService.GetFieldStats(r.Context(), model)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to get field stats", zap.String("model", model))
		return
	}

	response := FieldStatsResponse{
		Success:   true,
		Model:     scoring.NormalizeModel(model),
		Stats:     stats,
		Timestamp: time.Now().UTC(),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Record handles POST /reliability/record
func (h *ReliabilityHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	fields := make([]models.FieldScoreRecord, 0, len(req.Fields))
	for _, f := range req.Fields {
		maxScore := 1.0
		if f.MaxScore != nil {
			maxScore = *f.MaxScore
		}
		fields = append(fields, models.FieldScoreRecord{
			Field:    f.Field,
			Score:    f.Score,
			Weight:   f.Weight,
			MaxScore: maxScore,
			Notes:    f.Notes,
		})
	}

	// Callers of the HTTP API are people unless they say otherwise.
	ctx := models.WithProvenance(r.Context(), models.ProvenanceContext{Source: models.SourceUser})

	entry, err := h.reliabilityService.RecordScoreChange(ctx, &services.RecordScoreChangeRequest{
		Model:      req.Model,
		ForeignKey: req.ForeignKey,
		Fields:     fields,
		Data:       req.Data,
		Source:     models.Source(req.Source),
		Actor:      models.Actor{UserID: req.ActorUserID, Service: req.ActorService},
		Message:    req.Message,
	})
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to record score change",
			zap.String("model", req.Model),
			zap.String("foreign_key", req.ForeignKey))
		return
	}

	if err := WriteJSON(w, http.StatusCreated, LogEntryResponse{Success: true, LogEntryView: services.NewLogEntryView(entry)}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Recalculate handles POST /reliability/recalculate
func (h *ReliabilityHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	entry, err := h.reliabilityService.Recalculate(r.Context(), req.Model, req.ForeignKey)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to recalculate score",
			zap.String("model", req.Model),
			zap.String("foreign_key", req.ForeignKey))
		return
	}

	if err := WriteJSON(w, http.StatusCreated, LogEntryResponse{Success: true, LogEntryView: services.NewLogEntryView(entry)}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// History handles GET /reliability/history/{model}/{foreign_key}
func (h *ReliabilityHandler) History(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")
	fk := r.PathValue("foreign_key")

	limit, ok := h.queryInt(w, r, "limit")
	if !ok {
		return
	}

	entries, err := h.reliabilityService.GetHistory(r.Context(), model, fk, limit)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to get score history",
			zap.String("model", model),
			zap.String("foreign_key", fk))
		return
	}

	views := services.NewLogEntryViews(entries)
	response := HistoryResponse{
		Success:    true,
		Model:      model,
		ForeignKey: fk,
		Entries:    views,
		Count:      len(views),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Trends handles GET /reliability/trends/{model}
func (h *ReliabilityHandler) Trends(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")

	days, ok := h.queryInt(w, r, "days")
	if !ok {
		return
	}

	trends, err := h.reliabilityService.GetTrends(r.Context(), model, days)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to get score trends", zap.String("model", model))
		return
	}

	if err := WriteJSON(w, http.StatusOK, TrendsResponse{Success: true, ScoreTrends: trends}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// BulkVerify handles POST /reliability/bulk-verify
func (h *ReliabilityHandler) BulkVerify(w http.ResponseWriter, r *http.Request) {
	var req BulkVerifyRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.reliabilityService.BulkVerify(r.Context(), req.Model, req.ForeignKey, req.Limit)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to verify checksums", zap.String("model", req.Model))
		return
	}

	if err := WriteJSON(w, http.StatusOK, BulkVerifyResponse{Success: true, BulkVerification: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// FieldImportance handles GET /reliability/field-importance/{model}/{foreign_key}
func (h *ReliabilityHandler) FieldImportance(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")
	fk := r.PathValue("foreign_key")

	fields, err := h.reliabilityService.FieldImportance(r.Context(), model, fk)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to rank field importance",
			zap.String("model", model),
			zap.String("foreign_key", fk))
		return
	}

	response := FieldImportanceResponse{
		Success:    true,
		Model:      model,
		ForeignKey: fk,
		Fields:     fields,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// queryInt parses an optional integer query parameter. Absent means 0.
func (h *ReliabilityHandler) queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeServiceError(w, apperrors.NewValidationError(name, "must be an integer"), h.logger, "Invalid query parameter")
		return 0, false
	}
	return v, true
}
