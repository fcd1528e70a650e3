package handler

import (
	"cfstudy/internal/cache"
	"cfstudy/internal/model"
	"cfstudy/internal/repository"
	"cfstudy/internal/transport/rest/middleware"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// RecordService reads and mutates counterfactual records
type RecordService interface {
	Load(ctx context.Context, key model.RecordKey) (*model.CounterfactualRecord, error)
	SetRating(ctx context.Context, key model.RecordKey, index, value int, ifRevision int64) (*model.CounterfactualRecord, error)
	ValidateAndRepair(ctx context.Context, key model.RecordKey) (bool, error)
	Select(ctx context.Context, key model.RecordKey, index int) (*model.CounterfactualRecord, error)
	Deselect(ctx context.Context, key model.RecordKey) (*model.CounterfactualRecord, error)
}

// GenerationService produces new alternatives
type GenerationService interface {
	Generate(ctx context.Context, key model.RecordKey, req model.GenerateRequest) (*model.CounterfactualRecord, error)
	Health(ctx context.Context) *cache.HealthStatus
}

// RecordResponse wraps a record read. Degraded is set when the store could not
// be reached and the client should show its empty state.
type RecordResponse struct {
	Record   *model.CounterfactualRecord `json:"record"`
	Degraded bool                        `json:"degraded"`
}

// CounterfactualHandler handles counterfactual endpoints
type CounterfactualHandler struct {
	records    RecordService
	generation GenerationService
}

// NewCounterfactualHandler creates a new counterfactual handler
func NewCounterfactualHandler(records RecordService, generation GenerationService) *CounterfactualHandler {
	return &CounterfactualHandler{
		records:    records,
		generation: generation,
	}
}

func recordKey(r *http.Request) model.RecordKey {
	vars := mux.Vars(r)
	return model.RecordKey{
		UserID:      middleware.GetUserID(r.Context()),
		SessionID:   vars["sessionId"],
		RecordingID: vars["recordingId"],
	}
}

func writeRecord(w http.ResponseWriter, status int, rec *model.CounterfactualRecord) {
	if rec != nil {
		w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(rec.Revision, 10)))
	}
	writeJSON(w, status, rec)
}

// Get handles GET /v1/sessions/{sessionId}/recordings/{recordingId}/counterfactuals
// @Summary Read a record with ratings reconciled
// @Tags counterfactuals
// @Produce json
// @Param sessionId path string true "session"
// @Param recordingId path string true "recording"
// @Success 200 {object} RecordResponse
// @Router /sessions/{sessionId}/recordings/{recordingId}/counterfactuals [get]
func (h *CounterfactualHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := recordKey(r)
	rec, err := h.records.Load(r.Context(), key)
	if err != nil {
		slog.Warn("record read degraded", "user", key.UserID, "session", key.SessionID, "recording", key.RecordingID, "err", err)
		writeJSON(w, http.StatusOK, RecordResponse{Degraded: true})
		return
	}
	if rec != nil {
		w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(rec.Revision, 10)))
	}
	writeJSON(w, http.StatusOK, RecordResponse{Record: rec})
}

// Generate handles POST .../counterfactuals/generate
// @Summary Generate alternatives and reset ratings
// @Tags counterfactuals
// @Accept json
// @Produce json
// @Param body body model.GenerateRequest true "Transcript"
// @Success 200 {object} model.CounterfactualRecord
// @Failure 502 {object} ErrorResponse
// @Router /sessions/{sessionId}/recordings/{recordingId}/counterfactuals/generate [post]
func (h *CounterfactualHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "text or questions are required")
		return
	}

	rec, err := h.generation.Generate(r.Context(), recordKey(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRecord(w, http.StatusOK, rec)
}

// SetRating handles PUT .../counterfactuals/ratings/{index}
// @Summary Rate one alternative
// @Tags counterfactuals
// @Accept json
// @Produce json
// @Param index path int true "alternative index"
// @Param If-Match header string false "expected record revision"
// @Param body body model.RatingRequest true "Rating"
// @Success 200 {object} model.CounterfactualRecord
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 412 {object} ErrorResponse
// @Router /sessions/{sessionId}/recordings/{recordingId}/counterfactuals/ratings/{index} [put]
func (h *CounterfactualHandler) SetRating(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidIndex, "alternative index must be an integer")
		return
	}
	ifRevision, err := parseIfMatch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRevision, "If-Match must be a record revision")
		return
	}

	var req model.RatingRequest
	if err := decodeJSON(r, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			writeError(w, http.StatusBadRequest, CodeInvalidRating, "rating must be an integer between 1 and 5")
			return
		}
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body")
		return
	}

	rec, err := h.records.SetRating(r.Context(), recordKey(r), index, req.Rating, ifRevision)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRecord(w, http.StatusOK, rec)
}

// Repair handles POST .../counterfactuals/repair
func (h *CounterfactualHandler) Repair(w http.ResponseWriter, r *http.Request) {
	repaired, err := h.records.ValidateAndRepair(r.Context(), recordKey(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"repaired": repaired})
}

// Select handles PUT .../counterfactuals/selection
func (h *CounterfactualHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req model.SelectionRequest
	if err := decodeJSON(r, &req); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, "index is required")
			return
		}
		writeError(w, http.StatusBadRequest, CodeInvalidIndex, "index must be an integer")
		return
	}

	rec, err := h.records.Select(r.Context(), recordKey(r), *req.Index)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRecord(w, http.StatusOK, rec)
}

// Deselect handles DELETE .../counterfactuals/selection
func (h *CounterfactualHandler) Deselect(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.Deselect(r.Context(), recordKey(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if rec == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeRecord(w, http.StatusOK, rec)
}

// Health handles GET /v1/generation/health
func (h *CounterfactualHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.generation.Health(r.Context()))
}

// parseIfMatch returns the revision from an If-Match header, or AnyRevision
// when the header is absent or "*"
func parseIfMatch(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	v = strings.TrimPrefix(v, "W/")
	if v == "" || v == "*" {
		return repository.AnyRevision, nil
	}
	rev, err := strconv.ParseInt(strings.Trim(v, `"`), 10, 64)
	if err != nil || rev < 0 {
		return 0, errors.New("invalid revision")
	}
	return rev, nil
}
