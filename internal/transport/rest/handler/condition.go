package handler

import (
	"cfstudy/internal/model"
	"cfstudy/internal/transport/rest/middleware"
	"context"
	"net/http"
)

// ConditionReader serves a participant's study condition
type ConditionReader interface {
	Get(ctx context.Context, userID string) (*model.ConditionView, error)
	Refresh(ctx context.Context, userID string) (*model.ConditionView, error)
}

// ConditionHandler handles participant settings endpoints
type ConditionHandler struct {
	conditions ConditionReader
}

// NewConditionHandler creates a new condition handler
func NewConditionHandler(conditions ConditionReader) *ConditionHandler {
	return &ConditionHandler{conditions: conditions}
}

// Get handles GET /v1/me/condition
func (h *ConditionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.conditions.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
