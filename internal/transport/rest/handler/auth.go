package handler

import (
	"cfstudy/internal/model"
	"log/slog"
	"net/http"
)

// TokenIssuer exchanges participant credentials for a token
type TokenIssuer interface {
	IssueToken(participantID, studyCode string) (*model.TokenResponse, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authSvc    TokenIssuer
	conditions ConditionReader
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc TokenIssuer, conditions ConditionReader) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, conditions: conditions}
}

// Token handles POST /v1/auth/token
// @Summary Exchange participant id and study code for a token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body model.TokenRequest true "Credentials"
// @Success 200 {object} model.TokenResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/token [post]
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req model.TokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "participantId and studyCode are required")
		return
	}

	resp, err := h.authSvc.IssueToken(req.ParticipantID, req.StudyCode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Every sign-in re-reads the condition so a reassigned participant sees it at once
	if _, err := h.conditions.Refresh(r.Context(), resp.UserID); err != nil {
		slog.Warn("condition refresh on sign-in failed", "user", resp.UserID, "err", err)
	}

	writeJSON(w, http.StatusOK, resp)
}
