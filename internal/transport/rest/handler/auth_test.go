package handler

import (
	"cfstudy/internal/model"
	"cfstudy/internal/service"
	"cfstudy/internal/transport/rest/middleware"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIssuer struct{}

func (stubIssuer) IssueToken(participantID, studyCode string) (*model.TokenResponse, error) {
	if studyCode != "pilot" {
		return nil, service.ErrInvalidCredentials
	}
	return &model.TokenResponse{Token: "t", UserID: participantID}, nil
}

type stubConditions struct {
	refreshed []string
	view      *model.ConditionView
	err       error
}

func (s *stubConditions) Get(ctx context.Context, userID string) (*model.ConditionView, error) {
	return s.view, s.err
}

func (s *stubConditions) Refresh(ctx context.Context, userID string) (*model.ConditionView, error) {
	s.refreshed = append(s.refreshed, userID)
	return s.view, s.err
}

func TestToken(t *testing.T) {
	conditions := &stubConditions{view: &model.ConditionView{}}
	h := NewAuthHandler(stubIssuer{}, conditions)

	rr := httptest.NewRecorder()
	h.Token(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(`{"participantId":"p-9","studyCode":"pilot"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"userId":"p-9"`)
	assert.Equal(t, []string{"p-9"}, conditions.refreshed)

	rr = httptest.NewRecorder()
	h.Token(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(`{"participantId":"p-9","studyCode":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	h.Token(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(`{"participantId":""}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestToken_ConditionRefreshFailureIsNotFatal(t *testing.T) {
	conditions := &stubConditions{err: service.ErrStoreUnavailable}
	rr := httptest.NewRecorder()
	NewAuthHandler(stubIssuer{}, conditions).Token(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(`{"participantId":"p-9","studyCode":"pilot"}`)))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestConditionGet(t *testing.T) {
	conditions := &stubConditions{view: &model.ConditionView{UserID: "p-9", Condition: "reflect", Source: "cache"}}
	req := httptest.NewRequest(http.MethodGet, "/v1/me/condition", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "p-9"))

	rr := httptest.NewRecorder()
	NewConditionHandler(conditions).Get(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"userId":"p-9","condition":"reflect","source":"cache"}`, rr.Body.String())

	conditions.err = service.ErrStoreUnavailable
	rr = httptest.NewRecorder()
	NewConditionHandler(conditions).Get(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
