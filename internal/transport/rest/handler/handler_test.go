package handler

import (
	"cfstudy/internal/cache"
	"cfstudy/internal/model"
	"cfstudy/internal/repository"
	"cfstudy/internal/service"
	"cfstudy/internal/transport/rest/middleware"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecords struct {
	rec     *model.CounterfactualRecord
	err     error
	lastKey model.RecordKey

	index, value int
	ifRevision   int64
}

func (s *stubRecords) Load(ctx context.Context, key model.RecordKey) (*model.CounterfactualRecord, error) {
	s.lastKey = key
	return s.rec, s.err
}

func (s *stubRecords) SetRating(ctx context.Context, key model.RecordKey, index, value int, ifRevision int64) (*model.CounterfactualRecord, error) {
	s.lastKey, s.index, s.value, s.ifRevision = key, index, value, ifRevision
	return s.rec, s.err
}

func (s *stubRecords) ValidateAndRepair(ctx context.Context, key model.RecordKey) (bool, error) {
	s.lastKey = key
	return s.err == nil && s.rec != nil, s.err
}

func (s *stubRecords) Select(ctx context.Context, key model.RecordKey, index int) (*model.CounterfactualRecord, error) {
	s.lastKey, s.index = key, index
	return s.rec, s.err
}

func (s *stubRecords) Deselect(ctx context.Context, key model.RecordKey) (*model.CounterfactualRecord, error) {
	s.lastKey = key
	return s.rec, s.err
}

type stubGeneration struct {
	rec     *model.CounterfactualRecord
	err     error
	lastReq model.GenerateRequest
}

func (s *stubGeneration) Generate(ctx context.Context, key model.RecordKey, req model.GenerateRequest) (*model.CounterfactualRecord, error) {
	s.lastReq = req
	return s.rec, s.err
}

func (s *stubGeneration) Health(ctx context.Context) *cache.HealthStatus {
	return &cache.HealthStatus{Healthy: true, CheckedAt: time.Unix(0, 0).UTC()}
}

// serve routes req through a mux with the participant already authenticated
func serve(h *CounterfactualHandler, req *http.Request) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	base := "/v1/sessions/{sessionId}/recordings/{recordingId}/counterfactuals"
	r.HandleFunc(base, h.Get).Methods(http.MethodGet)
	r.HandleFunc(base+"/generate", h.Generate).Methods(http.MethodPost)
	r.HandleFunc(base+"/ratings/{index}", h.SetRating).Methods(http.MethodPut)
	r.HandleFunc(base+"/repair", h.Repair).Methods(http.MethodPost)
	r.HandleFunc(base+"/selection", h.Select).Methods(http.MethodPut)
	r.HandleFunc(base+"/selection", h.Deselect).Methods(http.MethodDelete)
	r.HandleFunc("/v1/generation/health", h.Health).Methods(http.MethodGet)

	req = req.WithContext(middleware.WithUserID(req.Context(), "u1"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

const recordPath = "/v1/sessions/s1/recordings/r1/counterfactuals"

func sampleRecord() *model.CounterfactualRecord {
	return &model.CounterfactualRecord{
		GeneratedTexts: []string{"a", "b"},
		Ratings:        []int{-1, 4},
		Revision:       7,
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestGet_ReturnsRecord(t *testing.T) {
	records := &stubRecords{rec: sampleRecord()}
	rr := serve(NewCounterfactualHandler(records, &stubGeneration{}), httptest.NewRequest(http.MethodGet, recordPath, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `"7"`, rr.Header().Get("ETag"))
	assert.Equal(t, model.RecordKey{UserID: "u1", SessionID: "s1", RecordingID: "r1"}, records.lastKey)

	var body RecordResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Degraded)
	assert.Equal(t, []int{-1, 4}, body.Record.Ratings)
}

func TestGet_DegradesOnStoreFailure(t *testing.T) {
	records := &stubRecords{err: fmt.Errorf("%w: timeout", service.ErrStoreUnavailable)}
	rr := serve(NewCounterfactualHandler(records, &stubGeneration{}), httptest.NewRequest(http.MethodGet, recordPath, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"record":null,"degraded":true}`, rr.Body.String())
}

func TestSetRating(t *testing.T) {
	records := &stubRecords{rec: sampleRecord()}
	req := httptest.NewRequest(http.MethodPut, recordPath+"/ratings/1", strings.NewReader(`{"rating":4}`))
	req.Header.Set("If-Match", `"7"`)
	rr := serve(NewCounterfactualHandler(records, &stubGeneration{}), req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, records.index)
	assert.Equal(t, 4, records.value)
	assert.Equal(t, int64(7), records.ifRevision)
}

func TestSetRating_WithoutIfMatch(t *testing.T) {
	records := &stubRecords{rec: sampleRecord()}
	req := httptest.NewRequest(http.MethodPut, recordPath+"/ratings/0", strings.NewReader(`{"rating":2}`))
	rr := serve(NewCounterfactualHandler(records, &stubGeneration{}), req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, repository.AnyRevision, records.ifRevision)
}

func TestSetRating_BadInput(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		body    string
		ifMatch string
		code    string
	}{
		{"non-integer index", "/ratings/x", `{"rating":3}`, "", CodeInvalidIndex},
		{"fractional rating", "/ratings/0", `{"rating":3.5}`, "", CodeInvalidRating},
		{"string rating", "/ratings/0", `{"rating":"3"}`, "", CodeInvalidRating},
		{"malformed body", "/ratings/0", `{`, "", CodeInvalidRequest},
		{"bad If-Match", "/ratings/0", `{"rating":3}`, "abc", CodeInvalidRevision},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := &stubRecords{rec: sampleRecord()}
			req := httptest.NewRequest(http.MethodPut, recordPath+tt.path, strings.NewReader(tt.body))
			if tt.ifMatch != "" {
				req.Header.Set("If-Match", tt.ifMatch)
			}
			rr := serve(NewCounterfactualHandler(records, &stubGeneration{}), req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.code, decodeError(t, rr).Code)
			assert.Equal(t, model.RecordKey{}, records.lastKey, "service not called")
		})
	}
}

func TestSetRating_ServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrInvalidRating, http.StatusBadRequest, CodeInvalidRating},
		{service.ErrInvalidIndex, http.StatusBadRequest, CodeInvalidIndex},
		{service.ErrNoGeneratedAlternatives, http.StatusConflict, CodeNoGeneratedAlternatives},
		{fmt.Errorf("%w: index 5", service.ErrIndexOutOfBounds), http.StatusConflict, CodeIndexOutOfBounds},
		{service.ErrRevisionConflict, http.StatusPreconditionFailed, CodeRevisionConflict},
		{fmt.Errorf("%w: write: no primary", service.ErrStoreUnavailable), http.StatusServiceUnavailable, CodeStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			records := &stubRecords{err: tt.err}
			req := httptest.NewRequest(http.MethodPut, recordPath+"/ratings/0", strings.NewReader(`{"rating":3}`))
			rr := serve(NewCounterfactualHandler(records, &stubGeneration{}), req)

			assert.Equal(t, tt.status, rr.Code)
			body := decodeError(t, rr)
			assert.Equal(t, tt.code, body.Code)
			assert.NotContains(t, body.Error, "no primary")
		})
	}
}

func TestGenerate(t *testing.T) {
	gen := &stubGeneration{rec: sampleRecord()}
	req := httptest.NewRequest(http.MethodPost, recordPath+"/generate", strings.NewReader(`{"text":"I overslept","questionIndex":1,"allowFallback":true}`))
	rr := serve(NewCounterfactualHandler(&stubRecords{}, gen), req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "I overslept", gen.lastReq.Text)
	assert.True(t, gen.lastReq.AllowFallback)
}

func TestGenerate_Validation(t *testing.T) {
	gen := &stubGeneration{rec: sampleRecord()}
	req := httptest.NewRequest(http.MethodPost, recordPath+"/generate", strings.NewReader(`{"questionIndex":-1,"text":"x"}`))
	rr := serve(NewCounterfactualHandler(&stubRecords{}, gen), req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, recordPath+"/generate", strings.NewReader(`{}`))
	rr = serve(NewCounterfactualHandler(&stubRecords{}, gen), req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGenerate_Failure(t *testing.T) {
	gen := &stubGeneration{err: fmt.Errorf("%w: status 500", service.ErrGenerationFailed)}
	req := httptest.NewRequest(http.MethodPost, recordPath+"/generate", strings.NewReader(`{"text":"x"}`))
	rr := serve(NewCounterfactualHandler(&stubRecords{}, gen), req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, CodeGenerationFailed, decodeError(t, rr).Code)
}

func TestRepairAndSelection(t *testing.T) {
	records := &stubRecords{rec: sampleRecord()}
	h := NewCounterfactualHandler(records, &stubGeneration{})

	rr := serve(h, httptest.NewRequest(http.MethodPost, recordPath+"/repair", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"repaired":true}`, rr.Body.String())

	rr = serve(h, httptest.NewRequest(http.MethodPut, recordPath+"/selection", strings.NewReader(`{"index":1}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, records.index)

	rr = serve(h, httptest.NewRequest(http.MethodDelete, recordPath+"/selection", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	records.rec = nil
	rr = serve(h, httptest.NewRequest(http.MethodDelete, recordPath+"/selection", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestSelect_RequiresIndex(t *testing.T) {
	for _, body := range []string{"", `{}`, `{"index":null}`} {
		records := &stubRecords{rec: sampleRecord(), index: -7}
		rr := serve(NewCounterfactualHandler(records, &stubGeneration{}),
			httptest.NewRequest(http.MethodPut, recordPath+"/selection", strings.NewReader(body)))

		require.Equal(t, http.StatusBadRequest, rr.Code, "body %q", body)
		assert.Equal(t, CodeInvalidRequest, decodeError(t, rr).Code)
		assert.Equal(t, -7, records.index, "service not called")
	}

	records := &stubRecords{rec: sampleRecord()}
	rr := serve(NewCounterfactualHandler(records, &stubGeneration{}),
		httptest.NewRequest(http.MethodPut, recordPath+"/selection", strings.NewReader(`{"index":"one"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, CodeInvalidIndex, decodeError(t, rr).Code)

	rr = serve(NewCounterfactualHandler(records, &stubGeneration{}),
		httptest.NewRequest(http.MethodPut, recordPath+"/selection", strings.NewReader(`{"index":0}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, records.index)
}

func TestHealth(t *testing.T) {
	rr := serve(NewCounterfactualHandler(&stubRecords{}, &stubGeneration{}), httptest.NewRequest(http.MethodGet, "/v1/generation/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"healthy":true`)
}

func TestParseIfMatch(t *testing.T) {
	tests := []struct {
		header  string
		want    int64
		wantErr bool
	}{
		{"", repository.AnyRevision, false},
		{"*", repository.AnyRevision, false},
		{`"3"`, 3, false},
		{`W/"4"`, 4, false},
		{"0", 0, false},
		{"-2", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPut, "/", nil)
		if tt.header != "" {
			req.Header.Set("If-Match", tt.header)
		}
		got, err := parseIfMatch(req)
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}
