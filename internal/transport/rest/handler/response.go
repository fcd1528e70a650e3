package handler

import (
	"cfstudy/internal/service"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Error codes returned in the "code" field of error responses
const (
	CodeInvalidRequest          = "INVALID_REQUEST"
	CodeInvalidRating           = "INVALID_RATING"
	CodeInvalidIndex            = "INVALID_INDEX"
	CodeInvalidRevision         = "INVALID_REVISION"
	CodeEmptyTranscript         = "EMPTY_TRANSCRIPT"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeNoGeneratedAlternatives = "NO_GENERATED_ALTERNATIVES"
	CodeIndexOutOfBounds        = "INDEX_OUT_OF_BOUNDS"
	CodeRevisionConflict        = "REVISION_CONFLICT"
	CodeGenerationFailed        = "GENERATION_FAILED"
	CodeStoreUnavailable        = "STORE_UNAVAILABLE"
	CodeInternal                = "INTERNAL"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeServiceError maps a service error onto its status and code
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status >= 500 {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", code, "err", err)
		// Store and upstream details stay in the log
		switch code {
		case CodeStoreUnavailable:
			message = service.ErrStoreUnavailable.Error()
		case CodeGenerationFailed:
			message = service.ErrGenerationFailed.Error()
		default:
			message = "internal error"
		}
	}
	writeError(w, status, code, message)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidRating):
		return http.StatusBadRequest, CodeInvalidRating
	case errors.Is(err, service.ErrInvalidIndex):
		return http.StatusBadRequest, CodeInvalidIndex
	case errors.Is(err, service.ErrEmptyTranscript):
		return http.StatusBadRequest, CodeEmptyTranscript
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, service.ErrNoGeneratedAlternatives):
		return http.StatusConflict, CodeNoGeneratedAlternatives
	case errors.Is(err, service.ErrIndexOutOfBounds):
		return http.StatusConflict, CodeIndexOutOfBounds
	case errors.Is(err, service.ErrRevisionConflict):
		return http.StatusPreconditionFailed, CodeRevisionConflict
	case errors.Is(err, service.ErrGenerationFailed):
		return http.StatusBadGateway, CodeGenerationFailed
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, CodeStoreUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// decodeJSON reads a JSON body into v and runs struct validation on it.
// An empty body leaves v at its zero value.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return validate.Struct(v)
}
