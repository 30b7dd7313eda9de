// Package api provides HTTP handlers and routing for the STAC search service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/stac"
	"github.com/robert-malhotra/inpe-stac-search/internal/translate"
)

// STACError represents a STAC-compliant error response.
type STACError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	RequestID   string `json:"request_id,omitempty"`
}

// Standard STAC error codes.
const (
	ErrCodeBadRequest            = "BadRequest"
	ErrCodeNotFound              = "NotFound"
	ErrCodeInvalidParameter      = "InvalidParameterValue"
	ErrCodeInvalidBoundingBox    = "InvalidBoundingBox"
	ErrCodeInvalidTimeExpression = "InvalidTimeExpression"
	ErrCodeUnknownField          = "UnknownField"
	ErrCodeInvalidQuery          = "InvalidQuery"
	ErrCodeServerError           = "ServerError"
	ErrCodeRepositoryFailure     = "RepositoryFailure"
	ErrCodeRepositoryUnavailable = "RepositoryUnavailable"
	ErrCodeRepositoryTimeout     = "RepositoryTimeout"
)

// StatusClientClosedRequest is logged when the client goes away mid-request.
const StatusClientClosedRequest = 499

// WriteJSON writes a JSON response with the given status code and value.
// If encoding fails, it logs the error and returns it.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response",
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// WriteGeoJSON writes a GeoJSON response with the given status code and value.
// GeoJSON responses use the application/geo+json media type.
func WriteGeoJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode GeoJSON response",
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// WriteError writes a STAC-compliant error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, STACError{Code: code, Description: message})
}

func writeError(w http.ResponseWriter, status int, errResp STACError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		slog.Error("failed to encode error response",
			slog.String("error", err.Error()),
		)
	}
}

// WriteBadRequest writes a 400 Bad Request error response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteNotFound writes a 404 Not Found error response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteInternalErrorWithRequestID writes a 500 response that carries the request ID,
// so a client report can be matched to the server log.
func WriteInternalErrorWithRequestID(w http.ResponseWriter, message, requestID string) {
	writeError(w, http.StatusInternalServerError, STACError{
		Code:        ErrCodeServerError,
		Description: message,
		RequestID:   requestID,
	})
}

// ErrorStatus maps a search error to its HTTP status and STAC error code.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, translate.ErrInvalidBoundingBox):
		return http.StatusBadRequest, ErrCodeInvalidBoundingBox
	case errors.Is(err, translate.ErrInvalidTimeExpression):
		return http.StatusBadRequest, ErrCodeInvalidTimeExpression
	case errors.Is(err, translate.ErrUnknownField):
		return http.StatusBadRequest, ErrCodeUnknownField
	case errors.Is(err, translate.ErrInvalidQuery):
		return http.StatusBadRequest, ErrCodeInvalidQuery
	case errors.Is(err, translate.ErrInvalidParameter), errors.Is(err, stac.ErrInvalidRequest):
		return http.StatusBadRequest, ErrCodeInvalidParameter
	case errors.Is(err, backend.ErrCollectionNotFound), errors.Is(err, backend.ErrItemNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, backend.ErrRepositoryTimeout):
		return http.StatusServiceUnavailable, ErrCodeRepositoryTimeout
	case errors.Is(err, backend.ErrRepositoryUnavailable):
		return http.StatusBadGateway, ErrCodeRepositoryUnavailable
	case errors.Is(err, translate.ErrCorruptRecord):
		return http.StatusInternalServerError, ErrCodeServerError
	case errors.Is(err, backend.ErrRepositoryFailure):
		return http.StatusInternalServerError, ErrCodeRepositoryFailure
	}
	return http.StatusInternalServerError, ErrCodeServerError
}

// WriteSearchError writes the response for a failed search. Client errors carry
// their message; server errors are logged and answered with a generic description.
// A request the client abandoned gets no body.
func WriteSearchError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	reqID := GetRequestID(r.Context())

	if errors.Is(err, context.Canceled) {
		logger.Debug("request canceled",
			slog.String("request_id", reqID),
			slog.String("path", r.URL.Path),
		)
		w.WriteHeader(StatusClientClosedRequest)
		return
	}

	status, code := ErrorStatus(err)
	if status < http.StatusInternalServerError {
		WriteError(w, status, code, err.Error())
		return
	}

	logger.Error("search failed",
		slog.String("request_id", reqID),
		slog.String("path", r.URL.Path),
		slog.String("code", code),
		slog.String("error", err.Error()),
	)

	description := "internal server error"
	switch code {
	case ErrCodeRepositoryTimeout:
		description = "the catalog did not answer in time"
	case ErrCodeRepositoryUnavailable:
		description = "the catalog is unavailable"
	case ErrCodeRepositoryFailure:
		description = "the catalog failed to answer the query"
	}
	writeError(w, status, STACError{Code: code, Description: description, RequestID: reqID})
}
