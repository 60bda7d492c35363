package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/placesearch/internal/domain"
)

// Error labels carried in ErrorResponse.Error.
const (
	ErrorInvalidQuery = "invalid_query"
	ErrorNotFound     = "not_found"
	ErrorInternal     = "internal_error"
)

// StatusClientClosedRequest is reported when the caller went away mid-search.
const StatusClientClosedRequest = 499

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error writes an error JSON response with the label that matches status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: errorLabel(status), Details: message})
}

func errorLabel(status int) string {
	switch {
	case status == http.StatusNotFound:
		return ErrorNotFound
	case status >= 400 && status < 500:
		return ErrorInvalidQuery
	default:
		return ErrorInternal
	}
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return http.StatusGatewayTimeout
		case errors.Is(err, context.Canceled):
			return StatusClientClosedRequest
		}
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation, domain.ErrCodeInvalidCell:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUpstream:
		return http.StatusBadGateway
	case domain.ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type.
// Client errors carry the domain message and field details; server errors
// only carry a generic description.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)
	resp := ErrorResponse{Error: errorLabel(status)}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
	}

	switch {
	case status < 500 && domainErr != nil:
		resp.Details = domainErr.Message
		resp.Fields = domainErr.Fields
	case status == http.StatusBadGateway:
		resp.Details = "place source unavailable"
	case status == http.StatusGatewayTimeout:
		resp.Details = "place source timed out"
		if resp.Code == "" {
			resp.Code = domain.ErrCodeUpstreamTimeout
		}
	case status == StatusClientClosedRequest:
		resp.Details = "request canceled"
	default:
		resp.Details = "internal server error"
	}

	JSON(w, status, resp)
}
