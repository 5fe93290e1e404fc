// Package httputil centralizes JSON response writing and domain error
// translation so every handler returns the same envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "mintgate/pkg/domain-errors"
)

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to an HTTP status and JSON envelope.
// Internal errors never leak their message to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			resp.ErrorDescription = dErr.Message
		}
	}
	WriteJSON(w, toHTTPStatus(code), resp)
}

func toHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound, dErrors.CodeNotSubmitted:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUnavailable, dErrors.CodePublish:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
