// Package http contains the HTTP handlers for the GOU Auth API.
package http

import (
	"net/http"

	"github.com/go-chi/render"

	apperrors "gouauth/internal/errors"
)

// envelope is the uniform response wrapper: success carries data, failure
// carries the error object. The two are mutually exclusive by construction.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *wireError  `json:"error,omitempty"`
}

type wireError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// respondData writes a success envelope.
func respondData(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, envelope{Success: true, Data: data})
}

// respondCreated writes a success envelope with a 201 status.
func respondCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, envelope{Success: true, Data: data})
}

// respondError writes a failure envelope from an APIError.
func respondError(w http.ResponseWriter, r *http.Request, apiErr *apperrors.APIError) {
	render.Status(r, apiErr.StatusCode)
	render.JSON(w, r, envelope{
		Success: false,
		Error: &wireError{
			Code:    apiErr.ErrorCode,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}

// respondAuthError maps an auth error to its stable wire code and writes it.
func respondAuthError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, apperrors.FromAuthError(err))
}
