package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/services/auth"
	"github.com/mcoot/realmkeeper/internal/services/migration"
	"github.com/mcoot/realmkeeper/internal/services/token"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeDuplicateResource  = "DUPLICATE_RESOURCE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	CodeKingdomNotFound    = "KINGDOM_NOT_FOUND"
	CodeCityNotFound       = "CITY_NOT_FOUND"
	CodeRecordNotFound     = "RECORD_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an error body
type httpError struct {
	status int
	body   ErrorResponse
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.body.Detail
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	if he.status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(he.body)
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError.
// Not-found bodies are fixed per resource kind so hidden and absent
// resources are indistinguishable.
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Store connectivity comes first so it is never reported as a tenancy error
	case errors.Is(err, model.ErrStoreUnavailable):
		return &httpError{http.StatusServiceUnavailable, ErrorResponse{"Storage is temporarily unavailable", CodeServiceUnavailable}}
	case errors.Is(err, model.ErrConflict):
		return &httpError{http.StatusServiceUnavailable, ErrorResponse{"Too many concurrent changes, retry later", CodeServiceUnavailable}}

	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, ErrorResponse{"Incorrect username or password", CodeInvalidCredentials}}
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, token.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, ErrorResponse{"Could not validate credentials", CodeUnauthorized}}
	case errors.Is(err, model.ErrForbidden):
		return &httpError{http.StatusForbidden, ErrorResponse{"Not enough permissions", CodeForbidden}}

	case errors.Is(err, model.ErrKingdomNotFound):
		return &httpError{http.StatusNotFound, ErrorResponse{"Kingdom not found", CodeKingdomNotFound}}
	case errors.Is(err, model.ErrCityNotFound):
		return &httpError{http.StatusNotFound, ErrorResponse{"City not found", CodeCityNotFound}}
	case errors.Is(err, model.ErrRecordNotFound):
		return &httpError{http.StatusNotFound, ErrorResponse{"Registry record not found", CodeRecordNotFound}}
	case errors.Is(err, model.ErrAccountNotFound):
		return &httpError{http.StatusNotFound, ErrorResponse{"Account not found", CodeAccountNotFound}}

	case errors.Is(err, model.ErrUsernameTaken):
		return &httpError{http.StatusBadRequest, ErrorResponse{"Username already registered", CodeDuplicateResource}}
	case errors.Is(err, model.ErrEmailTaken):
		return &httpError{http.StatusBadRequest, ErrorResponse{"Email already registered", CodeDuplicateResource}}
	case errors.Is(err, model.ErrValidation):
		return &httpError{http.StatusBadRequest, ErrorResponse{err.Error(), CodeValidation}}
	case errors.Is(err, migration.ErrAdminUsernameClaimed):
		return &httpError{http.StatusConflict, ErrorResponse{"Administrative username belongs to an existing account", CodeConflict}}

	default:
		return &httpError{http.StatusInternalServerError, ErrorResponse{"Internal server error", CodeInternalError}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, ErrorResponse{message, CodeInvalidRequest}}
}

// NewUnauthorizedError creates an unauthorized error with the same body as
// a rejected token
func NewUnauthorizedError() error {
	return toHTTPError(auth.ErrUnauthorized)
}

// NewNotFoundError creates a not found error for unknown routes
func NewNotFoundError() error {
	return &httpError{http.StatusNotFound, ErrorResponse{"Not found", CodeNotFound}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, ErrorResponse{"Internal server error", CodeInternalError}}
}
