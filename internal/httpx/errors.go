package httpx

import (
	"net/http"

	"github.com/nnamdiokafor/linkqr/internal/errx"
)

// ErrorKindToStatus maps errx.Kind to HTTP status codes.
// Handlers can use this as a helper when mapping their own errors.
func ErrorKindToStatus(kind errx.Kind) int {
	switch kind {
	case errx.NotFound:
		return http.StatusNotFound
	case errx.AlreadyExists:
		return http.StatusConflict
	case errx.Invalid:
		return http.StatusBadRequest
	case errx.Unauthorized, errx.RefreshRequired, errx.InvalidCredential:
		return http.StatusUnauthorized
	case errx.AdminRequired:
		return http.StatusForbidden
	case errx.Unavailable:
		return http.StatusServiceUnavailable
	case errx.Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKindToCode maps errx.Kind to error codes for JSON responses.
// Handlers can use this as a helper when mapping their own errors.
func ErrorKindToCode(kind errx.Kind) string {
	switch kind {
	case errx.NotFound:
		return "not_found"
	case errx.AlreadyExists:
		return "already_exists"
	case errx.Invalid:
		return "invalid_input"
	case errx.Unauthorized:
		return "unauthorized"
	case errx.RefreshRequired:
		return "refresh_required"
	case errx.InvalidCredential:
		return "invalid_credential"
	case errx.AdminRequired:
		return "admin_required"
	case errx.Unavailable:
		return "unavailable"
	case errx.Internal:
		return "internal_error"
	default:
		return "internal_error"
	}
}

// WriteErrx writes the JSON error response for a service error. The error's
// kind picks the status and code, and the body message is the safe
// user-facing phrase from errx.Message, never the internal error chain.
func WriteErrx(w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)
	WriteError(w, ErrorKindToStatus(kind), ErrorKindToCode(kind), errx.Message(err), nil)
}
