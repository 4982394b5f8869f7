package apperrors

import "net/http"

// HTTPStatus maps the failure kind of err to a response status.
// Unclassified errors are treated as internal failures.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
