package history

import (
	"errors"
	"net/http"
)

var (
	ErrDuplicate      = errors.New("history entry already recorded")
	ErrNotFound       = errors.New("history entry not found")
	ErrInvalidID      = errors.New("invalid document id")
	ErrInvalidRequest = errors.New("invalid request body")
)

// MapHTTPStatus maps history errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidID) || errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
