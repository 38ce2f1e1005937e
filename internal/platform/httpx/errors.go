package httpx

import (
	"errors"
	"net/http"

	"github.com/eretailgoals/books-backend/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Every
// sentinel in internal/shared is a caller-input problem, so all of them land in
// the 4xx range; anything unrecognised is treated as an internal failure.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrItemNotFound):
		Problem(w, http.StatusNotFound, "Item Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicateKey):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrInvalidAmount):
		Problem(w, http.StatusBadRequest, "Invalid Amount", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrExceedsBalance):
		Problem(w, http.StatusUnprocessableEntity, "Exceeds Balance", err.Error())
	case errors.Is(err, shared.ErrStatePrecondition):
		Problem(w, http.StatusUnprocessableEntity, "State Precondition Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
