package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-saas/meridian/internal/shared"
)

// RespondError maps domain sentinel errors to HTTP error envelopes.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrDuplicate):
		Error(w, http.StatusConflict, "Conflict", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrValidation):
		Error(w, http.StatusBadRequest, "Bad Request", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, "Unauthorized", shared.UserSafeMessage(err))
	default:
		Error(w, http.StatusInternalServerError, "Internal server error", "")
	}
}
