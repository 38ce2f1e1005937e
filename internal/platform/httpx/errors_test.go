package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eretailgoals/books-backend/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrItemNotFound, http.StatusNotFound},
		{shared.ErrDuplicateKey, http.StatusConflict},
		{shared.ErrInvalidAmount, http.StatusBadRequest},
		{shared.ErrValidation, http.StatusBadRequest},
		{shared.ErrExceedsBalance, http.StatusUnprocessableEntity},
		{shared.ErrStatePrecondition, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, fmt.Errorf("context: %w", tc.err))
		require.Equal(t, tc.status, rec.Code, "error %v", tc.err)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}
