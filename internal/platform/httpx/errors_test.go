package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func respond(t *testing.T, err error) (int, ProblemDetail) {
	t.Helper()
	rr := httptest.NewRecorder()
	RespondError(rr, err)
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	return rr.Code, problem
}

func TestRespondErrorNotFound(t *testing.T) {
	code, problem := respond(t, fmt.Errorf("%w: no document with number GRN-000009", ErrNotFound))
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "Not Found", problem.Title)
	require.Contains(t, problem.Detail, "GRN-000009")
}

func TestRespondErrorValidation(t *testing.T) {
	code, problem := respond(t, fmt.Errorf("%w: number is required", ErrValidation))
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "Validation Failed", problem.Title)
}

func TestRespondErrorUnknownHidesDetail(t *testing.T) {
	code, problem := respond(t, errors.New("pool exhausted"))
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "Internal Error", problem.Title)
	require.Empty(t, problem.Detail)
}
