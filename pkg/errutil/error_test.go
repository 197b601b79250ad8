package errutil

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[CoreStatus]int{
		StatusBadRequest:          http.StatusBadRequest,
		StatusValidationFailed:    http.StatusBadRequest,
		StatusNotFound:            http.StatusNotFound,
		StatusConflict:            http.StatusConflict,
		StatusForbidden:           http.StatusForbidden,
		StatusInternal:            http.StatusInternalServerError,
		StatusClientClosedRequest: 499,
		CoreStatus("bogus"):       http.StatusInternalServerError,
	}

	for status, want := range cases {
		require.Equal(t, want, status.HTTPStatus(), "status %s", status)
	}
}

func TestConstructorsCarryStatus(t *testing.T) {
	cases := []struct {
		err    error
		status CoreStatus
	}{
		{BadRequest("bad", nil), StatusBadRequest},
		{NotFound("missing", nil), StatusNotFound},
		{Conflict("conflict", nil), StatusConflict},
		{Internal("boom", nil), StatusInternal},
	}

	for _, tc := range cases {
		var be BaseError
		require.True(t, errors.As(tc.err, &be))
		require.Equal(t, tc.status, be.Status())
	}
}

func TestWrappedCauseSurvives(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal("write failed", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "disk full")
}

func TestDetailsInJSON(t *testing.T) {
	err := BadRequest("amount out of range", nil, WithDetails(Detail{
		Field:   "amount",
		Message: "must be between 100 and 1000",
	}))

	var be BaseError
	require.True(t, errors.As(err, &be))
	require.Len(t, be.Details, 1)
	require.Equal(t, "amount", be.Details[0].Field)
}
