package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/obiora-dev/taskpay/internal/apperr"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.Validation("bad input"), http.StatusBadRequest},
		{apperr.Auth("no token"), http.StatusUnauthorized},
		{apperr.Forbidden("not yours"), http.StatusForbidden},
		{apperr.NotFound("missing"), http.StatusNotFound},
		{apperr.Conflict("wrong state"), http.StatusConflict},
		{apperr.InsufficientFunds("broke"), http.StatusUnprocessableEntity},
		{apperr.Gateway("provider down", errors.New("timeout")), http.StatusBadGateway},
		{apperr.Internal("oops", errors.New("nil pointer")), http.StatusInternalServerError},
		{errors.New("untyped"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, apperr.Status(tc.err), tc.err.Error())
	}
}

func TestIsKindSeesWrappedErrors(t *testing.T) {
	err := fmt.Errorf("accepting order: %w", apperr.InsufficientFunds("insufficient balance"))
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientFunds))
	assert.False(t, apperr.IsKind(err, apperr.KindConflict))
	assert.False(t, apperr.IsKind(errors.New("plain"), apperr.KindInternal))
}

func TestPublicHidesCauses(t *testing.T) {
	err := apperr.Internal("could not update wallet", errors.New("pq: deadlock detected"))
	assert.Equal(t, "could not update wallet", apperr.Public(err))
	assert.Contains(t, err.Error(), "deadlock")

	assert.Equal(t, "internal error", apperr.Public(errors.New("raw db error")))
}
