package webhook

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/obiora-dev/taskpay/internal/apperr"
)

func TestRetryPolicyClassify(t *testing.T) {
	cases := []struct {
		name      string
		policy    RetryPolicy
		err       error
		status    int
		permanent bool
	}{
		{"nil error", RetryPolicy{RetryTransient: true}, nil, http.StatusOK, false},
		{"bad signature", RetryPolicy{RetryTransient: true}, apperr.Auth("invalid signature"), http.StatusUnauthorized, true},
		{"malformed payload", RetryPolicy{RetryTransient: true}, apperr.Validation("unexpected payload"), http.StatusOK, true},
		{"unknown reference", RetryPolicy{RetryTransient: true}, apperr.NotFound("no transaction"), http.StatusOK, true},
		{"amount mismatch", RetryPolicy{RetryTransient: true}, apperr.Conflict("amount mismatch"), http.StatusOK, true},
		{"storage error retried", RetryPolicy{RetryTransient: true}, apperr.Internal("db down", errors.New("conn refused")), http.StatusInternalServerError, false},
		{"storage error acked when retries off", RetryPolicy{}, apperr.Internal("db down", errors.New("conn refused")), http.StatusOK, false},
		{"plain error retried", RetryPolicy{RetryTransient: true}, errors.New("boom"), http.StatusInternalServerError, false},
		{"plain error acked when retries off", RetryPolicy{}, errors.New("boom"), http.StatusOK, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, permanent := tc.policy.Classify(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.permanent, permanent)
		})
	}
}
