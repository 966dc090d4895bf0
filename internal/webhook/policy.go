package webhook

import (
	"errors"
	"net/http"

	"github.com/obiora-dev/taskpay/internal/apperr"
)

// RetryPolicy decides what status a failed settlement answers the gateway
// with. Providers retry on non-2xx. Permanent payload failures are
// acknowledged with 200 so a bad payload is not redelivered forever;
// signature failures answer 401 because the payload is not an authenticated
// provider event, and redelivery must stay alive while a misconfigured
// secret gets fixed. Transient failures get a 5xx to request redelivery.
type RetryPolicy struct {
	// RetryTransient answers 500 on internal/storage errors so the
	// provider redelivers. Off means everything is acknowledged and stuck
	// rows are left to reconciliation.
	RetryTransient bool
}

// Classify returns the HTTP status the webhook endpoint should answer with
// for err, and whether the failure is permanent.
func (p RetryPolicy) Classify(err error) (status int, permanent bool) {
	if err == nil {
		return http.StatusOK, false
	}

	var e *apperr.Error
	if !errors.As(err, &e) {
		if p.RetryTransient {
			return http.StatusInternalServerError, false
		}
		return http.StatusOK, false
	}

	switch e.Kind {
	case apperr.KindAuth:
		// Not an authenticated provider event. The 401 keeps redelivery
		// alive, so real callbacks settle once a bad secret is corrected.
		return http.StatusUnauthorized, true
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindConflict:
		return http.StatusOK, true
	default:
		if p.RetryTransient {
			return http.StatusInternalServerError, false
		}
		return http.StatusOK, false
	}
}
