package webhook

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obiora-dev/taskpay/internal/alerts"
	"github.com/obiora-dev/taskpay/internal/apperr"
	"github.com/obiora-dev/taskpay/internal/db"
	"github.com/obiora-dev/taskpay/internal/gateway"
)

// Gateways and Policy are set once from main before routes are served.
var (
	Gateways *gateway.Registry
	Policy   RetryPolicy
)

// signatureHeaders lists the header each provider delivers its signature in.
var signatureHeaders = map[string]string{
	"paystack":    "X-Paystack-Signature",
	"flutterwave": "Verif-Hash",
	"mock":        "X-Mock-Signature",
}

// Handle processes POST /webhooks/:gateway. Verification and settlement run
// synchronously in the request; the provider's own retry covers slow or
// failed processing.
func Handle(c echo.Context) error {
	gatewayName := c.Param("gateway")
	provider, err := Gateways.Resolve(gatewayName)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown gateway"})
	}

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not read payload"})
	}

	header := signatureHeaders[gatewayName]
	if header == "" {
		header = "X-Signature"
	}
	signature := c.Request().Header.Get(header)

	cb, err := provider.VerifyAndCapture(payload, signature)
	if err != nil {
		if errors.Is(err, gateway.ErrBadSignature) {
			err = apperr.Wrap(apperr.KindAuth, "gateway signature verification failed", err)
		} else {
			err = apperr.Wrap(apperr.KindValidation, "gateway payload rejected", err)
		}
		return respond(c, gatewayName, Result{}, err)
	}

	result, err := Settle(c.Request().Context(), db.Conn, gatewayName, cb)
	return respond(c, gatewayName, result, err)
}

func respond(c echo.Context, gatewayName string, result Result, err error) error {
	if err == nil {
		return c.JSON(http.StatusOK, result)
	}

	status, permanent := Policy.Classify(err)
	if permanent {
		// Acknowledged but not settled: flag for a human instead of
		// having the gateway redeliver a payload that can never apply.
		_ = alerts.EnqueueAdminAlert("system", "warning",
			"webhook rejected for gateway "+gatewayName+": "+apperr.Public(err))
	}
	c.Logger().Errorf("webhook %s: %v", gatewayName, err)
	return c.JSON(status, echo.Map{"error": apperr.Public(err)})
}
