package webhook

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obiora-dev/taskpay/internal/gateway"
)

func postWebhook(t *testing.T, gatewayName, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+gatewayName, strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/webhooks/:gateway")
	c.SetParamNames("gateway")
	c.SetParamValues(gatewayName)
	require.NoError(t, Handle(c))
	return rec
}

func TestHandle(t *testing.T) {
	prevGateways, prevPolicy := Gateways, Policy
	defer func() { Gateways, Policy = prevGateways, prevPolicy }()

	registry := gateway.NewRegistry()
	registry.Register(gateway.NewMock(false))
	Gateways = registry
	Policy = RetryPolicy{RetryTransient: true}

	t.Run("unknown gateway answers 404", func(t *testing.T) {
		rec := postWebhook(t, "stripe", `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejected signature answers 401", func(t *testing.T) {
		rec := postWebhook(t, "mock", `{"reference":"ref-1","status":"success"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed payload is acknowledged, not retried", func(t *testing.T) {
		registry.Register(gateway.NewMock(true))
		rec := postWebhook(t, "mock", `not json`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "error")
	})
}
