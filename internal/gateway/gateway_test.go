package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewMock(true))
	r.Register(NewPaystack("sk_test_x"))

	t.Run("resolve registered provider", func(t *testing.T) {
		p, err := r.Resolve("mock")
		require.NoError(t, err)
		assert.Equal(t, "mock", p.Name())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := r.Resolve("stripe")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownGateway))
	})

	t.Run("names are sorted", func(t *testing.T) {
		assert.Equal(t, []string{"mock", "paystack"}, r.Names())
	})
}

func signPaystack(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaystackVerifyAndCapture(t *testing.T) {
	p := NewPaystack("sk_test_secret")
	payload := []byte(`{"event":"charge.success","data":{"reference":"ref-1","amount":5000,"currency":"NGN","status":"success"}}`)

	t.Run("valid signature", func(t *testing.T) {
		cb, err := p.VerifyAndCapture(payload, signPaystack("sk_test_secret", payload))
		require.NoError(t, err)
		assert.Equal(t, "ref-1", cb.ExternalID)
		assert.True(t, cb.Succeeded)
		assert.Equal(t, int64(5000), cb.Amount)
		assert.Equal(t, "NGN", cb.Currency)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := p.VerifyAndCapture(payload, signPaystack("sk_other", payload))
		assert.True(t, errors.Is(err, ErrBadSignature))
	})

	t.Run("tampered payload", func(t *testing.T) {
		sig := signPaystack("sk_test_secret", payload)
		tampered := []byte(`{"event":"charge.success","data":{"reference":"ref-1","amount":999999,"currency":"NGN","status":"success"}}`)
		_, err := p.VerifyAndCapture(tampered, sig)
		assert.True(t, errors.Is(err, ErrBadSignature))
	})

	t.Run("failed charge is authenticated but not succeeded", func(t *testing.T) {
		failed := []byte(`{"event":"charge.failed","data":{"reference":"ref-2","amount":5000,"currency":"NGN","status":"failed"}}`)
		cb, err := p.VerifyAndCapture(failed, signPaystack("sk_test_secret", failed))
		require.NoError(t, err)
		assert.False(t, cb.Succeeded)
	})

	t.Run("missing reference", func(t *testing.T) {
		empty := []byte(`{"event":"charge.success","data":{}}`)
		_, err := p.VerifyAndCapture(empty, signPaystack("sk_test_secret", empty))
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrBadSignature))
	})
}

func TestPaystackCreateCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 5000, body["amount"])

		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc",
				"reference":         body["reference"],
			},
		})
	}))
	defer srv.Close()

	p := NewPaystack("sk_test_secret")
	p.baseURL = srv.URL

	charge, err := p.CreateCharge(context.Background(), 5000, "NGN")
	require.NoError(t, err)
	assert.NotEmpty(t, charge.ExternalID)
	assert.Equal(t, "https://checkout.paystack.com/abc", charge.ClientHandle)
}

func TestFlutterwaveVerifyAndCapture(t *testing.T) {
	f := NewFlutterwave("fw_key", "fw_hash")
	payload := []byte(`{"event":"charge.completed","data":{"tx_ref":"tx-1","amount":200,"currency":"NGN","status":"successful"}}`)

	t.Run("matching hash", func(t *testing.T) {
		cb, err := f.VerifyAndCapture(payload, "fw_hash")
		require.NoError(t, err)
		assert.Equal(t, "tx-1", cb.ExternalID)
		assert.True(t, cb.Succeeded)
	})

	t.Run("wrong hash", func(t *testing.T) {
		_, err := f.VerifyAndCapture(payload, "forged")
		assert.True(t, errors.Is(err, ErrBadSignature))
	})
}

func TestMockProvider(t *testing.T) {
	t.Run("test mode parses callbacks", func(t *testing.T) {
		m := NewMock(true)
		cb, err := m.VerifyAndCapture([]byte(`{"reference":"ref-1","amount":20,"currency":"NGN","status":"success"}`), "")
		require.NoError(t, err)
		assert.Equal(t, "ref-1", cb.ExternalID)
		assert.True(t, cb.Succeeded)
		assert.Equal(t, int64(20), cb.Amount)
	})

	t.Run("rejects everything outside test mode", func(t *testing.T) {
		m := NewMock(false)
		_, err := m.VerifyAndCapture([]byte(`{"reference":"ref-1","status":"success"}`), "")
		assert.True(t, errors.Is(err, ErrBadSignature))
	})

	t.Run("charge returns a checkout handle", func(t *testing.T) {
		m := NewMock(true)
		charge, err := m.CreateCharge(context.Background(), 20, "NGN")
		require.NoError(t, err)
		assert.NotEmpty(t, charge.ExternalID)
		assert.Contains(t, charge.ClientHandle, charge.ExternalID)
	})
}
