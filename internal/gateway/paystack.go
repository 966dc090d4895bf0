package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const paystackBaseURL = "https://api.paystack.co"

// Paystack implements Provider against the Paystack REST API. Webhook
// authenticity is an HMAC-SHA512 of the raw body under the secret key,
// delivered in the x-paystack-signature header.
type Paystack struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewPaystack(secretKey string) *Paystack {
	return &Paystack{
		secretKey: secretKey,
		baseURL:   paystackBaseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *Paystack) Name() string { return "paystack" }

func (p *Paystack) CreateCharge(ctx context.Context, amount int64, currency string) (Charge, error) {
	reference := uuid.New().String()
	body := map[string]any{
		"amount":    amount,
		"currency":  currency,
		"reference": reference,
	}

	var resp struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			Reference        string `json:"reference"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := p.post(ctx, "/transaction/initialize", body, &resp); err != nil {
		return Charge{}, err
	}
	if !resp.Status {
		return Charge{}, fmt.Errorf("paystack initialize rejected: %s", resp.Message)
	}
	return Charge{ExternalID: resp.Data.Reference, ClientHandle: resp.Data.AuthorizationURL}, nil
}

func (p *Paystack) VerifyAndCapture(payload []byte, signature string) (CallbackResult, error) {
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return CallbackResult{}, ErrBadSignature
	}

	var event struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
			Amount    int64  `json:"amount"`
			Currency  string `json:"currency"`
			Status    string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return CallbackResult{}, fmt.Errorf("paystack payload: %w", err)
	}
	if event.Data.Reference == "" {
		return CallbackResult{}, fmt.Errorf("paystack payload: missing reference")
	}

	return CallbackResult{
		ExternalID: event.Data.Reference,
		Succeeded:  event.Event == "charge.success" && event.Data.Status == "success",
		Amount:     event.Data.Amount,
		Currency:   event.Data.Currency,
	}, nil
}

func (p *Paystack) CreatePayout(ctx context.Context, amount int64, currency, destination string) (Payout, error) {
	body := map[string]any{
		"source":    "balance",
		"amount":    amount,
		"currency":  currency,
		"recipient": destination,
		"reference": uuid.New().String(),
	}

	var resp struct {
		Status bool `json:"status"`
		Data   struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := p.post(ctx, "/transfer", body, &resp); err != nil {
		return Payout{}, err
	}
	if !resp.Status {
		return Payout{}, fmt.Errorf("paystack transfer rejected: %s", resp.Message)
	}
	return Payout{ExternalID: resp.Data.Reference, Status: resp.Data.Status}, nil
}

func (p *Paystack) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("paystack %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("paystack %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("paystack %s: status %d: %s", path, resp.StatusCode, data)
	}
	return json.Unmarshal(data, out)
}
