package gateway

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const flutterwaveBaseURL = "https://api.flutterwave.com/v3"

// Flutterwave implements Provider against the Flutterwave v3 API. Webhooks
// carry a shared secret in the verif-hash header rather than a body HMAC.
type Flutterwave struct {
	secretKey  string
	secretHash string
	baseURL    string
	client     *http.Client
}

func NewFlutterwave(secretKey, secretHash string) *Flutterwave {
	return &Flutterwave{
		secretKey:  secretKey,
		secretHash: secretHash,
		baseURL:    flutterwaveBaseURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *Flutterwave) Name() string { return "flutterwave" }

func (f *Flutterwave) CreateCharge(ctx context.Context, amount int64, currency string) (Charge, error) {
	txRef := uuid.New().String()
	body := map[string]any{
		"tx_ref":   txRef,
		"amount":   amount,
		"currency": currency,
	}

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Link string `json:"link"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := f.post(ctx, "/payments", body, &resp); err != nil {
		return Charge{}, err
	}
	if resp.Status != "success" {
		return Charge{}, fmt.Errorf("flutterwave payments rejected: %s", resp.Message)
	}
	return Charge{ExternalID: txRef, ClientHandle: resp.Data.Link}, nil
}

func (f *Flutterwave) VerifyAndCapture(payload []byte, signature string) (CallbackResult, error) {
	if subtle.ConstantTimeCompare([]byte(f.secretHash), []byte(signature)) != 1 {
		return CallbackResult{}, ErrBadSignature
	}

	var event struct {
		Event string `json:"event"`
		Data  struct {
			TxRef    string `json:"tx_ref"`
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Status   string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return CallbackResult{}, fmt.Errorf("flutterwave payload: %w", err)
	}
	if event.Data.TxRef == "" {
		return CallbackResult{}, fmt.Errorf("flutterwave payload: missing tx_ref")
	}

	return CallbackResult{
		ExternalID: event.Data.TxRef,
		Succeeded:  event.Data.Status == "successful",
		Amount:     event.Data.Amount,
		Currency:   event.Data.Currency,
	}, nil
}

func (f *Flutterwave) CreatePayout(ctx context.Context, amount int64, currency, destination string) (Payout, error) {
	reference := uuid.New().String()
	body := map[string]any{
		"account_number": destination,
		"amount":         amount,
		"currency":       currency,
		"reference":      reference,
	}

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := f.post(ctx, "/transfers", body, &resp); err != nil {
		return Payout{}, err
	}
	if resp.Status != "success" {
		return Payout{}, fmt.Errorf("flutterwave transfers rejected: %s", resp.Message)
	}
	return Payout{ExternalID: reference, Status: resp.Data.Status}, nil
}

func (f *Flutterwave) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+f.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("flutterwave %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("flutterwave %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("flutterwave %s: status %d: %s", path, resp.StatusCode, data)
	}
	return json.Unmarshal(data, out)
}
