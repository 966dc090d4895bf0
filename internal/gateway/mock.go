package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// Mock is the local/test provider. Signature verification is bypassed ONLY
// when constructed with testMode=true, and the bypass is logged on every
// callback; with testMode=false it rejects everything.
type Mock struct {
	testMode bool
}

func NewMock(testMode bool) *Mock {
	return &Mock{testMode: testMode}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) CreateCharge(_ context.Context, amount int64, currency string) (Charge, error) {
	id := uuid.New().String()
	return Charge{
		ExternalID:   id,
		ClientHandle: fmt.Sprintf("https://pay.taskpay.dev/mock/%s?amount=%d&currency=%s", id, amount, currency),
	}, nil
}

func (m *Mock) VerifyAndCapture(payload []byte, _ string) (CallbackResult, error) {
	if !m.testMode {
		return CallbackResult{}, ErrBadSignature
	}
	log.Println("[gateway] mock provider: signature verification bypassed (test mode)")

	var event struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return CallbackResult{}, fmt.Errorf("mock payload: %w", err)
	}
	if event.Reference == "" {
		return CallbackResult{}, fmt.Errorf("mock payload: missing reference")
	}

	return CallbackResult{
		ExternalID: event.Reference,
		Succeeded:  event.Status == "success",
		Amount:     event.Amount,
		Currency:   event.Currency,
	}, nil
}

func (m *Mock) CreatePayout(_ context.Context, _ int64, _, destination string) (Payout, error) {
	if destination == "" {
		return Payout{}, fmt.Errorf("mock payout: missing destination")
	}
	return Payout{ExternalID: uuid.New().String(), Status: "success"}, nil
}
