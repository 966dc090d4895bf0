package withdrawal

import "time"

// Request statuses. denied and paid are terminal. paying marks a request
// claimed for settlement so only one payout reaches the gateway.
const (
	StatusRequested = "requested"
	StatusApproved  = "approved"
	StatusPaying    = "paying"
	StatusDenied    = "denied"
	StatusPaid      = "paid"
)

type Request struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Amount       int64      `json:"amount"`
	Destination  string     `json:"destination"`
	Status       string     `json:"status"`
	DenialReason *string    `json:"denial_reason,omitempty"`
	PayoutTxID   *string    `json:"payout_tx_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
}
