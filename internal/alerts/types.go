package alerts

import "time"

// Task type names routed through asynq.
const (
	TaskEscrowHeld     = "escrow:held"
	TaskEscrowReleased = "escrow:released"
	TaskEscrowRefunded = "escrow:refunded"

	TaskOrderDelivered = "order:delivered"
	TaskOrderDisputed  = "order:disputed"
	TaskOrderCancelled = "order:cancelled"

	TaskWithdrawalDecision = "withdrawal:decision"

	TaskAdminAlert = "admin:alert"

	// Consumed by the listing-statistics collaborator; this service only
	// emits it.
	TaskOrderCompletedStats = "stats:order_completed"
)

// EmailEnvelope is the rendered message a notification handler delivers.
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EscrowEventPayload covers hold, release and refund notifications.
type EscrowEventPayload struct {
	OrderID  string        `json:"order_id"`
	UserID   string        `json:"user_id"`
	Amount   int64         `json:"amount"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// OrderEventPayload covers delivered, disputed and cancelled notifications.
type OrderEventPayload struct {
	OrderID  string        `json:"order_id"`
	BuyerID  string        `json:"buyer_id"`
	SellerID string        `json:"seller_id"`
	Amount   int64         `json:"amount"`
	Reason   string        `json:"reason,omitempty"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// WithdrawalDecisionPayload announces approved, denied or paid outcomes.
type WithdrawalDecisionPayload struct {
	RequestID string        `json:"request_id"`
	UserID    string        `json:"user_id"`
	Amount    int64         `json:"amount"`
	Outcome   string        `json:"outcome"`
	Reason    string        `json:"reason,omitempty"`
	Envelope  EmailEnvelope `json:"envelope"`
	SentAt    time.Time     `json:"sent_at"`
}

// AdminAlertPayload flags conditions that need a human.
type AdminAlertPayload struct {
	ActorID  string        `json:"actor_id"`
	Severity string        `json:"severity"`
	Message  string        `json:"message"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// OrderCompletedStatsPayload is the domain event the listing-statistics
// service derives turnaround metrics from. No metric is computed here.
type OrderCompletedStatsPayload struct {
	OrderID     string    `json:"order_id"`
	ListingID   string    `json:"listing_id"`
	SellerID    string    `json:"seller_id"`
	Amount      int64     `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`
}
