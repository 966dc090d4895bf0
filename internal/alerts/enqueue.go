package alerts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// ensureClient returns a usable client instance
func ensureClient() *asynq.Client {
	if client == nil {
		Init("")
	}
	return client
}

func enqueue(taskType string, payload any, queue string) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = ensureClient().Enqueue(asynq.NewTask(taskType, b), asynq.Queue(queue))
	return err
}

// EnqueueEscrowHeld tells the buyer their funds moved into escrow.
func EnqueueEscrowHeld(orderID, buyerID, buyerEmail string, amount int64) error {
	env := EmailEnvelope{
		To:      buyerEmail,
		Subject: "Funds held in escrow",
		Body:    fmt.Sprintf("Order %s accepted. %d has been moved into escrow until the order is concluded.", orderID, amount),
	}
	return enqueue(TaskEscrowHeld, EscrowEventPayload{
		OrderID: orderID, UserID: buyerID, Amount: amount, Envelope: env, SentAt: time.Now(),
	}, "emails")
}

// EnqueueEscrowReleased tells the seller their payout cleared escrow.
func EnqueueEscrowReleased(orderID, sellerID, sellerEmail string, amount int64) error {
	env := EmailEnvelope{
		To:      sellerEmail,
		Subject: "Escrow released to your wallet",
		Body:    fmt.Sprintf("Order %s completed. %d has been credited to your wallet.", orderID, amount),
	}
	return enqueue(TaskEscrowReleased, EscrowEventPayload{
		OrderID: orderID, UserID: sellerID, Amount: amount, Envelope: env, SentAt: time.Now(),
	}, "emails")
}

// EnqueueEscrowRefunded tells the buyer their escrowed funds came back.
func EnqueueEscrowRefunded(orderID, buyerID, buyerEmail string, amount int64) error {
	env := EmailEnvelope{
		To:      buyerEmail,
		Subject: "Escrow refunded",
		Body:    fmt.Sprintf("Order %s was not completed. %d has been returned to your wallet.", orderID, amount),
	}
	return enqueue(TaskEscrowRefunded, EscrowEventPayload{
		OrderID: orderID, UserID: buyerID, Amount: amount, Envelope: env, SentAt: time.Now(),
	}, "emails")
}

// EnqueueOrderDelivered notifies the buyer the seller submitted work.
func EnqueueOrderDelivered(orderID, buyerID, sellerID, buyerEmail string, amount int64) error {
	env := EmailEnvelope{
		To:      buyerEmail,
		Subject: "Your order has been delivered",
		Body:    fmt.Sprintf("Order %s was marked delivered. Confirm it to release payment.", orderID),
	}
	return enqueue(TaskOrderDelivered, OrderEventPayload{
		OrderID: orderID, BuyerID: buyerID, SellerID: sellerID, Amount: amount, Envelope: env, SentAt: time.Now(),
	}, "emails")
}

// EnqueueOrderDisputed notifies the seller a dispute was opened.
func EnqueueOrderDisputed(orderID, buyerID, sellerID, sellerEmail, reason string, amount int64) error {
	env := EmailEnvelope{
		To:      sellerEmail,
		Subject: "A dispute was opened on your order",
		Body:    fmt.Sprintf("Order %s is disputed: %s. Escrow is frozen pending resolution.", orderID, reason),
	}
	return enqueue(TaskOrderDisputed, OrderEventPayload{
		OrderID: orderID, BuyerID: buyerID, SellerID: sellerID, Amount: amount, Reason: reason, Envelope: env, SentAt: time.Now(),
	}, "emails")
}

// EnqueueOrderCancelled notifies the counterparty of a cancellation.
func EnqueueOrderCancelled(orderID, buyerID, sellerID, recipientEmail string, amount int64) error {
	env := EmailEnvelope{
		To:      recipientEmail,
		Subject: "Order cancelled",
		Body:    fmt.Sprintf("Order %s was cancelled.", orderID),
	}
	return enqueue(TaskOrderCancelled, OrderEventPayload{
		OrderID: orderID, BuyerID: buyerID, SellerID: sellerID, Amount: amount, Envelope: env, SentAt: time.Now(),
	}, "emails")
}

// EnqueueWithdrawalDecision announces an approve/deny/paid outcome to the
// seller.
func EnqueueWithdrawalDecision(requestID, userID, email, outcome, reason string, amount int64) error {
	body := fmt.Sprintf("Your withdrawal request for %d is now %s.", amount, outcome)
	if reason != "" {
		body += " Reason: " + reason
	}
	env := EmailEnvelope{To: email, Subject: "Withdrawal " + outcome, Body: body}
	return enqueue(TaskWithdrawalDecision, WithdrawalDecisionPayload{
		RequestID: requestID, UserID: userID, Amount: amount, Outcome: outcome, Reason: reason, Envelope: env, SentAt: time.Now(),
	}, "emails")
}

// EnqueueAdminAlert sends an alert to admins.
func EnqueueAdminAlert(actorID, severity, message string) error {
	env := EmailEnvelope{To: "admin@taskpay.local", Subject: "Admin Alert", Body: message}
	return enqueue(TaskAdminAlert, AdminAlertPayload{
		ActorID: actorID, Severity: severity, Message: message, Envelope: env, SentAt: time.Now(),
	}, "alerts")
}

// EnqueueOrderCompletedStats hands a completion event to the
// listing-statistics collaborator.
func EnqueueOrderCompletedStats(p OrderCompletedStatsPayload) error {
	return enqueue(TaskOrderCompletedStats, p, "stats")
}
