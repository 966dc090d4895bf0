package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
)

var (
	client *asynq.Client
	server *asynq.Server
)

// Init starts the asynq server and initializes a shared client.
func Init(redisAddr string) {
	if redisAddr == "" {
		redisAddr = os.Getenv("REDIS_ADDR")
		if redisAddr == "" {
			redisAddr = "127.0.0.1:6379"
		}
	}

	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client = asynq.NewClient(opts)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskEscrowHeld, handleEscrowEvent)
	mux.HandleFunc(TaskEscrowReleased, handleEscrowEvent)
	mux.HandleFunc(TaskEscrowRefunded, handleEscrowEvent)
	mux.HandleFunc(TaskOrderDelivered, handleOrderEvent)
	mux.HandleFunc(TaskOrderDisputed, handleOrderEvent)
	mux.HandleFunc(TaskOrderCancelled, handleOrderEvent)
	mux.HandleFunc(TaskWithdrawalDecision, handleWithdrawalDecision)
	mux.HandleFunc(TaskAdminAlert, handleAdminAlert)
	mux.HandleFunc(TaskOrderCompletedStats, handleOrderCompletedStats)

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails": 10,
			"alerts": 5,
			"stats":  3,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			log.Printf("Asynq server stopped: %v", err)
		}
	}()

	log.Printf("Asynq initialized (addr=%s)", redisAddr)
}

// Close releases client and stops server.
func Close() {
	if client != nil {
		_ = client.Close()
	}
	if server != nil {
		server.Shutdown()
	}
}

func handleEscrowEvent(_ context.Context, t *asynq.Task) error {
	var p EscrowEventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] %s send failed: %v", t.Type(), err)
		return err
	}
	log.Printf("[notify] %s sent -> order=%s user=%s", t.Type(), p.OrderID, p.UserID)
	return nil
}

func handleOrderEvent(_ context.Context, t *asynq.Task) error {
	var p OrderEventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] %s send failed: %v", t.Type(), err)
		return err
	}
	log.Printf("[notify] %s sent -> order=%s", t.Type(), p.OrderID)
	return nil
}

func handleWithdrawalDecision(_ context.Context, t *asynq.Task) error {
	var p WithdrawalDecisionPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] WithdrawalDecision send failed: %v", err)
		return err
	}
	log.Printf("[notify] WithdrawalDecision sent -> request=%s outcome=%s", p.RequestID, p.Outcome)
	return nil
}

func handleAdminAlert(_ context.Context, t *asynq.Task) error {
	var p AdminAlertPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] AdminAlert send failed: %v", err)
		return err
	}
	log.Printf("[notify] AdminAlert sent -> severity=%s by=%s", p.Severity, p.ActorID)
	return nil
}

// handleOrderCompletedStats forwards completion events to the external
// listing-statistics service, which owns the turnaround metric. Without a
// configured endpoint the event is only logged.
func handleOrderCompletedStats(ctx context.Context, t *asynq.Task) error {
	statsURL := os.Getenv("STATS_SERVICE_URL")
	if statsURL == "" {
		log.Printf("[stats] order completed event (no STATS_SERVICE_URL configured): %s", t.Payload())
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, statsURL, bytes.NewReader(t.Payload()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		log.Printf("[stats][ERROR] stats service answered %d", resp.StatusCode)
	}
	return nil
}
