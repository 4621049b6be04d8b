package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_test_secret"

// fakeProcessor records calls and returns canned answers
type fakeProcessor struct {
	mu         sync.Mutex
	intents    []IntentParams
	refunds    []RefundParams
	intentErr  error
	refundErr  error
	block      bool
	sawTimeout bool
	nextID     int
	// afterIntent runs once an intent has been created upstream
	afterIntent func()
}

func (f *fakeProcessor) CreatePaymentIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	f.mu.Lock()
	_, f.sawTimeout = ctx.Deadline()
	f.intents = append(f.intents, p)
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	f.nextID++
	id := fmt.Sprintf("pi_test_%d", f.nextID)
	if f.afterIntent != nil {
		f.afterIntent()
	}
	return &Intent{ID: id, ClientSecret: id + "_secret_abc", Status: "requires_payment_method"}, nil
}

func (f *fakeProcessor) CreateRefund(ctx context.Context, p RefundParams) (*RefundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.sawTimeout = ctx.Deadline()
	f.refunds = append(f.refunds, p)
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.nextID++
	return &RefundResult{ID: fmt.Sprintf("re_test_%d", f.nextID), Status: "succeeded", AmountMinor: p.AmountMinor}, nil
}

func (f *fakeProcessor) ConstructEvent(payload []byte, signature string) (*Event, error) {
	return NewStripeProcessor("sk_test_unused", testWebhookSecret).ConstructEvent(payload, signature)
}

// stripeEvent builds a webhook body shaped like Stripe's
func stripeEvent(t *testing.T, eventID, eventType, intentID string, amountMinor int64) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":          eventID,
		"object":      "event",
		"api_version": "2023-10-16",
		"type":        eventType,
		"created":     time.Now().Unix(),
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":              intentID,
				"object":          "payment_intent",
				"amount":          amountMinor,
				"amount_received": amountMinor,
				"currency":        "gbp",
				"status":          "succeeded",
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

// sign produces a Stripe-Signature header for payload
func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  secret,
	}).Header
}
