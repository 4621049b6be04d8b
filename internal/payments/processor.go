package payments

import "context"

// Event types the reconciler acts on
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// IntentParams describes a payment intent to create upstream
type IntentParams struct {
	AmountMinor    int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is the processor's answer to an intent creation
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// RefundParams describes a refund to issue upstream
type RefundParams struct {
	IntentID       string
	AmountMinor    int64
	Metadata       map[string]string
	IdempotencyKey string
}

// RefundResult is the processor's record of an issued refund
type RefundResult struct {
	ID          string
	Status      string
	AmountMinor int64
}

// Event is a verified processor event reduced to the fields reconciliation needs
type Event struct {
	ID          string
	Type        string
	IntentID    string
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
}

// IntentCreator creates payment intents
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, p IntentParams) (*Intent, error)
}

// Refunder issues refunds
type Refunder interface {
	CreateRefund(ctx context.Context, p RefundParams) (*RefundResult, error)
}

// EventVerifier checks a webhook signature and decodes the event.
// A bad signature is reported as an apperr.SignatureError.
type EventVerifier interface {
	ConstructEvent(payload []byte, signature string) (*Event, error)
}

// Processor is the full payment processor capability set
type Processor interface {
	IntentCreator
	Refunder
	EventVerifier
}
