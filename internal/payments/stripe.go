package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nicegilbz/stuhouses-sub000/internal/apperr"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeProcessor talks to Stripe through a dedicated API client
type StripeProcessor struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProcessor creates a processor for the given secret key. The
// webhook secret is the endpoint signing secret (whsec_...).
func NewStripeProcessor(secretKey, webhookSecret string) *StripeProcessor {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProcessor{api: api, webhookSecret: webhookSecret}
}

// CreatePaymentIntent creates an intent with automatic payment methods
func (p *StripeProcessor) CreatePaymentIntent(ctx context.Context, in IntentParams) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.AmountMinor),
		Currency: stripe.String(in.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

// CreateRefund refunds part or all of a captured intent
func (p *StripeProcessor) CreateRefund(ctx context.Context, in RefundParams) (*RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(in.IntentID),
		Amount:        stripe.Int64(in.AmountMinor),
	}
	params.Context = ctx
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	r, err := p.api.Refunds.New(params)
	if err != nil {
		return nil, err
	}
	return &RefundResult{ID: r.ID, Status: string(r.Status), AmountMinor: r.Amount}, nil
}

// ConstructEvent verifies the Stripe-Signature header against the payload.
// The account's API version may differ from the library's; only the
// payment intent fields read below are relied on.
func (p *StripeProcessor) ConstructEvent(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, apperr.Signature(err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if !strings.HasPrefix(out.Type, "payment_intent.") || ev.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return nil, apperr.Validation("payload", "cannot decode payment intent: %v", err)
	}
	out.IntentID = pi.ID
	out.AmountMinor = pi.AmountReceived
	if out.AmountMinor == 0 {
		out.AmountMinor = pi.Amount
	}
	out.Currency = string(pi.Currency)
	out.Metadata = pi.Metadata
	return out, nil
}

// isOutage reports whether err means the processor itself is unhealthy,
// as opposed to rejecting this particular request.
func isOutage(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode >= 500 || stripeErr.HTTPStatusCode == 429 || stripeErr.HTTPStatusCode == 0
	}
	return true
}

// describe renders err for logs with the Stripe request id when present
func describe(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Sprintf("stripe %s (status %d, code %s, request %s): %s",
			stripeErr.Type, stripeErr.HTTPStatusCode, stripeErr.Code, stripeErr.RequestID, stripeErr.Msg)
	}
	return err.Error()
}
