package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/auth"
	"github.com/nicegilbz/stuhouses-sub000/internal/listing"
	"github.com/nicegilbz/stuhouses-sub000/internal/payments"
	"github.com/nicegilbz/stuhouses-sub000/internal/ratelimit"
	"github.com/nicegilbz/stuhouses-sub000/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_handlers_test"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubProcessor creates intents and refunds and verifies webhooks with the
// real Stripe signature check.
type stubProcessor struct {
	mu        sync.Mutex
	next      int
	refundErr error
	verifier  *payments.StripeProcessor
}

func (s *stubProcessor) CreatePaymentIntent(ctx context.Context, p payments.IntentParams) (*payments.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := fmt.Sprintf("pi_handler_%d", s.next)
	return &payments.Intent{ID: id, ClientSecret: id + "_secret", Status: "requires_payment_method"}, nil
}

func (s *stubProcessor) CreateRefund(ctx context.Context, p payments.RefundParams) (*payments.RefundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	s.next++
	return &payments.RefundResult{ID: fmt.Sprintf("re_handler_%d", s.next), Status: "succeeded", AmountMinor: p.AmountMinor}, nil
}

func (s *stubProcessor) ConstructEvent(payload []byte, signature string) (*payments.Event, error) {
	return s.verifier.ConstructEvent(payload, signature)
}

type stubReindexer struct {
	calls int
}

func (s *stubReindexer) Reindex(ctx context.Context, db *gorm.DB, batchSize int) (int, error) {
	s.calls++
	return 3, nil
}

type testServer struct {
	engine    *gin.Engine
	db        *gorm.DB
	tokens    *auth.TokenManager
	processor *stubProcessor
	reindexer *stubReindexer
}

func newTestServer(t *testing.T, limiter *ratelimit.RateLimiter) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	logger := testutil.Logger()
	tokens := auth.NewTokenManager("handlers-test-secret", "stuhouses", time.Hour)
	processor := &stubProcessor{verifier: payments.NewStripeProcessor("sk_test_unused", webhookSecret)}
	reindexer := &stubReindexer{}

	router := Router{
		Tokens:     tokens,
		Limiter:    limiter,
		Properties: NewPropertyHandler(listing.NewService(db, nil, logger), logger),
		Bookings:   NewBookingHandler(db, logger),
		Payments:   NewPaymentHandler(payments.NewGateway(db, processor, time.Second, "gbp", logger), logger),
		Webhooks:   NewWebhookHandler(payments.NewReconciler(db, processor, logger), logger),
		Admin: NewAdminHandler(db,
			payments.NewRefundService(db, processor, time.Second, logger),
			payments.NewCircuitBreaker(5, time.Minute),
			limiter, reindexer, logger),
		Logger:      logger,
		LogRequests: true,
	}

	return &testServer{
		engine:    router.Engine(),
		db:        db,
		tokens:    tokens,
		processor: processor,
		reindexer: reindexer,
	}
}

func (s *testServer) token(t *testing.T, userID uint, role string) string {
	t.Helper()
	tok, err := s.tokens.GenerateToken(userID, role)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

// do sends a request and decodes a JSON response body into out when given
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	if out != nil && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w
}

// signPayload builds a Stripe-Signature header for payload
func signPayload(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  webhookSecret,
	}).Header
}

func succeededEvent(t *testing.T, eventID, intentID string, amountMinor int64) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":          eventID,
		"object":      "event",
		"api_version": "2023-10-16",
		"type":        payments.EventIntentSucceeded,
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
