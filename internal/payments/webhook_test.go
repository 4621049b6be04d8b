package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/apperr"
	"github.com/nicegilbz/stuhouses-sub000/internal/models"
	"github.com/nicegilbz/stuhouses-sub000/internal/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newReconciler(t *testing.T) (*Reconciler, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewReconciler(db, NewStripeProcessor("sk_test_unused", testWebhookSecret), testutil.Logger()), db
}

func deliver(t *testing.T, r *Reconciler, body []byte) Outcome {
	t.Helper()
	outcome, err := r.HandleWebhook(context.Background(), body, sign(body, testWebhookSecret))
	if err != nil {
		t.Fatalf("handle webhook: %v", err)
	}
	return outcome
}

func TestDepositSucceededScenario(t *testing.T) {
	rec, db := newReconciler(t)
	city := testutil.SeedCity(t, db, "Leeds")
	property := testutil.SeedProperty(t, db, city.ID, "Hyde Park flat")
	booking := models.Booking{PropertyID: property.ID, UserID: 5, Status: models.BookingStatusPendingPayment}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatal(err)
	}

	gw := NewGateway(db, &fakeProcessor{}, time.Second, "gbp", testutil.Logger())
	intent, err := gw.CreatePaymentIntent(context.Background(), IntentRequest{
		UserID: 5, PropertyID: property.ID, Amount: decimal.RequireFromString("150.00"),
		Currency: "gbp", PaymentType: models.PaymentTypeDeposit,
	})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	body := stripeEvent(t, "evt_1", EventIntentSucceeded, intent.IntentID, 15000)
	if got := deliver(t, rec, body); got != OutcomeApplied {
		t.Fatalf("expected applied, got %s", got)
	}

	payment := testutil.ReloadPayment(t, db, intent.PaymentID)
	if payment.Status != models.PaymentStatusCompleted || payment.CompletedAt == nil {
		t.Errorf("expected completed with timestamp, got %s %v", payment.Status, payment.CompletedAt)
	}
	var b models.Booking
	if err := db.First(&b, booking.ID).Error; err != nil {
		t.Fatal(err)
	}
	if b.Status != models.BookingStatusDepositPaid {
		t.Errorf("expected booking deposit_paid, got %s", b.Status)
	}
	if b.PaymentID == nil || *b.PaymentID != payment.ID {
		t.Errorf("expected booking to reference payment %d, got %v", payment.ID, b.PaymentID)
	}

	// the same event again changes nothing
	if got := deliver(t, rec, body); got != OutcomeNoop {
		t.Errorf("expected noop on replay, got %s", got)
	}
	again := testutil.ReloadPayment(t, db, intent.PaymentID)
	if !again.CompletedAt.Equal(*payment.CompletedAt) {
		t.Errorf("replay rewrote completed_at")
	}
	if n := testutil.Count(t, db, &models.WebhookEvent{}, "event_id = ?", "evt_1"); n != 1 {
		t.Errorf("expected one audit row for evt_1, got %d", n)
	}
	var audit models.WebhookEvent
	db.Where("event_id = ?", "evt_1").First(&audit)
	if audit.Outcome != string(OutcomeApplied) {
		t.Errorf("audit should keep first outcome, got %s", audit.Outcome)
	}
}

func TestRentSucceededWritesLedgerOnce(t *testing.T) {
	rec, db := newReconciler(t)
	payment := testutil.SeedPayment(t, db, models.Payment{
		UserID: 3, PropertyID: 8, PaymentType: models.PaymentTypeRent,
		Amount: decimal.RequireFromString("725.50"), ExternalRef: "pi_rent",
	})

	body := stripeEvent(t, "evt_rent", EventIntentSucceeded, "pi_rent", 72550)
	for i := 0; i < 3; i++ {
		deliver(t, rec, body)
	}
	// a differently-identified duplicate of the same intent is also harmless
	deliver(t, rec, stripeEvent(t, "evt_rent_dup", EventIntentSucceeded, "pi_rent", 72550))

	if n := testutil.Count(t, db, &models.RentPayment{}, "payment_id = ?", payment.ID); n != 1 {
		t.Fatalf("expected exactly one rent payment, got %d", n)
	}
	var rent models.RentPayment
	db.Where("payment_id = ?", payment.ID).First(&rent)
	if rent.Amount.StringFixed(2) != "725.50" || rent.Currency != "gbp" {
		t.Errorf("unexpected rent row %+v", rent)
	}
	if rent.UserID != 3 || rent.PropertyID != 8 {
		t.Errorf("rent row not attributed to payer/property: %+v", rent)
	}
}

func TestConcurrentReplaysApplyOnce(t *testing.T) {
	rec, db := newReconciler(t)
	payment := testutil.SeedPayment(t, db, models.Payment{
		UserID: 3, PropertyID: 8, PaymentType: models.PaymentTypeRent,
		Amount: decimal.NewFromInt(100), ExternalRef: "pi_race",
	})
	body := stripeEvent(t, "evt_race", EventIntentSucceeded, "pi_race", 10000)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := rec.HandleWebhook(context.Background(), body, sign(body, testWebhookSecret))
			if err != nil {
				t.Errorf("handle: %v", err)
				return
			}
			if outcome == OutcomeApplied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if applied != 1 {
		t.Errorf("expected exactly one applied delivery, got %d", applied)
	}
	if n := testutil.Count(t, db, &models.RentPayment{}, "payment_id = ?", payment.ID); n != 1 {
		t.Errorf("expected one rent row, got %d", n)
	}
}

func TestStatusIsMonotonic(t *testing.T) {
	tests := []struct {
		name    string
		start   models.PaymentStatus
		event   string
		want    models.PaymentStatus
		outcome Outcome
	}{
		{"pending fails", models.PaymentStatusPending, EventIntentFailed, models.PaymentStatusFailed, OutcomeApplied},
		{"failed then succeeds", models.PaymentStatusFailed, EventIntentSucceeded, models.PaymentStatusCompleted, OutcomeApplied},
		{"late failure after success", models.PaymentStatusCompleted, EventIntentFailed, models.PaymentStatusCompleted, OutcomeNoop},
		{"success after refund", models.PaymentStatusRefunded, EventIntentSucceeded, models.PaymentStatusRefunded, OutcomeNoop},
		{"success after partial refund", models.PaymentStatusPartiallyRefunded, EventIntentSucceeded, models.PaymentStatusPartiallyRefunded, OutcomeNoop},
		{"failure after refund", models.PaymentStatusRefunded, EventIntentFailed, models.PaymentStatusRefunded, OutcomeNoop},
		{"failed twice", models.PaymentStatusFailed, EventIntentFailed, models.PaymentStatusFailed, OutcomeNoop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, db := newReconciler(t)
			payment := testutil.SeedPayment(t, db, models.Payment{
				UserID: 1, PropertyID: 1, PaymentType: models.PaymentTypeDeposit,
				Amount: decimal.NewFromInt(50), ExternalRef: "pi_mono", Status: tt.start,
			})
			got := deliver(t, rec, stripeEvent(t, "evt_mono", tt.event, "pi_mono", 5000))
			if got != tt.outcome {
				t.Errorf("outcome: got %s, want %s", got, tt.outcome)
			}
			if after := testutil.ReloadPayment(t, db, payment.ID); after.Status != tt.want {
				t.Errorf("status: got %s, want %s", after.Status, tt.want)
			}
		})
	}
}

func TestDepositWithoutBookingStillCompletes(t *testing.T) {
	rec, db := newReconciler(t)
	payment := testutil.SeedPayment(t, db, models.Payment{
		UserID: 1, PropertyID: 1, PaymentType: models.PaymentTypeDeposit,
		Amount: decimal.NewFromInt(50), ExternalRef: "pi_nobooking",
	})
	if got := deliver(t, rec, stripeEvent(t, "evt_nb", EventIntentSucceeded, "pi_nobooking", 5000)); got != OutcomeApplied {
		t.Errorf("expected applied, got %s", got)
	}
	if after := testutil.ReloadPayment(t, db, payment.ID); after.Status != models.PaymentStatusCompleted {
		t.Errorf("expected completed, got %s", after.Status)
	}
}

func TestUnknownIntentIsAcknowledged(t *testing.T) {
	rec, db := newReconciler(t)
	got := deliver(t, rec, stripeEvent(t, "evt_unknown", EventIntentSucceeded, "pi_nowhere", 100))
	if got != OutcomeMissing {
		t.Errorf("expected missing, got %s", got)
	}
	if n := testutil.Count(t, db, &models.Payment{}, ""); n != 0 {
		t.Errorf("unknown intent must not create payments, got %d", n)
	}
}

func TestUnhandledEventTypeIgnored(t *testing.T) {
	rec, db := newReconciler(t)
	got := deliver(t, rec, stripeEvent(t, "evt_other", "charge.dispute.created", "pi_x", 100))
	if got != OutcomeIgnored {
		t.Errorf("expected ignored, got %s", got)
	}
	if n := testutil.Count(t, db, &models.WebhookEvent{}, "event_id = ? AND outcome = ?", "evt_other", "ignored"); n != 1 {
		t.Errorf("expected ignored event to be audited, got %d", n)
	}
}

func TestInvalidSignatureTouchesNothing(t *testing.T) {
	rec, db := newReconciler(t)
	payment := testutil.SeedPayment(t, db, models.Payment{
		UserID: 1, PropertyID: 1, PaymentType: models.PaymentTypeRent,
		Amount: decimal.NewFromInt(50), ExternalRef: "pi_forged",
	})
	body := stripeEvent(t, "evt_forged", EventIntentSucceeded, "pi_forged", 5000)

	cases := map[string]string{
		"wrong secret": sign(body, "whsec_attacker"),
		"missing":      "",
		"garbage":      "t=1,v1=deadbeef",
	}
	for name, header := range cases {
		_, err := rec.HandleWebhook(context.Background(), body, header)
		if !apperr.IsSignature(err) {
			t.Errorf("%s: expected SignatureError, got %v", name, err)
		}
	}

	if after := testutil.ReloadPayment(t, db, payment.ID); after.Status != models.PaymentStatusPending {
		t.Errorf("forged event changed status to %s", after.Status)
	}
	if n := testutil.Count(t, db, &models.RentPayment{}, ""); n != 0 {
		t.Errorf("forged event wrote rent rows: %d", n)
	}
	if n := testutil.Count(t, db, &models.WebhookEvent{}, ""); n != 0 {
		t.Errorf("forged event was audited as received: %d", n)
	}
}
