package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/models"
	"github.com/nicegilbz/stuhouses-sub000/internal/testutil"

	"gorm.io/gorm"
)

func seedEvents(t *testing.T, db *gorm.DB, now time.Time) {
	t.Helper()
	events := []models.WebhookEvent{
		{EventID: "evt_old_1", EventType: "payment_intent.succeeded", Outcome: "applied", ReceivedAt: now.AddDate(0, 0, -120)},
		{EventID: "evt_old_2", EventType: "payment_intent.succeeded", Outcome: "noop", ReceivedAt: now.AddDate(0, 0, -100)},
		{EventID: "evt_recent", EventType: "payment_intent.payment_failed", Outcome: "applied", ReceivedAt: now.Add(-time.Hour)},
	}
	if err := db.Create(&events).Error; err != nil {
		t.Fatal(err)
	}
}

func newService(t *testing.T) (*Service, *gorm.DB, time.Time) {
	t.Helper()
	db := testutil.NewDB(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewService(db, testutil.Logger())
	s.now = func() time.Time { return now }
	seedEvents(t, db, now)
	return s, db, now
}

func TestPruneWebhookEvents(t *testing.T) {
	s, db, _ := newService(t)

	dry, err := s.PruneWebhookEvents(context.Background(), Config{RetentionDays: 90, MaxDeletionCount: 10, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if dry.TargetCount != 2 || dry.DeletedCount != 0 {
		t.Errorf("unexpected dry run %+v", dry)
	}
	if n := testutil.Count(t, db, &models.WebhookEvent{}, ""); n != 3 {
		t.Fatalf("dry run must not delete, have %d", n)
	}

	res, err := s.PruneWebhookEvents(context.Background(), Config{RetentionDays: 90, MaxDeletionCount: 10})
	if err != nil {
		t.Fatal(err)
	}
	if res.DeletedCount != 2 {
		t.Errorf("expected 2 deleted, got %d", res.DeletedCount)
	}
	if n := testutil.Count(t, db, &models.WebhookEvent{}, "event_id = ?", "evt_recent"); n != 1 {
		t.Error("recent event should survive")
	}
}

func TestPruneWebhookEventsSafetyLimit(t *testing.T) {
	s, db, _ := newService(t)

	if _, err := s.PruneWebhookEvents(context.Background(), Config{RetentionDays: 90, MaxDeletionCount: 1}); err == nil {
		t.Fatal("expected safety check failure")
	}
	if n := testutil.Count(t, db, &models.WebhookEvent{}, ""); n != 3 {
		t.Errorf("nothing should be deleted, have %d", n)
	}

	if _, err := s.PruneWebhookEvents(context.Background(), Config{RetentionDays: 0}); err == nil {
		t.Error("expected error for zero retention")
	}
}

func TestGetStats(t *testing.T) {
	s, _, now := newService(t)

	stats, err := s.GetStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 || stats.ByOutcome["applied"] != 2 || stats.ByOutcome["noop"] != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.LastDay != 1 {
		t.Errorf("expected 1 event in the last day, got %d", stats.LastDay)
	}
	if stats.OldestEvent == nil || !stats.OldestEvent.Equal(now.AddDate(0, 0, -120)) {
		t.Errorf("unexpected oldest event %v", stats.OldestEvent)
	}
}
