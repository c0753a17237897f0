package services

import (
	"errors"
	"testing"
	"time"

	"rewards-engine/models"

	"github.com/google/uuid"
)

func newNotifyFixture(t *testing.T) (*NotificationService, *models.Account) {
	t.Helper()
	db := openTestDB(t)
	return NewNotificationService(db), newTestAccount(t, db)
}

func TestFetchUnshown_OldestFirst(t *testing.T) {
	svc, acct := newNotifyFixture(t)

	// Backdate rows so the ordering is unambiguous
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		n := models.AchievementNotification{
			ID:        uuid.NewString(),
			AccountID: acct.ID,
			Kind:      models.NotificationKindLevelUp,
			Title:     title,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := svc.DB.Create(&n).Error; err != nil {
			t.Fatalf("seed notification: %v", err)
		}
	}

	list, err := svc.FetchUnshown(acct.ID)
	if err != nil {
		t.Fatalf("FetchUnshown: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("unshown = %d, want 3", len(list))
	}
	for i, want := range []string{"first", "second", "third"} {
		if list[i].Title != want {
			t.Errorf("list[%d] = %q, want %q", i, list[i].Title, want)
		}
	}
}

// A fresh stream cursor must deliver an unshown notification even when a
// newer one was already acknowledged — old pending rows never get skipped.
func TestPendingSince_ZeroCursorIncludesOldUnshown(t *testing.T) {
	svc, acct := newNotifyFixture(t)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	older := models.AchievementNotification{
		ID:        uuid.NewString(),
		AccountID: acct.ID,
		Kind:      models.NotificationKindQuest,
		Title:     "missed while offline",
		CreatedAt: base,
	}
	newer := models.AchievementNotification{
		ID:        uuid.NewString(),
		AccountID: acct.ID,
		Kind:      models.NotificationKindLevelUp,
		Title:     "already acknowledged",
		CreatedAt: base.Add(time.Minute),
	}
	for _, n := range []models.AchievementNotification{older, newer} {
		if err := svc.DB.Create(&n).Error; err != nil {
			t.Fatalf("seed notification: %v", err)
		}
	}
	if err := svc.MarkShown(newer.ID); err != nil {
		t.Fatalf("MarkShown: %v", err)
	}

	pending, err := svc.pendingSince(acct.ID, time.Time{})
	if err != nil {
		t.Fatalf("pendingSince: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != older.ID {
		t.Fatalf("pending = %+v, want just the older unshown row", pending)
	}

	// The cursor then moves past delivered rows
	pending, err = svc.pendingSince(acct.ID, older.CreatedAt)
	if err != nil {
		t.Fatalf("pendingSince after cursor: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after cursor = %d rows, want 0", len(pending))
	}
}

func TestMarkShown_Idempotent(t *testing.T) {
	svc, acct := newNotifyFixture(t)

	if err := svc.Emit(acct.ID, models.NotificationKindQuest, "Done", "", nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	list, err := svc.FetchUnshown(acct.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("FetchUnshown = %v (%d rows), want 1", err, len(list))
	}

	if err := svc.MarkShown(list[0].ID); err != nil {
		t.Fatalf("MarkShown: %v", err)
	}
	// Re-marking a shown row is a no-op, not an error
	if err := svc.MarkShown(list[0].ID); err != nil {
		t.Fatalf("MarkShown again: %v", err)
	}

	list, err = svc.FetchUnshown(acct.ID)
	if err != nil {
		t.Fatalf("FetchUnshown: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("unshown = %d after mark, want 0", len(list))
	}
}

func TestMarkShown_Missing(t *testing.T) {
	svc, _ := newNotifyFixture(t)
	if err := svc.MarkShown(uuid.NewString()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing id: err = %v, want ErrNotFound", err)
	}
}

func TestEmit_PayloadRoundTrip(t *testing.T) {
	svc, acct := newNotifyFixture(t)

	payload := map[string]any{"level": 3, "xp": 250}
	if err := svc.Emit(acct.ID, models.NotificationKindLevelUp, "Level Up!", "You reached level 3", payload); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	list, err := svc.FetchUnshown(acct.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("FetchUnshown = %v (%d rows), want 1", err, len(list))
	}
	// JSON serialization turns numbers into float64
	if got, ok := list[0].Payload["level"].(float64); !ok || got != 3 {
		t.Errorf("payload level = %v, want 3", list[0].Payload["level"])
	}
}
