package game

import (
	"context"
	"testing"
	"time"
)

func testSession(chatID int64) *Session {
	return &Session{
		SessionUUID: "test-uuid",
		ChatID:      chatID,
		Side:        SideWhite,
		Phase:       PhaseHumanMove,
		Moves:       []string{"e2e4", "e7e5"},
		Snapshots:   []int{0},
		StartedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestMemoryRegistryRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry(time.Hour)

	if err := r.Save(ctx, testSession(1)); err != nil { t.Fatalf("Save: %v", err) }
	got, err := r.Get(ctx, 1)
	if err != nil { t.Fatalf("Get: %v", err) }
	if got == nil || got.SessionUUID != "test-uuid" || len(got.Moves) != 2 {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := r.Delete(ctx, 1); err != nil { t.Fatalf("Delete: %v", err) }
	got, err = r.Get(ctx, 1)
	if err != nil { t.Fatalf("Get after delete: %v", err) }
	if got != nil { t.Fatalf("session survived delete") }
}

func TestMemoryRegistryMiss(t *testing.T) {
	got, err := NewMemoryRegistry(time.Hour).Get(context.Background(), 404)
	if err != nil || got != nil { t.Fatalf("miss should be (nil, nil), got %v %v", got, err) }
}

func TestMemoryRegistryTTL(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry(10 * time.Millisecond)
	sess := testSession(1)
	sess.UpdatedAt = time.Now().Add(-time.Minute)
	if err := r.Save(ctx, sess); err != nil { t.Fatalf("Save: %v", err) }

	got, err := r.Get(ctx, 1)
	if err != nil { t.Fatalf("Get: %v", err) }
	if got != nil { t.Fatalf("stale session returned") }
}

func TestMemoryRegistryClones(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry(time.Hour)
	sess := testSession(1)
	if err := r.Save(ctx, sess); err != nil { t.Fatalf("Save: %v", err) }

	// mutating the original after Save must not leak into the store
	sess.Moves[0] = "a2a3"
	got, _ := r.Get(ctx, 1)
	if got.Moves[0] != "e2e4" { t.Fatalf("save did not copy: %v", got.Moves) }

	// mutating a Get result must not leak either
	got.Moves[0] = "h2h4"
	again, _ := r.Get(ctx, 1)
	if again.Moves[0] != "e2e4" { t.Fatalf("get did not copy: %v", again.Moves) }
}
