package game

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisRegistry(t *testing.T, ttl time.Duration) (Registry, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil { t.Fatalf("miniredis: %v", err) }
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRegistry(rdb, ttl), mr
}

func TestRedisRegistryRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, _ := newRedisRegistry(t, time.Hour)

	sess := testSession(7)
	sess.UI.MenuMessageID = 99
	if err := r.Save(ctx, sess); err != nil { t.Fatalf("Save: %v", err) }

	got, err := r.Get(ctx, 7)
	if err != nil { t.Fatalf("Get: %v", err) }
	if got == nil { t.Fatalf("session not found") }
	if got.SessionUUID != sess.SessionUUID || got.Side != SideWhite || got.Phase != PhaseHumanMove {
		t.Fatalf("unexpected session: %+v", got)
	}
	if len(got.Moves) != 2 || got.Moves[1] != "e7e5" { t.Fatalf("moves = %v", got.Moves) }
	if len(got.Snapshots) != 1 || got.Snapshots[0] != 0 { t.Fatalf("snapshots = %v", got.Snapshots) }
	if got.UI.MenuMessageID != 99 { t.Fatalf("ui refs lost: %+v", got.UI) }
}

func TestRedisRegistryMiss(t *testing.T) {
	r, _ := newRedisRegistry(t, time.Hour)
	got, err := r.Get(context.Background(), 404)
	if err != nil || got != nil { t.Fatalf("miss should be (nil, nil), got %v %v", got, err) }
}

func TestRedisRegistryDelete(t *testing.T) {
	ctx := context.Background()
	r, _ := newRedisRegistry(t, time.Hour)
	if err := r.Save(ctx, testSession(7)); err != nil { t.Fatalf("Save: %v", err) }
	if err := r.Delete(ctx, 7); err != nil { t.Fatalf("Delete: %v", err) }
	got, err := r.Get(ctx, 7)
	if err != nil || got != nil { t.Fatalf("session survived delete: %v %v", got, err) }
}

func TestRedisRegistrySetsTTL(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisRegistry(t, 30*time.Minute)
	if err := r.Save(ctx, testSession(7)); err != nil { t.Fatalf("Save: %v", err) }
	if ttl := mr.TTL("chess:session:7"); ttl != 30*time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}
}

func TestRedisRegistryExpiry(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisRegistry(t, time.Minute)
	if err := r.Save(ctx, testSession(7)); err != nil { t.Fatalf("Save: %v", err) }
	mr.FastForward(2 * time.Minute)
	got, err := r.Get(ctx, 7)
	if err != nil || got != nil { t.Fatalf("session survived expiry: %v %v", got, err) }
}
