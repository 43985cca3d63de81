package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client, 30*time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	got, err := cache.Get(ctx, "tenant-1:+15551234567")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("expected nil on miss")
	}

	sess := New("tenant-1", "+15551234567")
	sess.Stage = StageAwaitingConfirmation
	sess.Greeted = true
	sess.PendingAppointment = &Slot{
		Start:       time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC),
		End:         time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC),
		DisplayDate: "2026-09-01",
		DisplayTime: "2:00 PM",
	}

	if err := cache.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err = cache.Get(ctx, sess.Key())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected cached session")
	}
	if got.Stage != StageAwaitingConfirmation || !got.Greeted {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.PendingAppointment == nil || !got.PendingAppointment.Start.Equal(sess.PendingAppointment.Start) {
		t.Fatalf("pending slot lost: %+v", got.PendingAppointment)
	}
}

func TestCacheEntryExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	sess := New("tenant-1", "+15551234567")
	if err := cache.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(time.Hour)

	got, err := cache.Get(ctx, sess.Key())
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("expected entry to expire")
	}
}

func TestCacheDelete(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	sess := New("tenant-1", "+15551234567")
	if err := cache.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if err := cache.Delete(ctx, sess.Key()); err != nil {
		t.Fatal(err)
	}

	got, err := cache.Get(ctx, sess.Key())
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("expected entry removed")
	}
}
