package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client, 30*time.Second, 24*time.Hour), mr
}

func TestClaimLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	status, err := store.Claim(ctx, "d-1")
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusNew {
		t.Fatalf("first claim: got %q, want %q", status, StatusNew)
	}

	// A concurrent redelivery sees the claim in flight.
	status, err = store.Claim(ctx, "d-1")
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusProcessing {
		t.Fatalf("second claim: got %q, want %q", status, StatusProcessing)
	}

	if err := store.MarkProcessed(ctx, "d-1"); err != nil {
		t.Fatal(err)
	}

	status, err = store.Claim(ctx, "d-1")
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusProcessed {
		t.Fatalf("claim after processed: got %q, want %q", status, StatusProcessed)
	}
}

func TestReleaseAllowsReclaim(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Claim(ctx, "d-2"); err != nil {
		t.Fatal(err)
	}
	if err := store.Release(ctx, "d-2"); err != nil {
		t.Fatal(err)
	}

	status, err := store.Claim(ctx, "d-2")
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusNew {
		t.Fatalf("claim after release: got %q, want %q", status, StatusNew)
	}
}

func TestReleaseKeepsProcessedRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Claim(ctx, "d-3"); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkProcessed(ctx, "d-3"); err != nil {
		t.Fatal(err)
	}
	if err := store.Release(ctx, "d-3"); err != nil {
		t.Fatal(err)
	}

	status, err := store.Claim(ctx, "d-3")
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusProcessed {
		t.Fatalf("processed record must survive release: got %q", status)
	}
}

func TestClaimExpiresWithTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Claim(ctx, "d-4"); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(time.Minute)

	status, err := store.Claim(ctx, "d-4")
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusNew {
		t.Fatalf("claim after expiry: got %q, want %q", status, StatusNew)
	}
}

func TestClaimRequiresDeliveryID(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Claim(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty delivery id")
	}
}
