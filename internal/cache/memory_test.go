package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProvider_SetGetDelete(t *testing.T) {
	t.Parallel()

	provider, err := NewMemoryProvider()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer provider.Close()

	ctx := context.Background()
	key := WebhookKey("stripe", "evt_123")

	if _, err := provider.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := provider.Set(ctx, key, "processed", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := provider.Get(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "processed" {
		t.Fatalf("expected processed, got %q", value)
	}

	if err := provider.Delete(ctx, key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := provider.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryProvider_Expiry(t *testing.T) {
	t.Parallel()

	provider, err := NewMemoryProvider()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer provider.Close()

	ctx := context.Background()
	if err := provider.Set(ctx, "k", "v", -time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired entry, got %v", err)
	}
}

func TestWebhookKey(t *testing.T) {
	t.Parallel()

	if got := WebhookKey("stripe", "evt_1"); got != "webhook:stripe:evt_1" {
		t.Fatalf("unexpected key: %s", got)
	}
}
