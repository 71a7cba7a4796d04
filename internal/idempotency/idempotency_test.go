package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryClaim(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory()
	m.now = func() time.Time { return now }

	steps := []struct {
		name    string
		advance time.Duration
		key     string
		want    bool
	}{
		{name: "first claim", key: "a", want: true},
		{name: "repeat within ttl", advance: 30 * time.Second, key: "a", want: false},
		{name: "other key", key: "b", want: true},
		{name: "after expiry", advance: time.Minute, key: "a", want: true},
	}

	for _, s := range steps {
		now = now.Add(s.advance)
		got, err := m.Claim(ctx, s.key, time.Minute)
		if err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if got != s.want {
			t.Errorf("%s: Claim(%q) = %v; want %v", s.name, s.key, got, s.want)
		}
	}
}

func TestMemoryRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, _ = m.Claim(ctx, "k", time.Hour)
	if err := m.Release(ctx, "k"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := m.Claim(ctx, "k", time.Hour); !ok {
		t.Error("released key could not be claimed again")
	}
}

func TestRedisClaim(t *testing.T) {
	addr := os.Getenv("NETMON_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("NETMON_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := Dial(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	r := NewRedis(client, "netmon:test:")
	key := uuid.NewString()
	defer r.Release(ctx, key)

	if ok, err := r.Claim(ctx, key, time.Minute); err != nil || !ok {
		t.Fatalf("first Claim = %v, %v", ok, err)
	}
	if ok, err := r.Claim(ctx, key, time.Minute); err != nil || ok {
		t.Fatalf("second Claim = %v, %v", ok, err)
	}
}
