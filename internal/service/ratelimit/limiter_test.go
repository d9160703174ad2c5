package ratelimit

import "testing"

func TestAllowWithinCapacity(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("BTCUSDT", 3, 0) {
			t.Fatalf("expected allow at %d", i)
		}
	}
	if l.Allow("BTCUSDT", 3, 0) {
		t.Fatalf("expected deny after capacity drained")
	}
}

func TestKeysIndependent(t *testing.T) {
	l := New()
	if !l.Allow("BTCUSDT", 1, 0) {
		t.Fatalf("expected allow")
	}
	if l.Allow("BTCUSDT", 1, 0) {
		t.Fatalf("expected deny for drained key")
	}
	if !l.Allow("ETHUSDT", 1, 0) {
		t.Fatalf("expected allow for fresh key")
	}
}
