package recognition

import (
	"testing"
	"time"
)

func newTestCooldown(window time.Duration) (*Cooldown, *time.Time) {
	c := NewCooldown(window)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCooldownSuppressesWithinWindow(t *testing.T) {
	c, now := newTestCooldown(30 * time.Second)

	if rem := c.Remaining("u1"); rem != 0 {
		t.Fatalf("fresh key should be free, got %v", rem)
	}

	c.Mark("u1")
	*now = now.Add(10 * time.Second)

	if rem := c.Remaining("u1"); rem != 20*time.Second {
		t.Errorf("Remaining = %v, want 20s", rem)
	}
}

func TestCooldownExpires(t *testing.T) {
	c, now := newTestCooldown(30 * time.Second)

	c.Mark("u1")
	*now = now.Add(31 * time.Second)

	if rem := c.Remaining("u1"); rem != 0 {
		t.Errorf("window passed, Remaining = %v, want 0", rem)
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be purged, Len = %d", c.Len())
	}
}

func TestCooldownMarkRestartsWindow(t *testing.T) {
	c, now := newTestCooldown(30 * time.Second)

	c.Mark("u1")
	*now = now.Add(29 * time.Second)
	c.Mark("u1")
	*now = now.Add(29 * time.Second)

	if rem := c.Remaining("u1"); rem != time.Second {
		t.Errorf("Remaining = %v, want 1s after restart", rem)
	}
}

func TestCooldownPerKey(t *testing.T) {
	c, now := newTestCooldown(30 * time.Second)

	c.Mark("u1")
	*now = now.Add(5 * time.Second)

	if rem := c.Remaining("u2"); rem != 0 {
		t.Errorf("u2 should be unaffected by u1, got %v", rem)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	c.Clear("u1")
	if rem := c.Remaining("u1"); rem != 0 {
		t.Errorf("cleared key should be free, got %v", rem)
	}
}

func TestCooldownReserveIsSingleFlight(t *testing.T) {
	c, _ := newTestCooldown(30 * time.Second)

	if rem, ok := c.Reserve("u1"); !ok || rem != 0 {
		t.Fatalf("first Reserve = (%v, %v), want claim", rem, ok)
	}
	if rem, ok := c.Reserve("u1"); ok || rem != 0 {
		t.Errorf("second Reserve while held = (%v, %v), want refused with zero remaining", rem, ok)
	}

	c.Cancel("u1")
	if _, ok := c.Reserve("u1"); !ok {
		t.Error("Reserve after Cancel should claim again")
	}
}

func TestCooldownMarkReleasesClaimAndStartsWindow(t *testing.T) {
	c, now := newTestCooldown(30 * time.Second)

	if _, ok := c.Reserve("u1"); !ok {
		t.Fatal("Reserve should claim")
	}
	c.Mark("u1")

	*now = now.Add(10 * time.Second)
	if rem, ok := c.Reserve("u1"); ok || rem != 20*time.Second {
		t.Errorf("Reserve inside window = (%v, %v), want refused with 20s", rem, ok)
	}

	*now = now.Add(21 * time.Second)
	if _, ok := c.Reserve("u1"); !ok {
		t.Error("Reserve after the window should claim")
	}
}

func TestCooldownCancelDoesNotCharge(t *testing.T) {
	c, _ := newTestCooldown(30 * time.Second)

	if _, ok := c.Reserve("u1"); !ok {
		t.Fatal("Reserve should claim")
	}
	c.Cancel("u1")

	if rem := c.Remaining("u1"); rem != 0 {
		t.Errorf("cancelled claim must not start the window, got %v", rem)
	}
}
