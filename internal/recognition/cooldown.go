package recognition

import (
	"sync"
	"time"
)

// Cooldown remembers the last accepted action time per user and
// suppresses repeats inside the window. Entries expire on their own;
// this is an in-process cache, not a persisted lock.
//
// Acceptance goes through Reserve/Mark/Cancel: Reserve atomically
// claims the key for one attempt, Mark confirms it and starts the
// window, Cancel releases it without charging. The claim is what stops
// two concurrent attempts for the same user from both being accepted
// while neither has marked yet.
type Cooldown struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	held   map[string]struct{}
	now    func() time.Time
}

// NewCooldown creates a cooldown cache with the given window.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		window: window,
		last:   make(map[string]time.Time),
		held:   make(map[string]struct{}),
		now:    time.Now,
	}
}

// Reserve claims the key for one attempt. It fails with the remaining
// wait when the key is inside its window, or with zero remaining when
// another attempt already holds the claim. A successful Reserve must be
// followed by Mark or Cancel.
func (c *Cooldown) Reserve(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if at, ok := c.last[key]; ok {
		elapsed := c.now().Sub(at)
		if elapsed < c.window {
			return c.window - elapsed, false
		}
		delete(c.last, key)
	}
	if _, ok := c.held[key]; ok {
		return 0, false
	}
	c.held[key] = struct{}{}
	return 0, true
}

// Cancel releases a claim without charging the window.
func (c *Cooldown) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, key)
}

// Remaining returns how long the key must still wait, or zero when the
// key is free. Expired entries are dropped as they are observed.
func (c *Cooldown) Remaining(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	at, ok := c.last[key]
	if !ok {
		return 0
	}
	elapsed := c.now().Sub(at)
	if elapsed >= c.window {
		delete(c.last, key)
		return 0
	}
	return c.window - elapsed
}

// Mark records an accepted action for the key, restarting its window
// and releasing any claim.
func (c *Cooldown) Mark(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, key)
	c.last[key] = c.now()
}

// Clear removes the key, ending its cooldown early.
func (c *Cooldown) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, key)
	delete(c.last, key)
}

// Len reports the number of live entries. Keys whose window already
// passed are purged first.
func (c *Cooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, at := range c.last {
		if now.Sub(at) >= c.window {
			delete(c.last, key)
		}
	}
	return len(c.last)
}
