// Package testutil provides deterministic building blocks for tests:
// a resettable counter and a category registry whose strategies derive
// values from it instead of from random fakes, so scrub output is
// stable across runs and suitable for golden comparison.
package testutil

import "sync"

// Counter is a thread-safe monotonic counter for deterministic tests.
type Counter struct {
	mu sync.Mutex
	n  int
}

// NewCounter creates a counter starting at 0; the first Next returns 1.
func NewCounter() *Counter {
	return &Counter{}
}

// Next increments and returns the next value.
func (c *Counter) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

// Current returns the current value without incrementing.
func (c *Counter) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset sets the counter back to 0 for test reuse.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
