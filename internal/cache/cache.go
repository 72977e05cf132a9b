// Package cache implements the session consistency cache: stable,
// unique original-to-synthetic mappings for one scrub session.
//
// The cache guarantees two properties per category:
//   - Referential stability: the same original always maps to the same
//     synthetic value, so joins across records survive scrubbing.
//   - Reverse uniqueness: two distinct originals never share a
//     synthetic value; collisions are retried against the factory up to
//     a bound, then fail.
//
// Originals are never stored. Lookups key on a SHA-256 of the
// original's canonical encoding, so even a persistent backend holds no
// recoverable source values.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/dual/doubletake/internal/graph"
)

// DefaultMaxAttempts bounds the collision-retry loop.
const DefaultMaxAttempts = 5

// Factory produces a candidate synthetic value. Invoked only on cache
// misses, and re-invoked when a candidate collides with an
// already-issued value for the same category.
type Factory func() (graph.Value, error)

// Backend stores issued substitutions. Implementations need not be
// thread-safe for a single category: the cache serializes the whole
// check-then-insert sequence per category. Calls for distinct
// categories may arrive concurrently.
type Backend interface {
	// Lookup returns the encoded synthetic value for (category,
	// originalHash), if one was issued.
	Lookup(category, originalHash string) ([]byte, bool, error)

	// SeenSynthetic reports whether syntheticKey was already issued for
	// the category.
	SeenSynthetic(category, syntheticKey string) (bool, error)

	// Insert records a new substitution.
	Insert(category, originalHash, syntheticKey string, payload []byte) error

	// Close releases the backend. For in-memory backends this discards
	// all entries; persistent backends keep theirs.
	Close() error
}

// ExhaustedError indicates the factory could not produce a
// non-colliding synthetic value within the retry bound.
type ExhaustedError struct {
	Category string
	Attempts int
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("SYNTHESIS_EXHAUSTED: no unique synthetic value for category %q after %d attempts",
		e.Category, e.Attempts)
}

// IsExhausted reports whether err is a synthesis-exhausted error.
// Uses errors.As to handle wrapped errors.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// Cache is the consistency cache. Safe for concurrent use by multiple
// traversals sharing one session.
type Cache struct {
	backend     Backend
	maxAttempts int

	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithBackend swaps the storage backend. Default is in-memory.
func WithBackend(b Backend) Option {
	return func(c *Cache) { c.backend = b }
}

// WithMaxAttempts sets the collision-retry bound.
func WithMaxAttempts(n int) Option {
	return func(c *Cache) { c.maxAttempts = n }
}

// New creates a cache with an in-memory backend unless overridden.
func New(opts ...Option) *Cache {
	c := &Cache{
		maxAttempts: DefaultMaxAttempts,
		locks:       make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backend == nil {
		c.backend = NewMemoryBackend()
	}
	return c
}

// GetOrCreate returns the synthetic value for (category, original). On
// a hit the factory is not called. On a miss the factory runs under the
// category lock; candidates colliding with already-issued values are
// retried up to the attempt bound.
func (c *Cache) GetOrCreate(category string, original graph.Value, factory Factory) (graph.Value, error) {
	originalHash, err := hashOriginal(category, original)
	if err != nil {
		return nil, fmt.Errorf("cache key for category %q: %w", category, err)
	}

	// One lock per category: the check-then-insert must be atomic, but
	// unrelated categories should not serialize each other.
	lock := c.categoryLock(category)
	lock.Lock()
	defer lock.Unlock()

	if payload, ok, err := c.backend.Lookup(category, originalHash); err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	} else if ok {
		return decodeValue(payload)
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		candidate, err := factory()
		if err != nil {
			return nil, err
		}

		syntheticKey, err := graph.Canonical(candidate)
		if err != nil {
			return nil, fmt.Errorf("encode synthetic for category %q: %w", category, err)
		}

		seen, err := c.backend.SeenSynthetic(category, string(syntheticKey))
		if err != nil {
			return nil, fmt.Errorf("cache reverse lookup: %w", err)
		}
		if seen {
			continue
		}

		payload, err := encodeValue(candidate)
		if err != nil {
			return nil, err
		}
		if err := c.backend.Insert(category, originalHash, string(syntheticKey), payload); err != nil {
			return nil, fmt.Errorf("cache insert: %w", err)
		}
		return candidate, nil
	}

	return nil, &ExhaustedError{Category: category, Attempts: c.maxAttempts}
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}

func (c *Cache) categoryLock(category string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[category]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[category] = lock
	}
	return lock
}

// hashOriginal derives the forward-lookup key. The category is mixed in
// so equal originals in different categories key independently.
func hashOriginal(category string, original graph.Value) (string, error) {
	enc, err := graph.Canonical(original)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(category))
	h.Write([]byte{0})
	h.Write(enc)
	return hex.EncodeToString(h.Sum(nil)), nil
}
