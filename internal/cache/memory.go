package cache

import "sync"

// MemoryBackend is the default in-process backend. Entries live for the
// session and are discarded on Close.
//
// The mutex only protects map structure. Atomicity of the
// check-then-insert sequence is the Cache's job, via its per-category
// locks.
type MemoryBackend struct {
	mu      sync.Mutex
	forward map[string]map[string][]byte // category -> originalHash -> payload
	reverse map[string]map[string]bool   // category -> syntheticKey -> issued
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		forward: make(map[string]map[string][]byte),
		reverse: make(map[string]map[string]bool),
	}
}

// Lookup implements Backend.
func (m *MemoryBackend) Lookup(category, originalHash string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.forward[category][originalHash]
	return payload, ok, nil
}

// SeenSynthetic implements Backend.
func (m *MemoryBackend) SeenSynthetic(category, syntheticKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reverse[category][syntheticKey], nil
}

// Insert implements Backend.
func (m *MemoryBackend) Insert(category, originalHash, syntheticKey string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forward[category] == nil {
		m.forward[category] = make(map[string][]byte)
		m.reverse[category] = make(map[string]bool)
	}
	m.forward[category][originalHash] = payload
	m.reverse[category][syntheticKey] = true
	return nil
}

// Close discards all entries.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forward = make(map[string]map[string][]byte)
	m.reverse = make(map[string]map[string]bool)
	return nil
}
