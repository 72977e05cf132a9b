package category

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dual/doubletake/internal/graph"
)

// Kind is the primitive type a category's strategy must produce.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Matches reports whether a graph value has this kind.
func (k Kind) Matches(v graph.Value) bool {
	switch k {
	case KindString:
		_, ok := v.(graph.String)
		return ok
	case KindInt:
		_, ok := v.(graph.Int)
		return ok
	case KindFloat:
		_, ok := v.(graph.Float)
		return ok
	case KindBool:
		_, ok := v.(graph.Bool)
		return ok
	default:
		return false
	}
}

// Strategy produces a synthetic value for a category. The original value
// is supplied so format-preserving strategies can mirror its length or
// range; most strategies ignore it. Strategies must be safe for
// concurrent use.
type Strategy func(locale string, original graph.Value) (graph.Value, error)

// Entry binds a strategy to its declared output kind.
type Entry struct {
	Strategy Strategy
	Kind     Kind
}

// ErrorCode categorizes registry errors.
type ErrorCode string

const (
	// ErrCodeUnknownCategory indicates a tag with no registered strategy.
	ErrCodeUnknownCategory ErrorCode = "UNKNOWN_CATEGORY"

	// ErrCodeDuplicateCategory indicates a tag registered twice without
	// an explicit replace.
	ErrCodeDuplicateCategory ErrorCode = "DUPLICATE_CATEGORY"
)

// RegistryError is a structured registry failure.
type RegistryError struct {
	Code     ErrorCode
	Category string
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	switch e.Code {
	case ErrCodeUnknownCategory:
		return fmt.Sprintf("%s: no strategy registered for category %q", e.Code, e.Category)
	case ErrCodeDuplicateCategory:
		return fmt.Sprintf("%s: category %q already registered", e.Code, e.Category)
	default:
		return fmt.Sprintf("%s: category %q", e.Code, e.Category)
	}
}

// IsUnknownCategory reports whether err is an unknown-category error.
// Uses errors.As to handle wrapped errors.
func IsUnknownCategory(err error) bool {
	var re *RegistryError
	return errors.As(err, &re) && re.Code == ErrCodeUnknownCategory
}

// IsDuplicateCategory reports whether err is a duplicate-category error.
func IsDuplicateCategory(err error) bool {
	var re *RegistryError
	return errors.As(err, &re) && re.Code == ErrCodeDuplicateCategory
}

// Registry maps category tags to entries.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register associates a tag with an entry. Returns a
// DUPLICATE_CATEGORY error if the tag is already present; use Replace
// to overwrite deliberately.
func (r *Registry) Register(tag string, e Entry) error {
	if e.Strategy == nil {
		return fmt.Errorf("register category %q: nil strategy", tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[tag]; ok {
		return &RegistryError{Code: ErrCodeDuplicateCategory, Category: tag}
	}
	r.entries[tag] = e
	return nil
}

// MustRegister is Register that panics on error. For startup wiring of
// built-in categories where a duplicate is a programming error.
func (r *Registry) MustRegister(tag string, e Entry) {
	if err := r.Register(tag, e); err != nil {
		panic(err)
	}
}

// Replace associates a tag with an entry, overwriting any existing
// registration. This is the explicit overwrite path.
func (r *Registry) Replace(tag string, e Entry) error {
	if e.Strategy == nil {
		return fmt.Errorf("replace category %q: nil strategy", tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[tag] = e
	return nil
}

// Resolve returns the entry for a tag, or an UNKNOWN_CATEGORY error.
func (r *Registry) Resolve(tag string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[tag]
	if !ok {
		return Entry{}, &RegistryError{Code: ErrCodeUnknownCategory, Category: tag}
	}
	return e, nil
}

// Tags returns all registered tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.entries))
	for tag := range r.entries {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}
