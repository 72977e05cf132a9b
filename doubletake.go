// Package doubletake scrubs PII out of structured datasets, replacing
// sensitive values with synthetic substitutes while preserving shape,
// types, and referential consistency.
package doubletake

import (
	"context"

	"github.com/dual/doubletake/internal/cache"
	"github.com/dual/doubletake/internal/category"
	"github.com/dual/doubletake/internal/classify"
	"github.com/dual/doubletake/internal/graph"
	"github.com/dual/doubletake/internal/schema"
	"github.com/dual/doubletake/internal/session"
	"github.com/dual/doubletake/internal/store"
)

// Re-export selected internal types as a stable public API surface.
// These are type aliases so external consumers can depend on a stable path.
type (
	Session  = session.Session
	Option   = session.Option
	Result   = session.Result
	Audit    = session.Audit
	Value    = graph.Value
	Schema   = schema.Schema
	Registry = category.Registry
	Entry    = category.Entry
	Strategy = category.Strategy
	Kind     = category.Kind
	Backend  = cache.Backend
	Pattern  = classify.Pattern
)

// Scalar kinds a category strategy can declare.
const (
	KindString = category.KindString
	KindInt    = category.KindInt
	KindFloat  = category.KindFloat
	KindBool   = category.KindBool
)

// Session options.
var (
	WithSeed         = session.WithSeed
	WithLocale       = session.WithLocale
	WithRegistry     = session.WithRegistry
	WithMaxDepth     = session.WithMaxDepth
	WithCacheBackend = session.WithCacheBackend
	WithPatterns     = session.WithPatterns
	WithLogger       = session.WithLogger
)

// NewSession opens a scrub session. Calls through one session share a
// consistency cache: a given original maps to the same synthetic value
// in every output the session produces.
func NewSession(opts ...Option) (*Session, error) {
	return session.New(opts...)
}

// NewRegistry returns an empty category registry for callers that
// register their own strategies via WithRegistry.
func NewRegistry() *Registry {
	return category.NewRegistry()
}

// NewBuiltinRegistry returns a registry preloaded with the built-in
// categories, seeded for reproducible synthesis (zero seeds from
// entropy).
func NewBuiltinRegistry(seed uint64) *Registry {
	return category.NewBuiltinRegistry(seed)
}

// CompileSchema compiles CUE source declaring record definitions with
// @pii attributes into a Schema.
func CompileSchema(src string) (*Schema, error) {
	return schema.CompileString(src)
}

// OpenStore opens (creating if necessary) a sqlite-backed cache store,
// for sessions whose substitution mapping must survive restarts. Pass
// it to WithCacheBackend.
func OpenStore(path string) (Backend, error) {
	return store.Open(path)
}

// FromJSON decodes raw JSON into a Value graph.
func FromJSON(data []byte) (Value, error) {
	return graph.FromJSON(data)
}

// ToJSON encodes a Value graph as JSON with sorted object keys.
func ToJSON(v Value) ([]byte, error) {
	return graph.ToJSON(v)
}

// Scrub is the one-shot entrypoint: it opens a throwaway session,
// scrubs a single graph, and closes the session. Consistency holds
// within the one input only; batches that must stay mutually consistent
// go through NewSession.
func Scrub(ctx context.Context, input Value, sch *Schema, recordType string, opts ...Option) (*Result, error) {
	s, err := session.New(opts...)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Scrub(ctx, input, sch, recordType, nil)
}
