// Package session orchestrates scrubbing. A Session owns one
// consistency cache, so every Scrub call through the same session maps
// a given original to the same synthetic value. Sessions are cheap;
// open one per batch whose outputs must stay mutually consistent.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dual/doubletake/internal/cache"
	"github.com/dual/doubletake/internal/category"
	"github.com/dual/doubletake/internal/classify"
	"github.com/dual/doubletake/internal/engine"
	"github.com/dual/doubletake/internal/graph"
	"github.com/dual/doubletake/internal/schema"
	"github.com/dual/doubletake/internal/synth"
)

// Audit summarizes what a Scrub call substituted.
type Audit struct {
	// SessionID is the UUIDv7 of the session that produced the output.
	SessionID string `json:"session_id"`

	// RecordType is the schema record the input was scrubbed as, empty
	// for raw (schemaless) scrubs.
	RecordType string `json:"record_type,omitempty"`

	// Substitutions counts substituted values per category tag.
	Substitutions map[string]int `json:"substitutions"`

	// Total is the sum over Substitutions.
	Total int `json:"total"`
}

// Result is the outcome of one Scrub call.
type Result struct {
	Output graph.Value
	Audit  Audit
}

// Session holds the state shared across Scrub calls: the category
// registry, the synthesizer, and the consistency cache. Safe for
// concurrent Scrub calls.
type Session struct {
	id       string
	synth    *synth.Synthesizer
	cache    *cache.Cache
	patterns []classify.Pattern
	maxDepth int
	logger   *slog.Logger
}

type options struct {
	seed     uint64
	locale   string
	registry *category.Registry
	maxDepth int
	backend  cache.Backend
	patterns []classify.Pattern
	logger   *slog.Logger
}

// Option configures a Session.
type Option func(*options)

// WithSeed seeds the built-in fake-value strategies. Two sessions with
// the same seed and the same inputs produce the same outputs. Zero (the
// default) seeds from entropy. Ignored when WithRegistry is given.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithLocale sets the default locale passed to strategies when a field
// declares none. The tag must parse as a BCP 47 language tag.
func WithLocale(locale string) Option {
	return func(o *options) { o.locale = locale }
}

// WithRegistry replaces the built-in category registry entirely. The
// caller is responsible for registering every category its schemas and
// overrides name.
func WithRegistry(r *category.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithMaxDepth sets the traversal depth bound (default 64).
func WithMaxDepth(depth int) Option {
	return func(o *options) { o.maxDepth = depth }
}

// WithCacheBackend stores the session's substitution mappings in b
// instead of memory. A sqlite-backed store makes consistency survive
// process restarts.
func WithCacheBackend(b cache.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithPatterns appends heuristic field-name patterns to the default
// table.
func WithPatterns(patterns []classify.Pattern) Option {
	return func(o *options) { o.patterns = append(o.patterns, patterns...) }
}

// WithLogger sets the session logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a session. Without options it uses the built-in category
// registry seeded from entropy, an in-memory cache, and the default
// heuristic patterns.
func New(opts ...Option) (*Session, error) {
	o := options{
		maxDepth: engine.DefaultMaxDepth,
		patterns: classify.DefaultPatterns(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	reg := o.registry
	if reg == nil {
		reg = category.NewBuiltinRegistry(o.seed)
	}

	s, err := synth.New(reg, o.locale)
	if err != nil {
		return nil, err
	}

	var cacheOpts []cache.Option
	if o.backend != nil {
		cacheOpts = append(cacheOpts, cache.WithBackend(o.backend))
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		id:       uuid.Must(uuid.NewV7()).String(),
		synth:    s,
		cache:    cache.New(cacheOpts...),
		patterns: o.patterns,
		maxDepth: o.maxDepth,
		logger:   logger,
	}, nil
}

// ID returns the session's UUIDv7 identifier. Time-sortable, so audit
// records from concurrent sessions order by creation.
func (s *Session) ID() string {
	return s.id
}

// Scrub substitutes every classified value in input and returns the
// scrubbed graph with an audit summary. sch and recordType select the
// schema context; both may be zero for raw data classified by overrides
// and heuristics alone. overrides maps "Record.field" or "field" names
// to category tags for this call only; an empty tag suppresses
// classification for that field.
//
// Every category the schema or overrides name must resolve in the
// registry before traversal starts, so a misconfigured category fails
// the call without producing partial output.
func (s *Session) Scrub(ctx context.Context, input graph.Value, sch *schema.Schema, recordType string, overrides map[string]string) (*Result, error) {
	classifier := classify.New(overrides, s.patterns)

	if err := s.preflight(sch, classifier); err != nil {
		return nil, err
	}

	eng := engine.New(classifier, s.synth, s.cache, engine.WithMaxDepth(s.maxDepth))
	out, counts, err := eng.Scrub(ctx, input, sch, recordType)
	if err != nil {
		s.logger.Debug("scrub failed",
			"session", s.id,
			"record_type", recordType,
			"error", err)
		return nil, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	s.logger.Debug("scrub complete",
		"session", s.id,
		"record_type", recordType,
		"substitutions", total)

	return &Result{
		Output: out,
		Audit: Audit{
			SessionID:     s.id,
			RecordType:    recordType,
			Substitutions: counts,
			Total:         total,
		},
	}, nil
}

// ScrubJSON decodes raw JSON, scrubs it, and re-encodes with sorted
// keys. Convenience for callers moving serialized datasets.
func (s *Session) ScrubJSON(ctx context.Context, data []byte, sch *schema.Schema, recordType string, overrides map[string]string) ([]byte, *Audit, error) {
	input, err := graph.FromJSON(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode input: %w", err)
	}

	res, err := s.Scrub(ctx, input, sch, recordType, overrides)
	if err != nil {
		return nil, nil, err
	}

	out, err := graph.ToJSON(res.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("encode output: %w", err)
	}
	return out, &res.Audit, nil
}

// preflight resolves every category the call can name up front.
// Heuristic pattern categories are exempt: they are best-effort and
// fail individual substitutions instead.
func (s *Session) preflight(sch *schema.Schema, classifier *classify.Classifier) error {
	reg := s.synth.Registry()

	if sch != nil {
		for _, tag := range sch.Categories() {
			if _, err := reg.Resolve(tag); err != nil {
				return err
			}
		}
	}
	for _, tag := range classifier.OverrideCategories() {
		if _, err := reg.Resolve(tag); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the cache and its backend. The original-to-synthetic
// mapping of an in-memory session is discarded; a persistent backend
// keeps its rows.
func (s *Session) Close() error {
	return s.cache.Close()
}
