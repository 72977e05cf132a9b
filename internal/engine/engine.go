// Package engine walks an object graph, substitutes classified scalar
// leaves through the consistency cache, and reconstructs an isomorphic
// output graph. The input is never mutated.
package engine

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/dual/doubletake/internal/cache"
	"github.com/dual/doubletake/internal/classify"
	"github.com/dual/doubletake/internal/graph"
	"github.com/dual/doubletake/internal/schema"
	"github.com/dual/doubletake/internal/synth"
)

// DefaultMaxDepth bounds traversal nesting. Generous for real datasets;
// its purpose is stopping pathological or accidentally cyclic inputs
// before the stack does.
const DefaultMaxDepth = 64

// Engine traverses graphs for one session. Stateless across calls
// (per-traversal state lives in a walker), so one engine may serve
// concurrent traversals sharing the session cache.
type Engine struct {
	classifier *classify.Classifier
	synth      *synth.Synthesizer
	cache      *cache.Cache
	maxDepth   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth sets the traversal depth bound.
//
// Default: 64 (DefaultMaxDepth).
// Use WithMaxDepth(8) in tests exercising the bound.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// New creates an engine over a classifier, synthesizer, and cache.
func New(classifier *classify.Classifier, s *synth.Synthesizer, c *cache.Cache, opts ...Option) *Engine {
	e := &Engine{
		classifier: classifier,
		synth:      s,
		cache:      c,
		maxDepth:   DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scrub traverses input and returns a new graph with classified leaves
// substituted, plus per-category substitution counts. sch may be nil
// and recordType empty for raw data classified purely by overrides and
// heuristics. On any error no output is returned: scrubbing is
// all-or-nothing so un-scrubbed originals cannot leak.
func (e *Engine) Scrub(ctx context.Context, input graph.Value, sch *schema.Schema, recordType string) (graph.Value, map[string]int, error) {
	if input == nil {
		return nil, nil, fmt.Errorf("nil input graph")
	}

	w := &walker{
		engine: e,
		ctx:    ctx,
		sch:    sch,
		counts: make(map[string]int),
		onPath: make(map[uintptr]bool),
	}

	var rootDesc *schema.FieldDescriptor
	if recordType != "" {
		if sch == nil {
			return nil, nil, fmt.Errorf("record type %q given without a schema", recordType)
		}
		if _, ok := sch.Describe(recordType); !ok {
			return nil, nil, NewUnknownRecordError("", recordType)
		}
		rootDesc = &schema.FieldDescriptor{Type: schema.TypeRecord, Record: recordType}
	}

	out, err := w.walk(input, rootDesc, 0)
	if err != nil {
		return nil, nil, err
	}
	return out, w.counts, nil
}

// walker carries per-traversal state. Not shared between goroutines.
type walker struct {
	engine *Engine
	ctx    context.Context
	sch    *schema.Schema
	counts map[string]int

	// path is the breadcrumb to the current node, for error messages.
	path []string

	// onPath tracks container identities on the current descent so a
	// container reached through itself is rejected rather than looped.
	// Sharing between siblings (a DAG) is legal and not flagged.
	onPath map[uintptr]bool
}

// walk reconstructs the subtree rooted at v. desc is the descriptor
// that described v in its parent record, nil when the schema says
// nothing about it.
func (w *walker) walk(v graph.Value, desc *schema.FieldDescriptor, depth int) (graph.Value, error) {
	// Scalars are shared, not copied: they are immutable, and any
	// substitution already happened at the parent record boundary.
	if graph.IsScalar(v) {
		return v, nil
	}

	if depth >= w.engine.maxDepth {
		return nil, NewMaxDepthError(w.pathString(), w.engine.maxDepth)
	}

	if id, ok := containerID(v); ok {
		if w.onPath[id] {
			return nil, NewCycleError(w.pathString())
		}
		w.onPath[id] = true
		defer delete(w.onPath, id)
	}

	switch val := v.(type) {
	case graph.Array:
		return w.walkArray(val, desc, depth)
	case graph.Object:
		return w.walkObject(val, desc, depth)
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// walkArray rebuilds the sequence element-wise, order preserved.
func (w *walker) walkArray(arr graph.Array, desc *schema.FieldDescriptor, depth int) (graph.Value, error) {
	var elemDesc *schema.FieldDescriptor
	if desc != nil && desc.Type == schema.TypeList {
		elemDesc = desc.Elem
	}

	out := make(graph.Array, len(arr))
	for i, elem := range arr {
		w.path = append(w.path, fmt.Sprintf("[%d]", i))
		sub, err := w.walk(elem, elemDesc, depth+1)
		w.path = w.path[:len(w.path)-1]
		if err != nil {
			return nil, err
		}
		out[i] = sub
	}
	return out, nil
}

// walkObject rebuilds a mapping or record. Keys are data, never
// classified or substituted; classification applies to field values at
// this record boundary.
func (w *walker) walkObject(obj graph.Object, desc *schema.FieldDescriptor, depth int) (graph.Value, error) {
	// Record boundaries are the natural cancellation checkpoints:
	// aborting here discards the partial result without returning it.
	if err := w.ctx.Err(); err != nil {
		return nil, err
	}

	recordType := ""
	var fields map[string]*schema.FieldDescriptor
	if desc != nil && desc.Type == schema.TypeRecord && w.sch != nil {
		recordType = desc.Record
		described, ok := w.sch.Describe(recordType)
		if !ok {
			return nil, NewUnknownRecordError(w.pathString(), recordType)
		}
		fields = make(map[string]*schema.FieldDescriptor, len(described))
		for i := range described {
			fields[described[i].Name] = &described[i]
		}
	}

	out := make(graph.Object, len(obj))
	for _, key := range obj.SortedKeys() {
		child := obj[key]
		fd := fields[key]

		w.path = append(w.path, key)
		sub, err := w.walkField(recordType, key, child, fd, depth)
		w.path = w.path[:len(w.path)-1]
		if err != nil {
			return nil, err
		}
		out[key] = sub
	}
	return out, nil
}

// walkField substitutes a classified field value, or recurses into an
// unclassified one (nested PII inside embedded records still gets
// scrubbed).
func (w *walker) walkField(recordType, key string, child graph.Value, fd *schema.FieldDescriptor, depth int) (graph.Value, error) {
	match := w.engine.classifier.Classify(recordType, key, fd)
	if match == nil {
		return w.walk(child, fd, depth+1)
	}

	// Null carries nothing to scrub; preserve it rather than failing a
	// record that legitimately has the field unset.
	if _, isNull := child.(graph.Null); isNull {
		return child, nil
	}

	entry, err := w.engine.synth.Registry().Resolve(match.Category)
	if err != nil {
		return nil, err
	}
	if !graph.IsScalar(child) || !entry.Kind.Matches(child) {
		return nil, NewSchemaMismatchError(w.pathString(), match.Category, entry.Kind.String(), graph.Kind(child))
	}

	sub, err := w.engine.cache.GetOrCreate(match.Category, child, func() (graph.Value, error) {
		return w.engine.synth.Synthesize(match.Category, match.Locale, child)
	})
	if err != nil {
		return nil, err
	}

	w.counts[match.Category]++
	return sub, nil
}

func (w *walker) pathString() string {
	var b strings.Builder
	for _, seg := range w.path {
		if b.Len() > 0 && !strings.HasPrefix(seg, "[") {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

// containerID returns a stable identity for mutable containers, used
// for on-path cycle detection. Empty containers cannot participate in a
// cycle and report no identity (zero-length slices may share a data
// pointer).
func containerID(v graph.Value) (uintptr, bool) {
	switch val := v.(type) {
	case graph.Object:
		if len(val) == 0 {
			return 0, false
		}
		return reflect.ValueOf(val).Pointer(), true
	case graph.Array:
		if len(val) == 0 {
			return 0, false
		}
		return reflect.ValueOf(val).Pointer(), true
	default:
		return 0, false
	}
}
