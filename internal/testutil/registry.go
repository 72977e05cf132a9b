package testutil

import (
	"fmt"

	"github.com/dual/doubletake/internal/category"
	"github.com/dual/doubletake/internal/graph"
)

// DeterministicRegistry returns a registry covering every built-in
// category tag with counter-backed strategies: the Nth value a category
// synthesizes is "<tag>-N" (or a derived int/float for numeric
// categories). Output depends only on call order, which the engine's
// sorted-key traversal makes stable.
func DeterministicRegistry() *category.Registry {
	r := category.NewRegistry()
	builtin := category.NewBuiltinRegistry(0)
	for _, tag := range builtin.Tags() {
		entry, err := builtin.Resolve(tag)
		if err != nil {
			panic(err)
		}
		r.MustRegister(tag, deterministicEntry(tag, entry.Kind))
	}
	return r
}

// RegistryFor returns a registry covering only the given tags, each
// with the declared kind and a counter-backed strategy.
func RegistryFor(tags map[string]category.Kind) *category.Registry {
	r := category.NewRegistry()
	for tag, kind := range tags {
		r.MustRegister(tag, deterministicEntry(tag, kind))
	}
	return r
}

func deterministicEntry(tag string, kind category.Kind) category.Entry {
	c := NewCounter()
	return category.Entry{
		Kind: kind,
		Strategy: func(locale string, original graph.Value) (graph.Value, error) {
			n := c.Next()
			switch kind {
			case category.KindInt:
				return graph.Int(int64(1000 + n)), nil
			case category.KindFloat:
				return graph.Float(float64(n) + 0.5), nil
			case category.KindBool:
				return graph.Bool(n%2 == 0), nil
			default:
				return graph.String(fmt.Sprintf("%s-%d", tag, n)), nil
			}
		},
	}
}
