package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dual/doubletake/internal/graph"
)

// checkExpectations evaluates every output expectation of a scenario
// against the scrub result, accumulating failures on the result.
func checkExpectations(result *Result, s *Scenario, input graph.Value) {
	for tag, want := range s.Expect.Counts {
		if got := result.Audit.Substitutions[tag]; got != want {
			result.AddError("counts[%s]: want %d, got %d", tag, want, got)
		}
	}

	for _, path := range s.Expect.Changed {
		before, after, err := lookupBoth(input, result.Output, path)
		if err != nil {
			result.AddError("changed[%s]: %v", path, err)
			continue
		}
		if equalValues(before, after) {
			result.AddError("changed[%s]: value %s did not change", path, renderValue(after))
		}
	}

	for _, path := range s.Expect.Unchanged {
		before, after, err := lookupBoth(input, result.Output, path)
		if err != nil {
			result.AddError("unchanged[%s]: %v", path, err)
			continue
		}
		if !equalValues(before, after) {
			result.AddError("unchanged[%s]: %s became %s", path, renderValue(before), renderValue(after))
		}
	}

	for _, group := range s.Expect.Consistent {
		values, err := lookupGroup(result.Output, group)
		if err != nil {
			result.AddError("consistent%v: %v", group, err)
			continue
		}
		for i := 1; i < len(values); i++ {
			if !equalValues(values[0], values[i]) {
				result.AddError("consistent%v: %s != %s at %s",
					group, renderValue(values[0]), renderValue(values[i]), group[i])
			}
		}
	}

	for _, group := range s.Expect.Distinct {
		values, err := lookupGroup(result.Output, group)
		if err != nil {
			result.AddError("distinct%v: %v", group, err)
			continue
		}
		for i := range values {
			for j := i + 1; j < len(values); j++ {
				if equalValues(values[i], values[j]) {
					result.AddError("distinct%v: %s and %s share value %s",
						group, group[i], group[j], renderValue(values[i]))
				}
			}
		}
	}
}

func lookupBoth(input, output graph.Value, path string) (graph.Value, graph.Value, error) {
	before, err := LookupPath(input, path)
	if err != nil {
		return nil, nil, fmt.Errorf("in input: %w", err)
	}
	after, err := LookupPath(output, path)
	if err != nil {
		return nil, nil, fmt.Errorf("in output: %w", err)
	}
	return before, after, nil
}

func lookupGroup(v graph.Value, paths []string) ([]graph.Value, error) {
	values := make([]graph.Value, len(paths))
	for i, path := range paths {
		val, err := LookupPath(v, path)
		if err != nil {
			return nil, err
		}
		values[i] = val
	}
	return values, nil
}

// LookupPath resolves a dotted path with optional list indices, e.g.
// "people[2].ssn", against a graph.
func LookupPath(v graph.Value, path string) (graph.Value, error) {
	cur := v
	for _, seg := range strings.Split(path, ".") {
		name, indices, err := parseSegment(seg)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", path, err)
		}

		if name != "" {
			obj, ok := cur.(graph.Object)
			if !ok {
				return nil, fmt.Errorf("path %q: %q is not an object", path, name)
			}
			next, ok := obj[name]
			if !ok {
				return nil, fmt.Errorf("path %q: key %q not found", path, name)
			}
			cur = next
		}

		for _, idx := range indices {
			arr, ok := cur.(graph.Array)
			if !ok {
				return nil, fmt.Errorf("path %q: index into non-array", path)
			}
			if idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("path %q: index %d out of range (len %d)", path, idx, len(arr))
			}
			cur = arr[idx]
		}
	}
	return cur, nil
}

// parseSegment splits "people[2][0]" into name "people" and indices
// [2, 0]. A bare "[2]" has an empty name, for paths rooted at a list.
func parseSegment(seg string) (string, []int, error) {
	if seg == "" {
		return "", nil, fmt.Errorf("empty segment")
	}

	name := seg
	var indices []int
	if open := strings.IndexByte(seg, '['); open >= 0 {
		name = seg[:open]
		rest := seg[open:]
		for rest != "" {
			if rest[0] != '[' {
				return "", nil, fmt.Errorf("malformed segment %q", seg)
			}
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return "", nil, fmt.Errorf("unclosed index in %q", seg)
			}
			idx, err := strconv.Atoi(rest[1:end])
			if err != nil {
				return "", nil, fmt.Errorf("bad index in %q: %w", seg, err)
			}
			indices = append(indices, idx)
			rest = rest[end+1:]
		}
	}
	return name, indices, nil
}

func equalValues(a, b graph.Value) bool {
	ea, errA := graph.Canonical(a)
	eb, errB := graph.Canonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ea) == string(eb)
}

func renderValue(v graph.Value) string {
	enc, err := graph.ToJSON(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(enc)
}
