package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares a scenario's scrubbed output against the golden
// file testdata/golden/<name>.golden. Update with `go test -update`.
//
// Golden comparison only makes sense for deterministic runs; Run uses
// the deterministic registry, so any scenario's output qualifies.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	if !result.Pass {
		t.Fatalf("scenario failed, refusing golden comparison: %v", result.Errors)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, result.OutputJSON)
}
