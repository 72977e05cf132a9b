package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dual/doubletake/internal/cache"
	"github.com/dual/doubletake/internal/category"
	"github.com/dual/doubletake/internal/engine"
	"github.com/dual/doubletake/internal/graph"
	"github.com/dual/doubletake/internal/schema"
	"github.com/dual/doubletake/internal/session"
	"github.com/dual/doubletake/internal/synth"
	"github.com/dual/doubletake/internal/testutil"
)

// Result is the outcome of running one scenario.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Output is the scrubbed graph, nil when the scrub failed.
	Output graph.Value `json:"-"`

	// OutputJSON is the scrubbed document with sorted keys, for golden
	// comparison.
	OutputJSON []byte `json:"output,omitempty"`

	// Audit is the substitution summary of a successful scrub.
	Audit *session.Audit `json:"audit,omitempty"`
}

// AddError records an expectation failure and marks the result failed.
func (r *Result) AddError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario against a deterministic registry. baseDir
// resolves schema_file references, usually the scenario file's
// directory.
func Run(ctx context.Context, s *Scenario, baseDir string) *Result {
	result := &Result{Pass: true}

	input, err := graph.FromJSON([]byte(s.Input))
	if err != nil {
		result.AddError("input is not valid JSON: %v", err)
		return result
	}

	var sch *schema.Schema
	if src, err := s.schemaSource(baseDir); err != nil {
		result.AddError("%v", err)
		return result
	} else if src != "" {
		sch, err = schema.CompileString(src)
		if err != nil {
			result.AddError("schema failed to compile: %v", err)
			return result
		}
	}

	opts := []session.Option{session.WithRegistry(testutil.DeterministicRegistry())}
	if s.Locale != "" {
		opts = append(opts, session.WithLocale(s.Locale))
	}
	if s.MaxDepth > 0 {
		opts = append(opts, session.WithMaxDepth(s.MaxDepth))
	}

	sess, err := session.New(opts...)
	if err != nil {
		result.AddError("opening session: %v", err)
		return result
	}
	defer sess.Close()

	res, err := sess.Scrub(ctx, input, sch, s.Record, s.Overrides)
	if err != nil {
		if s.Expect.Error == "" {
			result.AddError("scrub failed: %v", err)
		} else if code := errorCode(err); code != s.Expect.Error {
			result.AddError("expected error %s, got %s (%v)", s.Expect.Error, code, err)
		}
		return result
	}
	if s.Expect.Error != "" {
		result.AddError("expected error %s, scrub succeeded", s.Expect.Error)
		return result
	}

	result.Output = res.Output
	result.Audit = &res.Audit
	if result.OutputJSON, err = graph.ToJSON(res.Output); err != nil {
		result.AddError("encoding output: %v", err)
		return result
	}

	checkExpectations(result, s, input)
	return result
}

func (s *Scenario) schemaSource(baseDir string) (string, error) {
	if s.Schema != "" {
		return s.Schema, nil
	}
	if s.SchemaFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Join(baseDir, s.SchemaFile))
	if err != nil {
		return "", fmt.Errorf("read schema_file: %w", err)
	}
	return string(data), nil
}

// errorCode maps scrub pipeline errors to the codes scenarios name.
func errorCode(err error) string {
	var scrubErr *engine.ScrubError
	if errors.As(err, &scrubErr) {
		return string(scrubErr.Code)
	}
	var regErr *category.RegistryError
	if errors.As(err, &regErr) {
		return string(regErr.Code)
	}
	if synth.IsTypeMismatch(err) {
		return "TYPE_MISMATCH"
	}
	if cache.IsExhausted(err) {
		return "SYNTHESIS_EXHAUSTED"
	}
	return "UNKNOWN"
}
