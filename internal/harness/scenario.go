package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance test case for the scrub pipeline.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Schema is inline CUE source declaring the record definitions.
	Schema string `yaml:"schema,omitempty"`

	// SchemaFile is a path to a CUE schema, relative to the scenario
	// file. Exclusive with Schema.
	SchemaFile string `yaml:"schema_file,omitempty"`

	// Record is the schema record type the input conforms to.
	// Required when a schema is given.
	Record string `yaml:"record,omitempty"`

	// Input is the JSON document to scrub.
	Input string `yaml:"input"`

	// Overrides maps "Record.field" or "field" to a category tag; an
	// empty tag suppresses classification.
	Overrides map[string]string `yaml:"overrides,omitempty"`

	// Locale is the default locale passed to strategies.
	Locale string `yaml:"locale,omitempty"`

	// MaxDepth overrides the traversal depth bound when positive.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// Expect holds the expectations checked against the run.
	Expect Expectations `yaml:"expect"`
}

// Expectations describes the outcome a scenario requires.
type Expectations struct {
	// Error names an expected error code (UNKNOWN_CATEGORY,
	// SCHEMA_MISMATCH, MAX_DEPTH_EXCEEDED, CYCLIC_GRAPH,
	// TYPE_MISMATCH, SYNTHESIS_EXHAUSTED). When set, the scrub must
	// fail with that code and all output expectations must be absent.
	Error string `yaml:"error,omitempty"`

	// Counts holds required per-category substitution counts.
	Counts map[string]int `yaml:"counts,omitempty"`

	// Changed lists output paths whose value must differ from the
	// input.
	Changed []string `yaml:"changed,omitempty"`

	// Unchanged lists output paths whose value must equal the input.
	Unchanged []string `yaml:"unchanged,omitempty"`

	// Consistent groups paths that must all hold the same value in the
	// output.
	Consistent [][]string `yaml:"consistent,omitempty"`

	// Distinct groups paths that must hold pairwise different values.
	Distinct [][]string `yaml:"distinct,omitempty"`
}

// LoadScenario reads and validates a single scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadScenarios reads every *.yaml scenario under dir, sorted by file
// name so runs are ordered deterministically.
func LoadScenarios(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	scenarios := make([]*Scenario, 0, len(matches))
	for _, path := range matches {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// Validate checks structural requirements before a scenario runs.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Input == "" {
		return fmt.Errorf("input is required")
	}
	if s.Schema != "" && s.SchemaFile != "" {
		return fmt.Errorf("schema and schema_file are exclusive")
	}
	hasSchema := s.Schema != "" || s.SchemaFile != ""
	if hasSchema && s.Record == "" {
		return fmt.Errorf("record is required when a schema is given")
	}
	if !hasSchema && s.Record != "" {
		return fmt.Errorf("record %q given without a schema", s.Record)
	}

	if s.Expect.Error != "" {
		e := s.Expect
		if len(e.Counts) > 0 || len(e.Changed) > 0 || len(e.Unchanged) > 0 ||
			len(e.Consistent) > 0 || len(e.Distinct) > 0 {
			return fmt.Errorf("expect.error excludes output expectations")
		}
	}
	return nil
}
