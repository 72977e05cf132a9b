// Package classify decides, for each field encountered during
// traversal, whether it is sensitive and under which PII category.
//
// Resolution order:
//  1. caller override map ("Record.field" first, then bare "field")
//  2. category declared on the field descriptor at schema time
//  3. heuristic name patterns (best-effort, see Pattern)
package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dual/doubletake/internal/schema"
)

// Source records which resolution step produced a match. Useful in
// audit output and when debugging surprising substitutions.
type Source int

const (
	SourceOverride Source = iota
	SourceDescriptor
	SourceHeuristic
)

// String returns the lowercase name of the source.
func (s Source) String() string {
	switch s {
	case SourceOverride:
		return "override"
	case SourceDescriptor:
		return "descriptor"
	case SourceHeuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

// Match is a positive classification.
type Match struct {
	Category string
	Locale   string
	Source   Source
}

// Pattern is a heuristic field-name rule. Exactly one of Suffix or
// Equals must be set. Heuristics are best-effort: they only apply when
// neither an override nor a schema declaration covers the field, and a
// name that happens to match (say, a "thumbnail_email" flag) will be
// scrubbed. Authoritative classification belongs in the schema.
type Pattern struct {
	Suffix   string `yaml:"suffix,omitempty"`
	Equals   string `yaml:"equals,omitempty"`
	Category string `yaml:"category"`
}

// DefaultPatterns returns the built-in heuristic table. Deliberately
// conservative: only names that are overwhelmingly likely to hold the
// category they spell out.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Equals: "email", Category: "email"},
		{Suffix: "_email", Category: "email"},
		{Equals: "phone", Category: "phone"},
		{Suffix: "_phone", Category: "phone"},
		{Equals: "ssn", Category: "ssn"},
		{Suffix: "_ssn", Category: "ssn"},
		{Equals: "first_name", Category: "first_name"},
		{Equals: "last_name", Category: "last_name"},
		{Equals: "full_name", Category: "full_name"},
		{Equals: "date_of_birth", Category: "date_of_birth"},
		{Equals: "ip_address", Category: "ip_address"},
	}
}

// LoadPatterns reads additional heuristic rules from a YAML file: a
// list of {suffix|equals, category} entries.
func LoadPatterns(path string) ([]Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns file: %w", err)
	}

	var patterns []Pattern
	if err := yaml.Unmarshal(data, &patterns); err != nil {
		return nil, fmt.Errorf("parse patterns file %s: %w", path, err)
	}

	for i, p := range patterns {
		if p.Category == "" {
			return nil, fmt.Errorf("patterns file %s: entry %d has no category", path, i)
		}
		if (p.Suffix == "") == (p.Equals == "") {
			return nil, fmt.Errorf("patterns file %s: entry %d must set exactly one of suffix or equals", path, i)
		}
	}
	return patterns, nil
}

// Classifier resolves fields to categories. Immutable after
// construction and safe for concurrent use.
type Classifier struct {
	overrides map[string]string
	patterns  []Pattern
}

// New creates a classifier. overrides maps "Record.field" or "field" to
// a category tag; an empty tag explicitly suppresses classification for
// that field, overriding schema declarations and heuristics alike.
func New(overrides map[string]string, patterns []Pattern) *Classifier {
	return &Classifier{overrides: overrides, patterns: patterns}
}

// Classify returns the category match for a field, or nil when the
// field is not sensitive. recordType is empty for raw mappings with no
// schema context; fd is nil when the schema does not describe the field.
func (c *Classifier) Classify(recordType, fieldName string, fd *schema.FieldDescriptor) *Match {
	if tag, ok := c.lookupOverride(recordType, fieldName); ok {
		if tag == "" {
			return nil // explicit suppression
		}
		return &Match{Category: tag, Source: SourceOverride}
	}

	if fd != nil && fd.Category != "" {
		return &Match{Category: fd.Category, Locale: fd.Locale, Source: SourceDescriptor}
	}

	for _, p := range c.patterns {
		switch {
		case p.Equals != "" && fieldName == p.Equals:
			return &Match{Category: p.Category, Source: SourceHeuristic}
		case p.Suffix != "" && strings.HasSuffix(fieldName, p.Suffix):
			return &Match{Category: p.Category, Source: SourceHeuristic}
		}
	}

	return nil
}

// OverrideCategories returns the category tags named by the override
// map, for session preflight. Heuristic pattern categories are not
// included: a pattern that never matches should not fail a scrub, and
// one that does match an unregistered tag fails that scrub at
// substitution time.
func (c *Classifier) OverrideCategories() []string {
	seen := map[string]bool{}
	var tags []string
	for _, tag := range c.overrides {
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

func (c *Classifier) lookupOverride(recordType, fieldName string) (string, bool) {
	if recordType != "" {
		if tag, ok := c.overrides[recordType+"."+fieldName]; ok {
			return tag, true
		}
	}
	tag, ok := c.overrides[fieldName]
	return tag, ok
}
