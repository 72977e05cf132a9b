// Package synth produces synthetic values for PII categories by
// delegating to registry-resolved strategies, enforcing at the boundary
// that each strategy returns the primitive kind its category declares.
package synth

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"

	"github.com/dual/doubletake/internal/category"
	"github.com/dual/doubletake/internal/graph"
)

// TypeMismatchError indicates a strategy returned a value whose kind
// does not match the category's declared output kind. The strategy is
// at fault, not the input.
type TypeMismatchError struct {
	Category string
	Want     category.Kind
	Got      string
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("TYPE_MISMATCH: category %q expects %s, strategy produced %s",
		e.Category, e.Want, e.Got)
}

// IsTypeMismatch reports whether err is a type-mismatch error.
// Uses errors.As to handle wrapped errors.
func IsTypeMismatch(err error) bool {
	var te *TypeMismatchError
	return errors.As(err, &te)
}

// ValidateLocale checks that a locale string is a well-formed BCP 47
// tag ("en", "en-US", "fr"). Empty is allowed and means "no
// preference".
func ValidateLocale(locale string) error {
	if locale == "" {
		return nil
	}
	if _, err := language.Parse(locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return nil
}

// Synthesizer resolves categories through a registry and produces
// kind-checked synthetic values. Safe for concurrent use when the
// registered strategies are.
type Synthesizer struct {
	reg           *category.Registry
	defaultLocale string
}

// New creates a synthesizer. defaultLocale applies when a field carries
// no locale override; it must be empty or a valid BCP 47 tag.
func New(reg *category.Registry, defaultLocale string) (*Synthesizer, error) {
	if err := ValidateLocale(defaultLocale); err != nil {
		return nil, err
	}
	return &Synthesizer{reg: reg, defaultLocale: defaultLocale}, nil
}

// Registry returns the registry the synthesizer resolves against.
func (s *Synthesizer) Registry() *category.Registry {
	return s.reg
}

// Synthesize produces a synthetic value for the category. locale
// overrides the default when non-empty. original is passed through to
// the strategy so format-preserving strategies can use it; it is never
// required.
func (s *Synthesizer) Synthesize(tag, locale string, original graph.Value) (graph.Value, error) {
	entry, err := s.reg.Resolve(tag)
	if err != nil {
		return nil, err
	}

	if locale == "" {
		locale = s.defaultLocale
	}

	v, err := entry.Strategy(locale, original)
	if err != nil {
		return nil, fmt.Errorf("synthesize %q: %w", tag, err)
	}
	if v == nil {
		return nil, &TypeMismatchError{Category: tag, Want: entry.Kind, Got: "nil"}
	}
	if !entry.Kind.Matches(v) {
		return nil, &TypeMismatchError{Category: tag, Want: entry.Kind, Got: graph.Kind(v)}
	}
	return v, nil
}
