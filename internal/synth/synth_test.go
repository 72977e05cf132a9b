package synth

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dual/doubletake/internal/category"
	"github.com/dual/doubletake/internal/graph"
)

func testRegistry(t *testing.T) *category.Registry {
	t.Helper()
	r := category.NewRegistry()
	require.NoError(t, r.Register("email", category.Entry{
		Kind: category.KindString,
		Strategy: func(locale string, original graph.Value) (graph.Value, error) {
			return graph.String("fake@example.org"), nil
		},
	}))
	require.NoError(t, r.Register("broken", category.Entry{
		Kind: category.KindString,
		Strategy: func(locale string, original graph.Value) (graph.Value, error) {
			return graph.Int(42), nil // wrong kind on purpose
		},
	}))
	require.NoError(t, r.Register("failing", category.Entry{
		Kind: category.KindString,
		Strategy: func(locale string, original graph.Value) (graph.Value, error) {
			return nil, fmt.Errorf("upstream unavailable")
		},
	}))
	require.NoError(t, r.Register("echo_locale", category.Entry{
		Kind: category.KindString,
		Strategy: func(locale string, original graph.Value) (graph.Value, error) {
			return graph.String(locale), nil
		},
	}))
	return r
}

func TestSynthesizeDelegates(t *testing.T) {
	s, err := New(testRegistry(t), "")
	require.NoError(t, err)

	v, err := s.Synthesize("email", "", graph.String("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, graph.String("fake@example.org"), v)
}

func TestSynthesizeUnknownCategory(t *testing.T) {
	s, err := New(testRegistry(t), "")
	require.NoError(t, err)

	_, err = s.Synthesize("no_such", "", nil)
	require.Error(t, err)
	assert.True(t, category.IsUnknownCategory(err))
}

func TestSynthesizeTypeMismatch(t *testing.T) {
	s, err := New(testRegistry(t), "")
	require.NoError(t, err)

	_, err = s.Synthesize("broken", "", nil)
	require.Error(t, err)
	assert.True(t, IsTypeMismatch(err))
	assert.Contains(t, err.Error(), "TYPE_MISMATCH")
}

func TestSynthesizeStrategyError(t *testing.T) {
	s, err := New(testRegistry(t), "")
	require.NoError(t, err)

	_, err = s.Synthesize("failing", "", nil)
	require.Error(t, err)
	assert.False(t, IsTypeMismatch(err))
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestSynthesizeLocalePrecedence(t *testing.T) {
	s, err := New(testRegistry(t), "en-US")
	require.NoError(t, err)

	// Default locale applies when the call carries none.
	v, err := s.Synthesize("echo_locale", "", nil)
	require.NoError(t, err)
	assert.Equal(t, graph.String("en-US"), v)

	// Per-call locale wins.
	v, err = s.Synthesize("echo_locale", "fr", nil)
	require.NoError(t, err)
	assert.Equal(t, graph.String("fr"), v)
}

func TestNewRejectsBadLocale(t *testing.T) {
	_, err := New(testRegistry(t), "not a locale!!")
	assert.Error(t, err)
}

func TestValidateLocale(t *testing.T) {
	assert.NoError(t, ValidateLocale(""))
	assert.NoError(t, ValidateLocale("en"))
	assert.NoError(t, ValidateLocale("en-US"))
	assert.Error(t, ValidateLocale("zz_notreal_@@"))
}
