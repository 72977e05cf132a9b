package category

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dual/doubletake/internal/graph"
)

func TestBuiltinRegistryCoversAllTags(t *testing.T) {
	r := NewBuiltinRegistry(1)

	tags := []string{
		Email, FirstName, LastName, FullName, Phone, StreetAddress, City,
		State, PostalCode, Country, SSN, NationalID, CreditCard, IPAddress,
		URL, Username, Password, Company, JobTitle, DateOfBirth, FreeText,
		Age, Latitude, Longitude, UUID, Digits,
	}
	for _, tag := range tags {
		_, err := r.Resolve(tag)
		assert.NoError(t, err, "builtin tag %q missing", tag)
	}
}

func TestBuiltinKinds(t *testing.T) {
	r := NewBuiltinRegistry(1)

	tests := []struct {
		tag  string
		kind Kind
	}{
		{Email, KindString},
		{Age, KindInt},
		{Latitude, KindFloat},
		{Longitude, KindFloat},
		{Digits, KindString},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			e, err := r.Resolve(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, e.Kind)

			v, err := e.Strategy("", graph.String("original"))
			require.NoError(t, err)
			assert.True(t, tt.kind.Matches(v), "strategy for %q produced %s", tt.tag, graph.Kind(v))
		})
	}
}

func TestBuiltinEmailShape(t *testing.T) {
	r := NewBuiltinRegistry(42)
	e, err := r.Resolve(Email)
	require.NoError(t, err)

	v, err := e.Strategy("", graph.String("a@x.com"))
	require.NoError(t, err)

	s, ok := v.(graph.String)
	require.True(t, ok)
	assert.Contains(t, string(s), "@")
}

func TestDigitsPreservesFormat(t *testing.T) {
	r := NewBuiltinRegistry(7)
	e, err := r.Resolve(Digits)
	require.NoError(t, err)

	v, err := e.Strategy("", graph.String("+1 (555) 867-5309"))
	require.NoError(t, err)

	s := string(v.(graph.String))
	assert.Len(t, s, len("+1 (555) 867-5309"))
	// Non-digit runes stay in place.
	for i, r := range "+1 (555) 867-5309" {
		if !unicode.IsDigit(r) {
			assert.Equal(t, r, rune(s[i]), "position %d", i)
		}
	}
}

func TestDigitsWithoutOriginal(t *testing.T) {
	r := NewBuiltinRegistry(7)
	e, err := r.Resolve(Digits)
	require.NoError(t, err)

	v, err := e.Strategy("", nil)
	require.NoError(t, err)

	s := string(v.(graph.String))
	assert.Len(t, s, 10)
	for _, r := range s {
		assert.True(t, unicode.IsDigit(r))
	}
}

func TestDateOfBirthShape(t *testing.T) {
	r := NewBuiltinRegistry(3)
	e, err := r.Resolve(DateOfBirth)
	require.NoError(t, err)

	v, err := e.Strategy("", nil)
	require.NoError(t, err)

	s := string(v.(graph.String))
	require.Len(t, s, 10)
	assert.Equal(t, byte('-'), s[4])
	assert.Equal(t, byte('-'), s[7])
}

func TestFreeTextTracksOriginalLength(t *testing.T) {
	r := NewBuiltinRegistry(3)
	e, err := r.Resolve(FreeText)
	require.NoError(t, err)

	long := strings.Repeat("the quick brown fox ", 10)
	v, err := e.Strategy("", graph.String(long))
	require.NoError(t, err)

	s := string(v.(graph.String))
	// Word-count heuristic: long originals produce long substitutes.
	assert.Greater(t, len(strings.Fields(s)), 10)
}

func TestBuiltinSeedReproducible(t *testing.T) {
	a := NewBuiltinRegistry(99)
	b := NewBuiltinRegistry(99)

	ea, err := a.Resolve(Email)
	require.NoError(t, err)
	eb, err := b.Resolve(Email)
	require.NoError(t, err)

	va, err := ea.Strategy("", nil)
	require.NoError(t, err)
	vb, err := eb.Strategy("", nil)
	require.NoError(t, err)

	assert.Equal(t, va, vb)
}
