package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dual/doubletake/internal/category"
	"github.com/dual/doubletake/internal/graph"
)

func TestCounter(t *testing.T) {
	c := NewCounter()
	assert.Equal(t, 0, c.Current())
	assert.Equal(t, 1, c.Next())
	assert.Equal(t, 2, c.Next())
	assert.Equal(t, 2, c.Current())

	c.Reset()
	assert.Equal(t, 1, c.Next())
}

func TestDeterministicRegistryCoversBuiltins(t *testing.T) {
	det := DeterministicRegistry()
	builtin := category.NewBuiltinRegistry(0)
	assert.Equal(t, builtin.Tags(), det.Tags())
}

func TestDeterministicRegistryValues(t *testing.T) {
	r := RegistryFor(map[string]category.Kind{
		"email": category.KindString,
		"age":   category.KindInt,
	})

	email, err := r.Resolve("email")
	require.NoError(t, err)
	v, err := email.Strategy("", graph.String("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, graph.String("email-1"), v)
	v, err = email.Strategy("", graph.String("b@x.com"))
	require.NoError(t, err)
	assert.Equal(t, graph.String("email-2"), v)

	age, err := r.Resolve("age")
	require.NoError(t, err)
	v, err = age.Strategy("", graph.Int(41))
	require.NoError(t, err)
	assert.Equal(t, graph.Int(1001), v)
	assert.True(t, age.Kind.Matches(v))
}
