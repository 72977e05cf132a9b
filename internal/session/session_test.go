package session

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dual/doubletake/internal/category"
	"github.com/dual/doubletake/internal/classify"
	"github.com/dual/doubletake/internal/engine"
	"github.com/dual/doubletake/internal/graph"
	"github.com/dual/doubletake/internal/schema"
	"github.com/dual/doubletake/internal/store"
)

// stubRegistry emits "tag-1", "tag-2", ... per category so outputs are
// predictable without running real fake-value strategies.
func stubRegistry(t *testing.T, tags ...string) *category.Registry {
	t.Helper()
	r := category.NewRegistry()
	for _, tag := range tags {
		n := 0
		tag := tag
		require.NoError(t, r.Register(tag, category.Entry{
			Kind: category.KindString,
			Strategy: func(locale string, original graph.Value) (graph.Value, error) {
				n++
				return graph.String(fmt.Sprintf("%s-%d", tag, n)), nil
			},
		}))
	}
	return r
}

func compileSchema(t *testing.T, src string) *schema.Schema {
	t.Helper()
	sch, err := schema.CompileString(src)
	require.NoError(t, err)
	return sch
}

const userSchema = `
schema: {
	User: {
		email: string @pii(email)
		note:  string
	}
}
`

const batchSchema = `
schema: {
	Batch: {
		people: [...Person]
		labels: {[string]: string}
	}
	Person: {
		name: string @pii(full_name)
		ssn:  string @pii(ssn)
	}
}
`

func TestSessionScrubConsistentAcrossCalls(t *testing.T) {
	s, err := New(WithRegistry(stubRegistry(t, "email")))
	require.NoError(t, err)
	defer s.Close()

	sch := compileSchema(t, userSchema)
	input := graph.Object{"email": graph.String("ada@example.com"), "note": graph.String("meet at noon")}

	first, err := s.Scrub(context.Background(), input, sch, "User", nil)
	require.NoError(t, err)
	second, err := s.Scrub(context.Background(), input, sch, "User", nil)
	require.NoError(t, err)

	// Same session, same original, same synthetic. Unclassified fields
	// pass through.
	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, graph.String("meet at noon"), second.Output.(graph.Object)["note"])
	assert.NotEqual(t, graph.String("ada@example.com"), second.Output.(graph.Object)["email"])

	assert.Equal(t, s.ID(), first.Audit.SessionID)
	assert.Equal(t, "User", first.Audit.RecordType)
	assert.Equal(t, map[string]int{"email": 1}, first.Audit.Substitutions)
	assert.Equal(t, 1, first.Audit.Total)
}

func TestSessionScrubListOfRecords(t *testing.T) {
	s, err := New(WithRegistry(stubRegistry(t, "full_name", "ssn")))
	require.NoError(t, err)
	defer s.Close()

	sch := compileSchema(t, batchSchema)
	input := graph.Object{
		"people": graph.Array{
			graph.Object{"name": graph.String("Ada Lovelace"), "ssn": graph.String("111-11-1111")},
			graph.Object{"name": graph.String("Grace Hopper"), "ssn": graph.String("222-22-2222")},
			graph.Object{"name": graph.String("Ada Lovelace"), "ssn": graph.String("111-11-1111")},
		},
		"labels": graph.Object{"env": graph.String("prod")},
	}

	res, err := s.Scrub(context.Background(), input, sch, "Batch", nil)
	require.NoError(t, err)

	people := res.Output.(graph.Object)["people"].(graph.Array)
	require.Len(t, people, 3)
	assert.Equal(t, people[0], people[2], "duplicate originals map to one synthetic")
	assert.NotEqual(t, people[0].(graph.Object)["ssn"], people[1].(graph.Object)["ssn"])

	assert.Equal(t, map[string]int{"full_name": 3, "ssn": 3}, res.Audit.Substitutions)
	assert.Equal(t, 6, res.Audit.Total)
}

func TestSessionPreflightUnknownCategory(t *testing.T) {
	s, err := New(WithRegistry(stubRegistry(t, "email")))
	require.NoError(t, err)
	defer s.Close()

	sch := compileSchema(t, `
schema: {
	User: {
		handle: string @pii(frobnicator)
	}
}
`)

	res, err := s.Scrub(context.Background(), graph.Object{"handle": graph.String("ada")}, sch, "User", nil)
	require.Error(t, err)
	assert.True(t, category.IsUnknownCategory(err))
	assert.Nil(t, res, "preflight failure must not produce output")
}

func TestSessionPreflightOverrideCategory(t *testing.T) {
	s, err := New(WithRegistry(stubRegistry(t, "email")))
	require.NoError(t, err)
	defer s.Close()

	overrides := map[string]string{"nickname": "frobnicator"}
	res, err := s.Scrub(context.Background(), graph.Object{"nickname": graph.String("ada")}, nil, "", overrides)
	require.Error(t, err)
	assert.True(t, category.IsUnknownCategory(err))
	assert.Nil(t, res)
}

func TestSessionCyclicInput(t *testing.T) {
	s, err := New(WithRegistry(stubRegistry(t)))
	require.NoError(t, err)
	defer s.Close()

	inner := graph.Object{}
	outer := graph.Object{"inner": inner}
	inner["back"] = outer

	res, err := s.Scrub(context.Background(), outer, nil, "", nil)
	require.Error(t, err)
	assert.True(t, engine.IsCyclicGraph(err))
	assert.Nil(t, res)
}

func TestSessionOverrideSuppression(t *testing.T) {
	s, err := New(WithRegistry(stubRegistry(t, "email")))
	require.NoError(t, err)
	defer s.Close()

	sch := compileSchema(t, userSchema)
	input := graph.Object{"email": graph.String("ada@example.com"), "note": graph.String("x")}

	res, err := s.Scrub(context.Background(), input, sch, "User", map[string]string{"User.email": ""})
	require.NoError(t, err)
	assert.Equal(t, graph.String("ada@example.com"), res.Output.(graph.Object)["email"])
	assert.Equal(t, 0, res.Audit.Total)
}

func TestSessionSeedDeterminism(t *testing.T) {
	sch := compileSchema(t, userSchema)
	input := graph.Object{"email": graph.String("ada@example.com"), "note": graph.String("x")}

	scrub := func() graph.Value {
		s, err := New(WithSeed(42))
		require.NoError(t, err)
		defer s.Close()
		res, err := s.Scrub(context.Background(), input, sch, "User", nil)
		require.NoError(t, err)
		return res.Output
	}

	assert.Equal(t, scrub(), scrub(), "same seed, same input, same output")
}

func TestSessionInvalidLocale(t *testing.T) {
	_, err := New(WithLocale("not a locale!"))
	assert.Error(t, err)
}

func TestSessionMaxDepthOption(t *testing.T) {
	s, err := New(WithRegistry(stubRegistry(t)), WithMaxDepth(2))
	require.NoError(t, err)
	defer s.Close()

	deep := graph.Object{"a": graph.Object{"b": graph.Object{"c": graph.Int(1)}}}
	_, err = s.Scrub(context.Background(), deep, nil, "", nil)
	require.Error(t, err)
	assert.True(t, engine.IsMaxDepthExceeded(err))
}

func TestSessionPersistentBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	sch := compileSchema(t, userSchema)
	input := graph.Object{"email": graph.String("ada@example.com"), "note": graph.String("x")}

	st, err := store.Open(path)
	require.NoError(t, err)
	s1, err := New(WithRegistry(stubRegistry(t, "email")), WithCacheBackend(st))
	require.NoError(t, err)
	first, err := s1.Scrub(context.Background(), input, sch, "User", nil)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	// A new session over the same store reuses the stored mapping even
	// though its strategies would synthesize different values.
	st2, err := store.Open(path)
	require.NoError(t, err)
	r2 := category.NewRegistry()
	require.NoError(t, r2.Register("email", category.Entry{
		Kind: category.KindString,
		Strategy: func(locale string, original graph.Value) (graph.Value, error) {
			return graph.String("other-value"), nil
		},
	}))
	s2, err := New(WithRegistry(r2), WithCacheBackend(st2))
	require.NoError(t, err)
	defer s2.Close()

	second, err := s2.Scrub(context.Background(), input, sch, "User", nil)
	require.NoError(t, err)
	assert.Equal(t, first.Output, second.Output)
}

func TestSessionScrubJSON(t *testing.T) {
	s, err := New(WithRegistry(stubRegistry(t, "email")))
	require.NoError(t, err)
	defer s.Close()

	sch := compileSchema(t, userSchema)
	out, audit, err := s.ScrubJSON(context.Background(),
		[]byte(`{"note": "meet at noon", "email": "ada@example.com"}`),
		sch, "User", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"email-1","note":"meet at noon"}`, string(out))
	assert.Equal(t, 1, audit.Total)

	_, _, err = s.ScrubJSON(context.Background(), []byte(`{not json`), sch, "User", nil)
	assert.Error(t, err)
}

func TestSessionIDsAreUnique(t *testing.T) {
	a, err := New(WithRegistry(stubRegistry(t)))
	require.NoError(t, err)
	defer a.Close()
	b, err := New(WithRegistry(stubRegistry(t)))
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Len(t, a.ID(), 36)
}

func TestSessionHeuristicPatternsExtension(t *testing.T) {
	s, err := New(
		WithRegistry(stubRegistry(t, "email")),
		WithPatterns([]classify.Pattern{{Suffix: "_contact", Category: "email"}}),
	)
	require.NoError(t, err)
	defer s.Close()

	input := graph.Object{"primary_contact": graph.String("ada@example.com")}
	res, err := s.Scrub(context.Background(), input, nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, graph.String("email-1"), res.Output.(graph.Object)["primary_contact"])
}

func TestSessionGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	s, err := New(WithRegistry(stubRegistry(t, "email", "full_name", "ssn")))
	require.NoError(t, err)
	defer s.Close()

	t.Run("user_record", func(t *testing.T) {
		sch := compileSchema(t, userSchema)
		out, _, err := s.ScrubJSON(context.Background(),
			[]byte(`{"email":"ada@example.com","note":"meet at noon"}`),
			sch, "User", nil)
		require.NoError(t, err)
		g.Assert(t, "user_record", out)
	})

	t.Run("batch_record", func(t *testing.T) {
		sch := compileSchema(t, batchSchema)
		out, _, err := s.ScrubJSON(context.Background(),
			[]byte(`{
				"people": [
					{"name": "Ada Lovelace", "ssn": "111-11-1111"},
					{"name": "Grace Hopper", "ssn": "222-22-2222"},
					{"name": "Ada Lovelace", "ssn": "111-11-1111"}
				],
				"labels": {"env": "prod", "team": "data"}
			}`),
			sch, "Batch", nil)
		require.NoError(t, err)
		g.Assert(t, "batch_record", out)
	})
}
