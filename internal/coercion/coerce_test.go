package coercion

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	language "github.com/hanpama/matchbox/internal/language"
	registry "github.com/hanpama/matchbox/internal/registry"
	schema "github.com/hanpama/matchbox/internal/schema"
	validation "github.com/hanpama/matchbox/internal/validation"
)

const starshipSDL = `
type Query {
  sayHello(name: String): String
  starship(id: ID!): Starship
  ships(ids: [ID!]!, limit: Int = 10, unit: Unit = METER): [Starship]
  search(text: String, filter: Filter): [Result]
  characters: [Character]
}

type Starship {
  id: ID!
  name: String
  length(unit: Unit = METER): Float
}

interface Character { name: String }
type Human implements Character { name: String height: Float }
type Droid implements Character { name: String function: String }

union Result = Human | Starship

enum Unit { METER FOOT }

input Filter {
  text: String!
  max: Int = 5
  unit: Unit
  nested: Filter
}
`

func mustRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	s, err := schema.BuildFromSDL("starship", starshipSDL)
	require.NoError(t, err)
	return registry.New(s)
}

func mustCoerce(t *testing.T, reg *registry.Registry, query string, vars map[string]any) *Operation {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	op := doc.Operations[0]
	ctx := validation.NewContext(doc, op)
	require.NoError(t, ctx.BindVariables(reg, op.VariableDefinitions, vars))
	require.NoError(t, validation.ValidateOperation(reg, ctx, op))
	out, err := Coerce(reg, ctx, op)
	require.NoError(t, err)
	return out
}

func TestCoerce_NullableArgument(t *testing.T) {
	reg := mustRegistry(t)

	op := mustCoerce(t, reg, `{ sayHello(name: "Emilio") }`, nil)
	require.Equal(t, "Query", op.RootType)
	require.Len(t, op.Selection, 1)
	f := op.Selection[0].(*Field)
	require.Equal(t, "sayHello", f.Name)
	require.Equal(t, "Emilio", f.Arg("name"))
	require.Nil(t, f.Selection)

	op = mustCoerce(t, reg, `{ sayHello(name: null) }`, nil)
	f = op.Selection[0].(*Field)
	v, ok := f.Arguments["name"]
	require.True(t, ok)
	require.Nil(t, v)

	op = mustCoerce(t, reg, `{ sayHello }`, nil)
	f = op.Selection[0].(*Field)
	require.Equal(t, map[string]any{"name": nil}, f.Arguments)
}

func TestCoerce_NullableVariableForRequiredArgument(t *testing.T) {
	reg := mustRegistry(t)

	op := mustCoerce(t, reg, `query Q($id: ID) { starship(id: $id) { name } }`, map[string]any{"id": "Millenium Falcon!!!"})
	require.Equal(t, "Q", op.Name)
	f := op.Selection[0].(*Field)
	require.Equal(t, "Millenium Falcon!!!", f.Arg("id"))
	require.Equal(t, "Starship", f.ReturnType.GetNamedType())
	require.Len(t, f.Selection, 1)
	require.Equal(t, "Starship", f.Selection[0].(*Field).Type)
}

func TestCoerce_NativeValues(t *testing.T) {
	reg := mustRegistry(t)

	op := mustCoerce(t, reg, `query ($n: Int) {
  ships(ids: "x", limit: $n) { length(unit: FOOT) }
  search(filter: {text: "a", nested: {text: "b", max: 1}}) { __typename }
}`, map[string]any{"n": float64(3)})

	ships := op.Selection[0].(*Field)
	want := map[string]any{"ids": []any{"x"}, "limit": int32(3), "unit": "METER"}
	if diff := cmp.Diff(want, ships.Arguments); diff != "" {
		t.Fatalf("ships arguments mismatch (-want +got):\n%s", diff)
	}
	length := ships.Selection[0].(*Field)
	require.Equal(t, map[string]any{"unit": "FOOT"}, length.Arguments)

	search := op.Selection[1].(*Field)
	want = map[string]any{
		"text": nil,
		"filter": map[string]any{
			"text": "a",
			"max":  int32(5),
			"unit": nil,
			"nested": map[string]any{
				"text":   "b",
				"max":    int32(1),
				"unit":   nil,
				"nested": nil,
			},
		},
	}
	if diff := cmp.Diff(want, search.Arguments); diff != "" {
		t.Fatalf("search arguments mismatch (-want +got):\n%s", diff)
	}
}

func TestCoerce_UnboundVariableFallsBackToDefault(t *testing.T) {
	reg := mustRegistry(t)

	op := mustCoerce(t, reg, `query ($n: Int, $m: Int) { ships(ids: [], limit: $n) { id } search(filter: {text: "a", max: $m}) { __typename } }`, nil)
	require.Equal(t, int32(10), op.Selection[0].(*Field).Arg("limit"))
	filter := op.Selection[1].(*Field).Arg("filter").(map[string]any)
	require.Equal(t, int32(5), filter["max"])
}

func TestCoerce_Fragments(t *testing.T) {
	reg := mustRegistry(t)

	op := mustCoerce(t, reg, `{
  characters {
    name
    ... on Human { height }
    ... on Droid { function }
    ... on Human { name }
  }
}`, nil)

	chars := op.Selection[0].(*Field)
	require.Len(t, chars.Selection, 4)
	require.Equal(t, "Human", chars.Selection[1].(*Fragment).On)
	require.Equal(t, "Droid", chars.Selection[2].(*Fragment).On)
	require.Equal(t, "Human", chars.Selection[3].(*Fragment).On)

	names := func(fs []*Field) []string {
		out := make([]string, len(fs))
		for i, f := range fs {
			out[i] = f.Type + "." + f.ResponseKey()
		}
		return out
	}
	require.Equal(t, []string{"Character.name"}, names(Fields(chars.Selection)))
	require.Equal(t, []string{"Character.name", "Human.height", "Human.name"}, names(ForType(chars.Selection, "Human")))
	require.Equal(t, []string{"Character.name", "Droid.function"}, names(ForType(chars.Selection, "Droid")))
}

func TestCoerce_AliasAndTypename(t *testing.T) {
	reg := mustRegistry(t)

	op := mustCoerce(t, reg, `{ t: __typename hello: sayHello sayHello }`, nil)
	fields := Fields(op.Selection)
	require.Equal(t, "t", fields[0].ResponseKey())
	require.Equal(t, "__typename", fields[0].Name)
	require.True(t, fields[0].ReturnType.IsNonNull())
	require.Equal(t, "hello", fields[1].ResponseKey())
	require.Equal(t, "sayHello", fields[2].ResponseKey())
	require.Empty(t, fields[2].Alias)
}

func TestCoerce_Deterministic(t *testing.T) {
	reg := mustRegistry(t)
	query := `query ($f: Filter) { search(filter: $f) { ... on Human { name } ... on Starship { id length } } }`
	vars := map[string]any{"f": map[string]any{"text": "x", "unit": "FOOT"}}

	first := mustCoerce(t, reg, query, vars)
	second := mustCoerce(t, reg, query, vars)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("coercion is not deterministic (-first +second):\n%s", diff)
	}
}

func TestCoerce_MarshalJSON(t *testing.T) {
	reg := mustRegistry(t)

	op := mustCoerce(t, reg, `{ starship(id: "1") { name } }`, nil)
	b, err := json.Marshal(op)
	require.NoError(t, err)
	require.JSONEq(t, `{
  "kind": "query",
  "rootType": "Query",
  "selection": [{
    "type": "Query",
    "name": "starship",
    "arguments": {"id": "1"},
    "returnType": "Starship",
    "selection": [{"type": "Starship", "name": "name", "returnType": "String"}]
  }]
}`, string(b))
}

// Coercion does not re-validate; documents validation would reject must
// still fail with ErrCoercion rather than produce a tree.
func TestCoerce_Failures(t *testing.T) {
	reg := mustRegistry(t)

	tests := []struct {
		name  string
		query string
	}{
		{"unknown field", `{ meow }`},
		{"unknown argument", `{ sayHello(loud: true) }`},
		{"missing required argument", `{ starship { name } }`},
		{"wrong scalar", `{ sayHello(name: 1) }`},
		{"unknown enum value", `{ ships(ids: [], unit: INCH) { id } }`},
		{"input object without required field", `{ search(filter: {max: 1}) { __typename } }`},
		{"fragment spread", `{ starship(id: "1") { ...F } } fragment F on Starship { name }`},
		{"fragment on object", `{ starship(id: "1") { ... on Starship { name } } }`},
		{"fragment on impossible type", `{ characters { ... on Starship { name } } }`},
		{"mutation", `mutation { sayHello }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := language.ParseQuery(tt.query)
			require.NoError(t, err)
			op := doc.Operations[0]
			out, err := Coerce(reg, validation.NewContext(doc, op), op)
			require.Nil(t, out)
			require.True(t, errors.Is(err, ErrCoercion), "got %v", err)
		})
	}
}

func TestCoerce_UnboundVariableForNonNullWithDefault(t *testing.T) {
	s, err := schema.BuildFromSDL("paging", `
type Query {
  page(limit: Int! = 10): Int
  list(opts: Opts): Int
}

input Opts {
  limit: Int! = 5
  after: String
}
`)
	require.NoError(t, err)
	reg := registry.New(s)

	op := mustCoerce(t, reg, `query ($n: Int, $a: String) { page(limit: $n) list(opts: {limit: $n, after: $a}) }`, nil)
	fields := Fields(op.Selection)
	require.Len(t, fields, 2)
	require.Equal(t, map[string]any{"limit": int32(10)}, fields[0].Arguments)
	require.Equal(t, map[string]any{"opts": map[string]any{"limit": int32(5), "after": nil}}, fields[1].Arguments)

	op = mustCoerce(t, reg, `query ($n: Int) { page(limit: $n) }`, map[string]any{"n": float64(3)})
	require.Equal(t, map[string]any{"limit": int32(3)}, Fields(op.Selection)[0].Arguments)
}
