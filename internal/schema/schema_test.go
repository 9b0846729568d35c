package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const starWarsSDL = `
schema {
  query: Query
  mutation: Mutation
}

type Query {
  hero(episode: Episode): Character
  character(id: ID!): Character
  search(text: String): [SearchResult]
  starship(id: ID!): Starship
}

type Mutation {
  createReview(episode: Episode, review: ReviewInput!): Review
}

enum Episode { NEWHOPE EMPIRE JEDI }

enum LengthUnit {
  METER
  FOOT @deprecated(reason: "use METER")
}

interface Character {
  id: ID!
  name: String!
  friends: [Character]
  appearsIn: [Episode]!
}

type Human implements Character {
  id: ID!
  name: String!
  friends: [Character]
  appearsIn: [Episode]!
  homePlanet: String
  height(unit: LengthUnit = METER): Float
  starships: [Starship]
}

type Droid implements Character {
  id: ID!
  name: String!
  friends: [Character]
  appearsIn: [Episode]!
  primaryFunction: String
}

type Starship {
  id: ID!
  name: String!
  length(unit: LengthUnit = METER): Float
}

type Review {
  stars: Int!
  commentary: String
}

input ReviewInput {
  stars: Int!
  commentary: String
}

union SearchResult = Human | Droid | Starship
`

func TestBuildFromSDL_Types(t *testing.T) {
	s, err := BuildFromSDL("starwars", starWarsSDL)
	require.NoError(t, err)

	require.True(t, s.Declared)
	require.Equal(t, "Query", s.QueryType)
	require.Equal(t, "Mutation", s.MutationType)
	require.Empty(t, s.SubscriptionType)
	require.Nil(t, s.GetSubscriptionType())

	for _, name := range []string{"Int", "Float", "String", "Boolean", "ID"} {
		require.Equal(t, TypeKindScalar, s.Types[name].Kind, name)
	}

	human := s.Types["Human"]
	require.Equal(t, TypeKindObject, human.Kind)
	require.Equal(t, []string{"Character"}, human.Interfaces)

	height := human.Field("height")
	require.NotNil(t, height)
	unit := height.Argument("unit")
	require.NotNil(t, unit)
	require.True(t, unit.HasDefault())
	require.False(t, unit.Required())
	require.Equal(t, "METER", unit.DefaultValue)

	character := s.Types["Query"].Field("character")
	require.True(t, character.Argument("id").Required())
	require.Equal(t, "ID!", character.Argument("id").Type.String())

	require.Equal(t, []string{"Human", "Droid", "Starship"}, s.Types["SearchResult"].PossibleTypes)
	require.True(t, s.Types["Episode"].HasEnumValue("JEDI"))
	require.False(t, s.Types["Episode"].HasEnumValue("PHANTOM"))
	require.True(t, s.Types["LengthUnit"].EnumValues[1].IsDeprecated)

	input := s.Types["ReviewInput"]
	require.Equal(t, TypeKindInputObject, input.Kind)
	require.True(t, input.InputField("stars").Required())
	require.False(t, input.InputField("commentary").Required())
}

func TestBuildFromSDL_DefaultRootTypes(t *testing.T) {
	s, err := BuildFromSDL("basic", `type Query { sayHello(name: String): String }`)
	require.NoError(t, err)
	require.False(t, s.Declared)
	require.Equal(t, "Query", s.QueryType)
	require.Empty(t, s.MutationType)
	require.NotNil(t, s.GetQueryType())
}

func TestBuildFromSDL_NoRoots(t *testing.T) {
	s, err := BuildFromSDL("empty", `type Dog { name: String }`)
	require.NoError(t, err)
	require.False(t, s.Declared)
	require.Empty(t, s.QueryType)
	require.Nil(t, s.GetQueryType())
}

func TestBuildFromSDL_Extensions(t *testing.T) {
	s, err := BuildFromSDL("ext", `
type Query { a: String }
extend type Query { b: Int }
enum Color { RED }
extend enum Color { BLUE }
`)
	require.NoError(t, err)
	require.NotNil(t, s.Types["Query"].Field("b"))
	require.True(t, s.Types["Color"].HasEnumValue("BLUE"))
}

func TestBuildFromSDL_Errors(t *testing.T) {
	_, err := BuildFromSDL("dup", "type Query { a: String }\ntype Query { b: String }")
	require.Error(t, err)
	require.Contains(t, err.Error(), "defined more than once")

	_, err = BuildFromSDL("ext", "extend type Missing { a: String }")
	require.Error(t, err)
	require.Contains(t, err.Error(), "undefined type Missing")

	_, err = BuildFromSDL("syntax", "type Query {")
	require.Error(t, err)
}

func TestTypeRef(t *testing.T) {
	ref := NonNullType(ListType(NonNullType(NamedType("Int"))))
	require.Equal(t, "[Int!]!", ref.String())
	require.True(t, ref.IsNonNull())
	require.True(t, ref.IsList())
	require.Equal(t, "Int", ref.GetNamedType())
	require.Equal(t, "[Int!]", ref.Nullable().String())
	require.Same(t, ref, NonNullType(ref))
}

func TestRender(t *testing.T) {
	s, err := BuildFromSDL("render", `
schema { query: Root }

"""
A good boy.
"""
type Dog implements Pet {
  name: String!
  age(dogYears: Boolean!): Int
  bark(times: Int = 2): String @deprecated(reason: "too loud")
}

interface Pet { name: String! }

type Root { dogs: [Dog!]! }

union Anything = Dog

enum Size { SMALL LARGE }

input DogFilter { size: Size = SMALL }

scalar Time
`)
	require.NoError(t, err)

	want := `schema {
  query: Root
}

union Anything = Dog

"""
A good boy.
"""
type Dog implements Pet {
  name: String!
  age(dogYears: Boolean!): Int
  bark(times: Int = 2): String @deprecated(reason: "too loud")
}

input DogFilter {
  size: Size = SMALL
}

interface Pet {
  name: String!
}

type Root {
  dogs: [Dog!]!
}

enum Size {
  SMALL
  LARGE
}

scalar Time
`
	if diff := cmp.Diff(want, Render(s)); diff != "" {
		t.Fatalf("Render mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_RoundTrip(t *testing.T) {
	s, err := BuildFromSDL("starwars", starWarsSDL)
	require.NoError(t, err)

	again, err := BuildFromSDL("rendered", Render(s))
	require.NoError(t, err)
	require.Equal(t, Render(s), Render(again))
}
