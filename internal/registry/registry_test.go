package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/matchbox/internal/language"
	schema "github.com/hanpama/matchbox/internal/schema"
)

func mustRegistry(t *testing.T, sdl string) *Registry {
	t.Helper()
	s, err := schema.BuildFromSDL("test", sdl)
	require.NoError(t, err)
	return New(s)
}

const petsSDL = `
type Query { pets: [Pet] search: [Result] size: Size }
interface Pet { name: String }
type Dog implements Pet { name: String barks: Boolean }
type Cat implements Pet { name: String meows: Boolean }
type Rock { weight: Int }
union Result = Dog | Rock
enum Size { SMALL LARGE }
input PetFilter { name: String }
scalar Time
`

func TestRegistry_Kinds(t *testing.T) {
	r := mustRegistry(t, petsSDL)

	require.True(t, r.IsScalar("Int"))
	require.True(t, r.IsScalar("Time"))
	require.False(t, r.IsScalar("Size"))
	require.True(t, r.IsEnum("Size"))
	require.True(t, r.IsLeaf("Size"))
	require.False(t, r.IsLeaf("Dog"))

	for _, name := range []string{"Query", "Pet", "Dog", "Result"} {
		_, ok := r.LookupComposite(name)
		require.True(t, ok, name)
	}
	_, ok := r.LookupComposite("Size")
	require.False(t, ok)
	_, ok = r.LookupComposite("Unknown")
	require.False(t, ok)

	_, ok = r.LookupInput("PetFilter")
	require.True(t, ok)
	require.True(t, r.IsInputType(schema.ListType(schema.NamedType("PetFilter"))))
	require.False(t, r.IsInputType(schema.NamedType("Dog")))
}

func TestRegistry_PossibleTypes(t *testing.T) {
	r := mustRegistry(t, petsSDL)

	require.Equal(t, []string{"Cat", "Dog"}, r.PossibleTypes("Pet"))
	require.Equal(t, []string{"Dog", "Rock"}, r.PossibleTypes("Result"))
	require.True(t, r.IsPossibleType("Pet", "Dog"))
	require.False(t, r.IsPossibleType("Pet", "Rock"))
	require.True(t, r.IsPossibleType("Result", "Rock"))
	require.False(t, r.IsPossibleType("Result", "Cat"))
	require.Empty(t, r.PossibleTypes("Dog"))
}

func TestRegistry_RootType(t *testing.T) {
	r := mustRegistry(t, petsSDL)
	require.True(t, r.HasSchemaDefinition())

	root, ok := r.RootType(language.Query)
	require.True(t, ok)
	require.Equal(t, "Query", root.Name)

	_, ok = r.RootType(language.Mutation)
	require.False(t, ok)

	empty := mustRegistry(t, `type Dog { name: String }`)
	require.False(t, empty.HasSchemaDefinition())
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r := mustRegistry(t, petsSDL)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = r.LookupComposite("Dog")
				_ = r.IsPossibleType("Pet", "Cat")
				_ = r.PossibleTypes("Result")
			}
		}()
	}
	wg.Wait()
}
