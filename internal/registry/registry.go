// Package registry indexes a Schema for the lookups performed while
// validating and coercing requests.
//
// A Registry is built once, typically at process start, and is never mutated
// afterwards. All methods are pure reads and safe for concurrent use without
// locking. Names that do not resolve to a type are not an error at build
// time; they surface when a request references them.
package registry

import (
	"sort"

	language "github.com/hanpama/matchbox/internal/language"
	schema "github.com/hanpama/matchbox/internal/schema"
)

type Registry struct {
	schema    *schema.Schema
	scalars   map[string]*schema.Type
	enums     map[string]*schema.Type
	inputs    map[string]*schema.Type
	composite map[string]*schema.Type
	// possible maps an abstract type name to the set of object types that
	// implement it (interfaces) or belong to it (unions).
	possible map[string]map[string]struct{}
}

// New indexes s in a single pass over its types.
func New(s *schema.Schema) *Registry {
	r := &Registry{
		schema:    s,
		scalars:   make(map[string]*schema.Type),
		enums:     make(map[string]*schema.Type),
		inputs:    make(map[string]*schema.Type),
		composite: make(map[string]*schema.Type),
		possible:  make(map[string]map[string]struct{}),
	}
	for name, t := range s.Types {
		if t.IsComposite() {
			r.composite[name] = t
		}
		switch t.Kind {
		case schema.TypeKindScalar:
			r.scalars[name] = t
		case schema.TypeKindEnum:
			r.enums[name] = t
		case schema.TypeKindInputObject:
			r.inputs[name] = t
		case schema.TypeKindObject:
			for _, iface := range t.Interfaces {
				r.addPossible(iface, name)
			}
		case schema.TypeKindInterface, schema.TypeKindUnion:
			for _, member := range t.PossibleTypes {
				r.addPossible(name, member)
			}
		}
	}
	return r
}

func (r *Registry) addPossible(abstract, object string) {
	set, ok := r.possible[abstract]
	if !ok {
		set = make(map[string]struct{})
		r.possible[abstract] = set
	}
	set[object] = struct{}{}
}

// Schema returns the indexed schema.
func (r *Registry) Schema() *schema.Schema { return r.schema }

func (r *Registry) IsScalar(name string) bool {
	_, ok := r.scalars[name]
	return ok
}

func (r *Registry) IsEnum(name string) bool {
	_, ok := r.enums[name]
	return ok
}

// IsLeaf reports whether name is a scalar or an enum.
func (r *Registry) IsLeaf(name string) bool { return r.IsScalar(name) || r.IsEnum(name) }

// Lookup returns any named type.
func (r *Registry) Lookup(name string) (*schema.Type, bool) {
	t, ok := r.schema.Types[name]
	return t, ok
}

// LookupComposite returns the object, interface or union type called name.
func (r *Registry) LookupComposite(name string) (*schema.Type, bool) {
	t, ok := r.composite[name]
	return t, ok
}

func (r *Registry) LookupEnum(name string) (*schema.Type, bool) {
	t, ok := r.enums[name]
	return t, ok
}

func (r *Registry) LookupInput(name string) (*schema.Type, bool) {
	t, ok := r.inputs[name]
	return t, ok
}

// IsInputType reports whether the innermost named type of ref may be used
// for arguments and variables.
func (r *Registry) IsInputType(ref *schema.TypeRef) bool {
	t, ok := r.Lookup(ref.GetNamedType())
	return ok && t.IsInput()
}

// HasSchemaDefinition reports whether any root operation type is known.
func (r *Registry) HasSchemaDefinition() bool {
	s := r.schema
	return s.Declared || s.QueryType != "" || s.MutationType != "" || s.SubscriptionType != ""
}

// RootType returns the object type serving op, if the schema declares one.
func (r *Registry) RootType(op language.Operation) (*schema.Type, bool) {
	name := r.schema.RootTypeName(op)
	if name == "" {
		return nil, false
	}
	t, ok := r.composite[name]
	if !ok || t.IsAbstract() {
		return nil, false
	}
	return t, true
}

// IsPossibleType reports whether object implements or belongs to abstract.
func (r *Registry) IsPossibleType(abstract, object string) bool {
	_, ok := r.possible[abstract][object]
	if !ok {
		return false
	}
	t, ok := r.composite[object]
	return ok && t.Kind == schema.TypeKindObject
}

// PossibleTypes lists the object types of abstract in lexical order.
func (r *Registry) PossibleTypes(abstract string) []string {
	set := r.possible[abstract]
	out := make([]string, 0, len(set))
	for name := range set {
		if t, ok := r.composite[name]; ok && t.Kind == schema.TypeKindObject {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
