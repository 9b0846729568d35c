// Package coercion turns a validated operation into a concrete selection tree
// whose arguments carry native Go values.
//
// Argument values follow the scalar correspondence Int→int32, Float→float64,
// Boolean→bool, String and ID→string. Enum values are their names as string,
// input objects are map[string]any holding every declared field, and lists are
// []any. A nil value means "no value". Custom scalars pass through unchanged.
package coercion

import (
	"encoding/json"

	language "github.com/hanpama/matchbox/internal/language"
	schema "github.com/hanpama/matchbox/internal/schema"
)

// Operation is the coerced form of one executable operation.
type Operation struct {
	Kind      language.Operation `json:"kind"`
	Name      string             `json:"name,omitempty"`
	RootType  string             `json:"rootType"`
	Selection []Selection        `json:"selection"`
}

// Selection is either a *Field or a *Fragment.
type Selection interface {
	isSelection()
}

// Field is one selected field of Type.
type Field struct {
	// Type is the name of the composite type the field was selected on.
	Type  string
	Name  string
	Alias string
	// Arguments holds every argument the field declares. Omitted optional
	// arguments without a default map to nil.
	Arguments  map[string]any
	ReturnType *schema.TypeRef
	// Selection is nil for leaf fields and non-nil for composite fields.
	Selection []Selection
}

// Fragment is a sub-selection that applies when the runtime type is On.
type Fragment struct {
	On        string      `json:"on"`
	Selection []Selection `json:"selection"`
}

func (*Field) isSelection()    {}
func (*Fragment) isSelection() {}

// ResponseKey is the key the field's value is written under.
func (f *Field) ResponseKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Arg returns the coerced value of the named argument.
func (f *Field) Arg(name string) any { return f.Arguments[name] }

func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string         `json:"type"`
		Name       string         `json:"name"`
		Alias      string         `json:"alias,omitempty"`
		Arguments  map[string]any `json:"arguments,omitempty"`
		ReturnType string         `json:"returnType"`
		Selection  []Selection    `json:"selection,omitempty"`
	}{f.Type, f.Name, f.Alias, f.Arguments, f.ReturnType.String(), f.Selection})
}

// Fields returns the fields selected directly in sel, skipping fragments.
func Fields(sel []Selection) []*Field {
	out := make([]*Field, 0, len(sel))
	for _, s := range sel {
		if f, ok := s.(*Field); ok {
			out = append(out, f)
		}
	}
	return out
}

// ForType flattens sel for a value whose runtime type is concrete: direct
// fields plus the fields of every fragment on concrete, in selection order.
func ForType(sel []Selection, concrete string) []*Field {
	var out []*Field
	for _, s := range sel {
		switch s := s.(type) {
		case *Field:
			out = append(out, s)
		case *Fragment:
			if s.On == concrete {
				out = append(out, ForType(s.Selection, concrete)...)
			}
		}
	}
	return out
}
