package gen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/fhirx/compiler/load"
)

// Kind identifies the structural variant of an element model.
type Kind uint8

// Element model variants, in classification precedence order.
const (
	KindBackbone Kind = iota + 1
	KindUnion
	KindRecursiveReference
	KindPlain
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindBackbone:
		return "Backbone"
	case KindUnion:
		return "Union"
	case KindRecursiveReference:
		return "RecursiveReference"
	case KindPlain:
		return "Plain"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Classify decides which variant a raw element represents. It reports false
// for elements inherited from a supertype, which produce no model.
func Classify(def *load.Element) (Kind, bool) {
	if def.Inherited() {
		return 0, false
	}
	switch {
	case slices.ContainsFunc(def.Type, func(t *load.ElementType) bool {
		return t != nil && (t.Code == TypeBackboneElement || t.Code == TypeElement)
	}):
		return KindBackbone, true
	case strings.HasSuffix(def.Path, unionMarker):
		return KindUnion, true
	case strings.Contains(def.ContentReference, "#"):
		return KindRecursiveReference, true
	default:
		return KindPlain, true
	}
}

// ElementModel is the classified view of one element. The set of
// implementations is closed: Plain, Union, Backbone and RecursiveReference.
type ElementModel interface {
	// Kind returns the variant of the model.
	Kind() Kind
	// Path returns the element path the model is rooted at.
	Path() string
	// Name returns the normalized property name.
	Name() string
	// Dependencies returns the type names the property refers to.
	Dependencies() []string
	// Property returns the renderer input derived from the model.
	Property() *Property

	sealed()
}

// NewElementModel classifies def and builds its model. Backbone children
// are attached by the tree builder. It returns nil for inherited elements.
func NewElementModel(def *load.Element) (ElementModel, error) {
	kind, ok := Classify(def)
	if !ok {
		return nil, nil
	}
	base := element{def: def}
	switch kind {
	case KindBackbone:
		return &Backbone{element: base}, nil
	case KindUnion:
		alts := alternatives(def.Type)
		if len(alts) == 0 {
			return nil, NewSchemaError("", def.Path, "union element declares no alternative types", nil)
		}
		return &Union{element: base, Alternatives: alts}, nil
	case KindRecursiveReference:
		_, target, _ := strings.Cut(def.ContentReference, "#")
		if target == "" {
			return nil, NewSchemaError("", def.Path, fmt.Sprintf("malformed content reference %q", def.ContentReference), nil)
		}
		return &RecursiveReference{element: base, Target: target}, nil
	default:
		return &Plain{element: base}, nil
	}
}

// element holds what every variant shares.
type element struct {
	def *load.Element
}

func (e element) Path() string { return e.def.Path }

func (e element) Name() string { return lastSegment(e.def.Path) }

func (element) sealed() {}

func (e element) optional() bool { return e.def.Min == 0 }

func (e element) array() bool { return e.def.Max == "*" }

func (e element) description() Description {
	return Description{
		Short:      e.def.Short,
		Definition: e.def.Definition,
		Comment:    e.def.Comment,
	}
}

func (e element) property(kind Kind, name string, types ...string) *Property {
	return &Property{
		Kind:        kind,
		Name:        name,
		Types:       types,
		Optional:    e.optional(),
		Array:       e.array(),
		Description: e.description(),
	}
}

// Plain is an element of one declared type, possibly primitive.
type Plain struct {
	element
}

// Kind implements ElementModel.
func (*Plain) Kind() Kind { return KindPlain }

// Type returns the property type: the first declared type, or
// PrimitiveUnknown when the element declares none.
func (p *Plain) Type() string {
	if types := parseTypes(p.def.Type); len(types) > 0 {
		return types[0]
	}
	return PrimitiveUnknown
}

// Dependencies implements ElementModel. Every declared non-primitive type
// counts, not only the one the property is typed with.
func (p *Plain) Dependencies() []string {
	return nonPrimitive(parseTypes(p.def.Type))
}

// Property implements ElementModel.
func (p *Plain) Property() *Property {
	return p.property(KindPlain, p.Name(), p.Type())
}

// Alternative is one type a Union element may hold.
type Alternative struct {
	// Code is the declared type code, e.g. "dateTime".
	Code string
	// Type is the schema type the code maps to, e.g. "string".
	Type string
}

// Suffix returns the capitalized code that suffixes the property name in
// source records and storage keys.
func (a Alternative) Suffix() string {
	code := a.Code
	if i := strings.LastIndexAny(code, "/."); i >= 0 {
		code = code[i+1:]
	}
	return capitalize(code)
}

// Key returns the source and storage key of the alternative for property.
func (a Alternative) Key(property string) string {
	return property + a.Suffix()
}

func alternatives(types []*load.ElementType) []Alternative {
	var alts []Alternative
	for _, t := range types {
		if t == nil || t.Code == "" {
			continue
		}
		alt := Alternative{Code: t.Code, Type: mapType(t.Code)}
		if !slices.ContainsFunc(alts, func(a Alternative) bool { return a.Suffix() == alt.Suffix() }) {
			alts = append(alts, alt)
		}
	}
	return alts
}

// Union is a polymorphic element exposing several alternative types under
// one property name.
type Union struct {
	element
	Alternatives []Alternative
}

// Kind implements ElementModel.
func (*Union) Kind() Kind { return KindUnion }

// Name implements ElementModel. The polymorphic marker is dropped.
func (u *Union) Name() string { return strings.TrimSuffix(u.element.Name(), unionMarker) }

// Types returns the distinct schema types of the alternatives.
func (u *Union) Types() []string {
	var types []string
	for _, a := range u.Alternatives {
		if !slices.Contains(types, a.Type) {
			types = append(types, a.Type)
		}
	}
	return types
}

// Dependencies implements ElementModel.
func (u *Union) Dependencies() []string {
	return nonPrimitive(u.Types())
}

// Property implements ElementModel. Unions are never arrays.
func (u *Union) Property() *Property {
	p := u.property(KindUnion, u.Name(), u.Types()...)
	p.Array = false
	p.Alternatives = slices.Clone(u.Alternatives)
	return p
}

// Backbone is an element whose value is an anonymous nested structure. It
// is compiled into a nested type of its own.
type Backbone struct {
	element
	// Children are the models of the nested structure, in document order.
	Children []ElementModel
}

// Kind implements ElementModel.
func (*Backbone) Kind() Kind { return KindBackbone }

// TypeName returns the name of the nested type.
func (b *Backbone) TypeName() string { return pathTypeName(b.def.Path) }

// Description returns the text documenting the nested type.
func (b *Backbone) Description() string {
	if b.def.Definition != "" {
		return b.def.Definition
	}
	return b.def.Short
}

// Dependencies implements ElementModel.
func (b *Backbone) Dependencies() []string {
	return []string{b.TypeName()}
}

// Property implements ElementModel.
func (b *Backbone) Property() *Property {
	return b.property(KindBackbone, b.Name(), b.TypeName())
}

// RecursiveReference is an element whose shape is defined by another
// element of the same resource.
type RecursiveReference struct {
	element
	// Target is the referenced element path, without the leading '#'.
	Target string
}

// Kind implements ElementModel.
func (*RecursiveReference) Kind() Kind { return KindRecursiveReference }

// TypeName returns the type name derived from the referenced path.
func (r *RecursiveReference) TypeName() string { return pathTypeName(r.Target) }

// Dependencies implements ElementModel.
func (r *RecursiveReference) Dependencies() []string {
	return []string{r.TypeName()}
}

// Property implements ElementModel.
func (r *RecursiveReference) Property() *Property {
	return r.property(KindRecursiveReference, r.Name(), r.TypeName())
}

var (
	_ ElementModel = (*Plain)(nil)
	_ ElementModel = (*Union)(nil)
	_ ElementModel = (*Backbone)(nil)
	_ ElementModel = (*RecursiveReference)(nil)
)
