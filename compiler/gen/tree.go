package gen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/fhirx/compiler/load"
)

// Description is the documentation text of a property.
type Description struct {
	Short      string
	Definition string
	Comment    string
}

// Empty reports whether no text is set.
func (d Description) Empty() bool {
	return d.Short == "" && d.Definition == "" && d.Comment == ""
}

// Property is the shape of one generated property: what the class renderer
// consumes.
type Property struct {
	Kind Kind
	// Name is the property name as it appears in source records.
	Name string
	// Types are the candidate schema types. Only unions have more than one.
	Types []string
	// Alternatives are set for unions only.
	Alternatives []Alternative
	Optional     bool
	Array        bool
	Description  Description
}

// Method returns the exported name used by accessors and mutators.
func (p *Property) Method() string { return capitalize(p.Name) }

// Class is a type to render: a compiled resource or a nested type derived
// from a Backbone element.
type Class struct {
	// Name is the Go type name.
	Name string
	// Type is the schema type the class is registered under.
	Type        string
	Description string
	Abstract    bool
	// Resource marks classes whose serialized form carries a discriminator.
	Resource   bool
	Base       string
	Properties []*Property
	// Dependencies are the type names the class refers to, in first-seen
	// order, without the class itself and AbstractModel. Generated types
	// share one package and need no imports, so they only feed the doc
	// links of the rendered type.
	Dependencies []string
}

// Tree is the result of building one resource.
type Tree struct {
	// Models are the top-level element models in document order.
	Models []ElementModel
	// Nested are the classes of every Backbone, depth-first in document order.
	Nested []*Class
}

// reservedNames are names a nested type may never take.
var reservedNames = append([]string{TypeAbstractModel, "Model"}, DefaultExportOrder...)

// BuildTree builds the element model forest of the resource id from its
// flat element list.
func BuildTree(id string, elements []*load.Element) (*Tree, error) {
	b := &treeBuilder{
		id:       id,
		elements: elements,
		index:    make(map[string]*load.Element, len(elements)),
		visited:  make(map[string]bool, len(elements)),
	}
	for _, el := range elements {
		if el == nil || el.Path == "" {
			continue
		}
		if _, ok := b.index[el.Path]; !ok {
			b.index[el.Path] = el
		}
	}
	b.visited[id] = true
	models, err := b.children(id)
	if err != nil {
		return nil, err
	}
	if err := b.checkOrphans(); err != nil {
		return nil, err
	}
	return &Tree{Models: models, Nested: b.nested}, nil
}

type treeBuilder struct {
	id       string
	elements []*load.Element
	index    map[string]*load.Element
	visited  map[string]bool
	nested   []*Class
}

// children builds the models of the elements exactly one segment below
// parent.
func (b *treeBuilder) children(parent string) ([]ElementModel, error) {
	var (
		models []ElementModel
		prefix = parent + "."
	)
	for _, el := range b.elements {
		if el == nil || !strings.HasPrefix(el.Path, prefix) || strings.Contains(el.Path[len(prefix):], ".") {
			continue
		}
		if b.visited[el.Path] {
			continue
		}
		b.visited[el.Path] = true
		m, err := NewElementModel(el)
		if err != nil {
			return nil, b.wrap(err)
		}
		if m == nil {
			continue
		}
		switch m := m.(type) {
		case *Backbone:
			if err := b.backbone(m); err != nil {
				return nil, err
			}
		case *RecursiveReference:
			if err := b.resolve(m); err != nil {
				return nil, err
			}
		}
		models = append(models, m)
	}
	return models, nil
}

func (b *treeBuilder) backbone(m *Backbone) error {
	name := m.TypeName()
	if slices.Contains(reservedNames, name) {
		return NewSchemaError(b.id, m.Path(), fmt.Sprintf("nested type name %s collides with a foundational type", name), nil)
	}
	// The nested class is registered before its children so the result is
	// ordered depth-first with owners first.
	class := &Class{
		Name:        name,
		Type:        name,
		Description: m.Description(),
		Base:        TypeBackboneElement,
	}
	b.nested = append(b.nested, class)
	children, err := b.children(m.Path())
	if err != nil {
		return err
	}
	m.Children = children
	class.Properties = properties(children)
	class.Dependencies = Dependencies(name, class.Base, children)
	return nil
}

func (b *treeBuilder) resolve(m *RecursiveReference) error {
	target, ok := b.index[m.Target]
	if !ok {
		return NewSchemaError(b.id, m.Path(), fmt.Sprintf("unresolved content reference #%s", m.Target), nil)
	}
	if kind, _ := Classify(target); kind != KindBackbone {
		return NewSchemaError(b.id, m.Path(), fmt.Sprintf("content reference #%s does not name a nested structure", m.Target), nil)
	}
	return nil
}

// checkOrphans fails on declared elements that no traversal reached.
func (b *treeBuilder) checkOrphans() error {
	for _, el := range b.elements {
		if el == nil || el.Path == "" || b.visited[el.Path] || el.Inherited() {
			continue
		}
		return NewSchemaError(b.id, el.Path, "element is not reachable from the resource root", nil)
	}
	return nil
}

func (b *treeBuilder) wrap(err error) error {
	if se, ok := err.(*SchemaError); ok && se.Type == "" {
		se.Type = b.id
	}
	return err
}

// properties returns the property shapes of models, in order.
func properties(models []ElementModel) []*Property {
	props := make([]*Property, 0, len(models))
	for _, m := range models {
		props = append(props, m.Property())
	}
	return props
}

// Dependencies collects the dependencies of models, recursing into Backbone
// children, plus base. The owner name and AbstractModel are excluded.
func Dependencies(owner, base string, models []ElementModel) []string {
	var deps []string
	add := func(names ...string) {
		for _, n := range names {
			if n == "" || n == owner || n == TypeAbstractModel || slices.Contains(deps, n) {
				continue
			}
			deps = append(deps, n)
		}
	}
	var walk func([]ElementModel)
	walk = func(ms []ElementModel) {
		for _, m := range ms {
			add(m.Dependencies()...)
			if bb, ok := m.(*Backbone); ok {
				walk(bb.Children)
			}
		}
	}
	walk(models)
	add(base)
	return deps
}
