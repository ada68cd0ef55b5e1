package gen

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
)

// genClass renders the file of one class: the struct, its constructor and
// an accessor/mutator pair per property.
func genClass(g *Generator, c *Class) (*jen.File, error) {
	base, err := g.base(c)
	if err != nil {
		return nil, err
	}
	refs := make([][]typeRef, len(c.Properties))
	for i, p := range c.Properties {
		for _, t := range propertyTypes(p) {
			ref, err := g.resolve(c.Type, c.Type+"."+p.Name, t)
			if err != nil {
				return nil, err
			}
			refs[i] = append(refs[i], ref)
		}
	}

	f := g.newFile(g.pkg)
	genClassStruct(f, c, base, g.related(c, base))
	genConstructor(f, c, base, refs)
	for i, p := range c.Properties {
		switch {
		case p.Kind == KindUnion:
			genUnionProperty(f, c, p, refs[i])
		case p.Array:
			genArrayProperty(f, c, p, refs[i][0])
		default:
			genProperty(f, c, p, refs[i][0])
		}
	}
	return f, nil
}

// propertyTypes returns the types to resolve for p: one per alternative for
// unions, the single property type otherwise.
func propertyTypes(p *Property) []string {
	if p.Kind != KindUnion {
		return p.Types[:1]
	}
	types := make([]string, len(p.Alternatives))
	for i, a := range p.Alternatives {
		types[i] = a.Type
	}
	return types
}

// base returns the Go name of the embedded base type of c.
func (g *Generator) base(c *Class) (string, error) {
	if c.Base == "" || c.Base == TypeAbstractModel {
		return TypeAbstractModel, nil
	}
	if name := goName(c.Base); g.known[name] {
		return name, nil
	}
	if g.strict {
		return "", NewSchemaError(c.Type, "", fmt.Sprintf("unknown base type %s", c.Base), nil)
	}
	g.logger.Warn("unknown base type, falling back to AbstractModel", "type", c.Type, "base", c.Base)
	return TypeAbstractModel, nil
}

// related returns the compiled dependencies of c other than its base.
func (g *Generator) related(c *Class, base string) []string {
	var names []string
	for _, d := range c.Dependencies {
		if name := goName(d); name != base && name != c.Name && g.known[name] {
			names = append(names, name)
		}
	}
	return names
}

func genClassStruct(f *jen.File, c *Class, base string, related []string) {
	f.Commentf("%s is the generated model of the %s type.", c.Name, c.Type)
	if c.Description != "" {
		f.Comment("//")
		comment(f, c.Description)
	}
	if c.Abstract {
		f.Comment("//")
		f.Commentf("%s is abstract: values only exist as part of a derived type.", c.Name)
	}
	if len(related) > 0 {
		links := make([]string, len(related))
		for i, name := range related {
			links[i] = "[" + name + "]"
		}
		f.Comment("//")
		comment(f, "Related types: "+strings.Join(links, ", ")+".")
	}
	f.Type().Id(c.Name).Struct(jen.Id(base))
}

func genConstructor(f *jen.File, c *Class, base string, refs [][]typeRef) {
	f.Commentf("New%s creates a %s from a decoded source record. Unknown keys and", c.Name, c.Name)
	f.Comment("values of an unexpected shape are ignored.")
	f.Func().Id("New"+c.Name).Params(jen.Id("source").Map(jen.String()).Any()).Op("*").Id(c.Name).BlockFunc(func(grp *jen.Group) {
		grp.Id("m").Op(":=").Op("&").Id(c.Name).Values(jen.Dict{
			jen.Id(base): jen.Op("*").Id("New" + base).Call(jen.Id("source")),
		})
		grp.Id("m").Dot("stamp").Call(jen.Lit(c.Type), jen.Lit(c.Resource))
		if len(c.Properties) == 0 {
			grp.Return(jen.Id("m"))
			return
		}
		grp.For(jen.List(jen.Id("_"), jen.Id("key")).Op(":=").Range().Id("sortedKeys").Call(jen.Id("source"))).Block(
			jen.Switch(jen.Id("value").Op(":=").Id("source").Index(jen.Id("key")), jen.Id("key")).BlockFunc(func(sw *jen.Group) {
				for i, p := range c.Properties {
					genDecodeCases(sw, p, refs[i])
				}
			}),
		)
		grp.Return(jen.Id("m"))
	})
}

// genDecodeCases writes the switch cases that decode property p.
func genDecodeCases(sw *jen.Group, p *Property, refs []typeRef) {
	value := jen.Id("value")
	switch {
	case p.Kind == KindUnion:
		for i, a := range p.Alternatives {
			setter := "Set" + p.Method() + a.Suffix()
			sw.Case(jen.Lit(a.Key(p.Name))).Block(refs[i].decode(value, func(v jen.Code) jen.Code {
				return jen.Id("m").Dot(setter).Call(v)
			}))
		}
	case p.Array:
		adder := "Add" + p.Method()
		sw.Case(jen.Lit(p.Name)).Block(
			jen.If(
				jen.List(jen.Id("list"), jen.Id("ok")).Op(":=").Id("value").Assert(jen.Index().Any()),
				jen.Id("ok"),
			).Block(
				jen.For(jen.List(jen.Id("_"), jen.Id("item")).Op(":=").Range().Id("list")).Block(
					refs[0].decode(jen.Id("item"), func(v jen.Code) jen.Code {
						return jen.Id("m").Dot(adder).Call(v)
					}),
				),
			),
		)
	default:
		setter := "Set" + p.Method()
		sw.Case(jen.Lit(p.Name)).Block(refs[0].decode(value, func(v jen.Code) jen.Code {
			return jen.Id("m").Dot(setter).Call(v)
		}))
	}
}

// receiver returns the method receiver of class c.
func receiver(c *Class) *jen.Statement {
	return jen.Id("m").Op("*").Id(c.Name)
}

// storage returns the expression addressing the storage of the receiver.
func storage() *jen.Statement {
	return jen.Op("&").Id("m").Dot(TypeAbstractModel)
}

func propertyDoc(f *jen.File, p *Property) {
	d := p.Description
	if d.Empty() {
		return
	}
	f.Comment("//")
	comment(f, d.Short, d.Definition, d.Comment)
}

func genProperty(f *jen.File, c *Class, p *Property, ref typeRef) {
	setter, getter := "Set"+p.Method(), "Get"+p.Method()

	f.Commentf("%s sets the %s property.", setter, p.Name)
	propertyDoc(f, p)
	f.Func().Params(receiver(c)).Id(setter).Params(jen.Id("v").Add(ref.goType())).Op("*").Id(c.Name).Block(
		jen.Id("m").Dot("set").Call(jen.Lit(p.Name), jen.Id("v")),
		jen.Return(jen.Id("m")),
	)

	// Optional primitives are nullable, every other type already is or
	// reads as its zero value.
	nullable := p.Optional && ref.kind == refPrimitive && ref.prim != PrimitiveUnknown
	if nullable {
		f.Commentf("%s returns the %s property, or nil when it is not set.", getter, p.Name)
	} else {
		f.Commentf("%s returns the %s property.", getter, p.Name)
	}
	propertyDoc(f, p)
	if nullable {
		f.Func().Params(receiver(c)).Id(getter).Params().Op("*").Add(ref.goType()).Block(
			jen.Return(jen.Id("optionalOf").Types(ref.goType()).Call(storage(), jen.Lit(p.Name))),
		)
		return
	}
	f.Func().Params(receiver(c)).Id(getter).Params().Add(ref.goType()).Block(
		jen.Return(jen.Id("valueOf").Types(ref.goType()).Call(storage(), jen.Lit(p.Name))),
	)
}

func genArrayProperty(f *jen.File, c *Class, p *Property, ref typeRef) {
	adder, getter := "Add"+p.Method(), "Get"+plural(p.Method())

	f.Commentf("%s appends a value to the %s property.", adder, p.Name)
	propertyDoc(f, p)
	f.Func().Params(receiver(c)).Id(adder).Params(jen.Id("v").Add(ref.goType())).Op("*").Id(c.Name).Block(
		jen.Id("m").Dot("add").Call(jen.Lit(p.Name), jen.Id("v")),
		jen.Return(jen.Id("m")),
	)

	f.Commentf("%s returns the values of the %s property.", getter, p.Name)
	propertyDoc(f, p)
	f.Func().Params(receiver(c)).Id(getter).Params().Index().Add(ref.goType()).Block(
		jen.Return(jen.Id("listOf").Types(ref.goType()).Call(storage(), jen.Lit(p.Name))),
	)
}

func genUnionProperty(f *jen.File, c *Class, p *Property, refs []typeRef) {
	setter, getter := "Set"+p.Method(), "Get"+p.Method()
	keys := make([]jen.Code, len(p.Alternatives))
	for i, a := range p.Alternatives {
		keys[i] = jen.Lit(a.Key(p.Name))
	}

	f.Commentf("%s sets the %s property to v, replacing any alternative set before.", setter, p.Name)
	f.Comment("Values of a type no alternative accepts clear the property.")
	propertyDoc(f, p)
	f.Func().Params(receiver(c)).Id(setter).Params(jen.Id("v").Any()).Op("*").Id(c.Name).Block(
		jen.Id("m").Dot("clear").Call(keys...),
		jen.Switch(jen.Id("x").Op(":=").Id("v").Assert(jen.Type())).BlockFunc(func(sw *jen.Group) {
			seen := make(map[string]bool)
			for i, a := range p.Alternatives {
				// Alternatives sharing a Go type are indistinguishable; the
				// first one wins.
				if key := refs[i].key(); !seen[key] {
					seen[key] = true
					sw.Case(refs[i].goType()).Block(
						jen.Id("m").Dot("set").Call(jen.Lit(a.Key(p.Name)), jen.Id("x")),
					)
				}
			}
		}),
		jen.Return(jen.Id("m")),
	)

	for i, a := range p.Alternatives {
		name := setter + a.Suffix()
		f.Commentf("%s sets the %s property to a %s value.", name, p.Name, a.Code)
		f.Func().Params(receiver(c)).Id(name).Params(jen.Id("v").Add(refs[i].goType())).Op("*").Id(c.Name).Block(
			jen.Id("m").Dot("clear").Call(keys...),
			jen.Id("m").Dot("set").Call(jen.Lit(a.Key(p.Name)), jen.Id("v")),
			jen.Return(jen.Id("m")),
		)
	}

	f.Commentf("%s returns the value of the first %s alternative that is set, or nil.", getter, p.Name)
	propertyDoc(f, p)
	f.Func().Params(receiver(c)).Id(getter).Params().Any().Block(
		jen.Return(jen.Id("m").Dot("firstOf").Call(keys...)),
	)
}
