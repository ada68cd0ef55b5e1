package gen

import (
	"github.com/dave/jennifer/jen"
)

// discriminatorKey is the source key naming the concrete type of a record.
const discriminatorKey = "resourceType"

// genModel renders model.go: the Model interface, the AbstractModel storage
// every generated type embeds, and the helpers the generated accessors use.
func genModel(g *Generator) *jen.File {
	f := g.newFile(g.pkg)
	m := func() *jen.Statement { return jen.Id("m") }
	self := func() *jen.Statement { return jen.Id("m").Op("*").Id(TypeAbstractModel) }
	storageOf := func() *jen.Statement { return jen.Id("m").Dot("model") }

	f.Comment("Model is implemented by every generated type.")
	f.Type().Id("Model").Interface(
		jen.Comment("ResourceType returns the schema type the value was built as."),
		jen.Id("ResourceType").Params().String(),
		jen.Comment("ToPlainObject returns the value as a loosely-typed record."),
		jen.Id("ToPlainObject").Params().Map(jen.String()).Any(),
	)

	f.Comment("Constructor builds a model from a decoded source record.")
	f.Type().Id("Constructor").Func().Params(jen.Id("source").Map(jen.String()).Any()).Id("Model")

	f.Comment("AbstractModel is the root of every generated type. It keeps property")
	f.Comment("values keyed by their source name.")
	f.Type().Id(TypeAbstractModel).Struct(
		jen.Id("resourceType").String(),
		jen.Id("discriminated").Bool(),
		jen.Id("model").Map(jen.String()).Any(),
	)

	f.Commentf("New%s creates an empty model. The source is read by derived types.", TypeAbstractModel)
	f.Func().Id("New"+TypeAbstractModel).Params(jen.Id("_").Map(jen.String()).Any()).Op("*").Id(TypeAbstractModel).Block(
		jen.Return(jen.Op("&").Id(TypeAbstractModel).Values(jen.Dict{
			jen.Id("resourceType"): jen.Lit(TypeAbstractModel),
			jen.Id("model"):        jen.Make(jen.Map(jen.String()).Any()),
		})),
	)

	f.Comment("ResourceType implements Model.")
	f.Func().Params(self()).Id("ResourceType").Params().String().Block(
		jen.Return(m().Dot("resourceType")),
	)

	f.Func().Params(self()).Id("stamp").Params(jen.Id("name").String(), jen.Id("discriminated").Bool()).Block(
		m().Dot("resourceType").Op("=").Id("name"),
		m().Dot("discriminated").Op("=").Id("discriminated"),
	)

	f.Func().Params(self()).Id("ensure").Params().Block(
		jen.If(storageOf().Op("==").Nil()).Block(
			storageOf().Op("=").Make(jen.Map(jen.String()).Any()),
		),
	)

	f.Comment("set stores v under key. Nil values remove the key.")
	f.Func().Params(self()).Id("set").Params(jen.Id("key").String(), jen.Id("v").Any()).Block(
		m().Dot("ensure").Call(),
		jen.If(jen.Id("isNil").Call(jen.Id("v"))).Block(
			jen.Delete(storageOf(), jen.Id("key")),
			jen.Return(),
		),
		storageOf().Index(jen.Id("key")).Op("=").Id("v"),
	)

	f.Comment("add appends v to the list stored under key. Nil values are dropped.")
	f.Func().Params(self()).Id("add").Params(jen.Id("key").String(), jen.Id("v").Any()).Block(
		m().Dot("ensure").Call(),
		jen.If(jen.Id("isNil").Call(jen.Id("v"))).Block(jen.Return()),
		jen.List(jen.Id("list"), jen.Id("_")).Op(":=").Add(storageOf()).Index(jen.Id("key")).Assert(jen.Index().Any()),
		storageOf().Index(jen.Id("key")).Op("=").Append(jen.Id("list"), jen.Id("v")),
	)

	f.Comment("clear removes keys.")
	f.Func().Params(self()).Id("clear").Params(jen.Id("keys").Op("...").String()).Block(
		jen.For(jen.List(jen.Id("_"), jen.Id("key")).Op(":=").Range().Id("keys")).Block(
			jen.Delete(storageOf(), jen.Id("key")),
		),
	)

	f.Comment("firstOf returns the value of the first key that is set, or nil.")
	f.Func().Params(self()).Id("firstOf").Params(jen.Id("keys").Op("...").String()).Any().Block(
		jen.For(jen.List(jen.Id("_"), jen.Id("key")).Op(":=").Range().Id("keys")).Block(
			jen.If(jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Add(storageOf()).Index(jen.Id("key")), jen.Id("ok")).Block(
				jen.Return(jen.Id("v")),
			),
		),
		jen.Return(jen.Nil()),
	)

	f.Comment("ToPlainObject implements Model. Nested models are converted recursively.")
	f.Func().Params(self()).Id("ToPlainObject").Params().Map(jen.String()).Any().Block(
		jen.Id("out").Op(":=").Make(jen.Map(jen.String()).Any(), jen.Len(storageOf()).Op("+").Lit(1)),
		jen.If(m().Dot("discriminated")).Block(
			jen.Id("out").Index(jen.Lit(discriminatorKey)).Op("=").Add(m().Dot("resourceType")),
		),
		jen.For(jen.List(jen.Id("key"), jen.Id("v")).Op(":=").Range().Add(storageOf())).Block(
			jen.Id("out").Index(jen.Id("key")).Op("=").Id("plain").Call(jen.Id("v")),
		),
		jen.Return(jen.Id("out")),
	)

	f.Comment("MarshalJSON encodes the plain object form of the model.")
	f.Func().Params(self()).Id("MarshalJSON").Params().Params(jen.Index().Byte(), jen.Error()).Block(
		jen.Return(jen.Qual("encoding/json", "Marshal").Call(m().Dot("ToPlainObject").Call())),
	)

	f.Func().Id("plain").Params(jen.Id("v").Any()).Any().Block(
		jen.Switch(jen.Id("v").Op(":=").Id("v").Assert(jen.Type())).Block(
			jen.Case(jen.Id("Model")).Block(jen.Return(jen.Id("v").Dot("ToPlainObject").Call())),
			jen.Case(jen.Index().Any()).Block(
				jen.Id("out").Op(":=").Make(jen.Index().Any(), jen.Len(jen.Id("v"))),
				jen.For(jen.List(jen.Id("i"), jen.Id("item")).Op(":=").Range().Id("v")).Block(
					jen.Id("out").Index(jen.Id("i")).Op("=").Id("plain").Call(jen.Id("item")),
				),
				jen.Return(jen.Id("out")),
			),
			jen.Default().Block(jen.Return(jen.Id("v"))),
		),
	)

	f.Func().Id("isNil").Params(jen.Id("v").Any()).Bool().Block(
		jen.If(jen.Id("v").Op("==").Nil()).Block(jen.Return(jen.True())),
		jen.Id("rv").Op(":=").Qual("reflect", "ValueOf").Call(jen.Id("v")),
		jen.Return(jen.Id("rv").Dot("Kind").Call().Op("==").Qual("reflect", "Pointer").Op("&&").Id("rv").Dot("IsNil").Call()),
	)

	tp := jen.Id("T").Any()
	f.Comment("valueOf returns the value stored under key, or the zero value.")
	f.Func().Id("valueOf").Types(tp.Clone()).Params(jen.Id("m").Op("*").Id(TypeAbstractModel), jen.Id("key").String()).Id("T").Block(
		jen.List(jen.Id("v"), jen.Id("_")).Op(":=").Add(storageOf()).Index(jen.Id("key")).Assert(jen.Id("T")),
		jen.Return(jen.Id("v")),
	)

	f.Comment("optionalOf returns the value stored under key, or nil when it is not set.")
	f.Func().Id("optionalOf").Types(tp.Clone()).Params(jen.Id("m").Op("*").Id(TypeAbstractModel), jen.Id("key").String()).Op("*").Id("T").Block(
		jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Add(storageOf()).Index(jen.Id("key")).Assert(jen.Id("T")),
		jen.If(jen.Op("!").Id("ok")).Block(jen.Return(jen.Nil())),
		jen.Return(jen.Op("&").Id("v")),
	)

	f.Comment("listOf returns the values of the list stored under key.")
	f.Func().Id("listOf").Types(tp.Clone()).Params(jen.Id("m").Op("*").Id(TypeAbstractModel), jen.Id("key").String()).Index().Id("T").Block(
		jen.List(jen.Id("list"), jen.Id("_")).Op(":=").Add(storageOf()).Index(jen.Id("key")).Assert(jen.Index().Any()),
		jen.Id("out").Op(":=").Make(jen.Index().Id("T"), jen.Lit(0), jen.Len(jen.Id("list"))),
		jen.For(jen.List(jen.Id("_"), jen.Id("item")).Op(":=").Range().Id("list")).Block(
			jen.If(jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("item").Assert(jen.Id("T")), jen.Id("ok")).Block(
				jen.Id("out").Op("=").Append(jen.Id("out"), jen.Id("v")),
			),
		),
		jen.Return(jen.Id("out")),
	)

	f.Comment("sortedKeys returns the keys of source in lexical order.")
	f.Func().Id("sortedKeys").Params(jen.Id("source").Map(jen.String()).Any()).Index().String().Block(
		jen.Id("keys").Op(":=").Make(jen.Index().String(), jen.Lit(0), jen.Len(jen.Id("source"))),
		jen.For(jen.Id("key").Op(":=").Range().Id("source")).Block(
			jen.Id("keys").Op("=").Append(jen.Id("keys"), jen.Id("key")),
		),
		jen.Qual("sort", "Strings").Call(jen.Id("keys")),
		jen.Return(jen.Id("keys")),
	)
	return f
}

// genRegistry renders registry.go: the constructor table of every compiled
// type and the discriminator lookup used for polymorphic values.
func genRegistry(g *Generator, defs []*Definition) *jen.File {
	f := g.newFile(g.pkg)

	// Constructors reach the registry through construct, so the table is
	// filled in init rather than by its declaration.
	f.Var().Id("registry").Map(jen.String()).Id("Constructor")

	f.Func().Id("init").Params().Block(
		jen.Id("registry").Op("=").Map(jen.String()).Id("Constructor").Values(jen.DictFunc(func(d jen.Dict) {
			for _, def := range defs {
				d[jen.Lit(def.Type)] = jen.Func().Params(jen.Id("source").Map(jen.String()).Any()).Id("Model").Block(
					jen.Return(jen.Id("New" + def.Name).Call(jen.Id("source"))),
				)
			}
		})),
	)

	f.Comment("Register installs c as the constructor of name. It replaces the")
	f.Comment("generated constructor and is meant to be called from init functions.")
	f.Func().Id("Register").Params(jen.Id("name").String(), jen.Id("c").Id("Constructor")).Block(
		jen.Id("registry").Index(jen.Id("name")).Op("=").Id("c"),
	)

	f.Comment("Lookup returns the constructor registered for name, or nil.")
	f.Func().Id("Lookup").Params(jen.Id("name").String()).Id("Constructor").Block(
		jen.Return(jen.Id("registry").Index(jen.Id("name"))),
	)

	f.Commentf("Discriminator returns the %s of a source record.", discriminatorKey)
	f.Func().Id("Discriminator").Params(jen.Id("source").Map(jen.String()).Any()).String().Block(
		jen.List(jen.Id("name"), jen.Id("_")).Op(":=").Id("source").Index(jen.Lit(discriminatorKey)).Assert(jen.String()),
		jen.Return(jen.Id("name")),
	)

	// Polymorphic values without a registered discriminator fall back to the
	// Resource constructor when one is compiled.
	fallback := jen.Id("New" + TypeAbstractModel).Call(jen.Id("source"))
	if g.known[TypeResource] {
		fallback = jen.Id("New" + TypeResource).Call(jen.Id("source"))
	}
	f.Comment("construct builds a polymorphic value from its discriminator.")
	f.Func().Id("construct").Params(jen.Id("source").Map(jen.String()).Any()).Id("Model").Block(
		jen.If(jen.Id("c").Op(":=").Id("Lookup").Call(jen.Id("Discriminator").Call(jen.Id("source"))), jen.Id("c").Op("!=").Nil()).Block(
			jen.Return(jen.Id("c").Call(jen.Id("source"))),
		),
		jen.Return(fallback),
	)
	return f
}
