package gen

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/mitchellh/go-wordwrap"
)

// generatedHeader marks every rendered file.
const generatedHeader = "Code generated by fhirx. DO NOT EDIT."

// commentWidth is the wrap width of generated doc comments.
const commentWidth = 76

// Generator renders classes and aggregate artifacts with jennifer. A
// Generator is immutable once built and safe for concurrent use.
type Generator struct {
	pkg    string
	header string
	strict bool
	logger *slog.Logger
	// known holds the Go names of every compiled type.
	known map[string]bool
}

// NewGenerator creates a generator for the compiled type names known. Type
// references outside known are resolved according to cfg.Strict.
func NewGenerator(cfg *Config, known []string) *Generator {
	g := &Generator{
		pkg:    cfg.ResourcesPackage,
		header: cfg.Header,
		strict: cfg.Strict,
		logger: cfg.logger(),
		known:  make(map[string]bool, len(known)),
	}
	for _, name := range known {
		g.known[name] = true
	}
	return g
}

// newFile creates a new Jennifer file with the header comment.
func (g *Generator) newFile(pkg string) *jen.File {
	f := jen.NewFile(pkg)
	f.HeaderComment(generatedHeader)
	if g.header != "" {
		for _, line := range strings.Split(strings.TrimRight(g.header, "\n"), "\n") {
			f.HeaderComment(strings.TrimSpace(strings.TrimPrefix(line, "//")))
		}
	}
	return f
}

// goName converts a schema type name to its Go identifier.
func goName(t string) string {
	return pascalCase(t)
}

type refKind uint8

const (
	refPrimitive refKind = iota
	refModel
	refClass
)

// typeRef is a resolved reference from a property to its type.
type typeRef struct {
	kind refKind
	// prim is the schema primitive of refPrimitive references.
	prim string
	// name is the Go type name of refClass references.
	name string
}

// resolve maps schema type t referenced by the element at path of owner.
// Types that are neither primitive nor compiled fail in strict mode and fall
// back to the Model interface otherwise.
func (g *Generator) resolve(owner, path, t string) (typeRef, error) {
	switch {
	case isPrimitive(t):
		return typeRef{kind: refPrimitive, prim: t}, nil
	case t == TypeResource:
		return typeRef{kind: refModel}, nil
	case g.known[goName(t)]:
		return typeRef{kind: refClass, name: goName(t)}, nil
	case g.strict:
		return typeRef{}, NewSchemaError(owner, path, fmt.Sprintf("reference to unknown type %s", t), nil)
	default:
		g.logger.Warn("unknown type reference, falling back to Model",
			slog.String("type", owner),
			slog.String("element", path),
			slog.String("reference", t),
		)
		return typeRef{kind: refModel}, nil
	}
}

// key identifies the Go type of the reference.
func (r typeRef) key() string {
	return fmt.Sprintf("%d/%s/%s", r.kind, r.prim, r.name)
}

// goType returns the Go type values of the reference are stored as.
func (r typeRef) goType() *jen.Statement {
	switch r.kind {
	case refPrimitive:
		return goPrimitives[r.prim]()
	case refClass:
		return jen.Op("*").Id(r.name)
	default:
		return jen.Id("Model")
	}
}

// decode returns the statement converting the raw source value src and
// passing the result to apply. Values of an unexpected shape are ignored.
func (r typeRef) decode(src jen.Code, apply func(jen.Code) jen.Code) jen.Code {
	switch {
	case r.kind == refPrimitive && r.prim == PrimitiveUnknown:
		return apply(src)
	case r.kind == refPrimitive:
		return jen.If(
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Add(src).Assert(r.goType()),
			jen.Id("ok"),
		).Block(apply(jen.Id("v")))
	case r.kind == refClass:
		return jen.If(
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Add(src).Assert(jen.Map(jen.String()).Any()),
			jen.Id("ok"),
		).Block(apply(jen.Id("New" + r.name).Call(jen.Id("v"))))
	default:
		return jen.If(
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Add(src).Assert(jen.Map(jen.String()).Any()),
			jen.Id("ok"),
		).Block(apply(jen.Id("construct").Call(jen.Id("v"))))
	}
}

// comment appends text to f as line comments, wrapped and split into
// paragraphs.
func comment(f *jen.File, paragraphs ...string) {
	first := true
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !first {
			f.Comment("//")
		}
		first = false
		for _, line := range strings.Split(wordwrap.WrapString(p, commentWidth), "\n") {
			if line = strings.TrimRight(line, " \t\r"); line == "" {
				f.Comment("//")
				continue
			}
			if strings.HasPrefix(line, "/") {
				// jen emits comments starting with "//" verbatim.
				line = "// " + line
			}
			f.Comment(line)
		}
	}
}
