package gen

import (
	"path"
	"strings"

	"github.com/dave/jennifer/jen"
)

// Directory names below the output path.
const (
	ExtensionsDir = "extensions"
	// extensionSuffix is appended to the names an override file declares.
	extensionSuffix = "Extension"
)

// namespacePkg returns the package name of the export index.
func namespacePkg(namespace string) string {
	return strings.ToLower(namespace)
}

// namespaceFile returns the file name of the export index.
func namespaceFile(namespace string) string {
	return snakeCase(namespace) + ".go"
}

// genNamespace renders the export index: one ResourceType constant per
// compiled name.
func genNamespace(g *Generator, namespace string, names []string) *jen.File {
	f := g.newFile(namespacePkg(namespace))

	f.Comment("ResourceType names a compiled type.")
	f.Type().Id("ResourceType").String()

	f.Const().DefsFunc(func(grp *jen.Group) {
		for _, name := range names {
			grp.Id(upperSnake(name)).Id("ResourceType").Op("=").Lit(name)
		}
	})

	f.Comment("String implements fmt.Stringer.")
	f.Func().Params(jen.Id("t").Id("ResourceType")).Id("String").Params().String().Block(
		jen.Return(jen.String().Call(jen.Id("t"))),
	)
	return f
}

// genExports renders the re-export list of the namespace package: an alias
// and a constructor per export, pointing at the generated or the override
// package, and the registration of overrides.
func genExports(g *Generator, namespace, pkg string, exports []Export) *jen.File {
	f := g.newFile(namespacePkg(namespace))
	resources := path.Join(pkg, g.pkg)
	extensions := path.Join(pkg, ExtensionsDir)
	f.ImportName(resources, g.pkg)
	f.ImportName(extensions, ExtensionsDir)

	source := func(e Export) (string, string) {
		if e.Override {
			return extensions, e.Name + extensionSuffix
		}
		return resources, e.Name
	}

	f.Type().DefsFunc(func(grp *jen.Group) {
		for _, e := range exports {
			qual, name := source(e)
			grp.Id(e.Name).Op("=").Qual(qual, name)
		}
	})

	f.Var().DefsFunc(func(grp *jen.Group) {
		for _, e := range exports {
			qual, name := source(e)
			grp.Id("New"+e.Name).Op("=").Qual(qual, "New"+name)
		}
	})

	var overrides []Export
	for _, e := range exports {
		if e.Override {
			overrides = append(overrides, e)
		}
	}
	if len(overrides) == 0 {
		return f
	}
	f.Func().Id("init").Params().BlockFunc(func(grp *jen.Group) {
		for _, e := range overrides {
			grp.Qual(resources, "Register").Call(
				jen.Lit(e.Name),
				jen.Func().Params(jen.Id("source").Map(jen.String()).Any()).Qual(resources, "Model").Block(
					jen.Return(jen.Qual(extensions, "New"+e.Name+extensionSuffix).Call(jen.Id("source"))),
				),
			)
		}
	})
	return f
}
