package gen

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"time"

	"github.com/dave/jennifer/jen"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/fhirx/compiler/load"
)

// Runtime files of the generated types package.
const (
	modelFile    = "model.go"
	registryFile = "registry.go"
	exportsFile  = "exports.go"
)

// Definition is a compiled type: its names and the file it is written to.
type Definition struct {
	// Name is the Go type name.
	Name string
	// Type is the schema type the constructor is registered under.
	Type string
	// File is the slash-separated path of the type file, relative to the
	// output path.
	File string
}

// Result reports a compilation.
type Result struct {
	// Definitions lists the compiled types in export order.
	Definitions []*Definition
	// Files lists the written files, relative to the output path.
	Files   []string
	Metrics WriterMetrics
}

// Compiler sequences the compilation of a schema document.
type Compiler struct {
	cfg *Config
}

// NewCompiler validates cfg and creates a compiler.
func NewCompiler(cfg *Config) (*Compiler, error) {
	if cfg == nil {
		return nil, NewConfigError("Config", nil, "config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Compiler{cfg: cfg}, nil
}

// Config returns the validated configuration.
func (c *Compiler) Config() *Config { return c.cfg }

// Load downloads the schema document from the configured URL and stores it
// at the configured path.
func (c *Compiler) Load(ctx context.Context, opts ...load.FetchOption) error {
	url := c.cfg.StructureDefinition.URL
	if url == "" {
		return NewConfigError("StructureDefinition.URL", nil, "no URL to load the schema document from")
	}
	logger := c.cfg.logger()
	opts = append([]load.FetchOption{load.WithLogger(logger)}, opts...)
	entries, err := load.Fetch(ctx, url, opts...)
	if err != nil {
		return err
	}
	file := c.cfg.StructureDefinition.File()
	if err := load.Write(file, entries); err != nil {
		return NewEnvironmentError(file, "cannot store schema document", err)
	}
	logger.Info("schema document loaded", slog.String("url", url), slog.String("file", file), slog.Int("entries", len(entries)))
	return nil
}

// Compile reads the schema document and compiles it.
func (c *Compiler) Compile(ctx context.Context) (*Result, error) {
	file := c.cfg.StructureDefinition.File()
	if _, err := os.Stat(file); err != nil {
		return nil, NewEnvironmentError(file, "schema document not found", err)
	}
	if err := c.checkOutput(); err != nil {
		return nil, err
	}
	entries, err := load.Read(file)
	if err != nil {
		return nil, NewSchemaError("", "", "cannot read schema document", err)
	}
	return c.CompileEntries(ctx, entries)
}

// checkOutput fails when the default directory output does not exist.
func (c *Compiler) checkOutput() error {
	if out, ok := c.cfg.output().(DirOutput); ok {
		return out.Check()
	}
	return nil
}

// unit is the compilation result of one schema entry.
type unit struct {
	classes []*Class
	files   []*jen.File
}

// CompileEntries compiles the compilable entries and writes the generated
// types followed by the aggregate artifacts. Nothing is written unless every
// type builds and renders.
func (c *Compiler) CompileEntries(ctx context.Context, entries []*load.Entry) (*Result, error) {
	var (
		start     = time.Now()
		logger    = c.cfg.logger().With(slog.String("run", uuid.NewString()))
		resources []*load.Resource
	)
	for _, e := range entries {
		if e != nil && e.Resource.Compilable() {
			resources = append(resources, e.Resource)
		}
	}
	units := make([]unit, len(resources))

	// Phase 1: build every tree.
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.cfg.Workers)
	for i, res := range resources {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			classes, err := buildClasses(res)
			if err != nil {
				return err
			}
			units[i].classes = classes
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("trees built", slog.Int("resources", len(resources)))

	var classes []*Class
	for _, u := range units {
		classes = append(classes, u.classes...)
	}
	if err := checkCollisions(classes); err != nil {
		return nil, err
	}
	names := make([]string, len(classes))
	for i, cl := range classes {
		names[i] = cl.Name
	}
	g := NewGenerator(c.cfg, names)

	// Phase 2: render every class. Rendering is pure, so a failure leaves
	// the output untouched.
	eg, gctx = errgroup.WithContext(ctx)
	eg.SetLimit(c.cfg.Workers)
	for i := range units {
		eg.Go(func() error {
			for _, cl := range units[i].classes {
				if err := gctx.Err(); err != nil {
					return err
				}
				f, err := genClass(g, cl)
				if err != nil {
					return err
				}
				units[i].files = append(units[i].files, f)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	defs := make([]*Definition, len(classes))
	for i, cl := range classes {
		defs[i] = &Definition{Name: cl.Name, Type: cl.Type, File: path.Join(g.pkg, fileName(cl.Name))}
	}
	sortByRank(defs, func(d *Definition) string { return d.Name }, c.cfg.ExportOrder)

	// Phase 3: write.
	w := NewWriter(c.cfg.Formatter, c.cfg.output())
	eg, gctx = errgroup.WithContext(ctx)
	eg.SetLimit(c.cfg.Workers)
	var files []string
	for _, u := range units {
		for j, cl := range u.classes {
			name, f := path.Join(g.pkg, fileName(cl.Name)), u.files[j]
			files = append(files, name)
			eg.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return w.Write(name, f)
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	ordered := make([]string, len(defs))
	for i, d := range defs {
		ordered[i] = d.Name
	}
	aggregates := []struct {
		name string
		file *jen.File
	}{
		{path.Join(g.pkg, modelFile), genModel(g)},
		{path.Join(g.pkg, registryFile), genRegistry(g, defs)},
		{exportsFile, genExports(g, c.cfg.Namespace, c.cfg.Package, Merge(ordered, nil, c.cfg.ExportOrder))},
		{namespaceFile(c.cfg.Namespace), genNamespace(g, c.cfg.Namespace, ordered)},
	}
	for _, a := range aggregates {
		if err := w.Write(a.name, a.file); err != nil {
			return nil, err
		}
		files = append(files, a.name)
	}

	slices.Sort(files)
	res := &Result{Definitions: defs, Files: files, Metrics: w.Metrics()}
	logger.Info("compilation finished",
		slog.Int("types", len(defs)),
		slog.Int("files", len(files)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// buildClasses builds the class of res followed by its nested classes.
func buildClasses(res *load.Resource) ([]*Class, error) {
	tree, err := BuildTree(res.ID, res.Elements())
	if err != nil {
		return nil, err
	}
	name := goName(res.ID)
	base := res.BaseName()
	root := &Class{
		Name:         name,
		Type:         res.ID,
		Description:  res.Description,
		Abstract:     res.Abstract,
		Resource:     res.Kind == load.KindResource,
		Base:         base,
		Properties:   properties(tree.Models),
		Dependencies: Dependencies(name, base, tree.Models),
	}
	return append([]*Class{root}, tree.Nested...), nil
}

// checkCollisions fails when two classes share a name, a file or a
// namespace constant, or when a class would overwrite a runtime file.
func checkCollisions(classes []*Class) error {
	seen := make(map[string]*Class, len(classes))
	for _, cl := range classes {
		file := fileName(cl.Name)
		if file == modelFile || file == registryFile {
			return NewSchemaError(cl.Type, "", fmt.Sprintf("type name %s collides with a runtime file", cl.Name), nil)
		}
		for _, key := range []string{"name:" + cl.Name, "file:" + file} {
			if prev, ok := seen[key]; ok {
				return NewSchemaError(cl.Type, "", fmt.Sprintf("type %s collides with %s", cl.Name, prev.Type), nil)
			}
			seen[key] = cl
		}
		key := upperSnake(cl.Name)
		if prev, ok := seen["const:"+key]; ok {
			return NewSchemaError(cl.Type, "", fmt.Sprintf("constant %s of type %s collides with %s", key, cl.Name, prev.Type), nil)
		}
		seen["const:"+key] = cl
	}
	return nil
}

// Patch rewrites the re-export list so that types of the extensions
// directory replace their generated counterparts.
func (c *Compiler) Patch(ctx context.Context) error {
	return c.PatchFS(ctx, os.DirFS(c.cfg.OutputPath))
}

// PatchFS is like Patch but lists the generated and extension files from
// fsys, rooted at the output path.
func (c *Compiler) PatchFS(ctx context.Context, fsys fs.FS) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resources, err := fs.ReadDir(fsys, c.cfg.ResourcesPackage)
	if err != nil {
		return NewEnvironmentError(path.Join(c.cfg.OutputPath, c.cfg.ResourcesPackage), "generated types not found", err)
	}
	extensions, err := fs.ReadDir(fsys, ExtensionsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewEnvironmentError(path.Join(c.cfg.OutputPath, ExtensionsDir), "extensions directory not found", nil)
		}
		return NewEnvironmentError(path.Join(c.cfg.OutputPath, ExtensionsDir), "extensions directory not accessible", err)
	}

	generated := NamesFromFiles(entryNames(resources), modelFile, registryFile)
	overrides := NamesFromFiles(entryNames(extensions))
	exports := Merge(generated, overrides, c.cfg.ExportOrder)

	g := NewGenerator(c.cfg, generated)
	w := NewWriter(c.cfg.Formatter, c.cfg.output())
	if err := w.Write(exportsFile, genExports(g, c.cfg.Namespace, c.cfg.Package, exports)); err != nil {
		return err
	}
	c.cfg.logger().Info("exports patched",
		slog.Int("generated", len(generated)),
		slog.Int("overrides", len(overrides)),
	)
	return nil
}

func entryNames(entries []fs.DirEntry) []string {
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}
