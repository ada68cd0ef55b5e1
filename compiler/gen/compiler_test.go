package gen

import (
	"context"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/fhirx/compiler/load"
)

// fixtureOrder is the definition order of the fixture: foundational types
// by rank, then document order with nested types after their owner.
var fixtureOrder = []string{
	"Resource", "DomainResource", "Element", "BackboneElement", "Quantity",
	"Patient", "PatientContact", "PatientLink",
	"Observation", "ObservationReferenceRange", "ObservationComponent",
	"HumanName",
}

func compileFixture(t *testing.T, opts ...Option) (*Result, *MemoryOutput) {
	t.Helper()
	cfg, out := newTestConfig(t, opts...)
	c, err := NewCompiler(cfg)
	require.NoError(t, err)
	res, err := c.Compile(context.Background())
	require.NoError(t, err)
	return res, out
}

func TestCompile(t *testing.T) {
	res, out := compileFixture(t)

	t.Run("definitions", func(t *testing.T) {
		names := make([]string, len(res.Definitions))
		for i, d := range res.Definitions {
			names[i] = d.Name
		}
		assert.Equal(t, fixtureOrder, names)
		assert.Equal(t, &Definition{Name: "PatientContact", Type: "PatientContact", File: "resources/patient_contact.go"}, res.Definitions[6])
	})

	t.Run("files", func(t *testing.T) {
		want := []string{exportsFile, "fhir.go"}
		for _, name := range fixtureOrder {
			want = append(want, path.Join(DefaultResourcesPackage, fileName(name)))
		}
		want = append(want, "resources/model.go", "resources/registry.go")
		assert.ElementsMatch(t, want, res.Files)
		assert.Equal(t, res.Files, out.Names())
		assert.Equal(t, len(res.Files), res.Metrics.FilesGenerated)
	})

	t.Run("profiles and primitives are skipped", func(t *testing.T) {
		_, ok := out.File("resources/simple_quantity.go")
		assert.False(t, ok)
		_, ok = out.File("resources/boolean.go")
		assert.False(t, ok)
	})

	t.Run("registry", func(t *testing.T) {
		data, ok := out.File("resources/registry.go")
		require.True(t, ok)
		src := string(data)
		for _, name := range fixtureOrder {
			assert.Contains(t, src, "return New"+name+"(source)")
		}
	})

	t.Run("exports", func(t *testing.T) {
		data, ok := out.File(exportsFile)
		require.True(t, ok)
		src := string(data)
		assert.Contains(t, src, "package fhir")
		assert.NotContains(t, src, "extensions")
		assert.Less(t, strings.Index(src, "Resource "), strings.Index(src, "Patient "))

		data, ok = out.File("fhir.go")
		require.True(t, ok)
		assert.Contains(t, string(data), `OBSERVATION_REFERENCE_RANGE ResourceType = "ObservationReferenceRange"`)
	})

	t.Run("generated code parses", func(t *testing.T) {
		fset := token.NewFileSet()
		for _, name := range out.Names() {
			data, _ := out.File(name)
			_, err := parser.ParseFile(fset, name, data, parser.ParseComments)
			assert.NoError(t, err, name)
		}
	})

	t.Run("generated types check", func(t *testing.T) {
		fset := token.NewFileSet()
		var files []*ast.File
		for _, name := range out.Names() {
			if !strings.HasPrefix(name, DefaultResourcesPackage+"/") {
				continue
			}
			data, _ := out.File(name)
			f, err := parser.ParseFile(fset, name, data, 0)
			require.NoError(t, err)
			files = append(files, f)
		}
		conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
		_, err := conf.Check(testPackage+"/resources", fset, files, nil)
		require.NoError(t, err)
	})
}

func TestCompileIdempotent(t *testing.T) {
	_, first := compileFixture(t)
	_, second := compileFixture(t, WithWorkers(1))
	require.Equal(t, first.Names(), second.Names())
	for _, name := range first.Names() {
		a, _ := first.File(name)
		b, _ := second.File(name)
		assert.Equal(t, string(a), string(b), name)
	}
}

func TestCompileDirOutput(t *testing.T) {
	dir := t.TempDir()
	cfg, err := NewConfig(
		WithStructureDefinition("testdata", "fhir.json"),
		WithOutputPath(dir),
		WithPackage(testPackage),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	c, err := NewCompiler(cfg)
	require.NoError(t, err)
	res, err := c.Compile(context.Background())
	require.NoError(t, err)
	for _, name := range res.Files {
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name)))
		assert.NoError(t, err, name)
	}
}

func TestCompileErrors(t *testing.T) {
	discard := WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	t.Run("nil config", func(t *testing.T) {
		_, err := NewCompiler(nil)
		assert.True(t, IsConfigError(err))
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewCompiler(DefaultConfig())
		assert.True(t, IsConfigError(err))
	})

	t.Run("missing schema document", func(t *testing.T) {
		cfg, _ := newTestConfig(t, WithStructureDefinition(t.TempDir(), "none.json"))
		c, err := NewCompiler(cfg)
		require.NoError(t, err)
		_, err = c.Compile(context.Background())
		assert.True(t, IsEnvironmentError(err))
		assert.ErrorIs(t, err, ErrEnvironment)
	})

	t.Run("missing output directory", func(t *testing.T) {
		cfg, err := NewConfig(
			WithStructureDefinition("testdata", "fhir.json"),
			WithOutputPath(filepath.Join(t.TempDir(), "missing")),
			WithPackage(testPackage),
			discard,
		)
		require.NoError(t, err)
		c, err := NewCompiler(cfg)
		require.NoError(t, err)
		_, err = c.Compile(context.Background())
		assert.True(t, IsEnvironmentError(err))
	})

	t.Run("malformed schema document", func(t *testing.T) {
		cfg, _ := newTestConfig(t, WithStructureDefinition("../load/testdata/failure", "truncated.json"))
		c, err := NewCompiler(cfg)
		require.NoError(t, err)
		_, err = c.Compile(context.Background())
		assert.True(t, IsSchemaError(err))
	})

	t.Run("canceled", func(t *testing.T) {
		cfg, out := newTestConfig(t)
		c, err := NewCompiler(cfg)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = c.Compile(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, out.Names())
	})
}

func TestCompileEntriesFailFast(t *testing.T) {
	resource := func(id string, elements ...*load.Element) *load.Entry {
		return &load.Entry{Resource: &load.Resource{
			ID:       id,
			Type:     id,
			Kind:     load.KindComplexType,
			Snapshot: &load.Snapshot{Element: append([]*load.Element{el(id, 0, "*")}, elements...)},
		}}
	}

	tests := []struct {
		name    string
		entries []*load.Entry
		message string
	}{
		{
			name: "orphan element",
			entries: []*load.Entry{
				resource("Alpha", el("Alpha.name", 0, "1", "string")),
				resource("Beta", el("Beta.missing.child", 0, "1", "string")),
			},
			message: "not reachable",
		},
		{
			name: "unknown reference",
			entries: []*load.Entry{
				resource("Alpha", el("Alpha.coding", 0, "*", "Coding")),
			},
			message: "unknown type Coding",
		},
		{
			name: "nested name collides with a resource",
			entries: []*load.Entry{
				resource("Alpha", el("Alpha.beta", 0, "1", "BackboneElement"), el("Alpha.beta.name", 0, "1", "string")),
				resource("AlphaBeta", el("AlphaBeta.name", 0, "1", "string")),
			},
			message: "collides",
		},
		{
			name: "namespace constant collision",
			entries: []*load.Entry{
				resource("ABc"),
				resource("Abc"),
			},
			message: "constant ABC of type Abc collides with ABc",
		},
		{
			name: "runtime file collision",
			entries: []*load.Entry{
				resource("Registry"),
			},
			message: "runtime file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, out := newTestConfig(t)
			c, err := NewCompiler(cfg)
			require.NoError(t, err)
			_, err = c.CompileEntries(context.Background(), tt.entries)
			require.Error(t, err)
			assert.True(t, IsSchemaError(err))
			assert.Contains(t, err.Error(), tt.message)
			assert.Empty(t, out.Names(), "nothing is written on failure")
		})
	}

	t.Run("lenient unknown reference", func(t *testing.T) {
		cfg, out := newTestConfig(t, WithStrict(false))
		c, err := NewCompiler(cfg)
		require.NoError(t, err)
		res, err := c.CompileEntries(context.Background(), []*load.Entry{
			resource("Alpha", el("Alpha.coding", 0, "*", "Coding")),
		})
		require.NoError(t, err)
		require.Len(t, res.Definitions, 1)
		data, ok := out.File("resources/alpha.go")
		require.True(t, ok)
		assert.Contains(t, string(data), "func (m *Alpha) GetCodings() []Model {")
	})
}

func TestPatchFS(t *testing.T) {
	fsys := fstest.MapFS{
		"resources/patient.go":         {Data: []byte("package resources")},
		"resources/human_name.go":      {Data: []byte("package resources")},
		"resources/resource.go":        {Data: []byte("package resources")},
		"resources/model.go":           {Data: []byte("package resources")},
		"resources/registry.go":        {Data: []byte("package resources")},
		"extensions/patient.go":        {Data: []byte("package extensions")},
		"extensions/doc.go":            {Data: []byte("package extensions")},
		"extensions/patient_test.go":   {Data: []byte("package extensions")},
		"extensions/testdata/input.go": {Data: []byte("package testdata")},
	}

	t.Run("overrides", func(t *testing.T) {
		cfg, out := newTestConfig(t)
		c, err := NewCompiler(cfg)
		require.NoError(t, err)
		require.NoError(t, c.PatchFS(context.Background(), fsys))

		data, ok := out.File(exportsFile)
		require.True(t, ok)
		src := string(data)
		assert.Contains(t, src, "extensions.PatientExtension")
		assert.Contains(t, src, "resources.HumanName")
		assert.NotContains(t, src, "resources.Patient\n")
		assert.NotContains(t, src, "resources.NewModel")
		assert.NotContains(t, src, "Input")
		assert.Contains(t, src, `resources.Register("Patient"`)
		assert.Less(t, strings.Index(src, "Resource "), strings.Index(src, "HumanName "))
		assert.Equal(t, []string{exportsFile}, out.Names())
	})

	t.Run("missing extensions", func(t *testing.T) {
		cfg, _ := newTestConfig(t)
		c, err := NewCompiler(cfg)
		require.NoError(t, err)
		err = c.PatchFS(context.Background(), fstest.MapFS{"resources/patient.go": {}})
		assert.True(t, IsEnvironmentError(err))
		assert.Contains(t, err.Error(), "extensions directory not found")
	})

	t.Run("missing generated types", func(t *testing.T) {
		cfg, _ := newTestConfig(t)
		c, err := NewCompiler(cfg)
		require.NoError(t, err)
		err = c.PatchFS(context.Background(), fstest.MapFS{"extensions/patient.go": {}})
		assert.True(t, IsEnvironmentError(err))
	})

	t.Run("patch on disk", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "resources"), 0o755))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "extensions"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "resources", "patient.go"), []byte("package resources\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "extensions", "patient.go"), []byte("package extensions\n"), 0o644))

		cfg, out := newTestConfig(t, WithOutputPath(dir))
		c, err := NewCompiler(cfg)
		require.NoError(t, err)
		require.NoError(t, c.Patch(context.Background()))
		data, ok := out.File(exportsFile)
		require.True(t, ok)
		assert.Contains(t, string(data), "extensions.PatientExtension")
	})
}

func TestLoad(t *testing.T) {
	fixture, err := os.ReadFile("testdata/fhir.json")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/definitions.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/fhir+json")
		_, _ = w.Write(fixture)
	}))
	defer srv.Close()

	t.Run("stores the document", func(t *testing.T) {
		dir := t.TempDir()
		cfg, _ := newTestConfig(t, WithStructureDefinition(dir, "fhir.json"), WithURL(srv.URL+"/definitions.json"))
		c, err := NewCompiler(cfg)
		require.NoError(t, err)
		require.NoError(t, c.Load(context.Background(), load.WithMaxRetries(0)))

		entries, err := load.Read(filepath.Join(dir, "fhir.json"))
		require.NoError(t, err)
		assert.Len(t, entries, 10)

		res, err := c.Compile(context.Background())
		require.NoError(t, err)
		assert.Len(t, res.Definitions, len(fixtureOrder))
	})

	t.Run("no url", func(t *testing.T) {
		cfg, _ := newTestConfig(t)
		c, err := NewCompiler(cfg)
		require.NoError(t, err)
		err = c.Load(context.Background())
		assert.True(t, IsConfigError(err))
	})

	t.Run("not found", func(t *testing.T) {
		cfg, _ := newTestConfig(t, WithStructureDefinition(t.TempDir(), ""), WithURL(srv.URL+"/missing.json"))
		c, err := NewCompiler(cfg)
		require.NoError(t, err)
		err = c.Load(context.Background(), load.WithMaxRetries(0))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}
