package gen

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/require"

	"github.com/syssam/fhirx/compiler/load"
)

const testPackage = "example.com/app/fhir"

// loadFixture reads the shared schema document.
func loadFixture(t *testing.T) []*load.Entry {
	t.Helper()
	entries, err := load.Read("testdata/fhir.json")
	require.NoError(t, err)
	return entries
}

// fixtureResource returns the resource with the given id from the fixture.
func fixtureResource(t *testing.T, id string) *load.Resource {
	t.Helper()
	for _, e := range loadFixture(t) {
		if e.Resource.ID == id {
			return e.Resource
		}
	}
	t.Fatalf("resource %s not in fixture", id)
	return nil
}

// newTestConfig returns a valid config writing to memory without
// formatting.
func newTestConfig(t *testing.T, opts ...Option) (*Config, *MemoryOutput) {
	t.Helper()
	out := NewMemoryOutput()
	base := []Option{
		WithStructureDefinition("testdata", "fhir.json"),
		WithOutputPath(t.TempDir()),
		WithPackage(testPackage),
		WithFormatter(Verbatim),
		WithOutput(out),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	cfg, err := NewConfig(append(base, opts...)...)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg, out
}

// el builds a declared element of the given path and type codes.
func el(path string, min int, max string, codes ...string) *load.Element {
	e := &load.Element{
		Path: path,
		Min:  min,
		Max:  max,
		Base: &load.Base{Path: path, Min: min, Max: max},
	}
	for _, c := range codes {
		e.Type = append(e.Type, &load.ElementType{Code: c})
	}
	return e
}

// inherited builds an element declared by the supertype base.
func inherited(path, base string, codes ...string) *load.Element {
	e := el(path, 0, "1", codes...)
	e.Base.Path = base
	return e
}

// ref builds a content reference element.
func ref(path, target string) *load.Element {
	e := el(path, 0, "1")
	e.ContentReference = target
	return e
}

// render returns the source of f.
func render(f *jen.File) string {
	return fmt.Sprintf("%#v", f)
}
