package gen

import (
	"bytes"
	"errors"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/imports"
)

// Formatter rewrites generated source before it is written.
type Formatter interface {
	Format(filename string, src []byte) ([]byte, error)
}

// FormatterFunc adapts a function to the Formatter interface.
type FormatterFunc func(filename string, src []byte) ([]byte, error)

// Format implements Formatter.
func (f FormatterFunc) Format(filename string, src []byte) ([]byte, error) {
	return f(filename, src)
}

var (
	// GoImports formats source with goimports, dropping unused imports.
	GoImports Formatter = FormatterFunc(func(filename string, src []byte) ([]byte, error) {
		return imports.Process(filename, src, nil)
	})
	// Verbatim leaves source untouched.
	Verbatim Formatter = FormatterFunc(func(_ string, src []byte) ([]byte, error) {
		return src, nil
	})
)

// Output receives generated files. Names are slash-separated and relative
// to the output root.
type Output interface {
	WriteFile(name string, data []byte) error
}

// DirOutput writes files below a directory, creating subdirectories.
type DirOutput struct {
	Root string
}

// WriteFile implements Output.
func (o DirOutput) WriteFile(name string, data []byte) error {
	path := filepath.Join(o.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Check reports an EnvironmentError when the root directory does not exist.
func (o DirOutput) Check() error {
	info, err := os.Stat(o.Root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NewEnvironmentError(o.Root, "output directory not found", nil)
	case err != nil:
		return NewEnvironmentError(o.Root, "output directory not accessible", err)
	case !info.IsDir():
		return NewEnvironmentError(o.Root, "output path is not a directory", nil)
	}
	return nil
}

// MemoryOutput keeps files in memory. It is safe for concurrent use.
type MemoryOutput struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemoryOutput creates an empty in-memory output.
func NewMemoryOutput() *MemoryOutput {
	return &MemoryOutput{files: make(map[string][]byte)}
}

// WriteFile implements Output.
func (o *MemoryOutput) WriteFile(name string, data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.files == nil {
		o.files = make(map[string][]byte)
	}
	o.files[name] = bytes.Clone(data)
	return nil
}

// File returns the content of the named file.
func (o *MemoryOutput) File(name string) ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.files[name]
	return data, ok
}

// Names returns the names of all files in lexical order.
func (o *MemoryOutput) Names() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Sorted(maps.Keys(o.files))
}

// WriterMetrics tracks generation performance
type WriterMetrics struct {
	FilesGenerated int
	TotalBytes     int64
	RenderTime     int64 // nanoseconds
	FormatTime     int64 // nanoseconds
	WriteTime      int64 // nanoseconds
}

// Writer renders jennifer files, formats them and hands them to an output.
type Writer struct {
	formatter Formatter
	out       Output

	mu      sync.Mutex
	metrics WriterMetrics
}

// NewWriter creates a writer. A nil formatter defaults to GoImports.
func NewWriter(formatter Formatter, out Output) *Writer {
	if formatter == nil {
		formatter = GoImports
	}
	return &Writer{formatter: formatter, out: out}
}

// Metrics returns a snapshot of the generation metrics.
func (w *Writer) Metrics() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// Write renders f and writes it under name.
func (w *Writer) Write(name string, f *jen.File) error {
	start := time.Now()
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return NewGenerationError("render", name, "render failed", err)
	}
	rendered := time.Now()

	formatted, err := w.formatter.Format(name, buf.Bytes())
	if err != nil {
		// Keep the unformatted source next to the target for debugging.
		_ = w.out.WriteFile(name+".error", buf.Bytes())
		return NewGenerationError("format", name, "formatter failed", err)
	}
	formattedAt := time.Now()

	if err := w.out.WriteFile(name, formatted); err != nil {
		return NewGenerationError("write", name, "write failed", err)
	}

	w.mu.Lock()
	w.metrics.FilesGenerated++
	w.metrics.TotalBytes += int64(len(formatted))
	w.metrics.RenderTime += rendered.Sub(start).Nanoseconds()
	w.metrics.FormatTime += formattedAt.Sub(rendered).Nanoseconds()
	w.metrics.WriteTime += time.Since(formattedAt).Nanoseconds()
	w.mu.Unlock()
	return nil
}
