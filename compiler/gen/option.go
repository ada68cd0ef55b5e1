package gen

import (
	"errors"
	"log/slog"
)

// Option configures a compilation.
type Option func(*Config) error

// WithHeader sets the file header comment.
// The header is added at the top of each generated file.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithStructureDefinition sets the directory and file name of the schema
// document. An empty filename keeps the current one.
func WithStructureDefinition(dir, filename string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("StructureDefinition.Path", nil, "path cannot be empty")
		}
		c.StructureDefinition.Path = dir
		if filename != "" {
			c.StructureDefinition.Filename = filename
		}
		return nil
	}
}

// WithURL sets where the schema document is downloaded from.
func WithURL(url string) Option {
	return func(c *Config) error {
		c.StructureDefinition.URL = url
		return nil
	}
}

// WithOutputPath sets the output directory.
func WithOutputPath(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("OutputPath", nil, "output directory cannot be empty")
		}
		c.OutputPath = dir
		return nil
	}
}

// WithPackage sets the import path of the output directory.
// For example: "github.com/org/project/fhir".
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("Package", nil, "package cannot be empty")
		}
		c.Package = pkg
		return nil
	}
}

// WithNamespace sets the name of the export index.
func WithNamespace(namespace string) Option {
	return func(c *Config) error {
		if namespace == "" {
			return NewConfigError("Namespace", nil, "namespace cannot be empty")
		}
		c.Namespace = namespace
		return nil
	}
}

// WithResourcesPackage sets the package name of generated types.
func WithResourcesPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("ResourcesPackage", nil, "package cannot be empty")
		}
		c.ResourcesPackage = pkg
		return nil
	}
}

// WithExportOrder sets the names emitted first in aggregate artifacts.
func WithExportOrder(names ...string) Option {
	return func(c *Config) error {
		c.ExportOrder = append(StringList{}, names...)
		return nil
	}
}

// WithStrict toggles failing on unknown type references.
func WithStrict(strict bool) Option {
	return func(c *Config) error {
		c.Strict = strict
		return nil
	}
}

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return NewConfigError("Workers", n, "must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = logger
		return nil
	}
}

// WithFormatter sets the formatting filter of generated source.
func WithFormatter(f Formatter) Option {
	return func(c *Config) error {
		if f == nil {
			return NewConfigError("Formatter", nil, "formatter cannot be nil")
		}
		c.Formatter = f
		return nil
	}
}

// WithOutput sets the sink of generated files.
func WithOutput(out Output) Option {
	return func(c *Config) error {
		if out == nil {
			return NewConfigError("Output", nil, "output cannot be nil")
		}
		c.Output = out
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a Config with the defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := DefaultConfig()
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
