package gen

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"gopkg.in/yaml.v3"
)

// Defaults of the configuration.
const (
	DefaultFilename         = "structure-definition.json"
	DefaultNamespace        = "Fhir"
	DefaultResourcesPackage = "resources"
)

// Config holds the global configuration of a compilation.
type Config struct {
	// StructureDefinition locates the schema document.
	StructureDefinition StructureDefinition `yaml:"structureDefinition"`

	// OutputPath is the directory generated code is written to. It must
	// exist before compiling.
	OutputPath string `yaml:"outputPath"`

	// Package is the import path of OutputPath. The export list imports the
	// generated and extension packages relative to it.
	Package string `yaml:"package"`

	// Namespace names the export index; its lower-cased form is the package
	// name of the export files.
	Namespace string `yaml:"namespace,omitempty"`

	// ResourcesPackage is the package (and directory) of generated types.
	ResourcesPackage string `yaml:"resourcesPackage,omitempty"`

	// ExportOrder lists the names emitted first in aggregate artifacts.
	ExportOrder StringList `yaml:"exportOrder,omitempty"`

	// Strict fails compilation on references to types that are neither
	// primitive nor compiled. Otherwise they fall back to Model.
	Strict bool `yaml:"strict"`

	// Workers bounds the number of types compiled in parallel.
	Workers int `yaml:"workers,omitempty"`

	// Header is an optional comment added below the generated-code marker.
	Header string `yaml:"header,omitempty"`

	// Logger receives progress and warnings. Defaults to slog.Default().
	Logger *slog.Logger `yaml:"-"`

	// Formatter filters generated source. Defaults to GoImports.
	Formatter Formatter `yaml:"-"`

	// Output receives generated files. Defaults to a DirOutput at OutputPath.
	Output Output `yaml:"-"`
}

// StructureDefinition locates the schema document.
type StructureDefinition struct {
	// Path is the directory holding the document.
	Path string `yaml:"path"`
	// Filename defaults to DefaultFilename.
	Filename string `yaml:"filename,omitempty"`
	// URL is where `load` downloads the document from.
	URL string `yaml:"url,omitempty"`
}

// File returns the path of the schema document.
func (s StructureDefinition) File() string {
	name := s.Filename
	if name == "" {
		name = DefaultFilename
	}
	return filepath.Join(s.Path, name)
}

// DefaultConfig returns a config with every default set.
func DefaultConfig() *Config {
	return &Config{
		StructureDefinition: StructureDefinition{Filename: DefaultFilename},
		Namespace:           DefaultNamespace,
		ResourcesPackage:    DefaultResourcesPackage,
		ExportOrder:         StringList(slices.Clone(DefaultExportOrder)),
		Strict:              true,
		Workers:             runtime.GOMAXPROCS(0),
	}
}

// LoadConfig reads a YAML configuration file over the defaults. A missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first invalid setting, filling in defaults for the
// empty optional ones.
func (c *Config) Validate() error {
	if c.StructureDefinition.Path == "" {
		return NewConfigError("StructureDefinition.Path", nil, "path of the schema document is required")
	}
	if c.OutputPath == "" {
		return NewConfigError("OutputPath", nil, "output directory is required")
	}
	if c.Package == "" {
		return NewConfigError("Package", nil, "import path of the output directory is required")
	}
	if c.StructureDefinition.Filename == "" {
		c.StructureDefinition.Filename = DefaultFilename
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.ResourcesPackage == "" {
		c.ResourcesPackage = DefaultResourcesPackage
	}
	if c.ExportOrder == nil {
		c.ExportOrder = StringList(slices.Clone(DefaultExportOrder))
	}
	if c.Workers < 0 {
		return NewConfigError("Workers", c.Workers, "must not be negative")
	}
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return nil
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Config) output() Output {
	if c.Output != nil {
		return c.Output
	}
	return DirOutput{Root: c.OutputPath}
}

// StringList is a YAML type that can be either a string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler for StringList.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("expected string or list, got %v", node.Kind)
	}
}

// MarshalYAML implements yaml.Marshaler for StringList.
func (s StringList) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	return []string(s), nil
}
