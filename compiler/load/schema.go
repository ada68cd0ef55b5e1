// Package load reads the schema document that fhirx compiles: a list of
// StructureDefinition entries, each carrying a flattened element snapshot.
package load

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

// Kind is the structural kind tag of a schema resource.
type Kind string

// Structural kinds found in a schema document.
const (
	KindResource      Kind = "resource"
	KindPrimitiveType Kind = "primitive-type"
	KindComplexType   Kind = "complex-type"
	KindLogical       Kind = "logical"
)

// StructureDefinition is the resourceType of entries that define types.
const StructureDefinition = "StructureDefinition"

// AbstractModel is the base name used when a resource declares no base definition.
const AbstractModel = "AbstractModel"

// ErrEmptyDocument is returned when the schema document holds no entries.
var ErrEmptyDocument = errors.New("load: schema document has no entries")

type (
	// Entry wraps one resource definition of the schema document.
	Entry struct {
		FullURL  string    `json:"fullUrl,omitempty"`
		Resource *Resource `json:"resource"`
	}

	// Resource is a type definition: its identity, kind, base type and
	// element snapshot.
	Resource struct {
		ResourceType   string    `json:"resourceType,omitempty"`
		ID             string    `json:"id"`
		URL            string    `json:"url,omitempty"`
		Name           string    `json:"name,omitempty"`
		Type           string    `json:"type"`
		Kind           Kind      `json:"kind"`
		Description    string    `json:"description,omitempty"`
		Abstract       bool      `json:"abstract,omitempty"`
		BaseDefinition string    `json:"baseDefinition,omitempty"`
		Snapshot       *Snapshot `json:"snapshot,omitempty"`
	}

	// Snapshot holds the flattened element list of a resource.
	Snapshot struct {
		Element []*Element `json:"element"`
	}

	// Element is one field definition in a snapshot.
	Element struct {
		ID               string         `json:"id,omitempty"`
		Path             string         `json:"path"`
		Base             *Base          `json:"base,omitempty"`
		ContentReference string         `json:"contentReference,omitempty"`
		Short            string         `json:"short,omitempty"`
		Definition       string         `json:"definition,omitempty"`
		Comment          string         `json:"comment,omitempty"`
		Min              int            `json:"min"`
		Max              string         `json:"max,omitempty"`
		Type             []*ElementType `json:"type,omitempty"`
	}

	// Base points at the element an element was derived from.
	Base struct {
		Path string `json:"path"`
		Min  int    `json:"min"`
		Max  string `json:"max,omitempty"`
	}

	// ElementType is one declared type reference of an element.
	ElementType struct {
		Code          string   `json:"code"`
		TargetProfile []string `json:"targetProfile,omitempty"`
	}

	// bundle is the FHIR Bundle envelope that published definitions ship in.
	bundle struct {
		ResourceType string   `json:"resourceType"`
		Entry        []*Entry `json:"entry"`
	}
)

// Compilable reports whether the resource defines a type of its own that
// fhirx generates a model for: its type equals its id, it is not a primitive
// type, and it is a StructureDefinition (or carries no resourceType at all).
func (r *Resource) Compilable() bool {
	if r == nil || r.ID == "" {
		return false
	}
	if r.ResourceType != "" && r.ResourceType != StructureDefinition {
		return false
	}
	return r.Type == r.ID && r.Kind != KindPrimitiveType
}

// BaseName returns the last path segment of the base definition, which names
// the supertype, or AbstractModel when no base is declared.
func (r *Resource) BaseName() string {
	base := strings.TrimRight(r.BaseDefinition, "/")
	if base == "" {
		return AbstractModel
	}
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if base == "" {
		return AbstractModel
	}
	return base
}

// Elements returns the snapshot elements of the resource.
func (r *Resource) Elements() []*Element {
	if r.Snapshot == nil {
		return nil
	}
	return r.Snapshot.Element
}

// Inherited reports whether the element was declared by a supertype. An
// element without base information is considered newly declared.
func (e *Element) Inherited() bool {
	return e.Base != nil && e.Base.Path != "" && e.Base.Path != e.Path
}

// Codes returns the declared type codes of the element in document order.
func (e *Element) Codes() []string {
	codes := make([]string, 0, len(e.Type))
	for _, t := range e.Type {
		if t != nil && t.Code != "" {
			codes = append(codes, t.Code)
		}
	}
	return codes
}

// Parse decodes a schema document. Both a bare JSON array of entries and a
// Bundle object with an "entry" array are accepted.
func Parse(data []byte) ([]*Entry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	var entries []*Entry
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("load: decode entries: %w", err)
		}
	case '{':
		var b bundle
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("load: decode bundle: %w", err)
		}
		entries = b.Entry
	default:
		return nil, fmt.Errorf("load: unexpected document start %q", data[0])
	}
	out := entries[:0]
	for _, e := range entries {
		if e != nil && e.Resource != nil {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyDocument
	}
	return out, nil
}

// Read reads and parses the schema document at path.
func Read(path string) ([]*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Write persists entries as a JSON array at path, creating the parent
// directory when needed.
func Write(path string, entries []*Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("load: encode entries: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
