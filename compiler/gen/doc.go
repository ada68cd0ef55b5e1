// Package gen compiles FHIR StructureDefinition snapshots into Go types.
//
// # Architecture
//
// The compilation pipeline follows this flow:
//
//	schema document (load.Entry list)
//	        ↓
//	   Classify + BuildTree (ElementModel forest per resource)
//	        ↓
//	   Class (name, base, ordered Property shapes, nested Classes)
//	        ↓
//	   Generator (jennifer rendering)
//	        ↓
//	   Writer (Formatter → Output)
//
// # Key Types
//
//   - ElementModel: the classified view of one element. Implementations are
//     Plain, Union, Backbone and RecursiveReference.
//   - Class: one type to render.
//   - Compiler: sequences loading, compilation and the merge pass.
//   - Config: global configuration, loaded from YAML or built with Options.
//
// # Generated Layout
//
//	<output>/resources/<type>.go   one file per compiled type
//	<output>/resources/model.go    Model, AbstractModel and accessors
//	<output>/resources/registry.go constructors keyed by discriminator
//	<output>/exports.go            aliases and constructors, overrides applied
//	<output>/<namespace>.go        ResourceType constants
//	<output>/extensions/           hand-written overrides, read by Patch
//
// # Error Handling
//
// The package uses structured error types:
//
//   - SchemaError: malformed schema documents
//   - ConfigError: configuration errors
//   - GenerationError: rendering, formatting or write failures
//   - EnvironmentError: missing schema document or output directory
//
// Example error handling:
//
//	if _, err := c.Compile(ctx); err != nil {
//		var schemaErr *gen.SchemaError
//		if errors.As(err, &schemaErr) {
//			log.Printf("type %s: %s", schemaErr.Type, schemaErr.Message)
//		}
//	}
package gen
