package gen

import (
	"slices"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/fhirx/compiler/load"
)

// Schema primitives every type code collapses to.
const (
	PrimitiveString  = "string"
	PrimitiveBoolean = "boolean"
	PrimitiveNumber  = "number"
	PrimitiveUnknown = "unknown"
)

// Distinguished type names.
const (
	// TypeResource is the polymorphic resource type. Values of this type are
	// constructed through the registry, keyed by their discriminator.
	TypeResource = "Resource"
	// TypeBackboneElement is the base of every Backbone-derived nested type.
	TypeBackboneElement = "BackboneElement"
	// TypeElement marks an anonymous structure, like TypeBackboneElement.
	TypeElement = "Element"
	// TypeAbstractModel is the root of every generated type.
	TypeAbstractModel = load.AbstractModel
)

// primitiveTypes maps schema type codes to schema primitives. Codes that are
// missing map to themselves.
var primitiveTypes = map[string]string{
	"http://hl7.org/fhirpath/System.String":   PrimitiveString,
	"http://hl7.org/fhirpath/System.Boolean":  PrimitiveBoolean,
	"http://hl7.org/fhirpath/System.Integer":  PrimitiveNumber,
	"http://hl7.org/fhirpath/System.Decimal":  PrimitiveNumber,
	"http://hl7.org/fhirpath/System.Date":     PrimitiveString,
	"http://hl7.org/fhirpath/System.DateTime": PrimitiveString,
	"http://hl7.org/fhirpath/System.Time":     PrimitiveString,

	"uri":          PrimitiveString,
	"url":          PrimitiveString,
	"id":           PrimitiveString,
	"uuid":         PrimitiveString,
	"code":         PrimitiveString,
	"date":         PrimitiveString,
	"dateTime":     PrimitiveString,
	"canonical":    PrimitiveString,
	"markdown":     PrimitiveString,
	"instant":      PrimitiveString,
	"integer":      PrimitiveNumber,
	"integer64":    PrimitiveNumber,
	"decimal":      PrimitiveNumber,
	"unsignedInt":  PrimitiveNumber,
	"positiveInt":  PrimitiveNumber,
	"base64Binary": PrimitiveString,
	"time":         PrimitiveString,
	"oid":          PrimitiveString,
	"xhtml":        PrimitiveString,
}

// goPrimitives maps schema primitives to the Go types of decoded JSON.
var goPrimitives = map[string]func() *jen.Statement{
	PrimitiveString:  jen.String,
	PrimitiveBoolean: jen.Bool,
	PrimitiveNumber:  jen.Float64,
	PrimitiveUnknown: jen.Any,
}

// mapType resolves a type code to its schema type name.
func mapType(code string) string {
	if t, ok := primitiveTypes[code]; ok {
		return t
	}
	return code
}

// isPrimitive reports whether t is a schema primitive.
func isPrimitive(t string) bool {
	_, ok := goPrimitives[t]
	return ok
}

// parseTypes maps the declared types of an element, dropping duplicates and
// keeping the first occurrence order.
func parseTypes(types []*load.ElementType) []string {
	var out []string
	for _, t := range types {
		if t == nil || t.Code == "" {
			continue
		}
		if name := mapType(t.Code); !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// nonPrimitive filters out schema primitives.
func nonPrimitive(types []string) []string {
	var out []string
	for _, t := range types {
		if !isPrimitive(t) {
			out = append(out, t)
		}
	}
	return out
}
