package gen

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// unionMarker is the path suffix of polymorphic (choice) elements.
const unionMarker = "[x]"

var (
	upperRun = regexp.MustCompile(`\.?([A-Z]+)`)
	upper    = cases.Upper(language.Und)
)

// capitalize upper-cases the first letter of s and leaves the rest untouched.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// lowerFirst lower-cases the first letter of s.
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// pathTypeName derives a type name from a dotted element path by
// capitalizing and concatenating its segments: "Patient.contact" becomes
// "PatientContact".
func pathTypeName(path string) string {
	var b strings.Builder
	for _, seg := range strings.Split(path, ".") {
		b.WriteString(capitalize(strings.TrimSuffix(seg, unionMarker)))
	}
	return b.String()
}

// lastSegment returns the last segment of a dotted path.
func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// snakeCase converts a type name to its file stem: "PatientContact" becomes
// "patient_contact".
func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// pascalCase is the inverse of snakeCase. Dashes are accepted as separators.
func pascalCase(stem string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(stem, func(r rune) bool { return r == '_' || r == '-' }) {
		b.WriteString(capitalize(part))
	}
	return b.String()
}

// upperSnake converts a type name to its enumeration key: "PatientContact"
// becomes "PATIENT_CONTACT". Runs of capitals stay together.
func upperSnake(name string) string {
	s := upperRun.ReplaceAllString(name, "_$1")
	return upper.String(strings.TrimPrefix(s, "_"))
}

// plural returns the plural form used by array accessors.
func plural(name string) string {
	return inflect.Pluralize(name)
}

// constrainedSuffix holds the file-name suffixes the go tool treats as
// build constraints.
var constrainedSuffix = func() map[string]struct{} {
	m := map[string]struct{}{"test": {}}
	for _, s := range strings.Fields(`aix android darwin dragonfly freebsd hurd illumos ios js linux
		nacl netbsd openbsd plan9 solaris wasip1 windows zos 386 amd64 amd64p32 arm armbe arm64
		arm64be loong64 mips mipsle mips64 mips64le mips64p32 mips64p32le ppc ppc64 ppc64le riscv
		riscv64 s390 s390x sparc sparc64 wasm`) {
		m[s] = struct{}{}
	}
	return m
}()

// genSuffix is appended to file stems that would otherwise be constrained.
const genSuffix = "_gen"

// fileName returns the Go file name a type is written to.
func fileName(name string) string {
	stem := snakeCase(name)
	if i := strings.LastIndexByte(stem, '_'); i >= 0 {
		if _, ok := constrainedSuffix[stem[i+1:]]; ok {
			stem += genSuffix
		}
	}
	return stem + ".go"
}

// typeNameFromFile is the inverse of fileName.
func typeNameFromFile(file string) string {
	stem := strings.TrimSuffix(file, ".go")
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	if trimmed, ok := strings.CutSuffix(stem, genSuffix); ok {
		if i := strings.LastIndexByte(trimmed, '_'); i >= 0 {
			if _, ok := constrainedSuffix[trimmed[i+1:]]; ok {
				stem = trimmed
			}
		}
	}
	return pascalCase(stem)
}
