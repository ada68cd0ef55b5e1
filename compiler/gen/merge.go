package gen

import (
	"path/filepath"
	"slices"
	"strings"
)

// Export is one entry of the re-export list.
type Export struct {
	Name string
	// Override marks names provided by the extensions package instead of the
	// generated one.
	Override bool
}

// Merge combines generated type names with hand-written override names. A
// generated name that is overridden is exported from the extensions package
// only. Overrides follow the generated names, then order is applied.
func Merge(generated, overrides, order []string) []Export {
	exports := make([]Export, 0, len(generated)+len(overrides))
	for _, name := range generated {
		if !slices.Contains(overrides, name) {
			exports = append(exports, Export{Name: name})
		}
	}
	for _, name := range overrides {
		if !slices.ContainsFunc(exports, func(e Export) bool { return e.Override && e.Name == name }) {
			exports = append(exports, Export{Name: name, Override: true})
		}
	}
	sortByRank(exports, func(e Export) string { return e.Name }, order)
	return exports
}

// NamesFromFiles returns the type names of the Go source files among files.
// Tests, documentation files and the names in skip are ignored.
func NamesFromFiles(files []string, skip ...string) []string {
	var names []string
	for _, file := range files {
		base := filepath.Base(file)
		if filepath.Ext(base) != ".go" || strings.HasSuffix(base, "_test.go") || base == "doc.go" || slices.Contains(skip, base) {
			continue
		}
		if name := typeNameFromFile(base); name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}
