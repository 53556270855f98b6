package models

import "fmt"

// ImportKind classifies how a specifier was written in the source.
type ImportKind int

const (
	ImportStatement ImportKind = iota // import / export ... from
	RequireCall                       // require("x") with a literal argument
	DynamicImport                     // import("x") with a literal argument
)

var importKindNames = map[ImportKind]string{
	ImportStatement: "import",
	RequireCall:     "require",
	DynamicImport:   "dynamic-import",
}

func (k ImportKind) String() string {
	if name, ok := importKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseImportKind maps a configuration name back to its kind.
func ParseImportKind(name string) (ImportKind, error) {
	for kind, n := range importKindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown import kind %q", name)
}

type ImportRecord struct {
	Specifier string
	Kind      ImportKind
}

// ParsedModule is what the parser hands back for one source file: the
// original text plus its import records in source order.
type ParsedModule struct {
	Path    string
	Source  []byte
	Imports []ImportRecord
}
