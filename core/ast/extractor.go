package ast

import (
	"github.com/tristendillon/minibundle/core/models"
)

// SpecifierExtractor decides which import records of a module become graph
// edges.
type SpecifierExtractor interface {
	Extract(mod *models.ParsedModule) []string
}

// KindExtractor keeps the specifiers whose import kind is in its allowed set,
// preserving source order and duplicates.
type KindExtractor struct {
	kinds map[models.ImportKind]bool
}

// NewKindExtractor with no kinds discovers static import statements only.
func NewKindExtractor(kinds ...models.ImportKind) *KindExtractor {
	if len(kinds) == 0 {
		kinds = []models.ImportKind{models.ImportStatement}
	}
	allowed := make(map[models.ImportKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	return &KindExtractor{kinds: allowed}
}

func (e *KindExtractor) Extract(mod *models.ParsedModule) []string {
	var specifiers []string
	for _, rec := range mod.Imports {
		if e.kinds[rec.Kind] {
			specifiers = append(specifiers, rec.Specifier)
		}
	}
	return specifiers
}
