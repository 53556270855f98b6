// Package ast wraps esbuild for the two source-level jobs the bundler needs:
// scanning a module for its import records and lowering it to a CommonJS
// function body.
package ast

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/models"
)

// importEquals matches TypeScript's `import x = require("y")`, which esbuild
// reports as a require call.
var importEquals = regexp.MustCompile(`(?m)^\s*(?:export\s+)?import\s+[\w$]+\s*=\s*require\s*\(\s*["']([^"']+)["']\s*\)`)

// Parser scans module sources for import records. It never resolves or
// loads the imports it finds.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse runs esbuild over src with every import marked external, recording
// each resolve request in source order. esbuild only asks once for an exact
// repeat of the same specifier and kind.
func (p *Parser) Parse(path string, src []byte) (*models.ParsedModule, error) {
	var (
		mu      sync.Mutex
		imports []models.ImportRecord
	)

	loader := LoaderFor(path)
	declared := importEqualsSpecifiers(loader, src)

	record := api.Plugin{
		Name: "minibundle-imports",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if kind, ok := importKindOf(args.Kind); ok {
						if kind == models.RequireCall && declared[args.Path] {
							kind = models.ImportStatement
						}
						mu.Lock()
						imports = append(imports, models.ImportRecord{Specifier: args.Path, Kind: kind})
						mu.Unlock()
					}
					return api.OnResolveResult{
						Path:     args.Path,
						External: true,
					}, nil
				})
		},
	}

	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   string(src),
			ResolveDir: filepath.Dir(path),
			Sourcefile: path,
			Loader:     loader,
		},
		Bundle:   true,
		Write:    false,
		Format:   api.FormatCommonJS,
		Platform: api.PlatformNeutral,
		Target:   api.ESNext,
		LogLevel: api.LogLevelSilent,
		Plugins:  []api.Plugin{record},
	})

	if len(result.Errors) > 0 {
		return nil, &models.ParseError{Path: path, Messages: formatMessages(path, result.Errors)}
	}

	logger.Debug("Parser: Found %d import records in %s", len(imports), path)

	return &models.ParsedModule{
		Path:    path,
		Source:  src,
		Imports: imports,
	}, nil
}

// importEqualsSpecifiers lists the specifiers of import-equals declarations
// in TypeScript sources. They are static imports, not runtime require calls.
func importEqualsSpecifiers(loader api.Loader, src []byte) map[string]bool {
	if loader != api.LoaderTS && loader != api.LoaderTSX {
		return nil
	}
	declared := make(map[string]bool)
	for _, m := range importEquals.FindAllSubmatch(src, -1) {
		declared[string(m[1])] = true
	}
	return declared
}

func importKindOf(kind api.ResolveKind) (models.ImportKind, bool) {
	switch kind {
	case api.ResolveJSImportStatement:
		return models.ImportStatement, true
	case api.ResolveJSRequireCall:
		return models.RequireCall, true
	case api.ResolveJSDynamicImport:
		return models.DynamicImport, true
	}
	return 0, false
}

func formatMessages(path string, msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Location == nil {
			out = append(out, fmt.Sprintf("%s: %s", path, msg.Text))
			continue
		}
		out = append(out, fmt.Sprintf("%s:%d:%d: %s",
			path, msg.Location.Line, msg.Location.Column+1, msg.Text))
	}
	return out
}
