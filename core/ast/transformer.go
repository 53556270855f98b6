package ast

import (
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/models"
)

// Transformer lowers a parsed module to CommonJS code that reads the free
// names require, module and exports.
type Transformer struct {
	target api.Target
}

func NewTransformer(target api.Target) *Transformer {
	return &Transformer{target: target}
}

func (t *Transformer) Transform(mod *models.ParsedModule) (string, error) {
	result := api.Transform(string(mod.Source), api.TransformOptions{
		Loader:     LoaderFor(mod.Path),
		Format:     api.FormatCommonJS,
		Target:     t.target,
		Sourcefile: mod.Path,
		LogLevel:   api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		return "", &models.TransformError{Path: mod.Path, Messages: formatMessages(mod.Path, result.Errors)}
	}

	for _, w := range result.Warnings {
		logger.Debug("Transformer: %s", formatMessages(mod.Path, []api.Message{w})[0])
	}

	return stripHashbang(string(result.Code)), nil
}

// stripHashbang drops a leading "#!" line, which is only legal at the very
// start of a script and would break the factory wrapping the module.
func stripHashbang(code string) string {
	if !strings.HasPrefix(code, "#!") {
		return code
	}
	if i := strings.IndexByte(code, '\n'); i >= 0 {
		return code[i+1:]
	}
	return ""
}
