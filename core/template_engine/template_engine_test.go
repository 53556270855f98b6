package template_engine

import (
	"testing"
	"text/template"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type module struct {
	ID      int
	Code    string
	Mapping string
}

type runtimeData struct {
	EntryID int
	Modules []module
}

func TestRuntimeTemplatesAreValid(t *testing.T) {
	te := NewTemplateEngine()
	require.NoError(t, te.ValidateTemplate(RuntimeCached))
	require.NoError(t, te.ValidateTemplate(RuntimeLegacy))
}

func TestListTemplates(t *testing.T) {
	names, err := NewTemplateEngine().ListTemplates("runtime")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"runtime/cached.js.tmpl", "runtime/legacy.js.tmpl"}, names)
}

func TestRenderLegacyRuntime(t *testing.T) {
	out, err := NewTemplateEngine().Render(RuntimeLegacy, runtimeData{
		Modules: []module{
			{ID: 0, Code: `const b = require("./b");`, Mapping: `{"./b":1}`},
			{ID: 1, Code: `module.exports = 1;`, Mapping: `{}`},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "function localRequire(name){ return require(mapping[name]); }")
	assert.Contains(t, out, "require(0);")
	assert.Contains(t, out, "0: [\n    function(require, module, exports){\nconst b = require(\"./b\");\n    },\n    {\"./b\":1}\n  ],")
	assert.Contains(t, out, "1: [")
	assert.NotContains(t, out, "cache")
}

func TestRenderDoesNotEscapeCode(t *testing.T) {
	out, err := NewTemplateEngine().Render(RuntimeCached, runtimeData{
		Modules: []module{{ID: 0, Code: `if (a < b && c > d) {}`, Mapping: `{}`}},
	})
	require.NoError(t, err)
	assert.Contains(t, out, `if (a < b && c > d) {}`)
	assert.Contains(t, out, "const cache = {};")
}

func TestMissingTemplate(t *testing.T) {
	te := NewTemplateEngine()
	_, err := te.Render(TemplateRef{Path: "runtime/nope.js.tmpl"}, nil)
	assert.ErrorContains(t, err, "failed to read template file")
	assert.Error(t, te.ValidateTemplate(TemplateRef{Path: "runtime"}))
}

func TestCustomFuncs(t *testing.T) {
	te := NewTemplateEngineWithFuncs(template.FuncMap{"shout": func(s string) string { return s + "!" }})
	_, ok := te.funcMap["shout"]
	assert.True(t, ok)
	_, ok = te.funcMap["title"]
	assert.True(t, ok)
}

func TestDefaultFuncs(t *testing.T) {
	funcs := getDefaultFuncMap()
	assert.Len(t, funcs, 2)
	assert.Contains(t, funcs, "title")
	assert.Contains(t, funcs, "js")
}

func TestGenerateFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/src/greet.js", []byte("keep me"), 0o644))

	te := NewTemplateEngine()
	data := map[string]string{"Name": "minibundle", "OutputDir": "dist"}

	written, err := te.GenerateFolder(fs, InitProject, "/proj", data, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/proj/.gitignore", "/proj/src/index.js"}, written)

	index, err := afero.ReadFile(fs, "/proj/src/index.js")
	require.NoError(t, err)
	assert.Contains(t, string(index), `greet("Minibundle")`)

	greet, err := afero.ReadFile(fs, "/proj/src/greet.js")
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(greet))

	ignore, err := afero.ReadFile(fs, "/proj/.gitignore")
	require.NoError(t, err)
	assert.Contains(t, string(ignore), "dist/")

	written, err = te.GenerateFolder(fs, InitProject, "/proj", data, true)
	require.NoError(t, err)
	assert.Len(t, written, 3)
}
