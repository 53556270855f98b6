package template_engine

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/spf13/afero"

	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/shared"
)

//go:embed all:templates
var TemplateFS embed.FS

const templateRoot = "templates"

// TemplateRef names a template relative to the embedded templates directory.
type TemplateRef struct {
	Path string
}

var (
	RuntimeCached = TemplateRef{Path: "runtime/cached.js.tmpl"}
	RuntimeLegacy = TemplateRef{Path: "runtime/legacy.js.tmpl"}
	InitProject   = TemplateRef{Path: "init"}
)

type TemplateEngine struct {
	funcMap template.FuncMap

	mu     sync.Mutex
	parsed map[string]*template.Template
}

func getDefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"title": shared.ToTitle,
		"js":    template.JSEscapeString,
	}
}

func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{
		funcMap: getDefaultFuncMap(),
		parsed:  make(map[string]*template.Template),
	}
}

func NewTemplateEngineWithFuncs(customFuncs template.FuncMap) *TemplateEngine {
	engine := NewTemplateEngine()
	for name, fn := range customFuncs {
		engine.funcMap[name] = fn
	}
	return engine
}

func (te *TemplateEngine) lookup(ref TemplateRef) (*template.Template, error) {
	te.mu.Lock()
	defer te.mu.Unlock()

	if tmpl, ok := te.parsed[ref.Path]; ok {
		return tmpl, nil
	}

	templatePath := path.Join(templateRoot, ref.Path)
	content, err := TemplateFS.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", templatePath, err)
	}

	tmpl, err := template.New(path.Base(ref.Path)).Funcs(te.funcMap).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", ref.Path, err)
	}

	logger.Debug("TemplateEngine: Parsed %s", templatePath)
	te.parsed[ref.Path] = tmpl
	return tmpl, nil
}

func (te *TemplateEngine) RenderTo(w io.Writer, ref TemplateRef, data interface{}) error {
	tmpl, err := te.lookup(ref)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", ref.Path, err)
	}
	return nil
}

func (te *TemplateEngine) Render(ref TemplateRef, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := te.RenderTo(&buf, ref, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ListTemplates returns every template path below dir, relative to the
// templates root.
func (te *TemplateEngine) ListTemplates(dir string) ([]string, error) {
	var templates []string
	root := path.Join(templateRoot, dir)

	err := fs.WalkDir(TemplateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			templates = append(templates, strings.TrimPrefix(p, templateRoot+"/"))
		}
		return nil
	})

	return templates, err
}

func (te *TemplateEngine) ValidateTemplate(ref TemplateRef) error {
	info, err := fs.Stat(TemplateFS, path.Join(templateRoot, ref.Path))
	if err != nil {
		return fmt.Errorf("template not found: %s", ref.Path)
	}
	if info.IsDir() {
		return fmt.Errorf("template reference %s is a directory", ref.Path)
	}
	_, err = te.lookup(ref)
	return err
}

// GenerateFolder renders every template below ref into outputDir, keeping the
// relative layout and dropping the .tmpl suffix. Existing files are left
// alone unless force is set. It returns the files it wrote.
func (te *TemplateEngine) GenerateFolder(fsys afero.Fs, ref TemplateRef, outputDir string, data interface{}, force bool) ([]string, error) {
	names, err := te.ListTemplates(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates in %s: %w", ref.Path, err)
	}

	var written []string
	for _, name := range names {
		rel := strings.TrimSuffix(strings.TrimPrefix(name, ref.Path+"/"), ".tmpl")
		outputPath := filepath.Join(outputDir, filepath.FromSlash(rel))

		if _, err := fsys.Stat(outputPath); err == nil && !force {
			logger.Debug("TemplateEngine: Keeping existing %s", outputPath)
			continue
		}

		text, err := te.Render(TemplateRef{Path: name}, data)
		if err != nil {
			return written, err
		}
		if err := fsys.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return written, fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := afero.WriteFile(fsys, outputPath, []byte(text), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		written = append(written, outputPath)
	}
	return written, nil
}
