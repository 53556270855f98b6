// Package resolver maps import specifiers to canonical file paths following
// the Node.js CommonJS lookup rules: relative and absolute paths with
// extension probing, directory packages, and node_modules walk-up.
package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tristendillon/minibundle/core/logger"
)

var (
	ErrNotFound = errors.New("module not found")
	ErrBuiltin  = errors.New("cannot bundle Node.js built-in module")
)

// DefaultExtensions are probed, in order, when a specifier names a file
// without its extension.
var DefaultExtensions = []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx", ".json"}

type cacheKey struct {
	dir       string
	specifier string
}

// NodeResolver is created once per bundling run. Successful resolutions are
// memoized for its lifetime.
type NodeResolver struct {
	fs         afero.Fs
	extensions []string
	cache      map[cacheKey]string
	hits       int
}

func NewNodeResolver(fs afero.Fs, extensions []string) *NodeResolver {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &NodeResolver{
		fs:         fs,
		extensions: extensions,
		cache:      make(map[cacheKey]string),
	}
}

// Resolve returns the canonical path that specifier refers to when imported
// from a file in dir.
func (r *NodeResolver) Resolve(dir, specifier string) (string, error) {
	key := cacheKey{dir: dir, specifier: specifier}
	if p, ok := r.cache[key]; ok {
		r.hits++
		return p, nil
	}

	p, err := r.resolve(dir, specifier)
	if err != nil {
		return "", err
	}

	r.cache[key] = p
	logger.Debug("Resolver: %q from %s -> %s", specifier, dir, p)
	return p, nil
}

// CacheHits reports how many lookups were answered from the memo table.
func (r *NodeResolver) CacheHits() int {
	return r.hits
}

func (r *NodeResolver) resolve(dir, specifier string) (string, error) {
	if specifier == "" {
		return "", fmt.Errorf("%w: empty specifier", ErrNotFound)
	}
	if strings.HasPrefix(specifier, "node:") {
		return "", fmt.Errorf("%w: %s", ErrBuiltin, specifier)
	}

	if isPathSpecifier(specifier) {
		base := filepath.FromSlash(specifier)
		if !filepath.IsAbs(base) {
			base = filepath.Join(dir, base)
		}
		base, err := filepath.Abs(base)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNotFound, err)
		}

		if p, ok := r.loadAsFile(base); ok {
			return p, nil
		}
		if p, ok := r.loadAsDirectory(base); ok {
			return p, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, base)
	}

	if p, ok := r.loadNodeModules(dir, specifier); ok {
		return p, nil
	}
	if isNodeBuiltin(specifier) {
		return "", fmt.Errorf("%w: %s", ErrBuiltin, specifier)
	}
	return "", fmt.Errorf("%w: package %q not found in any node_modules above %s", ErrNotFound, specifier, dir)
}

func isPathSpecifier(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") ||
		strings.HasPrefix(specifier, "../") ||
		strings.HasPrefix(specifier, "/")
}

func (r *NodeResolver) loadAsFile(p string) (string, bool) {
	if r.isFile(p) {
		return p, true
	}
	for _, ext := range r.extensions {
		if r.isFile(p + ext) {
			return p + ext, true
		}
	}
	return "", false
}

func (r *NodeResolver) loadAsDirectory(dir string) (string, bool) {
	if !r.isDir(dir) {
		return "", false
	}

	if main := r.packageMain(dir); main != "" {
		mainPath := filepath.Join(dir, filepath.FromSlash(main))
		if p, ok := r.loadAsFile(mainPath); ok {
			return p, true
		}
		if p, ok := r.loadIndex(mainPath); ok {
			return p, true
		}
	}

	return r.loadIndex(dir)
}

func (r *NodeResolver) loadIndex(dir string) (string, bool) {
	for _, ext := range r.extensions {
		candidate := filepath.Join(dir, "index"+ext)
		if r.isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (r *NodeResolver) loadNodeModules(dir, specifier string) (string, bool) {
	current := dir
	for {
		if filepath.Base(current) != "node_modules" {
			candidate := filepath.Join(current, "node_modules", filepath.FromSlash(specifier))
			if p, ok := r.loadAsFile(candidate); ok {
				return p, true
			}
			if p, ok := r.loadAsDirectory(candidate); ok {
				return p, true
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

type packageJSON struct {
	Main string `json:"main"`
}

func (r *NodeResolver) packageMain(dir string) string {
	data, err := afero.ReadFile(r.fs, filepath.Join(dir, "package.json"))
	if err != nil {
		return ""
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		logger.Warn("Resolver: Ignoring malformed package.json in %s: %v", dir, err)
		return ""
	}
	return pkg.Main
}

func (r *NodeResolver) isFile(p string) bool {
	info, err := r.fs.Stat(p)
	return err == nil && !info.IsDir()
}

func (r *NodeResolver) isDir(p string) bool {
	info, err := r.fs.Stat(p)
	return err == nil && info.IsDir()
}
