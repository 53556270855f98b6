package bundler

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tristendillon/minibundle/core/ast"
	"github.com/tristendillon/minibundle/core/cache"
	"github.com/tristendillon/minibundle/core/graph"
	"github.com/tristendillon/minibundle/core/loader"
	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/models"
)

type Loader interface {
	Load(path string) ([]byte, error)
}

type Parser interface {
	Parse(path string, src []byte) (*models.ParsedModule, error)
}

type Transformer interface {
	Transform(mod *models.ParsedModule) (string, error)
}

type Resolver interface {
	Resolve(dir, specifier string) (string, error)
}

type ModuleCache interface {
	Get(path, contentHash string) (*cache.Entry, bool)
	Put(entry cache.Entry)
}

// Processor turns one pending asset into a processed one: load, parse,
// extract specifiers, resolve each against the asset's directory, transform,
// then finalize code and dependencies together.
type Processor struct {
	loader      Loader
	parser      Parser
	transformer Transformer
	resolver    Resolver
	extractor   ast.SpecifierExtractor
	cache       ModuleCache
}

func NewProcessor(l Loader, p Parser, t Transformer, r Resolver, e ast.SpecifierExtractor) *Processor {
	return &Processor{
		loader:      l,
		parser:      p,
		transformer: t,
		resolver:    r,
		extractor:   e,
	}
}

// WithCache lets unchanged files skip parsing and transformation.
func (p *Processor) WithCache(c ModuleCache) *Processor {
	p.cache = c
	return p
}

// Process has the graph.Step signature.
func (p *Processor) Process(_ context.Context, g *graph.Graph, id models.AssetID) error {
	asset, ok := g.Asset(id)
	if !ok {
		return fmt.Errorf("%w: %d", graph.ErrUnknownAsset, id)
	}

	src, err := p.loader.Load(asset.Path)
	if err != nil {
		return err
	}

	var (
		mod    *models.ParsedModule
		code   string
		cached bool
		hash   string
	)

	if p.cache != nil {
		hash = loader.Hash(src)
		if entry, ok := p.cache.Get(asset.Path, hash); ok {
			mod = &models.ParsedModule{Path: asset.Path, Source: src, Imports: entry.Imports}
			code = entry.Code
			cached = true
		}
	}

	if mod == nil {
		mod, err = p.parser.Parse(asset.Path, src)
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(asset.Path)
	specifiers := p.extractor.Extract(mod)
	deps := make(map[string]models.AssetID, len(specifiers))

	for _, specifier := range specifiers {
		resolved, err := p.resolver.Resolve(dir, specifier)
		if err != nil {
			return &models.ResolveError{
				Specifier: specifier,
				FromPath:  asset.Path,
				FromDir:   dir,
				Err:       err,
			}
		}

		depID, created := g.GetOrCreate(resolved)
		if !created {
			logger.Debug("Processor: %s already known as #%d", resolved, depID)
		}
		deps[specifier] = depID
	}

	if !cached {
		code, err = p.transformer.Transform(mod)
		if err != nil {
			return err
		}
		if p.cache != nil {
			p.cache.Put(cache.Entry{
				Path:        asset.Path,
				ContentHash: hash,
				Code:        code,
				Imports:     mod.Imports,
			})
		}
	}

	return g.Finalize(id, code, deps)
}
