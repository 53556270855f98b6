// Package bundler drives a bundling run: it builds the asset graph from the
// entry file, packages it and writes the result.
package bundler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"

	"github.com/tristendillon/minibundle/core/ast"
	"github.com/tristendillon/minibundle/core/cache"
	"github.com/tristendillon/minibundle/core/config"
	"github.com/tristendillon/minibundle/core/graph"
	"github.com/tristendillon/minibundle/core/loader"
	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/models"
	"github.com/tristendillon/minibundle/core/packager"
	"github.com/tristendillon/minibundle/core/resolver"
)

type Options struct {
	Entry      string
	OutputDir  string
	OutputFile string
	Target     api.Target
	Kinds      []models.ImportKind
	Runtime    packager.Runtime
	Post       packager.PostOptions
}

type Result struct {
	OutputPath string
	Size       int
	Assets     int
	Cycles     [][]string
	Text       string
	Graph      *graph.Graph
	Duration   time.Duration
}

type Bundler struct {
	fs          afero.Fs
	opts        Options
	parser      Parser
	transformer Transformer
	extractor   ast.SpecifierExtractor
	cache       ModuleCache
}

func New(fs afero.Fs, opts Options) *Bundler {
	return &Bundler{
		fs:          fs,
		opts:        opts,
		parser:      ast.NewParser(),
		transformer: ast.NewTransformer(opts.Target),
		extractor:   ast.NewKindExtractor(opts.Kinds...),
	}
}

// FromConfig validates cfg and builds a Bundler for it, opening the module
// cache when it is enabled.
func FromConfig(fs afero.Fs, cfg *config.Config) (*Bundler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	target, err := ast.ParseTarget(cfg.Transform.Target)
	if err != nil {
		return nil, err
	}
	kinds, err := cfg.DiscoverKinds()
	if err != nil {
		return nil, err
	}

	runtime := packager.RuntimeCached
	if !cfg.Runtime.ModuleCache {
		runtime = packager.RuntimeLegacy
	}

	b := New(fs, Options{
		Entry:      cfg.EntryPath(),
		OutputDir:  cfg.OutputDir(),
		OutputFile: cfg.Output.File,
		Target:     target,
		Kinds:      kinds,
		Runtime:    runtime,
		Post: packager.PostOptions{
			Minify: cfg.Output.Minify,
			Pretty: cfg.Output.Pretty,
		},
	})

	if cfg.Cache.Enabled {
		mc, err := OpenModuleCache(fs, cfg)
		if err != nil {
			return nil, err
		}
		b.WithCache(mc)
	}

	return b, nil
}

// OpenModuleCache builds the module cache for cfg, backed by the disk layer
// when cache.enabled is set.
func OpenModuleCache(fs afero.Fs, cfg *config.Config) (*cache.ModuleCache, error) {
	var disk *cache.DiskCache
	if cfg.Cache.Enabled {
		var err error
		if disk, err = cache.OpenDiskCache(fs, cfg.CacheDir()); err != nil {
			return nil, err
		}
	}
	return cache.New(cache.Salt(cfg.Transform.Target), disk), nil
}

func (b *Bundler) WithCache(c ModuleCache) *Bundler {
	b.cache = c
	return b
}

// Cache returns the attached module cache, or nil.
func (b *Bundler) Cache() ModuleCache {
	return b.cache
}

func (b *Bundler) Options() Options {
	return b.opts
}

// BuildGraph discovers and processes every module reachable from the entry.
// Each call uses a fresh graph and resolver.
func (b *Bundler) BuildGraph(ctx context.Context) (*graph.Graph, error) {
	entry, err := filepath.Abs(b.opts.Entry)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entry %s: %w", b.opts.Entry, err)
	}

	g := graph.New()
	scheduler := graph.NewScheduler(g)
	if _, err := scheduler.Seed(entry); err != nil {
		return nil, err
	}

	res := resolver.NewNodeResolver(b.fs, nil)
	proc := NewProcessor(loader.NewFileLoader(b.fs), b.parser, b.transformer, res, b.extractor)
	if b.cache != nil {
		proc.WithCache(b.cache)
	}

	if err := scheduler.RunToCompletion(ctx, proc.Process); err != nil {
		return nil, err
	}

	logger.Debug("Bundler: Processed %d assets in %d steps (%d resolver cache hits)",
		g.Len(), scheduler.Steps(), res.CacheHits())
	return g, nil
}

// Bundle builds the graph, packages it and writes the bundle. Nothing is
// written unless every step before the write succeeded.
func (b *Bundler) Bundle(ctx context.Context) (*Result, error) {
	start := time.Now()

	g, err := b.BuildGraph(ctx)
	if err != nil {
		return nil, err
	}

	var cycles [][]string
	for _, cycle := range g.DetectCycles() {
		paths := g.PathsOf(cycle)
		cycles = append(cycles, paths)
		logger.Warn("Circular import: %s -> %s", strings.Join(paths, " -> "), paths[0])
	}

	text, err := packager.Assemble(g, packager.Options{Runtime: b.opts.Runtime})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble bundle: %w", err)
	}

	text, err = packager.PostProcess(text, b.opts.Post)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := packager.Write(b.fs, b.opts.OutputDir, b.opts.OutputFile, text)
	if err != nil {
		return nil, err
	}

	return &Result{
		OutputPath: out,
		Size:       len(text),
		Assets:     g.Len(),
		Cycles:     cycles,
		Text:       text,
		Graph:      g,
		Duration:   time.Since(start),
	}, nil
}
