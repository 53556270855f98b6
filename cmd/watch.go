/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/tristendillon/minibundle/core/bundler"
	"github.com/tristendillon/minibundle/core/cache"
	"github.com/tristendillon/minibundle/core/config"
	"github.com/tristendillon/minibundle/core/display"
	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [entry]",
	Short: "Rebuild the bundle whenever a project file changes",
	Long: `Builds once, then watches the project directory and rebuilds after
changes settle. Unchanged modules are served from an in-memory cache.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("watch called")
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		return watchAndRebuild(cmd.Context(), cmd, cfg, nil)
	},
}

// watchAndRebuild bundles on start and after every settled change until ctx
// is done. report, when set, sees the outcome of every rebuild.
func watchAndRebuild(ctx context.Context, cmd *cobra.Command, cfg *config.Config, report func(*bundler.Result, error)) error {
	b, err := bundler.FromConfig(osFs, cfg)
	if err != nil {
		return err
	}

	moduleCache, err := watchCache(b, cfg)
	if err != nil {
		return err
	}

	w, err := watcher.New(watcher.Options{
		RootDir:  cfg.Root,
		Exclude:  append(append([]string{}, cfg.Watch.Exclude...), cfg.OutputDir(), cfg.CacheDir()),
		Debounce: cfg.Watch.Debounce,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	out := cmd.OutOrStdout()
	rebuild := func(ctx context.Context) error {
		result, err := b.Bundle(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if report != nil {
			report(result, err)
		}
		if err != nil {
			display.PrintError(cmd.ErrOrStderr(), err)
			return nil
		}

		display.PrintSuccess(out, cfg.Root, display.BuildSummary{
			OutputPath: result.OutputPath,
			Size:       result.Size,
			Assets:     result.Assets,
			Duration:   result.Duration,
		})
		stats := moduleCache.Stats()
		logger.Debug("Module cache: %d entries, %d hits, %d misses (%.1f%% hit rate)",
			stats.Entries, stats.Hits, stats.Misses, stats.HitRate)
		return nil
	}

	w.OnStart(rebuild)
	w.OnChange(func(ctx context.Context, changed []string) error {
		for _, p := range changed {
			if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
				moduleCache.Remove(p)
			}
		}
		return rebuild(ctx)
	})
	w.OnClose(func() error {
		logger.Info("Stopped watching %s", cfg.Root)
		return nil
	})

	logger.Info("Watching %s for changes", cfg.Root)
	return w.Watch(ctx)
}

// watchCache returns the module cache rebuilds share. FromConfig already
// attached one when the disk cache is enabled; otherwise a memory-only cache
// is attached here.
func watchCache(b *bundler.Bundler, cfg *config.Config) (*cache.ModuleCache, error) {
	if mc, ok := b.Cache().(*cache.ModuleCache); ok {
		return mc, nil
	}
	mc, err := bundler.OpenModuleCache(osFs, cfg)
	if err != nil {
		return nil, err
	}
	b.WithCache(mc)
	return mc, nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
