package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tristendillon/minibundle/core/config"
)

// loadConfig reads the project config starting from the working directory.
// An entry given on the command line wins over the configured one.
func loadConfig(args []string) (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.Load(osFs, wd, cfgFile)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		entry := args[0]
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(wd, entry)
		}
		cfg.Entry = entry
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
