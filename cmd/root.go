/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tristendillon/minibundle/core/display"
	"github.com/tristendillon/minibundle/core/logger"
)

var rootCmd = &cobra.Command{
	Use:   "minibundle",
	Short: "A minimal CommonJS-style JavaScript bundler.",
	Long: `Minibundle follows the static imports of an entry file, lowers every
module it reaches to CommonJS and writes a single self-contained script
with a small in-bundle require runtime.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetVerbose(verbose)
		if logfile == "" {
			return nil
		}
		f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logfile, err)
		}
		logger.AddWriterForAll(f)
		return nil
	},
}

var (
	cfgFile string
	logfile string
	verbose bool

	osFs = afero.NewOsFs()
)

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		display.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: nearest minibundle.yaml)")
	rootCmd.PersistentFlags().StringVar(&logfile, "logfile", "", "File to write logs to")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}
