/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tristendillon/minibundle/core/bundler"
	"github.com/tristendillon/minibundle/core/display"
	"github.com/tristendillon/minibundle/core/logger"
)

var buildCmd = &cobra.Command{
	Use:   "build [entry]",
	Short: "Bundle the entry file and everything it imports",
	Long: `Bundles the entry file (argument, or "entry" from minibundle.yaml) and
every module reachable through its static imports into a single script.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("build called")
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}

		b, err := bundler.FromConfig(osFs, cfg)
		if err != nil {
			return err
		}

		result, err := b.Bundle(cmd.Context())
		if err != nil {
			return err
		}

		display.PrintSuccess(cmd.OutOrStdout(), cfg.Root, display.BuildSummary{
			OutputPath: result.OutputPath,
			Size:       result.Size,
			Assets:     result.Assets,
			Duration:   result.Duration,
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
