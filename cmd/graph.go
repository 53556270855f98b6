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

var graphCmd = &cobra.Command{
	Use:   "graph [entry]",
	Short: "Print the asset graph without writing a bundle",
	Long:  `Builds the asset graph for the entry file and prints every module with its id and dependency mapping.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("graph called")
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}

		b, err := bundler.FromConfig(osFs, cfg)
		if err != nil {
			return err
		}

		g, err := b.BuildGraph(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		display.PrintGraph(out, cfg.Root, g)

		var cycles [][]string
		for _, cycle := range g.DetectCycles() {
			cycles = append(cycles, g.PathsOf(cycle))
		}
		display.PrintCycles(out, cfg.Root, cycles)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
