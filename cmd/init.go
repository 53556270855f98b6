/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tristendillon/minibundle/core/config"
	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/template_engine"
)

var (
	force bool
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a new minibundle project",
	Long: `Writes a default minibundle.yaml and a starter src/ tree into the given
directory (default: the working directory). Existing files are kept unless
--force is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("init called")
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		dir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", dir, err)
		}

		cfg := config.Default()
		cfgPath := filepath.Join(dir, config.FileNames[0])
		if err := config.Write(osFs, cfgPath, cfg, force); err != nil {
			return err
		}

		engine := template_engine.NewTemplateEngine()
		written, err := engine.GenerateFolder(osFs, template_engine.InitProject, dir, map[string]string{
			"Name":      filepath.Base(dir),
			"OutputDir": cfg.Output.Dir,
		}, force)
		if err != nil {
			return fmt.Errorf("failed to generate project: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Wrote %s\n", cfgPath)
		for _, p := range written {
			fmt.Fprintf(out, "Wrote %s\n", p)
		}

		fmt.Fprintf(out, "Next Steps:\n")
		if wd, err := os.Getwd(); err != nil || wd != dir {
			fmt.Fprintf(out, "  - cd %s\n", dir)
		}
		fmt.Fprintf(out, "  - minibundle build\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&force, "force", false, "Force overwrite existing files")
}
