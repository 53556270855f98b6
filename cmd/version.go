/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tristendillon/minibundle/core/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the version of minibundle",
	Long:  `Displays the version of minibundle.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "minibundle %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
