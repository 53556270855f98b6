/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tristendillon/minibundle/core/bundler"
	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/server"
)

var (
	host string
	port int
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve [entry]",
	Short: "Watch the project and serve the latest bundle over HTTP",
	Long: `Runs the same rebuild loop as watch and serves the most recent bundle,
plus a page that loads it, from memory. Requests for the bundle fail with the
build error while the last rebuild is broken.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("serve called")
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = host
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = port
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		srv := server.NewServer(server.Options{
			Host:       cfg.Server.Host,
			Port:       cfg.Server.Port,
			BundleFile: cfg.Output.File,
			Title:      filepath.Base(cfg.Root),
		})

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(srv.Start)
		g.Go(func() error {
			err := watchAndRebuild(ctx, cmd, cfg, func(result *bundler.Result, err error) {
				if err != nil {
					srv.Fail(err)
					return
				}
				srv.Publish(result.Text)
			})

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
				err = serr
			}
			return err
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&host, "host", "", "Host to listen on (default: server.host)")
	serveCmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default: server.port)")
}
