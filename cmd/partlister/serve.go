package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/partlister/internal/server"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the listing HTTP API",
		Long: `Start the HTTP API:

  POST /api/listings/generate   multipart images[] plus optional form fields
  POST /api/listings/ocr        multipart images[], OCR only
  GET  /health`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx := cmd.Context()
			proc, closeFn, err := buildProcessor(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer shutdown(ctx, closeFn)

			return server.New(proc, cfg.Server, logger).Start(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides config)")
	return cmd
}
