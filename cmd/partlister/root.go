package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/core/ocr/engine"
	"github.com/joseph-ayodele/partlister/internal/entity"
	"github.com/joseph-ayodele/partlister/internal/ingest"
	"github.com/joseph-ayodele/partlister/internal/logging"
	"github.com/joseph-ayodele/partlister/internal/pipeline"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "partlister",
		Short: "Turn automotive part photos into listing suggestions",
		Long: `partlister reads the text on photos of automotive parts, works out the most
likely part number and drafts a marketplace listing (title, description, prices).

OCR degrades through tesseract, the embedded engine, a vision model and finally a
simulated placeholder. Without OPENAI_API_KEY, listings are deterministic templates.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Configuration file path (default: ./partlister.yaml or $XDG_CONFIG_HOME/partlister/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	cmd.AddCommand(newOCRCmd(opts))
	cmd.AddCommand(newGenerateCmd(opts))
	cmd.AddCommand(newBatchCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// load reads the configuration, applies the logging flags and builds the logger. Logs go to
// stderr so stdout carries only command output.
func (o *globalOptions) load(cmd *cobra.Command) (common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig(o.configPath)
	if err != nil {
		return common.Config{}, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// buildProcessor wires the pipeline, adding the in-process tesseract tier when enabled.
func buildProcessor(ctx context.Context, cfg common.Config, logger *slog.Logger) (*pipeline.Processor, func(context.Context), error) {
	var deps pipeline.Deps
	if cfg.OCR.EnableEmbedded {
		deps.Embedded = engine.NewBackend(cfg.OCR, logger)
	}
	return pipeline.Build(ctx, cfg, deps, logger)
}

// shutdown drains the pipeline even when ctx was cancelled by a signal.
func shutdown(ctx context.Context, closeFn func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	closeFn(ctx)
}

// readImages loads image files named on the command line.
func readImages(paths []string, maxBytes int64) ([]entity.Image, error) {
	images := make([]entity.Image, 0, len(paths))
	for _, p := range paths {
		img, err := ingest.ReadImage(p, maxBytes)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}
