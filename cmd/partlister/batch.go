package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/export"
	"github.com/joseph-ayodele/partlister/internal/ingest"
	"github.com/joseph-ayodele/partlister/internal/pipeline"
)

type batchOptions struct {
	out         string
	report      string
	includeDots bool
}

func newBatchCmd(g *globalOptions) *cobra.Command {
	opts := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Generate listings for every part folder under a directory",
		Long: `Each directory containing images is one part. Folders are processed concurrently
(scheduler.concurrency at a time) and the results written to an XLSX workbook, plus an
optional Markdown report.

Examples:
  partlister batch ./photos
  partlister batch ./photos --out listings.xlsx --report listings.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			proc, closeFn, err := buildProcessor(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer shutdown(ctx, closeFn)

			return runBatch(ctx, proc, cfg, args[0], opts, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output XLSX path (default: <dir>/listings.xlsx)")
	cmd.Flags().StringVarP(&opts.report, "report", "r", "", "Also write a Markdown report to this path")
	cmd.Flags().BoolVar(&opts.includeDots, "include-hidden", false, "Include hidden files and directories")

	return cmd
}

func runBatch(
	ctx context.Context,
	proc *pipeline.Processor,
	cfg common.Config,
	dir string,
	opts *batchOptions,
	stdout io.Writer,
	logger *slog.Logger,
) error {
	start := time.Now()

	scanner := ingest.NewScanner(!opts.includeDots, logger)
	scanner.MaxBytes = cfg.Server.MaxUploadBytes
	folders, failures, stats, err := scanner.Scan(ctx, dir)
	if err != nil {
		return err
	}
	for _, f := range failures {
		logger.Warn("batch.scan.unreadable", "path", f.Path, "error", f.Err)
	}

	rows := make([]export.Row, len(folders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Scheduler.Concurrency)
	for i, folder := range folders {
		g.Go(func() error {
			rows[i] = export.Row{Folder: folder.Name}
			images, err := scanner.Load(folder)
			if err != nil {
				logger.Warn("batch.folder.unreadable", "folder", folder.Name, "error", err)
				rows[i].Err = err.Error()
				return nil
			}
			res, err := proc.Generate(gctx, pipeline.GenerateRequest{Images: images})
			if err != nil {
				// only cancellation and shutdown get here; stop the whole batch
				return fmt.Errorf("folder %s: %w", folder.Name, err)
			}
			rows[i].Result = res
			logger.Info("batch.folder.ok",
				"folder", folder.Name,
				"images", len(images),
				"part_number", res.PartNumber,
				"used_real_backend", res.Listing.UsedRealBackend,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = filepath.Join(dir, "listings.xlsx")
	}
	xlsx, err := export.NewService(logger).ListingsXLSX(ctx, rows)
	if err != nil {
		return err
	}
	err = writeOutput(stdout, out, func(w io.Writer) error {
		_, err := w.Write(xlsx)
		return err
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	if opts.report != "" {
		err := writeOutput(stdout, opts.report, func(w io.Writer) error {
			return export.WriteReport(w, rows, time.Now())
		})
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	failed := 0
	for _, r := range rows {
		if r.Failed() {
			failed++
		}
	}
	logger.Info("batch.complete",
		"folders", len(folders),
		"images", stats.Matched,
		"failed", failed,
		"xlsx", out,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	_, err = fmt.Fprintf(stdout, "%d folder(s) processed, %d failed, workbook: %s\n", len(folders)-failed, failed, out)
	return err
}
