package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/partlister/internal/entity"
	"github.com/joseph-ayodele/partlister/internal/export"
	"github.com/joseph-ayodele/partlister/internal/pipeline"
)

const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

type generateOptions struct {
	partNumber    string
	vehicle       entity.Vehicle
	title         string
	description   string
	compatibility string
	format        string
	output        string
}

func newGenerateCmd(g *globalOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate <image>...",
		Short: "Generate a listing suggestion from part photos",
		Long: `Run the full pipeline: OCR, part-number resolution, compatibility and listing copy.

Examples:
  # Plain run, JSON on stdout
  partlister generate front.jpg label.heic

  # Known vehicle and part number, Markdown written to a file
  partlister generate --year 2018 --make Chevrolet --model Equinox \
    --part-number 84012345 --format markdown -o listing.md label.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, g, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.partNumber, "part-number", "p", "", "Known part number (skips resolution)")
	cmd.Flags().StringVar(&opts.vehicle.Year, "year", "", "Vehicle year")
	cmd.Flags().StringVar(&opts.vehicle.Make, "make", "", "Vehicle make")
	cmd.Flags().StringVar(&opts.vehicle.Model, "model", "", "Vehicle model")
	cmd.Flags().StringVar(&opts.vehicle.VIN, "vin", "", "Vehicle VIN")
	cmd.Flags().StringVar(&opts.title, "title", "", "Existing title to keep or refine")
	cmd.Flags().StringVar(&opts.description, "description", "", "Existing description to keep or refine")
	cmd.Flags().StringVar(&opts.compatibility, "compatibility", "", "Existing compatibility entries as a JSON array")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "Output format: json or markdown")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write output to a file instead of stdout")

	return cmd
}

func runGenerate(cmd *cobra.Command, g *globalOptions, opts *generateOptions, args []string) error {
	if opts.format != formatJSON && opts.format != formatMarkdown {
		return fmt.Errorf("unknown format %q (want %s or %s)", opts.format, formatJSON, formatMarkdown)
	}

	cfg, logger, err := g.load(cmd)
	if err != nil {
		return err
	}
	images, err := readImages(args, cfg.Server.MaxUploadBytes)
	if err != nil {
		return err
	}

	req := pipeline.GenerateRequest{
		Images:              images,
		PartNumber:          opts.partNumber,
		ExistingTitle:       opts.title,
		ExistingDescription: opts.description,
	}
	if !opts.vehicle.IsZero() {
		v := opts.vehicle
		req.Vehicle = &v
	}
	if raw := strings.TrimSpace(opts.compatibility); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Compatibility); err != nil {
			return fmt.Errorf("parse --compatibility: %w", err)
		}
	}

	ctx := cmd.Context()
	proc, closeFn, err := buildProcessor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer shutdown(ctx, closeFn)

	res, err := proc.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	return writeOutput(cmd.OutOrStdout(), opts.output, func(w io.Writer) error {
		if opts.format == formatMarkdown {
			return export.WriteResult(w, res)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	})
}

// writeOutput runs write against path, or against stdout when path is empty.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // user-provided output path
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
