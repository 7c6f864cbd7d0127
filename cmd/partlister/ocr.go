package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newOCRCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ocr <image>...",
		Short: "Extract text from part photos",
		Long: `Run only the OCR step and print the result as JSON. At most ocr.max_images
images are read; the rest are ignored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			images, err := readImages(args, cfg.Server.MaxUploadBytes)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			proc, closeFn, err := buildProcessor(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer shutdown(ctx, closeFn)

			res, err := proc.OCR(ctx, images)
			if err != nil {
				return fmt.Errorf("ocr: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}
