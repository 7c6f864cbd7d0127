package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/entity"
)

// probeTimeout bounds the one-time version probe independently of any caller.
const probeTimeout = 10 * time.Second

// NativeBackend shells out to the tesseract binary. Availability is probed once per process.
type NativeBackend struct {
	enabled     bool
	binary      string
	psm         string
	lang        string
	tessdataDir string
	tsv         bool
	runner      Runner
	logger      *slog.Logger

	probe     sync.Once
	available bool
}

func NewNativeBackend(cfg common.OCRConfig, runner Runner, logger *slog.Logger) *NativeBackend {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	bin := cfg.Tesseract
	if bin == "" {
		bin = "tesseract"
	}
	psm := cfg.PSM
	if psm == "" {
		psm = "6"
	}
	return &NativeBackend{
		enabled:     cfg.EnableNative,
		binary:      bin,
		psm:         psm,
		lang:        cfg.Lang,
		tessdataDir: cfg.TessdataDir,
		tsv:         cfg.TSVConfidence,
		runner:      runner,
		logger:      logger,
	}
}

func (b *NativeBackend) Name() string { return BackendNative }

func (b *NativeBackend) Available(ctx context.Context) bool {
	if !b.enabled {
		return false
	}
	b.probe.Do(func() {
		// The result is cached for the process, so a caller's cancellation must not decide it.
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), probeTimeout)
		defer cancel()
		out, _, err := b.runner.Run(pctx, b.binary, b.logger, "--version")
		b.available = err == nil
		if err != nil {
			b.logger.Warn("ocr.native.unavailable", "binary", b.binary, "error", err)
			return
		}
		first, _, _ := strings.Cut(string(out), "\n")
		b.logger.Info("ocr.native.available", "binary", b.binary, "version", strings.TrimSpace(first))
	})
	return b.available
}

func (b *NativeBackend) Recognize(ctx context.Context, images []entity.Image) (Recognition, error) {
	dir, err := os.MkdirTemp("", "partlister-ocr-*")
	if err != nil {
		return Recognition{}, common.BackendCallError("create temp dir", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			b.logger.Warn("ocr.native.cleanup_failed", "dir", dir, "error", err)
		}
	}()

	rec := Recognition{Texts: make([]string, 0, len(images))}
	var confs []float64
	for i, img := range images {
		start := time.Now()
		in := filepath.Join(dir, fmt.Sprintf("image-%d.png", i))
		if err := os.WriteFile(in, img.Data, 0o600); err != nil {
			return Recognition{}, common.BackendCallError("write temp image", err)
		}
		outBase := filepath.Join(dir, fmt.Sprintf("out-%d", i))

		if _, errb, err := b.runner.Run(ctx, b.binary, b.logger, b.args(in, outBase)...); err != nil {
			return Recognition{}, common.BackendCallError(
				fmt.Sprintf("tesseract %s: %s", img.Name, strings.TrimSpace(truncate(string(errb), 512))), err)
		}
		txt, err := os.ReadFile(outBase + ".txt")
		if err != nil {
			return Recognition{}, common.BackendCallError("read tesseract output", err)
		}
		rec.Texts = append(rec.Texts, string(txt))

		if b.tsv {
			if c, ok := b.tsvConfidence(ctx, in, outBase+"-conf"); ok {
				confs = append(confs, float64(c))
			}
		}
		b.logger.Debug("ocr.native.image", "image", img.Name, "chars", len(txt), "elapsed_ms", time.Since(start).Milliseconds())
	}

	rec.Confidence, rec.HasConfidence = meanConfidence(confs)
	return rec, nil
}

func (b *NativeBackend) args(in, outBase string, extra ...string) []string {
	args := []string{in, outBase, "-c", "preserve_interword_spaces=1", "--psm", b.psm}
	if b.lang != "" {
		args = append(args, "-l", b.lang)
	}
	if b.tessdataDir != "" {
		args = append(args, "--tessdata-dir", b.tessdataDir)
	}
	return append(args, extra...)
}

// tsvConfidence runs a second pass with the tsv config and averages word confidences.
// Failures only lose the confidence, never the text.
func (b *NativeBackend) tsvConfidence(ctx context.Context, in, outBase string) (int, bool) {
	if _, _, err := b.runner.Run(ctx, b.binary, b.logger, b.args(in, outBase, "tsv")...); err != nil {
		b.logger.Debug("ocr.native.tsv_failed", "error", err)
		return 0, false
	}
	raw, err := os.ReadFile(outBase + ".tsv")
	if err != nil {
		return 0, false
	}
	return parseTSVConfidence(string(raw))
}
