// Package engine links the in-process tesseract engine (cgo) as an OCR tier. It lives apart
// from package ocr so the rest of the pipeline builds and tests without libtesseract.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/core/ocr"
	"github.com/joseph-ayodele/partlister/internal/entity"
)

// engineClient is the subset of *gosseract.Client we use.
type engineClient interface {
	SetLanguage(langs ...string) error
	SetPageSegMode(mode gosseract.PageSegMode) error
	SetTessdataPrefix(prefix string) error
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	GetBoundingBoxes(level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error)
	Close() error
}

// Backend is the embedded tier. One engine client serves a whole batch.
type Backend struct {
	enabled     bool
	lang        string
	psm         gosseract.PageSegMode
	tessdataDir string
	newClient   func() engineClient
	logger      *slog.Logger
}

var _ ocr.Backend = (*Backend)(nil)

func NewBackend(cfg common.OCRConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	psm := gosseract.PSM_SINGLE_BLOCK
	if n, err := strconv.Atoi(cfg.PSM); err == nil {
		psm = gosseract.PageSegMode(n)
	}
	return &Backend{
		enabled:     cfg.EnableEmbedded,
		lang:        cfg.Lang,
		psm:         psm,
		tessdataDir: cfg.TessdataDir,
		newClient:   func() engineClient { return gosseract.NewClient() },
		logger:      logger,
	}
}

func (b *Backend) Name() string { return ocr.BackendEmbedded }

func (b *Backend) Available(context.Context) bool { return b.enabled }

func (b *Backend) Recognize(ctx context.Context, images []entity.Image) (rec ocr.Recognition, err error) {
	client := b.newClient()
	defer func() {
		if cerr := client.Close(); cerr != nil {
			b.logger.Warn("ocr.embedded.close_failed", "error", cerr)
		}
	}()

	if b.tessdataDir != "" {
		if err := client.SetTessdataPrefix(b.tessdataDir); err != nil {
			return ocr.Recognition{}, common.BackendCallError("set tessdata prefix", err)
		}
	}
	if b.lang != "" {
		if err := client.SetLanguage(b.lang); err != nil {
			return ocr.Recognition{}, common.BackendCallError("set language", err)
		}
	}
	if err := client.SetPageSegMode(b.psm); err != nil {
		return ocr.Recognition{}, common.BackendCallError("set page seg mode", err)
	}

	rec.Texts = make([]string, 0, len(images))
	var sum float64
	var words int
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return ocr.Recognition{}, err
		}
		start := time.Now()
		if err := client.SetImageFromBytes(img.Data); err != nil {
			return ocr.Recognition{}, common.BackendCallError(fmt.Sprintf("load %s", img.Name), err)
		}
		txt, err := client.Text()
		if err != nil {
			return ocr.Recognition{}, common.BackendCallError(fmt.Sprintf("recognize %s", img.Name), err)
		}
		rec.Texts = append(rec.Texts, txt)

		if boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
			for _, bx := range boxes {
				sum += bx.Confidence
				words++
			}
		}
		b.logger.Debug("ocr.embedded.image", "image", img.Name, "chars", len(txt), "elapsed_ms", time.Since(start).Milliseconds())
	}
	if words > 0 {
		rec.Confidence = int(sum/float64(words) + 0.5)
		rec.HasConfidence = true
	}
	return rec, nil
}
