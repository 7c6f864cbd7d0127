package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/entity"
)

// Preparer normalizes one image ahead of recognition. Implementations return an error rather
// than partial output; the orchestrator keeps the original bytes in that case.
type Preparer interface {
	Prepare(ctx context.Context, img entity.Image) ([]byte, error)
}

// Preprocessor is the default Preparer: HEIC conversion, EXIF orientation, grayscale, a
// bounded downscale and a linear contrast stretch, encoded as PNG.
type Preprocessor struct {
	runner        Runner
	heicConverter string
	maxDimension  int
	logger        *slog.Logger
}

func NewPreprocessor(cfg common.OCRConfig, runner Runner, logger *slog.Logger) *Preprocessor {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	maxDim := cfg.MaxDimension
	if maxDim <= 0 {
		maxDim = 1800
	}
	return &Preprocessor{runner: runner, heicConverter: cfg.HeicConverter, maxDimension: maxDim, logger: logger}
}

func (p *Preprocessor) Prepare(ctx context.Context, img entity.Image) ([]byte, error) {
	start := time.Now()
	data := img.Data
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image %q", common.ErrInvalidInput, img.Name)
	}

	if IsHEIC(data) {
		converted, err := ConvertHEIC(ctx, p.runner, p.logger, p.heicConverter, data)
		if err != nil {
			return nil, err
		}
		data = converted
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", img.Name, err)
	}

	gray := orient(toGray(src), exifOrientation(data))
	gray = fit(gray, p.maxDimension)
	stretchContrast(gray)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode %q: %w", img.Name, err)
	}

	b := gray.Bounds()
	p.logger.Debug("ocr.preprocess.ok",
		"image", img.Name,
		"format", format,
		"width", b.Dx(),
		"height", b.Dy(),
		"out_bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// fit scales src down so neither side exceeds max. Images already within bounds are returned
// unchanged; nothing is enlarged.
func fit(src *image.Gray, max int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return src
	}
	var nw, nh int
	if w >= h {
		nw, nh = max, h*max/w
	} else {
		nw, nh = w*max/h, max
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewGray(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// stretchContrast maps the observed luminance range linearly onto 0..255 in place.
func stretchContrast(g *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, v := range g.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return
	}
	span := int(hi) - int(lo)
	for i, v := range g.Pix {
		g.Pix[i] = uint8((int(v) - int(lo)) * 255 / span)
	}
}
