package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/partlister/internal/common"
)

var heifBrands = [][]byte{
	[]byte("heic"), []byte("heix"), []byte("hevc"), []byte("hevx"),
	[]byte("heim"), []byte("heis"), []byte("hevm"), []byte("hevs"),
	[]byte("mif1"), []byte("msf1"),
}

// IsHEIC sniffs the ISO-BMFF ftyp box for a HEIF brand.
func IsHEIC(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	brand := data[8:12]
	for _, b := range heifBrands {
		if bytes.Equal(brand, b) {
			return true
		}
	}
	return false
}

// ConvertHEIC converts HEIC/HEIF bytes to PNG with an external converter (heif-convert,
// magick or sips). The scratch directory is removed before returning.
func ConvertHEIC(ctx context.Context, r Runner, logger *slog.Logger, converter string, data []byte) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpDir, err := os.MkdirTemp("", "partlister-heic-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logger.Warn("ocr.heic.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	in := filepath.Join(tmpDir, "input.heic")
	out := filepath.Join(tmpDir, "output.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	var args []string
	switch converter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return nil, common.NewAppError(common.CodeBackendUnavailable,
			fmt.Sprintf("HEIC not supported: converter %q is not one of heif-convert | magick | sips", converter),
			common.ErrBackendUnavailable)
	}

	if _, errb, err := r.Run(ctx, converter, logger, args...); err != nil {
		return nil, common.BackendCallError(converter+" convert failed: "+strings.TrimSpace(string(errb)), err)
	}

	png, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	logger.Debug("ocr.heic.converted", "converter", converter, "in_bytes", len(data), "out_bytes", len(png))
	return png, nil
}
