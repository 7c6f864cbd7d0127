package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/entity"
	"github.com/joseph-ayodele/partlister/internal/pipeline"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type generateResponse struct {
	OK bool `json:"ok"`
	entity.GenerateResult
}

type ocrResponse struct {
	OK  bool             `json:"ok"`
	OCR entity.OCRResult `json:"ocr"`
}

// errUpload is a client-side upload problem reported as 400.
var errUpload = errors.New("bad upload")

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// gone answers the retired single-shot endpoint.
func (s *Server) gone(c echo.Context) error {
	return c.JSON(http.StatusGone, errorResponse{Error: "Deprecated. Use /api/listings/generate"})
}

// generate handles POST /api/listings/generate.
func (s *Server) generate(c echo.Context) error {
	ctx := c.Request().Context()
	rid := common.RequestIDFromContext(ctx)

	images, err := s.readImages(c)
	if err != nil {
		return s.fail(c, err)
	}

	req := pipeline.GenerateRequest{
		Images:              images,
		PartNumber:          strings.TrimSpace(c.FormValue("partNumber")),
		ExistingTitle:       c.FormValue("existingTitle"),
		ExistingDescription: c.FormValue("existingDescription"),
	}
	if raw := strings.TrimSpace(c.FormValue("vehicle")); raw != "" {
		var v entity.Vehicle
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			s.logger.Warn("server.generate.bad_vehicle", "req_id", rid, "error", err)
		} else {
			req.Vehicle = &v
		}
	}
	if raw := strings.TrimSpace(c.FormValue("existingCompatibility")); raw != "" {
		var compat []entity.CompatibilityEntry
		if err := json.Unmarshal([]byte(raw), &compat); err != nil {
			s.logger.Warn("server.generate.bad_compatibility", "req_id", rid, "error", err)
		} else {
			req.Compatibility = compat
		}
	}

	res, err := s.pipeline.Generate(ctx, req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, generateResponse{OK: true, GenerateResult: res})
}

// ocr handles POST /api/listings/ocr.
func (s *Server) ocr(c echo.Context) error {
	images, err := s.readImages(c)
	if err != nil {
		return s.fail(c, err)
	}
	if len(images) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No images uploaded"})
	}
	res, err := s.pipeline.OCR(c.Request().Context(), images)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, ocrResponse{OK: true, OCR: res})
}

// readImages collects the uploaded files under "images" or "images[]". A request that is not
// multipart yields no images.
func (s *Server) readImages(c echo.Context) ([]entity.Image, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: parse form: %v", errUpload, err)
	}

	var files []*multipart.FileHeader
	files = append(files, form.File["images"]...)
	files = append(files, form.File["images[]"]...)
	if len(files) > s.cfg.MaxUploadFiles {
		return nil, fmt.Errorf("%w: %d files, limit %d", errUpload, len(files), s.cfg.MaxUploadFiles)
	}

	images := make([]entity.Image, 0, len(files))
	for _, fh := range files {
		if fh.Size > s.cfg.MaxUploadBytes {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", errUpload, fh.Filename, fh.Size, s.cfg.MaxUploadBytes)
		}
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		images = append(images, entity.Image{Name: fh.Filename, Data: data})
	}
	return images, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

func (s *Server) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errUpload), errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrSchedulerClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	s.logger.Warn("server.request.failed",
		"req_id", common.RequestIDFromContext(c.Request().Context()),
		"path", c.Path(),
		"status", status,
		"error", err,
	)
	return c.JSON(status, errorResponse{Error: err.Error()})
}
