package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/partlister/internal/llm"
)

// SheetName is the worksheet holding one row per part folder.
const SheetName = "Listings"

var xlsxHeaders = []string{
	"Folder",
	"Images",
	"Part Number",
	"Title",
	"Description",
	"Price 1",
	"Price 2",
	"Price 3",
	"Compatibility",
	"OCR Backend",
	"OCR Confidence",
	"Model",
	"AI Generated",
	"Error",
}

// Service produces export artifacts.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ListingsXLSX returns an XLSX workbook (as bytes) with one row per folder.
func (s *Service) ListingsXLSX(ctx context.Context, rows []Row) ([]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	activeIndex, _ := f.GetSheetIndex(SheetName)
	f.SetActiveSheet(activeIndex)

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		write(1, r.Folder)
		if r.Failed() {
			write(14, r.Err)
			continue
		}
		res := r.Result
		write(2, strings.Join(res.Images, ", "))
		write(3, res.PartNumber)
		write(4, res.Listing.Title)
		write(5, truncate(res.Listing.Description, 500))
		for j, p := range res.Listing.SuggestedPrices {
			if j >= llm.MaxPrices {
				break
			}
			write(6+j, p)
		}
		write(9, formatCompatibility(res.Compatibility))
		write(10, res.OCR.Backend)
		write(11, res.OCR.Confidence)
		write(12, res.Listing.Model)
		write(13, res.Listing.UsedRealBackend)
		write(14, res.Listing.Meta["error"])
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetName, "A", "A", 24) // folder
	_ = f.SetColWidth(SheetName, "B", "B", 32) // images
	_ = f.SetColWidth(SheetName, "C", "C", 18) // part number
	_ = f.SetColWidth(SheetName, "D", "D", 48) // title
	_ = f.SetColWidth(SheetName, "E", "E", 64) // description
	_ = f.SetColWidth(SheetName, "F", "H", 10) // prices
	_ = f.SetColWidth(SheetName, "I", "I", 36) // compatibility
	_ = f.SetColWidth(SheetName, "N", "N", 48) // error

	if style, err := f.NewStyle(&excelize.Style{NumFmt: 2}); err == nil {
		_ = f.SetColStyle(SheetName, "F:H", style)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, style)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
