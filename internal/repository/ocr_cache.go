package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/partlister/internal/entity"
)

// OCRCacheRepository persists OCR results keyed by the digest of their input images.
type OCRCacheRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewOCRCacheRepository(db *sql.DB, logger *slog.Logger) *OCRCacheRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRCacheRepository{db: db, logger: logger}
}

// Get returns the cached result for key; ok is false on a miss.
func (r *OCRCacheRepository) Get(ctx context.Context, key string) (entity.OCRResult, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT result FROM ocr_results WHERE image_hash = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.OCRResult{}, false, nil
	}
	if err != nil {
		return entity.OCRResult{}, false, fmt.Errorf("query ocr cache: %w", err)
	}

	var res entity.OCRResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		r.logger.Warn("ocr.cache.corrupt", "image_hash", key, "error", err)
		return entity.OCRResult{}, false, nil
	}
	if res.DetectedTexts == nil {
		res.DetectedTexts = []string{}
	}
	return res, true, nil
}

// Put inserts or replaces the result for key.
func (r *OCRCacheRepository) Put(ctx context.Context, key string, res entity.OCRResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode ocr result: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ocr_results (image_hash, backend, confidence, result)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			backend = excluded.backend,
			confidence = excluded.confidence,
			result = excluded.result,
			created_at = CURRENT_TIMESTAMP`,
		key, res.Backend, res.Confidence, string(b))
	if err != nil {
		return fmt.Errorf("store ocr result: %w", err)
	}
	r.logger.Debug("ocr.cache.stored", "image_hash", key, "backend", res.Backend)
	return nil
}

// Count returns the number of cached results.
func (r *OCRCacheRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ocr_results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ocr cache: %w", err)
	}
	return n, nil
}
