// Package ingest discovers part folders on disk for batch listing generation.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joseph-ayodele/partlister/constants"
	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/entity"
)

// DefaultMaxFileBytes matches the upload limit of the HTTP adapter.
const DefaultMaxFileBytes = 10 << 20

// Folder is one part: every accepted image sharing a parent directory.
type Folder struct {
	Name  string   // directory path relative to the scan root ("." for the root itself)
	Path  string   // absolute directory path
	Files []string // absolute image paths, sorted
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
	Folders uint32
}

// FileError records a path the walk could not read.
type FileError struct {
	Path string
	Err  string
}

// Scanner walks a root directory and groups images into part folders.
type Scanner struct {
	SkipHidden bool
	MaxBytes   int64
	logger     *slog.Logger
}

func NewScanner(skipHidden bool, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{SkipHidden: skipHidden, MaxBytes: DefaultMaxFileBytes, logger: logger}
}

// Scan walks root and returns part folders sorted by name. Unreadable entries are collected
// as FileErrors and do not stop the walk.
func (s *Scanner) Scan(ctx context.Context, root string) ([]Folder, []FileError, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, nil, stats, common.NewAppError(common.CodeInvalidInput, "root path is required", common.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, stats, fmt.Errorf("abs path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, nil, stats, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, stats, common.NewAppError(common.CodeInvalidInput, abs+" is not a directory", common.ErrInvalidInput)
	}

	byDir := map[string][]string{}
	var failures []FileError

	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			failures = append(failures, FileError{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if s.SkipHidden && path != abs && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !constants.AllowedExt(filepath.Ext(path)) {
			stats.Skipped++
			return nil
		}
		stats.Matched++
		dir := filepath.Dir(path)
		byDir[dir] = append(byDir[dir], path)
		return nil
	})
	if err != nil {
		return nil, failures, stats, fmt.Errorf("walk: %w", err)
	}

	folders := make([]Folder, 0, len(byDir))
	for dir, files := range byDir {
		rel, err := filepath.Rel(abs, dir)
		if err != nil {
			rel = dir
		}
		slices.Sort(files)
		folders = append(folders, Folder{Name: filepath.ToSlash(rel), Path: dir, Files: files})
	}
	slices.SortFunc(folders, func(a, b Folder) int { return strings.Compare(a.Name, b.Name) })
	stats.Folders = uint32(len(folders))

	s.logger.Info("ingest.scan.ok",
		"root", abs,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"folders", stats.Folders,
		"failed", stats.Failed,
	)
	return folders, failures, stats, nil
}

// Load reads the images of f. Files over MaxBytes are rejected with ErrInvalidInput.
func (s *Scanner) Load(f Folder) ([]entity.Image, error) {
	images := make([]entity.Image, 0, len(f.Files))
	for _, p := range f.Files {
		img, err := ReadImage(p, s.MaxBytes)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// ReadImage reads one image file, enforcing the extension allow-list and a size cap
// (maxBytes <= 0 disables the cap).
func ReadImage(path string, maxBytes int64) (entity.Image, error) {
	if !constants.AllowedExt(filepath.Ext(path)) {
		return entity.Image{}, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("unsupported image type %q", filepath.Ext(path)), common.ErrInvalidInput)
	}
	info, err := os.Stat(path)
	if err != nil {
		return entity.Image{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return entity.Image{}, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("%s is %d bytes, limit %d", filepath.Base(path), info.Size(), maxBytes), common.ErrInvalidInput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.Image{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return entity.Image{}, common.NewAppError(common.CodeInvalidInput, filepath.Base(path)+" is empty", common.ErrInvalidInput)
	}
	return entity.Image{Name: filepath.Base(path), Data: data}, nil
}

// HashHex is the hex sha256 of data, used to label rows in batch output.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// IsInvalidInput reports whether err was caused by rejected input rather than I/O.
func IsInvalidInput(err error) bool {
	return errors.Is(err, common.ErrInvalidInput)
}
