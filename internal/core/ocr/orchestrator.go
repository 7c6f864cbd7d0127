package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/entity"
	"github.com/joseph-ayodele/partlister/internal/partnumber"
)

const defaultMaxImages = 3

// Orchestrator runs images through an ordered list of OCR tiers and returns the first usable
// result. It never fails: every tier problem degrades to the next tier, and exhausting the list
// yields an empty result.
type Orchestrator struct {
	backends  []Backend
	prep      Preparer
	cache     Cache
	maxImages int
	namespace string
	logger    *slog.Logger
}

type OrchestratorOption func(*Orchestrator)

// WithCacheNamespace mixes ns into every cache key, so results produced under other
// settings are not served back. See ConfigFingerprint.
func WithCacheNamespace(ns string) OrchestratorOption {
	return func(o *Orchestrator) { o.namespace = ns }
}

// ConfigFingerprint describes the settings that change what the tiers would return.
func ConfigFingerprint(cfg common.OCRConfig, visionModel string) string {
	return fmt.Sprintf("native=%t embedded=%t vision=%t:%s psm=%s lang=%s tessdata=%s dim=%d tsv=%t",
		cfg.EnableNative, cfg.EnableEmbedded, cfg.EnableVision, visionModel,
		cfg.PSM, cfg.Lang, cfg.TessdataDir, cfg.MaxDimension, cfg.TSVConfidence)
}

// NewOrchestrator wires the tiers in the given order. prep and cache are optional.
func NewOrchestrator(maxImages int, backends []Backend, prep Preparer, cache Cache, logger *slog.Logger, opts ...OrchestratorOption) *Orchestrator {
	if maxImages <= 0 {
		maxImages = defaultMaxImages
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		backends:  backends,
		prep:      prep,
		cache:     cache,
		maxImages: maxImages,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Backends builds the default tier order: native, embedded, vision, simulated. embedded may be
// nil when the in-process engine is not linked in.
func Backends(cfg common.OCRConfig, runner Runner, embedded Backend, vision *VisionBackend, logger *slog.Logger) []Backend {
	out := []Backend{NewNativeBackend(cfg, runner, logger)}
	if embedded != nil {
		out = append(out, embedded)
	}
	if vision != nil {
		out = append(out, vision)
	}
	return append(out, NewSimulatedBackend(cfg.SimulateFallback))
}

func emptyResult() entity.OCRResult {
	return entity.OCRResult{DetectedTexts: []string{}, Confidence: 0}
}

// Recognize extracts text from up to maxImages images.
func (o *Orchestrator) Recognize(ctx context.Context, images []entity.Image) entity.OCRResult {
	if len(images) == 0 {
		return emptyResult()
	}
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()

	if len(images) > o.maxImages {
		o.logger.Debug("ocr.images.capped", "req_id", rid, "received", len(images), "kept", o.maxImages)
		images = images[:o.maxImages]
	}

	key := CacheKey(o.namespace, images)
	if o.cache != nil {
		res, ok, err := o.cache.Get(ctx, key)
		switch {
		case err != nil:
			o.logger.Warn("ocr.cache.get_failed", "req_id", rid, "error", err)
		case ok:
			o.logger.Info("ocr.cache.hit", "req_id", rid, "backend", res.Backend)
			return res
		}
	}

	prepared := o.prepare(ctx, rid, images)

	for _, b := range o.backends {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("ocr.cancelled", "req_id", rid, "error", err)
			return emptyResult()
		}
		if !b.Available(ctx) {
			o.logger.Debug("ocr.backend.skipped", "req_id", rid, "backend", b.Name())
			continue
		}

		tierStart := time.Now()
		o.logger.Debug("ocr.backend.start", "req_id", rid, "backend", b.Name(), "images", len(prepared))
		rec, err := b.Recognize(ctx, prepared)
		if err != nil {
			o.logger.Warn("ocr.backend.failed", "req_id", rid, "backend", b.Name(), "error", err,
				"elapsed_ms", time.Since(tierStart).Milliseconds())
			continue
		}

		texts := make([]string, 0, len(rec.Texts))
		for _, t := range rec.Texts {
			if t = Normalize(t); t != "" {
				texts = append(texts, t)
			}
		}
		if len(texts) == 0 {
			o.logger.Warn("ocr.backend.empty", "req_id", rid, "backend", b.Name())
			continue
		}

		res := assemble(b.Name(), texts, rec)
		o.logger.Info("ocr.done",
			"req_id", rid,
			"backend", res.Backend,
			"lines", len(res.DetectedTexts),
			"confidence", res.Confidence,
			"part_number", res.PartNumber,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if o.cache != nil && res.Backend != BackendSimulated {
			if err := o.cache.Put(ctx, key, res); err != nil {
				o.logger.Warn("ocr.cache.put_failed", "req_id", rid, "error", err)
			}
		}
		return res
	}

	o.logger.Warn("ocr.exhausted", "req_id", rid, "backends", len(o.backends))
	return emptyResult()
}

func (o *Orchestrator) prepare(ctx context.Context, rid string, images []entity.Image) []entity.Image {
	out := make([]entity.Image, len(images))
	for i, img := range images {
		out[i] = img
		if o.prep == nil {
			continue
		}
		data, err := o.prep.Prepare(ctx, img)
		if err != nil {
			o.logger.Warn("ocr.preprocess.failed", "req_id", rid, "image", img.Name, "error", err)
			continue
		}
		out[i].Data = data
	}
	return out
}

func assemble(backend string, texts []string, rec Recognition) entity.OCRResult {
	combined := strings.Join(texts, Separator)

	pn := strings.TrimSpace(rec.PartNumber)
	if pn == "" {
		pn = partnumber.BestCandidate(combined)
	}

	conf := HeuristicConfidence(combined)
	if rec.HasConfidence {
		conf = entity.ClampConfidence(rec.Confidence)
	}

	return entity.OCRResult{
		RawText:       combined,
		DetectedTexts: DetectedLines(combined),
		PartNumber:    pn,
		VehicleInfo:   strings.TrimSpace(rec.VehicleInfo),
		Confidence:    conf,
		Backend:       backend,
	}
}

// CacheKey digests the namespace and the image bytes in order. Every part is length-prefixed
// so boundaries cannot collide.
func CacheKey(namespace string, images []entity.Image) string {
	h := sha256.New()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(namespace)))
	h.Write(n[:])
	h.Write([]byte(namespace))
	for _, img := range images {
		binary.BigEndian.PutUint64(n[:], uint64(len(img.Data)))
		h.Write(n[:])
		h.Write(img.Data)
	}
	return hex.EncodeToString(h.Sum(nil))
}
