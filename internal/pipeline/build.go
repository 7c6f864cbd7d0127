package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/core/async"
	"github.com/joseph-ayodele/partlister/internal/core/ocr"
	"github.com/joseph-ayodele/partlister/internal/listing"
	"github.com/joseph-ayodele/partlister/internal/llm"
	"github.com/joseph-ayodele/partlister/internal/llm/openai"
	"github.com/joseph-ayodele/partlister/internal/partnumber"
	"github.com/joseph-ayodele/partlister/internal/repository"
)

// Deps are optional collaborators that Build would otherwise create itself.
type Deps struct {
	Runner   ocr.Runner  // external process runner; defaults to ocr.ExecRunner
	Embedded ocr.Backend // in-process engine tier; nil leaves it out
	Cache    ocr.Cache   // overrides the sqlite cache from config
}

// Build wires a Processor from configuration. The returned close function shuts the
// scheduler down and releases the cache database.
func Build(ctx context.Context, cfg common.Config, deps Deps, logger *slog.Logger) (*Processor, func(context.Context), error) {
	if logger == nil {
		logger = slog.Default()
	}

	sched, err := async.NewScheduler(cfg.Scheduler.Concurrency, logger, async.WithTaskTimeout(cfg.Scheduler.TaskTimeout))
	if err != nil {
		return nil, nil, err
	}

	closers := []func(context.Context){sched.Shutdown}

	cache := deps.Cache
	if cache == nil && cfg.Cache.Enabled {
		db, err := repository.Open(ctx, repository.Config{Path: cfg.Cache.Path, EnableWAL: true}, logger)
		if err != nil {
			// the cache is an optimisation; run without it
			logger.Warn("pipeline.cache.disabled", "path", cfg.Cache.Path, "error", err)
		} else {
			cache = repository.NewOCRCacheRepository(db, logger)
			closers = append(closers, func(context.Context) { _ = db.Close() })
		}
	}

	// One lazily built client shared by every AI-backed component.
	provider := openai.NewProvider(openai.ConfigFrom(cfg.LLM), logger)
	var (
		writer  llm.ListingWriter
		arbiter llm.PartNumberArbiter
		vision  *ocr.VisionBackend
	)
	if provider.Enabled() {
		writer, arbiter = provider, provider
		vision = ocr.NewVisionBackend(cfg.OCR.EnableVision, provider, logger)
	}

	runner := deps.Runner
	if runner == nil {
		runner = ocr.ExecRunner{}
	}
	backends := ocr.Backends(cfg.OCR, runner, deps.Embedded, vision, logger)
	visionModel := cfg.LLM.VisionModel
	if visionModel == "" {
		visionModel = cfg.LLM.Model
	}
	orch := ocr.NewOrchestrator(cfg.OCR.MaxImages, backends, ocr.NewPreprocessor(cfg.OCR, runner, logger), cache, logger,
		ocr.WithCacheNamespace(ocr.ConfigFingerprint(cfg.OCR, visionModel)))

	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.Name()
	}
	logger.Info("pipeline.ready",
		"concurrency", cfg.Scheduler.Concurrency,
		"backends", names,
		"llm", provider.Enabled(),
		"cache", cache != nil,
	)

	proc := NewProcessor(logger, sched, orch, partnumber.NewResolver(arbiter, logger), listing.NewGenerator(writer, logger))
	closeFn := func(ctx context.Context) {
		for _, c := range closers {
			c(ctx)
		}
	}
	return proc, closeFn, nil
}
