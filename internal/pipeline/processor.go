// Package pipeline runs one listing request end to end: scheduled OCR, part-number
// resolution, compatibility synthesis and listing generation.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/core/async"
	"github.com/joseph-ayodele/partlister/internal/entity"
	"github.com/joseph-ayodele/partlister/internal/listing"
	"github.com/joseph-ayodele/partlister/internal/llm"
	"github.com/joseph-ayodele/partlister/internal/partnumber"
)

// Recognizer turns images into an OCR result. It never fails.
type Recognizer interface {
	Recognize(ctx context.Context, images []entity.Image) entity.OCRResult
}

// GenerateRequest is one listing request.
type GenerateRequest struct {
	Images              []entity.Image
	PartNumber          string
	Vehicle             *entity.Vehicle
	ExistingTitle       string
	ExistingDescription string
	Compatibility       []entity.CompatibilityEntry
}

// Processor coordinates OCR (through the scheduler), part-number resolution and listing
// generation.
type Processor struct {
	Logger    *slog.Logger
	Scheduler *async.Scheduler
	OCRStage  Recognizer
	Resolver  *partnumber.Resolver
	Generator *listing.Generator
}

func NewProcessor(logger *slog.Logger, sched *async.Scheduler, ocr Recognizer, resolver *partnumber.Resolver, gen *listing.Generator) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Scheduler: sched, OCRStage: ocr, Resolver: resolver, Generator: gen}
}

// OCR runs only the OCR step. The only errors are caller cancellation and scheduler shutdown.
func (p *Processor) OCR(ctx context.Context, images []entity.Image) (entity.OCRResult, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return entity.OCRResult{}, err
	}

	fut := async.Submit(p.Scheduler, func(taskCtx context.Context) (entity.OCRResult, error) {
		// The task honours both its own deadline and the caller's cancellation.
		taskCtx, cancel := context.WithCancel(common.WithRequestID(taskCtx, rid))
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()
		return p.OCRStage.Recognize(taskCtx, images), nil
	})
	res, err := fut.Wait(ctx)
	if err != nil {
		p.Logger.Warn("processor.ocr.failed", "req_id", rid, "error", err)
		return entity.OCRResult{}, err
	}
	p.Logger.Info("processor.ocr.ok",
		"req_id", rid,
		"images", len(images),
		"backend", res.Backend,
		"confidence", res.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Generate runs the full pipeline. Backend failures degrade inside each stage; only
// cancellation and scheduler shutdown surface as errors.
func (p *Processor) Generate(ctx context.Context, req GenerateRequest) (entity.GenerateResult, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()

	ocrRes, err := p.OCR(ctx, req.Images)
	if err != nil {
		return entity.GenerateResult{}, err
	}

	pn := p.Resolver.Resolve(ctx, ocrRes, req.PartNumber, req.Vehicle)
	descriptor := llm.VehicleDescriptor(req.Vehicle, ocrRes.VehicleInfo)
	compat := listing.SynthesizeCompatibility(req.Compatibility, descriptor)

	suggestion := p.Generator.Generate(ctx, listing.Request{
		OCR:                 ocrRes,
		PartNumber:          pn,
		Vehicle:             req.Vehicle,
		ExistingTitle:       req.ExistingTitle,
		ExistingDescription: req.ExistingDescription,
		Compatibility:       compat,
	})

	names := make([]string, len(req.Images))
	for i, img := range req.Images {
		names[i] = img.Name
	}

	p.Logger.Info("processor.generate.ok",
		"req_id", rid,
		"part_number", pn,
		"used_real_backend", suggestion.UsedRealBackend,
		"model", suggestion.Model,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.GenerateResult{
		OCR:           ocrRes,
		PartNumber:    pn,
		Listing:       suggestion,
		Compatibility: compat,
		Images:        names,
	}, nil
}
