package nlp

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cartvoice/backend/internal/domain"
)

// fallbackConfidence is assigned to results replaced by the external
// extraction service.
const fallbackConfidence = 0.90

// fallbackTimeoutBuffer pads the service timeout so the transport gets a
// chance to fail first and report a real error instead of a bare deadline.
const fallbackTimeoutBuffer = time.Second

// PipelineConfig tunes confidence gating and the fallback time budget.
type PipelineConfig struct {
	// ConfidenceThreshold gates escalation: primary results at or above it
	// are returned as-is. Default 0.85.
	ConfidenceThreshold float64

	// FallbackTimeout is the budget for one fallback call. The hard wait is
	// this plus fallbackTimeoutBuffer. Default 3s.
	FallbackTimeout time.Duration
}

// Pipeline sequences normalize → classify → extract → score → optional
// fallback escalation into one call. Process is total: malformed input still
// yields a complete ParsedCommand.
type Pipeline struct {
	normalizer *Normalizer
	classifier *IntentClassifier
	extractor  *EntityExtractor
	scorer     *ConfidenceScorer
	fallback   domain.FallbackExtractor
	cfg        PipelineConfig
	logger     *zap.Logger
}

// NewPipeline wires the pipeline stages. fallback may be nil, in which case
// low-confidence results are returned without escalation. Zero config fields
// take defaults.
func NewPipeline(
	normalizer *Normalizer,
	classifier *IntentClassifier,
	extractor *EntityExtractor,
	scorer *ConfidenceScorer,
	fallback domain.FallbackExtractor,
	cfg PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.85
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		normalizer: normalizer,
		classifier: classifier,
		extractor:  extractor,
		scorer:     scorer,
		fallback:   fallback,
		cfg:        cfg,
		logger:     logger,
	}
}

// Process turns one raw transcript into a ParsedCommand with per-stage
// timings. It never returns an error; the worst case is a low-confidence
// default command.
func (p *Pipeline) Process(ctx context.Context, raw string) domain.ParsedCommand {
	timings := make(map[string]float64, 5)

	start := time.Now()
	normalized := p.normalizer.Normalize(raw)
	timings["normalize"] = stageSeconds(start)

	start = time.Now()
	intent := p.classifier.Classify(normalized)
	timings["classify"] = stageSeconds(start)

	start = time.Now()
	ents := p.extractor.Extract(normalized)
	timings["extract"] = stageSeconds(start)

	start = time.Now()
	confidence := p.scorer.Score(ents.Item, ents.Quantity)
	timings["score"] = stageSeconds(start)

	cmd := domain.ParsedCommand{
		Intent:         intent,
		Item:           ents.Item,
		Quantity:       ents.Quantity,
		Unit:           ents.Unit,
		PriceMax:       ents.PriceMax,
		Confidence:     confidence,
		Method:         domain.MethodPrimary,
		NormalizedText: normalized,
	}

	if confidence < p.cfg.ConfidenceThreshold && p.fallback != nil {
		p.logger.Info("confidence below threshold, invoking fallback",
			zap.Float64("confidence", confidence),
			zap.Float64("threshold", p.cfg.ConfidenceThreshold))

		start = time.Now()
		if fields := p.escalate(ctx, normalized); fields != nil {
			cmd.Intent = fields.Intent
			cmd.Item = fields.Item
			cmd.Quantity = fields.Quantity
			cmd.Unit = fields.Unit
			cmd.Category = fields.Category
			cmd.Brand = fields.Brand
			cmd.PriceMax = fields.PriceMax
			cmd.Confidence = fallbackConfidence
			cmd.Method = domain.MethodFallback
		}
		timings["fallback"] = stageSeconds(start)
	}

	cmd.StageTimings = timings
	return cmd
}

type fallbackOutcome struct {
	fields *domain.ExtractedFields
	err    error
}

// escalate makes exactly one bounded-time fallback call. All failure modes
// (timeout, transport error, malformed response) return nil so the caller
// keeps the primary result. The call runs in its own goroutine so sibling
// pipeline invocations are never blocked; an expired call is abandoned, and
// the buffered channel lets it finish and exit on its own.
func (p *Pipeline) escalate(ctx context.Context, text string) *domain.ExtractedFields {
	budget := p.cfg.FallbackTimeout + fallbackTimeoutBuffer
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	done := make(chan fallbackOutcome, 1)
	go func() {
		fields, err := p.fallback.Extract(ctx, text)
		done <- fallbackOutcome{fields: fields, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			p.logger.Warn("fallback extraction failed, keeping primary result",
				zap.Error(out.err))
			return nil
		}
		return out.fields
	case <-ctx.Done():
		p.logger.Warn("fallback extraction timed out, keeping primary result",
			zap.Duration("budget", budget),
			zap.String("text", text))
		return nil
	}
}

// stageSeconds reports the elapsed time since start in seconds, rounded to
// four decimals to keep timing maps readable.
func stageSeconds(start time.Time) float64 {
	return math.Round(time.Since(start).Seconds()*10000) / 10000
}
