package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driving"
	"github.com/custodia-labs/kbnote/internal/logger"
)

// Ensure ClassificationPipeline implements the interface.
var _ driving.ClassificationService = (*ClassificationPipeline)(nil)

// PatternExtractor finds rule-based fields in text.
type PatternExtractor interface {
	Extract(text string) map[string]any
}

// StateObserver is notified of each state an item enters.
type StateObserver func(item domain.RawItem, state domain.PipelineState)

// ClassificationPipeline drives one item through pattern extraction and
// rate-limited inference and merges the two into a ClassificationResult.
//
// Inference failures never fail the item: the result is degraded to the
// default category with zero confidence and pattern fields only. Only the
// caller's deadline or cancellation ends in StateFailed.
type ClassificationPipeline struct {
	extractor   PatternExtractor
	inference   *InferenceClient
	limiter     *Limiter
	normalisers *NormaliserRegistry
	schema      *domain.Schema
	cfg         domain.PipelineConfig
	observer    StateObserver
}

// NewClassificationPipeline creates a pipeline that owns limiter.
func NewClassificationPipeline(
	extractor PatternExtractor,
	inference *InferenceClient,
	limiter *Limiter,
	normalisers *NormaliserRegistry,
	schema *domain.Schema,
	cfg domain.PipelineConfig,
) *ClassificationPipeline {
	if normalisers == nil {
		normalisers = NewNormaliserRegistry()
	}
	return &ClassificationPipeline{
		extractor:   extractor,
		inference:   inference,
		limiter:     limiter,
		normalisers: normalisers,
		schema:      schema,
		cfg:         cfg,
	}
}

// SetObserver registers a state observer. It must be called before the
// pipeline is used concurrently.
func (p *ClassificationPipeline) SetObserver(observer StateObserver) {
	p.observer = observer
}

// Limiter returns the limiter owned by the pipeline.
func (p *ClassificationPipeline) Limiter() *Limiter {
	return p.limiter
}

// Classify normalises and classifies one item.
func (p *ClassificationPipeline) Classify(ctx context.Context, item domain.RawItem) (*domain.ClassificationResult, error) {
	body, err := p.Normalise(item)
	if err != nil {
		return nil, err
	}
	return p.ClassifyBody(ctx, item, body)
}

// Normalise validates an item and returns its body text.
func (p *ClassificationPipeline) Normalise(item domain.RawItem) (string, error) {
	p.observe(item, domain.StateReceived)
	if err := item.Validate(); err != nil {
		p.observe(item, domain.StateFailed)
		return "", &domain.PipelineError{SourceRef: item.SourceRef, State: domain.StateReceived, Err: err}
	}
	body, err := p.normalisers.Normalise(item)
	if err == nil && body == "" {
		err = fmt.Errorf("%w: content is empty after normalisation", domain.ErrInvalidInput)
	}
	if err != nil {
		p.observe(item, domain.StateFailed)
		return "", &domain.PipelineError{SourceRef: item.SourceRef, State: domain.StateReceived, Err: err}
	}
	return body, nil
}

// ClassifyBody classifies an item whose body was already normalised.
func (p *ClassificationPipeline) ClassifyBody(
	ctx context.Context,
	item domain.RawItem,
	body string,
) (*domain.ClassificationResult, error) {
	logger.Section("Classify " + item.SourceRef)

	pattern := p.extractor.Extract(body)
	p.observe(item, domain.StatePatternExtracted)
	logger.Debug("pattern fields: %d", len(pattern))

	p.observe(item, domain.StateCacheCheck)
	start := time.Now()
	outcome, err := p.infer(ctx, item, body)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			p.observe(item, domain.StateFailed)
			return nil, &domain.PipelineError{
				SourceRef: item.SourceRef,
				State:     domain.StateInferring,
				Err:       contextFailure(ctxErr),
			}
		}
		logger.Warn("classification degraded for %q: %v", item.SourceRef, err)
		result := p.degraded(pattern, err)
		result.InferenceLatencyMs = latency
		p.observe(item, domain.StateMerged)
		p.observe(item, domain.StateDone)
		return result, nil
	}

	inferred := outcome.Result
	result := &domain.ClassificationResult{
		Category:           inferred.Category,
		Confidence:         inferred.Confidence,
		Summary:            inferred.Summary,
		Tags:               inferred.Tags,
		Extracted:          mergeFields(p.schema, pattern, inferred),
		InferenceLatencyMs: latency,
		CacheHit:           outcome.CacheHit,
		Model:              inferred.Model,
	}
	p.observe(item, domain.StateMerged)
	logger.Debug("classified as %s (confidence %.2f, cache hit %t, %dms)",
		result.Category, result.Confidence, result.CacheHit, latency)

	p.observe(item, domain.StateDone)
	return result, nil
}

// infer runs the inference call through the limiter.
func (p *ClassificationPipeline) infer(ctx context.Context, item domain.RawItem, body string) (Outcome, error) {
	if p.inference == nil || !p.inference.Available() {
		return Outcome{}, domain.ErrLLMUnavailable
	}
	return p.limiter.Execute(ctx, Request{
		Key: ContentKey(body),
		Work: func(ctx context.Context, attempt Attempt) (*domain.InferenceResult, error) {
			if attempt.Number == 1 {
				p.observe(item, domain.StateInferring)
			}
			return p.inference.Classify(ctx, body, attempt.Strict)
		},
	})
}

// degraded builds the fallback result used when inference fails.
func (p *ClassificationPipeline) degraded(pattern map[string]any, err error) *domain.ClassificationResult {
	extracted := make(map[string]any, len(pattern))
	for k, v := range pattern {
		extracted[k] = v
	}
	return &domain.ClassificationResult{
		Category:       p.cfg.DefaultCategory,
		Confidence:     0,
		Extracted:      extracted,
		Degraded:       true,
		DegradedReason: domain.DegradedReason(err),
	}
}

func (p *ClassificationPipeline) observe(item domain.RawItem, state domain.PipelineState) {
	if p.observer != nil {
		p.observer(item, state)
	}
}

// contextFailure maps a context error onto the pipeline failure taxonomy.
func contextFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}

// mergeFields unions pattern and inference fields. On collision the
// pattern value wins for number, date, datetime and boolean fields, the
// inference value wins for text and arrays, and links are unioned.
func mergeFields(schema *domain.Schema, pattern map[string]any, inferred *domain.InferenceResult) map[string]any {
	merged := make(map[string]any, len(pattern)+len(inferred.Fields)+1)
	for k, v := range inferred.Fields {
		merged[k] = v
	}
	if inferred.Title != "" {
		merged[domain.FieldTitle] = inferred.Title
	}

	for k, pv := range pattern {
		iv, collides := merged[k]
		if !collides {
			merged[k] = pv
			continue
		}
		switch schema.Kind(k) {
		case domain.KindNumber, domain.KindDate, domain.KindDatetime, domain.KindBoolean:
			merged[k] = pv
		case domain.KindArray:
			if k == domain.FieldLinks {
				merged[k] = unionStrings(pv, iv)
			}
		}
	}
	return merged
}

// unionStrings concatenates string lists, dropping duplicates. Values that
// are not string lists contribute nothing.
func unionStrings(values ...any) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, v := range values {
		switch x := v.(type) {
		case []string:
			for _, s := range x {
				add(s)
			}
		case []any:
			for _, item := range x {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case string:
			add(x)
		}
	}
	return out
}
