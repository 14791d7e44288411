package domain

// InferenceResult is the flat result of one model call.
// Optional values the model chose to extract are carried in Fields,
// keyed by metadata field name.
type InferenceResult struct {
	Category   Category
	Confidence float64
	Summary    string
	Tags       []string
	Title      string
	Fields     map[string]any
	Model      string
}

// ClassificationResult is the unified output of the pipeline for one item.
// It is consumed once by metadata coercion and never persisted as-is.
type ClassificationResult struct {
	Category   Category
	Confidence float64
	Summary    string
	Tags       []string

	// Extracted holds the merged pattern and inference values by field name.
	Extracted map[string]any

	InferenceLatencyMs int64
	CacheHit           bool

	// Degraded is set when inference failed and defaults were applied.
	Degraded       bool
	DegradedReason string

	// Model names the model that produced the classification, if any.
	Model string
}

// PipelineState is the processing stage of one item.
type PipelineState string

// Pipeline states in transition order.
const (
	StateReceived         PipelineState = "received"
	StatePatternExtracted PipelineState = "pattern_extracted"
	StateCacheCheck       PipelineState = "cache_check"
	StateInferring        PipelineState = "inferring"
	StateMerged           PipelineState = "merged"
	StateDone             PipelineState = "done"
	StateFailed           PipelineState = "failed"
)

// IsTerminal reports whether no further transitions follow.
func (s PipelineState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// String returns the string representation.
func (s PipelineState) String() string {
	return string(s)
}
