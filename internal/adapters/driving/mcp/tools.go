package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

const (
	defaultRelatedK = 5
	maxRelatedK     = 50
	defaultRef      = "mcp"
)

// ClassifyNoteInput is the input schema for the classify_note tool.
type ClassifyNoteInput struct {
	Content     string `json:"content" jsonschema:"the text to classify"`
	ContentType string `json:"content_type,omitempty" jsonschema:"one of text, url, voice-transcript (default text)"`
	SourceRef   string `json:"source_ref,omitempty" jsonschema:"opaque reference to the originating message"`
	Save        bool   `json:"save,omitempty" jsonschema:"store the note and link related notes"`
}

// ClassifyNoteOutput is the output schema for the classify_note tool.
type ClassifyNoteOutput struct {
	Category           string         `json:"category"`
	Confidence         float64        `json:"confidence"`
	Summary            string         `json:"summary,omitempty"`
	Tags               []string       `json:"tags,omitempty"`
	Fields             map[string]any `json:"fields,omitempty"`
	Degraded           bool           `json:"degraded"`
	DegradedReason     string         `json:"degraded_reason,omitempty"`
	CacheHit           bool           `json:"cache_hit"`
	InferenceLatencyMs int64          `json:"inference_latency_ms"`
	Model              string         `json:"model,omitempty"`

	// Set only when the note was saved.
	DocumentID string          `json:"document_id,omitempty"`
	Location   string          `json:"location,omitempty"`
	Rendered   string          `json:"rendered,omitempty"`
	Related    []RelatedOutput `json:"related,omitempty"`
}

// RelatedDocumentsInput is the input schema for the related_documents tool.
type RelatedDocumentsInput struct {
	Text string `json:"text" jsonschema:"the text to find related notes for"`
	K    int    `json:"k,omitempty" jsonschema:"maximum number of notes to return (default 5)"`
}

// RelatedDocumentsOutput is the output schema for the related_documents tool.
type RelatedDocumentsOutput struct {
	Results []RelatedOutput `json:"results"`
	Count   int             `json:"count"`
}

// RelatedOutput represents a single related note.
type RelatedOutput struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Category   string  `json:"category,omitempty"`
	Score      float64 `json:"score"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "classify_note",
		Description: "Classify text into a note category with extracted metadata; optionally store it",
	}, s.handleClassifyNote)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "related_documents",
		Description: "Find stored notes similar to the given text",
	}, s.handleRelatedDocuments)
}

// handleClassifyNote handles the classify_note tool invocation.
func (s *Server) handleClassifyNote(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ClassifyNoteInput,
) (*mcp.CallToolResult, ClassifyNoteOutput, error) {
	item, err := s.itemFor(input)
	if err != nil {
		return nil, ClassifyNoteOutput{}, err
	}

	if !input.Save {
		result, err := s.ports.Classification.Classify(ctx, item)
		if err != nil {
			return nil, ClassifyNoteOutput{}, err
		}
		return nil, classificationOutput(result), nil
	}

	res, err := s.ports.Notes.Process(ctx, item)
	if err != nil {
		return nil, ClassifyNoteOutput{}, err
	}
	output := classificationOutput(res.Classification)
	output.DocumentID = res.Document.ID
	output.Location = res.Document.Location
	output.Rendered = res.Document.Rendered
	output.Related = s.describe(ctx, res.Related)
	return nil, output, nil
}

// handleRelatedDocuments handles the related_documents tool invocation.
func (s *Server) handleRelatedDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RelatedDocumentsInput,
) (*mcp.CallToolResult, RelatedDocumentsOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, RelatedDocumentsOutput{}, fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	k := input.K
	if k <= 0 {
		k = defaultRelatedK
	}
	k = min(k, maxRelatedK)

	results := s.describe(ctx, s.ports.Notes.RelatedDocuments(ctx, input.Text, k))
	return nil, RelatedDocumentsOutput{
		Results: results,
		Count:   len(results),
	}, nil
}

// itemFor builds the raw item of a classify_note call.
func (s *Server) itemFor(input ClassifyNoteInput) (domain.RawItem, error) {
	contentType, err := domain.ParseContentType(input.ContentType)
	if err != nil {
		return domain.RawItem{}, err
	}
	ref := input.SourceRef
	if ref == "" {
		ref = defaultRef
	}
	item := domain.RawItem{
		Content:     input.Content,
		ContentType: contentType,
		CreatedAt:   s.now(),
		SourceRef:   ref,
	}
	if err := item.Validate(); err != nil {
		return domain.RawItem{}, err
	}
	return item, nil
}

// describe adds titles and categories to similarity hits. Hits whose note
// can no longer be read keep only their id.
func (s *Server) describe(ctx context.Context, hits []domain.RelatedDocument) []RelatedOutput {
	out := make([]RelatedOutput, len(hits))
	for i, h := range hits {
		out[i] = RelatedOutput{DocumentID: h.DocumentID, Score: h.Score}
		doc, err := s.ports.Notes.Get(ctx, h.DocumentID)
		if err != nil {
			continue
		}
		out[i].Title = doc.Title
		out[i].Category = string(doc.Category)
	}
	return out
}

func classificationOutput(r *domain.ClassificationResult) ClassifyNoteOutput {
	if r == nil {
		return ClassifyNoteOutput{}
	}
	return ClassifyNoteOutput{
		Category:           string(r.Category),
		Confidence:         r.Confidence,
		Summary:            r.Summary,
		Tags:               r.Tags,
		Fields:             r.Extracted,
		Degraded:           r.Degraded,
		DegradedReason:     r.DegradedReason,
		CacheHit:           r.CacheHit,
		InferenceLatencyMs: r.InferenceLatencyMs,
		Model:              r.Model,
	}
}
