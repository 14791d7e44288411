package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbnote/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbnote/internal/core/domain"
)

var (
	classifyType string
	classifyRef  string
	classifySave bool
	classifyJSON bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify a piece of text",
	Long: `Runs pattern extraction and LLM classification on one item and prints
the result. Without arguments, or with "-", the text is read from stdin.

With --save the item is filed as a note and indexed for related lookups.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyType, "type", "t", "text", "content type: text, url or voice-transcript")
	classifyCmd.Flags().StringVar(&classifyRef, "ref", "cli", "source reference recorded with the item")
	classifyCmd.Flags().BoolVar(&classifySave, "save", false, "store the note and index it")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	item, err := readItem(cmd, args)
	if err != nil {
		return err
	}

	if classifySave {
		return runClassifySave(cmd, item)
	}

	if classificationService == nil {
		return notConfigured("classification service")
	}

	result, err := classificationService.Classify(cmd.Context(), item)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	if classifyJSON {
		return outputJSON(cmd, classificationJSON(result))
	}
	printClassification(cmd, outputStyles(cmd), result)
	return nil
}

func runClassifySave(cmd *cobra.Command, item domain.RawItem) error {
	if noteService == nil {
		return notConfigured("note service")
	}

	result, err := noteService.Process(cmd.Context(), item)
	if err != nil {
		return fmt.Errorf("failed to process item: %w", err)
	}

	if classifyJSON {
		out := savedJSON{
			DocumentID: result.Document.ID,
			Location:   result.Document.Location,
			Related:    toRelatedOutput(result.Related),
		}
		if result.Classification != nil {
			out.Classification = classificationJSON(result.Classification)
		}
		return outputJSON(cmd, out)
	}

	s := outputStyles(cmd)
	if result.Classification != nil {
		printClassification(cmd, s, result.Classification)
		cmd.Println()
	}
	cmd.Printf("%s %s\n", s.Saved.Render("Saved"), result.Document.Location)
	cmd.Printf("  ID: %s\n", result.Document.ID)
	if len(result.Related) > 0 {
		cmd.Println("  Related:")
		for _, r := range result.Related {
			cmd.Printf("    %s (%.2f)\n", r.DocumentID, r.Score)
		}
	}
	return nil
}

// readItem builds the raw item from arguments or stdin.
func readItem(cmd *cobra.Command, args []string) (domain.RawItem, error) {
	contentType, err := domain.ParseContentType(classifyType)
	if err != nil {
		return domain.RawItem{}, err
	}

	var content string
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return domain.RawItem{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		content = string(data)
	} else {
		content = strings.Join(args, " ")
	}

	item := domain.RawItem{
		Content:     strings.TrimSpace(content),
		ContentType: contentType,
		CreatedAt:   time.Now(),
		SourceRef:   classifyRef,
	}
	if err := item.Validate(); err != nil {
		return domain.RawItem{}, err
	}
	return item, nil
}

func printClassification(cmd *cobra.Command, s *styles.Styles, r *domain.ClassificationResult) {
	cmd.Printf("Category:   %s\n", s.Category(r.Category).Render(string(r.Category)))
	cmd.Printf("Confidence: %.2f\n", r.Confidence)
	if r.Summary != "" {
		cmd.Printf("Summary:    %s\n", r.Summary)
	}
	if len(r.Tags) > 0 {
		cmd.Printf("Tags:       %s\n", strings.Join(r.Tags, ", "))
	}
	if r.Model != "" {
		cmd.Printf("Model:      %s (%dms", r.Model, r.InferenceLatencyMs)
		if r.CacheHit {
			cmd.Print(", cached")
		}
		cmd.Println(")")
	}
	if r.Degraded {
		cmd.Printf("%s %s\n", s.Degraded.Render("Degraded:"), r.DegradedReason)
	}

	if len(r.Extracted) == 0 {
		return
	}
	cmd.Println("Fields:")
	keys := make([]string, 0, len(r.Extracted))
	for k := range r.Extracted {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Printf("  %s: %v\n", s.Label.Render(k), r.Extracted[k])
	}
}

type classificationOutput struct {
	Category       domain.Category `json:"category"`
	Confidence     float64         `json:"confidence"`
	Summary        string          `json:"summary,omitempty"`
	Tags           []string        `json:"tags"`
	Fields         map[string]any  `json:"fields"`
	Degraded       bool            `json:"degraded"`
	DegradedReason string          `json:"degraded_reason,omitempty"`
	CacheHit       bool            `json:"cache_hit"`
	LatencyMs      int64           `json:"inference_latency_ms"`
	Model          string          `json:"model,omitempty"`
}

type savedJSON struct {
	DocumentID     string                `json:"document_id"`
	Location       string                `json:"location"`
	Classification *classificationOutput `json:"classification,omitempty"`
	Related        []relatedOutput       `json:"related"`
}

func classificationJSON(r *domain.ClassificationResult) *classificationOutput {
	out := &classificationOutput{
		Category:       r.Category,
		Confidence:     r.Confidence,
		Summary:        r.Summary,
		Tags:           r.Tags,
		Fields:         r.Extracted,
		Degraded:       r.Degraded,
		DegradedReason: r.DegradedReason,
		CacheHit:       r.CacheHit,
		LatencyMs:      r.InferenceLatencyMs,
		Model:          r.Model,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if out.Fields == nil {
		out.Fields = map[string]any{}
	}
	return out
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
