package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

var (
	relatedK      int
	relatedAsJSON bool
)

var relatedCmd = &cobra.Command{
	Use:   "related [text]",
	Short: "Find notes similar to a piece of text",
	Long: `Queries the similarity index for the stored notes closest to the given
text. Without arguments, or with "-", the text is read from stdin.`,
	RunE: runRelated,
}

func init() {
	relatedCmd.Flags().IntVarP(&relatedK, "limit", "k", 5, "maximum number of notes")
	relatedCmd.Flags().BoolVar(&relatedAsJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(relatedCmd)
}

func runRelated(cmd *cobra.Command, args []string) error {
	if noteService == nil {
		return notConfigured("note service")
	}

	var text string
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	} else {
		text = strings.Join(args, " ")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	if relatedK <= 0 {
		return fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}

	ctx := cmd.Context()
	hits := noteService.RelatedDocuments(ctx, text, relatedK)
	out := toRelatedOutput(hits)
	for i := range out {
		doc, err := noteService.Get(ctx, out[i].DocumentID)
		switch {
		case err == nil:
			out[i].Title = doc.Title
			out[i].Category = doc.Category
		case !errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("failed to read note %s: %w", out[i].DocumentID, err)
		}
	}

	if relatedAsJSON {
		return outputJSON(cmd, out)
	}

	if len(out) == 0 {
		cmd.Println("No related notes found.")
		return nil
	}

	s := outputStyles(cmd)
	cmd.Println("Related notes:")
	cmd.Println()
	for i, r := range out {
		title := r.Title
		if title == "" {
			title = r.DocumentID
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, r.Score)
		if r.Category != "" {
			cmd.Printf("      %s  %s\n", s.Category(r.Category).Render(string(r.Category)), s.Muted.Render(r.DocumentID))
		}
	}
	return nil
}

type relatedOutput struct {
	DocumentID string          `json:"document_id"`
	Title      string          `json:"title,omitempty"`
	Category   domain.Category `json:"category,omitempty"`
	Score      float64         `json:"score"`
}

func toRelatedOutput(hits []domain.RelatedDocument) []relatedOutput {
	out := make([]relatedOutput, 0, len(hits))
	for _, h := range hits {
		out = append(out, relatedOutput{DocumentID: h.DocumentID, Score: h.Score})
	}
	return out
}
