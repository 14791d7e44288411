package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

var (
	showRerender bool
	listCategory string
	listLimit    int
	listJSON     bool
)

var showCmd = &cobra.Command{
	Use:   "show [document-id]",
	Short: "Print a stored note",
	Long: `Prints the rendered text of a stored note. With --rerender the note is
rendered again from its metadata and stored with a fresh modified time.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored notes",
	RunE:  runList,
}

var removeCmd = &cobra.Command{
	Use:   "remove [document-id]",
	Short: "Delete a stored note",
	Long:  `Deletes a note and drops it from the similarity index.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var rebuildIndexCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "Recompute the similarity index",
	Long: `Recomputes every term weight in the similarity index from the stored
vectors. Run it after bulk removals or when related results look stale.`,
	Args: cobra.NoArgs,
	RunE: runRebuildIndex,
}

func init() {
	showCmd.Flags().BoolVar(&showRerender, "rerender", false, "render the note again before printing")
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "only list notes in this category")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum number of notes")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output notes as JSON")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(rebuildIndexCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	if noteService == nil {
		return notConfigured("note service")
	}

	var (
		doc *domain.Document
		err error
	)
	if showRerender {
		doc, err = noteService.Rerender(cmd.Context(), args[0])
	} else {
		doc, err = noteService.Get(cmd.Context(), args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	cmd.Print(doc.Rendered)
	if n := len(doc.Rendered); n == 0 || doc.Rendered[n-1] != '\n' {
		cmd.Println()
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	if noteService == nil {
		return notConfigured("note service")
	}

	docs, err := noteService.List(cmd.Context(), domain.Category(listCategory), listLimit)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}

	if listJSON {
		out := make([]noteOutput, 0, len(docs))
		for i := range docs {
			out = append(out, noteOutput{
				DocumentID: docs[i].ID,
				Title:      docs[i].Title,
				Category:   docs[i].Category,
				Location:   docs[i].Location,
				UpdatedAt:  docs[i].UpdatedAt.Format(time.RFC3339),
			})
		}
		return outputJSON(cmd, out)
	}

	if len(docs) == 0 {
		cmd.Println("No notes found.")
		return nil
	}

	s := outputStyles(cmd)
	for i := range docs {
		title := docs[i].Title
		if title == "" {
			title = docs[i].ID
		}
		cmd.Printf("%s  %s  %s\n",
			s.Muted.Render(docs[i].UpdatedAt.Format("2006-01-02 15:04")),
			s.Category(docs[i].Category).Render(fmt.Sprintf("%-10s", docs[i].Category)),
			title)
		cmd.Printf("                  %s\n", s.Muted.Render(docs[i].ID))
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	if noteService == nil {
		return notConfigured("note service")
	}

	if err := noteService.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove note: %w", err)
	}

	cmd.Printf("Note %s removed.\n", args[0])
	return nil
}

func runRebuildIndex(cmd *cobra.Command, _ []string) error {
	if noteService == nil {
		return notConfigured("note service")
	}

	cmd.Println("Rebuilding similarity index...")
	if err := noteService.RebuildIndex(cmd.Context()); err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}
	cmd.Println("Similarity index rebuilt.")
	return nil
}

type noteOutput struct {
	DocumentID string          `json:"document_id"`
	Title      string          `json:"title"`
	Category   domain.Category `json:"category"`
	Location   string          `json:"location"`
	UpdatedAt  string          `json:"updated_at"`
}
