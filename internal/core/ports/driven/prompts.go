package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptClassify is the system prompt for classification.
	// It expects one %s placeholder for the category list.
	PromptClassify = "classify"

	// PromptClassifyStrict is used for the single retry after a malformed
	// response. It expects the same placeholder as PromptClassify.
	PromptClassifyStrict = "classify_strict"
)
