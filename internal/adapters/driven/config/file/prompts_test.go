package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/core/services"
)

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".txt"), []byte(content), 0600))
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".kbnote", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	// Load triggers lazy init
	prompt, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)
	assert.Equal(t, services.DefaultClassifyPrompt, prompt)

	for _, f := range []string{"classify.txt", "classify_strict.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}

	strict, err := store.Load(driven.PromptClassifyStrict)
	require.NoError(t, err)
	assert.Contains(t, strict, "Output ONLY the JSON object")
}

func TestPromptStore_Load_CustomContent(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, driven.PromptClassify, "\n  Sort this note into one of:\n%s  \n")

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)
	assert.Equal(t, "Sort this note into one of:\n%s", prompt)

	// Existing files are never overwritten by init.
	data, err := os.ReadFile(filepath.Join(dir, "classify.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Sort this note")
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptClassifyStrict) // Trigger init
	require.NoError(t, os.Remove(filepath.Join(dir, "classify_strict.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptClassifyStrict)
	require.NoError(t, err)
	assert.Equal(t, services.DefaultStrictPrompt, prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")
	assert.ErrorContains(t, err, "nonexistent_prompt")
}

func TestPromptStore_CacheAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)

	writePrompt(t, dir, driven.PromptClassify, "edited %s")

	cached, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)
	assert.Equal(t, "edited %s", fresh)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	const goroutines = 50
	results := make([]string, goroutines)
	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptClassify)
			assert.NoError(t, err)
			results[i] = prompt
		}()
	}
	wg.Wait()

	for _, prompt := range results {
		assert.Equal(t, services.DefaultClassifyPrompt, prompt)
	}
}
