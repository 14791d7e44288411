package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

func TestRelatedCmd_Flags(t *testing.T) {
	flag := relatedCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "k", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}

func TestRelatedCmd_PrintsTitles(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "related", "teeth", "cleaning")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] Dentist appointment (0.42)")
	assert.Contains(t, out, "health  doc-1")
}

func TestRelatedCmd_UnknownNoteKeepsID(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	current.notes.related = []domain.RelatedDocument{{DocumentID: "gone", Score: 0.3}}

	out, err := execute(t, "related", "anything")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] gone (0.30)")
}

func TestRelatedCmd_NoResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	current.notes.related = []domain.RelatedDocument{}

	out, err := execute(t, "related", "anything")

	require.NoError(t, err)
	assert.Contains(t, out, "No related notes found.")
}

func TestRelatedCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer func() { relatedAsJSON = false }()

	out, err := execute(t, "related", "--json", "teeth")

	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Dentist appointment"`)
	assert.Contains(t, out, `"category": "health"`)
}

func TestRelatedCmd_InvalidInput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	t.Run("empty text", func(t *testing.T) {
		_, err := execute(t, "related")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("zero limit", func(t *testing.T) {
		defer func() { relatedK = 5 }()
		_, err := execute(t, "related", "-k", "0", "teeth")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
