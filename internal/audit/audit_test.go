package audit

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditor(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "audit")
	auditor := NewAuditor(tempDir)

	t.Run("SaveJSON creates audit directory and saves file", func(t *testing.T) {
		testData := map[string]any{
			"test_field": "test_value",
			"number":     42,
		}

		filename, err := auditor.SaveJSON(testData)
		require.NoError(t, err)
		assert.Contains(t, filename, ".json")

		fileContent, err := os.ReadFile(filepath.Join(tempDir, filename))
		require.NoError(t, err)

		var savedData map[string]any
		require.NoError(t, json.Unmarshal(fileContent, &savedData))
		assert.Equal(t, "test_value", savedData["test_field"])
		assert.Equal(t, float64(42), savedData["number"])
	})

	t.Run("SaveJSON generates unique filenames", func(t *testing.T) {
		filename1, err := auditor.SaveJSON(map[string]string{"key": "value"})
		require.NoError(t, err)
		filename2, err := auditor.SaveJSON(map[string]string{"key": "value"})
		require.NoError(t, err)
		assert.NotEqual(t, filename1, filename2)
	})

	t.Run("SaveRawCompletion keeps the raw text", func(t *testing.T) {
		raw := "I'm sorry, I can't help with that."
		filename, err := auditor.SaveRawCompletion("dune", "prompt text", raw, errors.New("no usable flashcards"))
		require.NoError(t, err)

		fileContent, err := os.ReadFile(filepath.Join(tempDir, filename))
		require.NoError(t, err)

		var saved RawCompletion
		require.NoError(t, json.Unmarshal(fileContent, &saved))
		assert.Equal(t, "dune", saved.RequestedTitle)
		assert.Equal(t, "prompt text", saved.Prompt)
		assert.Equal(t, raw, saved.Completion)
		assert.Equal(t, "no usable flashcards", saved.Error)
		assert.False(t, saved.CapturedAt.IsZero())
	})
}

func TestAuditor_Prune(t *testing.T) {
	dir := t.TempDir()
	auditor := NewAuditor(dir)

	oldFile, err := auditor.SaveJSON(map[string]string{"age": "old"})
	require.NoError(t, err)
	newFile, err := auditor.SaveJSON(map[string]string{"age": "new"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0644))

	past := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, oldFile), past, past))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "notes.txt"), past, past))

	removed, err := auditor.Prune(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(dir, oldFile))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, newFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)

	removed, err = NewAuditor(filepath.Join(dir, "missing")).Prune(time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
