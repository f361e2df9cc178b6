package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tagmark/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tagmark/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tagmark/internal/core/domain"
)

func TestApplyEnv(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	settings := domain.DefaultAppSettings()
	settings.LLM.BaseURL = "http://custom:11434"

	applyEnv(&settings)

	assert.Equal(t, "http://gpu-box:11434", settings.Embedding.BaseURL)
	assert.Equal(t, "http://custom:11434", settings.LLM.BaseURL, "explicit config wins")
}

func TestApplyEnv_Unset(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	settings := domain.DefaultAppSettings()

	applyEnv(&settings)

	assert.Equal(t, domain.DefaultOllamaBaseURL, settings.Embedding.BaseURL)
	assert.Equal(t, domain.DefaultOllamaBaseURL, settings.LLM.BaseURL)
}

func TestEphemeral(t *testing.T) {
	t.Setenv("TAGMARK_EPHEMERAL", "true")
	assert.True(t, ephemeral())

	t.Setenv("TAGMARK_EPHEMERAL", "nope")
	assert.False(t, ephemeral())

	t.Setenv("TAGMARK_EPHEMERAL", "")
	assert.False(t, ephemeral())
}

func TestOpenStore_InMemory(t *testing.T) {
	store, closeStore, err := openStore("", true)
	require.NoError(t, err)
	defer closeStore()

	_, ok := store.(*memory.Store)
	assert.True(t, ok)
}

func TestOpenStore_SQLite(t *testing.T) {
	store, closeStore, err := openStore(t.TempDir(), false)
	require.NoError(t, err)
	defer closeStore()

	db, ok := store.(*sqlite.Store)
	require.True(t, ok)
	assert.FileExists(t, db.Path())
}
