package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("min_confidence", 0.4))

	val, ok := store.Get("min_confidence")
	assert.True(t, ok)
	assert.Equal(t, 0.4, val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_GetString(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("embedding.model", "nomic-embed-text")
	_ = store.Set("wrong", 42)

	assert.Equal(t, "nomic-embed-text", store.GetString("embedding.model"))
	assert.Empty(t, store.GetString("wrong"))
	assert.Empty(t, store.GetString("missing"))
}

func TestConfigStore_GetInt(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("int", 4)
	_ = store.Set("int64", int64(8))
	_ = store.Set("float", 2.0)
	_ = store.Set("string", "4")

	assert.Equal(t, 4, store.GetInt("int"))
	assert.Equal(t, 8, store.GetInt("int64"))
	assert.Equal(t, 2, store.GetInt("float"))
	assert.Equal(t, 0, store.GetInt("string"))
	assert.Equal(t, 0, store.GetInt("missing"))
}

func TestConfigStore_GetFloat(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("float", 0.6)
	_ = store.Set("int64", int64(1))
	_ = store.Set("string", "0.6")

	v, ok := store.GetFloat("float")
	assert.True(t, ok)
	assert.InDelta(t, 0.6, v, 1e-9)

	v, ok = store.GetFloat("int64")
	assert.True(t, ok)
	assert.InDelta(t, 1.0, v, 1e-9)

	_, ok = store.GetFloat("string")
	assert.False(t, ok)

	_, ok = store.GetFloat("missing")
	assert.False(t, ok)
}

func TestConfigStore_GetBool(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("on", true)
	_ = store.Set("wrong", "true")

	assert.True(t, store.GetBool("on"))
	assert.False(t, store.GetBool("wrong"))
	assert.False(t, store.GetBool("missing"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("typed", []string{"Tech", "Topic"})
	_ = store.Set("untyped", []any{"Tech", 1, "Topic"})

	assert.Equal(t, []string{"Tech", "Topic"}, store.GetStringSlice("typed"))
	assert.Equal(t, []string{"Tech", "Topic"}, store.GetStringSlice("untyped"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_GetTables(t *testing.T) {
	store := NewConfigStore()
	rule := map[string]any{"tag": "python", "keywords": []any{"python"}}
	_ = store.Set("typed", []map[string]any{rule})
	_ = store.Set("untyped", []any{rule, "not a table"})

	assert.Equal(t, []map[string]any{rule}, store.GetTables("typed"))
	assert.Equal(t, []map[string]any{rule}, store.GetTables("untyped"))
	assert.Nil(t, store.GetTables("missing"))
}

func TestConfigStore_LoadAndPath(t *testing.T) {
	store := NewConfigStore()

	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("key", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("key")
		}()
	}
	wg.Wait()

	_, ok := store.Get("key")
	assert.True(t, ok)
}
