package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tagmark/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockScorer implements driven.Scorer and counts its calls.
type mockScorer struct {
	mu     sync.Mutex
	calls  int
	scores []domain.LabelScore
	err    error
	delay  time.Duration
	block  chan struct{}
}

func (m *mockScorer) Score(ctx context.Context, _ string) ([]domain.LabelScore, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.LabelScore(nil), m.scores...), nil
}

func (m *mockScorer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockModelProvider implements driven.ModelProvider for testing.
type mockModelProvider struct {
	mu      sync.Mutex
	scorers map[domain.TierName]*mockScorer
	loadErr map[domain.TierName]error
	loads   map[domain.TierName]int
}

func newMockModelProvider() *mockModelProvider {
	return &mockModelProvider{
		scorers: map[domain.TierName]*mockScorer{
			domain.TierLightweight: {},
			domain.TierHeavyweight: {},
		},
		loadErr: make(map[domain.TierName]error),
		loads:   make(map[domain.TierName]int),
	}
}

func (m *mockModelProvider) Load(_ context.Context, tier domain.TierName) (driven.Scorer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads[tier]++
	if err := m.loadErr[tier]; err != nil {
		return nil, err
	}
	return m.scorers[tier], nil
}

func (m *mockModelProvider) light() *mockScorer { return m.scorers[domain.TierLightweight] }
func (m *mockModelProvider) heavy() *mockScorer { return m.scorers[domain.TierHeavyweight] }

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Each dimension counts one vocabulary word, so texts about the same
// topic land close together.
type mockEmbeddingService struct {
	vocab    []string
	model    string
	embedErr error

	mu    sync.Mutex
	calls int
}

func newMockEmbedder(model string) *mockEmbeddingService {
	return &mockEmbeddingService{
		vocab: []string{"python", "asyncio", "cooking", "garden", "finance"},
		model: model,
	}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(m.vocab))
	for i, w := range m.vocab {
		vec[i] = float32(strings.Count(lower, w))
	}
	return vec, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return len(m.vocab) }
func (m *mockEmbeddingService) ModelName() string            { return m.model }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

func (m *mockEmbeddingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// failingTagStore wraps a tag store and fails every transaction.
type failingTagStore struct {
	driven.TagStore
}

func (f failingTagStore) Atomic(_ context.Context, _ func(tx driven.TagTx) error) error {
	return errors.New("disk full")
}

// failingEmbeddingStore wraps an embedding store and fails every write.
type failingEmbeddingStore struct {
	driven.EmbeddingStore
}

func (f failingEmbeddingStore) UpsertEmbedding(_ context.Context, _ domain.EmbeddingRecord) error {
	return errors.New("disk full")
}

// --- Setup helpers ---

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func testConfig() domain.EngineConfig {
	cfg := domain.DefaultEngineConfig()
	cfg.EmbeddingModelVersion = "v1"
	cfg.PerTierTimeout = time.Second
	cfg.Rules = []domain.Rule{
		{Tag: "python", Category: "Tech", Keywords: []string{"python"}},
		{Tag: "github", Category: "Source", Domains: []string{"github.com"}},
	}
	return cfg
}

func setupStore(t *testing.T) *memory.Store {
	t.Helper()
	return memory.NewStore()
}

func saveBookmark(t *testing.T, store *memory.Store, b domain.Bookmark) domain.Bookmark {
	t.Helper()
	if b.DateAdded.IsZero() {
		b.DateAdded = testNow
	}
	require.NoError(t, store.BookmarkStore().SaveBookmark(context.Background(), &b))
	return b
}

func setupEngine(
	t *testing.T,
	store *memory.Store,
	cfg domain.EngineConfig,
	models driven.ModelProvider,
	embedder driven.EmbeddingService,
) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg, EngineDeps{
		Bookmarks:  store.BookmarkStore(),
		Tags:       store.TagStore(),
		Embeddings: store.EmbeddingStore(),
		Embedder:   embedder,
		Models:     models,
	})
	require.NoError(t, err)
	engine.now = func() time.Time { return testNow }
	return engine
}

func ptr[T any](v T) *T { return &v }
