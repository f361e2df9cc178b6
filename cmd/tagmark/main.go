// Command tagmark classifies and searches bookmarks.
package main

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/tagmark/internal/adapters/driven/ai"
	"github.com/custodia-labs/tagmark/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tagmark/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tagmark/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tagmark/internal/adapters/driven/storewatch"
	"github.com/custodia-labs/tagmark/internal/adapters/driving/cli"
	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/core/services"
	"github.com/custodia-labs/tagmark/internal/logger"
	"github.com/custodia-labs/tagmark/internal/normalisers/html"
	"github.com/custodia-labs/tagmark/internal/postprocessors/chunker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env file is normal.
	_ = godotenv.Load()

	cli.SetVersion(version)

	home := os.Getenv("TAGMARK_HOME")
	configDir, dataDir, promptDir := "", "", ""
	if home != "" {
		configDir = home
		dataDir = filepath.Join(home, "data")
		promptDir = filepath.Join(home, "prompts")
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		logger.Error("loading config: %v", err)
		return 1
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		// Leave the settings commands working so the file can be fixed.
		logger.Error("invalid settings in %s: %v", settingsService.Path(), err)
		cli.SetServices(cli.Services{Settings: settingsService})
		return execute()
	}
	applyEnv(settings)

	store, closeStore, err := openStore(dataDir, ephemeral())
	if err != nil {
		logger.Error("opening database: %v", err)
		return 1
	}
	defer closeStore()

	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		logger.Error("opening prompts: %v", err)
		return 1
	}

	aiServices := ai.Init(settings, prompts)
	defer aiServices.Close()

	engine, err := services.NewEngine(settings.Engine, services.EngineDeps{
		Bookmarks:  store.BookmarkStore(),
		Tags:       store.TagStore(),
		Embeddings: store.EmbeddingStore(),
		Embedder:   aiServices.EmbeddingService,
		Splitter:   chunker.New(),
		Normaliser: html.New(),
		Models:     aiServices.Models,
	})
	if err != nil {
		logger.Error("configuring classification engine: %v", err)
		cli.SetServices(cli.Services{Settings: settingsService})
		return execute()
	}

	searchService := services.NewSearchService(
		store.BookmarkStore(),
		store.TagStore(),
		store.TextIndex(),
		engine.Indexer(),
		settings.Engine,
	)
	tagger := services.NewAutoTagger(settings.AutoTag, store.BookmarkStore(), engine)
	if db, ok := store.(*sqlite.Store); ok {
		tagger.WithNotifier(storewatch.New(db.Path(), storewatch.DefaultDebounce))
	}

	cli.SetServices(cli.Services{
		Bookmarks:  services.NewBookmarkService(store.BookmarkStore(), store.TagStore()),
		Classifier: engine,
		Index:      engine,
		Search:     searchService,
		Settings:   settingsService,
		AutoTagger: tagger,
	})
	return execute()
}

// backend is the set of stores the services are built on.
type backend interface {
	BookmarkStore() driven.BookmarkStore
	TagStore() driven.TagStore
	EmbeddingStore() driven.EmbeddingStore
	TextIndex() driven.TextIndex
}

// openStore opens the SQLite database, or an in-memory store that is gone
// when the process exits.
func openStore(dataDir string, inMemory bool) (backend, func(), error) {
	if inMemory {
		logger.Info("using in-memory storage, nothing will be saved")
		return memory.NewStore(), func() {}, nil
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// ephemeral reports whether TAGMARK_EPHEMERAL asks for in-memory storage.
func ephemeral() bool {
	on, err := strconv.ParseBool(os.Getenv("TAGMARK_EPHEMERAL"))
	return err == nil && on
}

func execute() int {
	if err := cli.Execute(); err != nil {
		return 1
	}
	return 0
}

// applyEnv lets OLLAMA_HOST point both services at another Ollama when the
// config file keeps the default address.
func applyEnv(settings *domain.AppSettings) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		return
	}
	if settings.Embedding.BaseURL == domain.DefaultOllamaBaseURL {
		settings.Embedding.BaseURL = host
	}
	if settings.LLM.BaseURL == domain.DefaultOllamaBaseURL {
		settings.LLM.BaseURL = host
	}
}
