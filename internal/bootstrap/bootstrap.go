package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/simplomaticindia/they-might-say-platform/internal/config"
	"github.com/simplomaticindia/they-might-say-platform/internal/core/ports"
	"github.com/simplomaticindia/they-might-say-platform/internal/core/usecase"
	"github.com/simplomaticindia/they-might-say-platform/internal/infrastructure/chunking"
	"github.com/simplomaticindia/they-might-say-platform/internal/infrastructure/embedding"
	"github.com/simplomaticindia/they-might-say-platform/internal/infrastructure/extractor/plaintext"
	llmopenai "github.com/simplomaticindia/they-might-say-platform/internal/infrastructure/llm/openai"
	"github.com/simplomaticindia/they-might-say-platform/internal/infrastructure/persona"
	"github.com/simplomaticindia/they-might-say-platform/internal/infrastructure/queue/nats"
	"github.com/simplomaticindia/they-might-say-platform/internal/infrastructure/repository/postgres"
	"github.com/simplomaticindia/they-might-say-platform/internal/infrastructure/resilience"
	"github.com/simplomaticindia/they-might-say-platform/internal/infrastructure/storage/localfs"
	"github.com/simplomaticindia/they-might-say-platform/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Documents ports.DocumentRepository
	Sources   ports.SourceRepository
	Episodes  ports.EpisodeRepository

	IngestUC   ports.DocumentIngestor
	ProcessUC  ports.DocumentProcessor
	ConverseUC ports.ConversationService
	Reporter   ports.CitationReporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	documents := postgres.NewDocumentRepository(db)
	sources := postgres.NewSourceRepository(db)
	chunks := postgres.NewChunkRepository(db)
	citations := postgres.NewCitationRepository(db)
	episodes := postgres.NewEpisodeRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm := llmopenai.New(llmopenai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.ChatModel,
		EmbedDimension: cfg.EmbedDimension,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		Executor:       resilience.NewExecutor(resilience.LLMConfig()),
	})
	embedder := embedding.NewGateway(llm, embedding.Config{
		Model:          cfg.EmbedModel,
		Dimensions:     cfg.EmbedDimension,
		RequestsPerMin: cfg.EmbedRequestsPerMinute,
		TokensPerMin:   cfg.EmbedTokensPerMinute,
		CacheTTL:       cfg.EmbedCacheTTL,
	})

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, chunking.Strategy(cfg.ChunkStrategy))
	extractor := plaintext.NewExtractor(storage)

	personas := persona.NewRegistry()
	if err := personas.LoadDir(cfg.PersonaDir); err != nil {
		slog.Warn("persona packs not loaded", "dir", cfg.PersonaDir, "error", err)
	}

	analyzer := usecase.NewCitationAnalyzer(usecase.DefaultCitationPolicy())
	tracker := usecase.NewCitationTrackerUseCase(citations, episodes, chunks, sources, analyzer)
	retriever := usecase.NewRetrieveContextUseCase(embedder, vectorDB, chunks, sources)
	prompts := usecase.NewPromptBuilder(cfg.HistoryTurns)

	ingestUC := usecase.NewIngestDocumentUseCase(documents, sources, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(documents, chunks, extractor, chunker, embedder, vectorDB, cfg.EmbedModel)
	converseUC := usecase.NewConverseUseCase(episodes, retriever, personas, prompts, llm, analyzer, tracker)

	return &App{
		Config: cfg,

		Queue:     queue,
		Documents: documents,
		Sources:   sources,
		Episodes:  episodes,

		IngestUC:   ingestUC,
		ProcessUC:  processUC,
		ConverseUC: converseUC,
		Reporter:   tracker,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
