package ports

import (
	"context"
	"io"
	"time"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

// SourceRepository persists source metadata.
type SourceRepository interface {
	Create(ctx context.Context, src *domain.Source) error
	GetByID(ctx context.Context, id string) (*domain.Source, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Source, error)
	List(ctx context.Context) ([]domain.Source, error)
}

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkProcessed(ctx context.Context, id string, chunkCount int) error
}

// ChunkRepository persists chunks and their embeddings.
type ChunkRepository interface {
	CreateBatch(ctx context.Context, chunks []domain.Chunk) error
	GetByID(ctx context.Context, id string) (*domain.Chunk, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error)
	ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// CitationRepository persists citations and aggregates citation reports.
type CitationRepository interface {
	Create(ctx context.Context, c *domain.Citation) error
	GetByID(ctx context.Context, id string) (*domain.Citation, error)
	ListByEpisode(ctx context.Context, episodeID string) ([]domain.Citation, error)
	ListByBeat(ctx context.Context, beatID string) ([]domain.Citation, error)
	SaveValidation(ctx context.Context, id string, score float64, validatedAt time.Time) error
	SourceStats(ctx context.Context, episodeID string) ([]domain.SourceCitationStats, error)
}

// EpisodeRepository persists episodes and their beats.
type EpisodeRepository interface {
	CreateEpisode(ctx context.Context, ep *domain.Episode) error
	GetEpisode(ctx context.Context, id string) (*domain.Episode, error)
	UpdateEpisodeStatus(ctx context.Context, id string, status domain.EpisodeStatus) error
	CreateBeat(ctx context.Context, beat *domain.Beat) error
	GetBeat(ctx context.Context, id string) (*domain.Beat, error)
	ListRecentBeats(ctx context.Context, episodeID string, limit int) ([]domain.Beat, error)
	NextSequenceNumber(ctx context.Context, episodeID string) (int, error)
}

// ObjectStorage stores raw document files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes document ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits document text into passages.
type Chunker interface {
	Split(text string) ([]domain.Chunk, error)
}

// Embedder builds vectors for chunk and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// VectorIndex indexes chunk vectors and performs similarity search.
type VectorIndex interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.VectorHit, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// PersonaProvider resolves the persona an episode speaks as, falling back
// to a default voice for unknown names.
type PersonaProvider interface {
	Get(name string) domain.Persona
}

// ChatModel generates persona responses from an assembled message sequence.
type ChatModel interface {
	Complete(ctx context.Context, messages []domain.Message) (string, int, error)
	Stream(ctx context.Context, messages []domain.Message) (<-chan domain.StreamEvent, error)
}
