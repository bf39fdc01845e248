package ports

import (
	"context"
	"io"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, sourceID, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// ConversationService is the inbound contract for persona conversation.
type ConversationService interface {
	Converse(ctx context.Context, req domain.ConverseRequest) (*domain.Answer, error)
	ConverseStream(ctx context.Context, req domain.ConverseRequest) (<-chan domain.StreamEvent, error)
}

// CitationReporter exposes per-episode citation reporting and validation.
type CitationReporter interface {
	EpisodeReport(ctx context.Context, episodeID string) (*domain.EpisodeCitationReport, error)
	ValidateEpisode(ctx context.Context, episodeID string) (map[string]domain.ValidationReport, error)
}
