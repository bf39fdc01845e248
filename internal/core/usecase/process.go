package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
	"github.com/simplomaticindia/they-might-say-platform/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	documents ports.DocumentRepository
	chunksDB  ports.ChunkRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.VectorIndex

	embeddingModel string
}

func NewProcessDocumentUseCase(
	documents ports.DocumentRepository,
	chunksDB ports.ChunkRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	embeddingModel string,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		documents:      documents,
		chunksDB:       chunksDB,
		extractor:      extractor,
		chunker:        chunker,
		embedder:       embedder,
		index:          index,
		embeddingModel: embeddingModel,
	}
}

// ProcessByID runs the ingestion pipeline for one stored document:
// extract, chunk, embed, persist, index. The document status is the
// durable record of progress; any failure lands in the error state with
// the message retained.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.documents.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	chunkCount, err := uc.pipeline(ctx, doc)
	if err != nil {
		if failErr := uc.documents.UpdateStatus(ctx, documentID, domain.StatusError, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark error status: %v", err, failErr)
		}
		return err
	}

	if err := uc.documents.MarkProcessed(ctx, documentID, chunkCount); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) pipeline(ctx context.Context, doc *domain.Document) (int, error) {
	if err := uc.documents.UpdateStatus(ctx, doc.ID, domain.StatusChunking, ""); err != nil {
		return 0, fmt.Errorf("set status=chunking: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return 0, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	chunks, err := uc.chunker.Split(text)
	if err != nil {
		return 0, fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	now := time.Now().UTC()
	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].ID = uuid.NewString()
		chunks[i].DocumentID = doc.ID
		chunks[i].EmbeddingModel = uc.embeddingModel
		chunks[i].CreatedAt = now
		texts[i] = chunks[i].Text
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, domain.WrapError(
			domain.ErrUpstream,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	if err := uc.chunksDB.CreateBatch(ctx, chunks); err != nil {
		return 0, fmt.Errorf("persist chunks: %w", err)
	}

	if err := uc.documents.UpdateStatus(ctx, doc.ID, domain.StatusIndexing, ""); err != nil {
		return 0, fmt.Errorf("set status=indexing: %w", err)
	}

	if err := uc.index.IndexChunks(ctx, doc, chunks); err != nil {
		return 0, fmt.Errorf("index chunks in vector db: %w", err)
	}

	return len(chunks), nil
}
