package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
	"github.com/simplomaticindia/they-might-say-platform/internal/core/ports"
)

const (
	defaultMaxChunks     = 10
	defaultMinSimilarity = 0.7
	maxChunksPerDocument = 3
)

type RetrieveContextUseCase struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	chunks   ports.ChunkRepository
	sources  ports.SourceRepository
}

func NewRetrieveContextUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	chunks ports.ChunkRepository,
	sources ports.SourceRepository,
) *RetrieveContextUseCase {
	return &RetrieveContextUseCase{
		embedder: embedder,
		index:    index,
		chunks:   chunks,
		sources:  sources,
	}
}

// Retrieve assembles the context window for one query: embed, search the
// index for twice the wanted amount, then scan descending by similarity
// keeping at most three chunks per document. An empty result is a valid
// outcome, not an error.
func (uc *RetrieveContextUseCase) Retrieve(
	ctx context.Context,
	queryText string,
	maxChunks int,
	minSimilarity float64,
	sourceIDs []string,
) ([]domain.RetrievedChunk, error) {
	if maxChunks <= 0 {
		maxChunks = defaultMaxChunks
	}
	if minSimilarity <= 0 {
		minSimilarity = defaultMinSimilarity
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := uc.index.Search(ctx, queryVector, 2*maxChunks, domain.SearchFilter{
		SourceIDs:     sourceIDs,
		MinSimilarity: minSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	// Diversity cap: one verbose document must not crowd out the rest.
	selected := make([]domain.VectorHit, 0, maxChunks)
	perDocument := make(map[string]int)
	for _, hit := range hits {
		if perDocument[hit.DocumentID] >= maxChunksPerDocument {
			continue
		}
		selected = append(selected, hit)
		perDocument[hit.DocumentID]++
		if len(selected) >= maxChunks {
			break
		}
	}

	return uc.hydrate(ctx, selected)
}

// hydrate loads chunk bodies and source metadata for the selected hits,
// preserving hit order. Hits whose chunk has disappeared are dropped.
func (uc *RetrieveContextUseCase) hydrate(ctx context.Context, hits []domain.VectorHit) ([]domain.RetrievedChunk, error) {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	chunks, err := uc.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	byID := make(map[string]domain.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	sourceIDs := make([]string, 0, len(hits))
	seen := make(map[string]struct{})
	for _, h := range hits {
		if _, ok := seen[h.SourceID]; !ok {
			seen[h.SourceID] = struct{}{}
			sourceIDs = append(sourceIDs, h.SourceID)
		}
	}
	sources, err := uc.sources.GetByIDs(ctx, sourceIDs)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		chunk, ok := byID[h.ChunkID]
		if !ok {
			continue
		}
		src := sources[h.SourceID]
		out = append(out, domain.RetrievedChunk{
			Chunk:             chunk,
			SourceID:          h.SourceID,
			SourceTitle:       src.Title,
			SourceAuthor:      src.Author,
			SourceType:        src.Type,
			SourceReliability: src.Reliability,
			Similarity:        h.Similarity,
		})
	}
	return out, nil
}
