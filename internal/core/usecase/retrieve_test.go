package usecase

import (
	"context"
	"testing"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

func retrievalFixture(hits []domain.VectorHit) (*RetrieveContextUseCase, *vectorIndexFake, *chunkRepoFake) {
	chunks := &chunkRepoFake{chunks: map[string]domain.Chunk{}}
	for _, h := range hits {
		chunks.chunks[h.ChunkID] = domain.Chunk{ID: h.ChunkID, DocumentID: h.DocumentID, Text: "passage " + h.ChunkID}
	}
	sources := &sourceRepoFake{sources: map[string]domain.Source{
		"s1": {ID: "s1", Title: "Lincoln Biography", Author: "David Herbert Donald", Type: "book", Reliability: 0.9},
	}}
	index := &vectorIndexFake{hits: hits}
	uc := NewRetrieveContextUseCase(&embedderFake{queryVector: []float32{0.1, 0.2}}, index, chunks, sources)
	return uc, index, chunks
}

func TestRetrieveEmptyResultIsNotAnError(t *testing.T) {
	uc, index, _ := retrievalFixture(nil)

	got, err := uc.Retrieve(context.Background(), "obscure question", 5, 0.99, nil)
	if err != nil {
		t.Fatalf("empty retrieval must not fail: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no chunks, got %d", len(got))
	}
	if index.filter.MinSimilarity != 0.99 {
		t.Errorf("threshold not forwarded: %f", index.filter.MinSimilarity)
	}
	if index.limit != 10 {
		t.Errorf("index should be asked for twice the wanted chunks, got %d", index.limit)
	}
}

func TestRetrieveDiversityCap(t *testing.T) {
	hits := []domain.VectorHit{
		{ChunkID: "a1", DocumentID: "docA", SourceID: "s1", Similarity: 0.99},
		{ChunkID: "a2", DocumentID: "docA", SourceID: "s1", Similarity: 0.98},
		{ChunkID: "a3", DocumentID: "docA", SourceID: "s1", Similarity: 0.97},
		{ChunkID: "a4", DocumentID: "docA", SourceID: "s1", Similarity: 0.96},
		{ChunkID: "b1", DocumentID: "docB", SourceID: "s1", Similarity: 0.95},
	}
	uc, _, _ := retrievalFixture(hits)

	got, err := uc.Retrieve(context.Background(), "q", 4, 0.7, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(got))
	}
	wantOrder := []string{"a1", "a2", "a3", "b1"}
	perDoc := map[string]int{}
	for i, rc := range got {
		if rc.Chunk.ID != wantOrder[i] {
			t.Errorf("position %d: got %s, want %s", i, rc.Chunk.ID, wantOrder[i])
		}
		perDoc[rc.Chunk.DocumentID]++
	}
	if perDoc["docA"] > 3 {
		t.Errorf("document cap exceeded: %d", perDoc["docA"])
	}
}

func TestRetrieveHydratesSourceMetadata(t *testing.T) {
	hits := []domain.VectorHit{{ChunkID: "a1", DocumentID: "docA", SourceID: "s1", Similarity: 0.9}}
	uc, _, _ := retrievalFixture(hits)

	got, err := uc.Retrieve(context.Background(), "q", 3, 0.7, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	rc := got[0]
	if rc.SourceTitle != "Lincoln Biography" || rc.SourceAuthor != "David Herbert Donald" {
		t.Errorf("source metadata not denormalized: %+v", rc)
	}
	if rc.Similarity != 0.9 || rc.Chunk.Text == "" {
		t.Errorf("hit and chunk not joined: %+v", rc)
	}
}

func TestRetrieveDropsVanishedChunks(t *testing.T) {
	hits := []domain.VectorHit{
		{ChunkID: "a1", DocumentID: "docA", SourceID: "s1", Similarity: 0.9},
		{ChunkID: "ghost", DocumentID: "docA", SourceID: "s1", Similarity: 0.85},
	}
	uc, _, chunks := retrievalFixture(hits)
	delete(chunks.chunks, "ghost")

	got, err := uc.Retrieve(context.Background(), "q", 5, 0.7, nil)
	if err != nil {
		t.Fatalf("a stale index entry must not fail retrieval: %v", err)
	}
	if len(got) != 1 || got[0].Chunk.ID != "a1" {
		t.Fatalf("expected the vanished chunk dropped, got %+v", got)
	}
}

func TestRetrieveAppliesDefaults(t *testing.T) {
	uc, index, _ := retrievalFixture(nil)

	if _, err := uc.Retrieve(context.Background(), "q", 0, 0, nil); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if index.limit != 2*defaultMaxChunks {
		t.Errorf("default limit not applied: %d", index.limit)
	}
	if index.filter.MinSimilarity != defaultMinSimilarity {
		t.Errorf("default threshold not applied: %f", index.filter.MinSimilarity)
	}
}
