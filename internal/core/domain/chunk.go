package domain

import "time"

// Chunk is a bounded, contiguous span of a document's text. It is the unit of
// retrieval and citation. Chunks are created once during ingestion; the
// embedding may be attached later, nothing else mutates.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	WordCount  int    `json:"word_count"`
	CharCount  int    `json:"char_count"`

	Embedding      []float32 `json:"-"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// RetrievedChunk pairs a chunk with its similarity score for one retrieval
// call. Source fields are denormalized so prompt rendering and citation
// matching never reach back into storage.
type RetrievedChunk struct {
	Chunk             Chunk   `json:"chunk"`
	SourceID          string  `json:"source_id"`
	SourceTitle       string  `json:"source_title"`
	SourceAuthor      string  `json:"source_author,omitempty"`
	SourceType        string  `json:"source_type,omitempty"`
	SourceReliability float64 `json:"source_reliability"`
	Similarity        float64 `json:"similarity"`
}
