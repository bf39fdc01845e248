package domain

// SearchFilter narrows a vector search to a subset of the corpus.
type SearchFilter struct {
	SourceIDs     []string `json:"source_ids,omitempty"`
	DocumentIDs   []string `json:"document_ids,omitempty"`
	MinSimilarity float64  `json:"min_similarity,omitempty"`
}

// VectorHit is a raw similarity match from the vector index.
type VectorHit struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	SourceID   string  `json:"source_id"`
	Similarity float64 `json:"similarity"`
}

// ConverseRequest is one conversational exchange request against an episode.
type ConverseRequest struct {
	EpisodeID      string          `json:"episode_id"`
	Message        string          `json:"message"`
	MaxChunks      int             `json:"max_chunks,omitempty"`
	MinSimilarity  float64         `json:"min_similarity,omitempty"`
	SourceIDs      []string        `json:"source_ids,omitempty"`
	Annotations    BeatAnnotations `json:"annotations,omitempty"`
	IncludeContext bool            `json:"include_context,omitempty"`
}
