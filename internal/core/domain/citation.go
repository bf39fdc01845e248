package domain

import "time"

// Citation links one `[Source: ...]` marker in a generated response to the
// chunk that supports it. Confidence is set at extraction time; the validation
// fields are filled in by the validator, possibly later, and are the only
// fields ever updated after creation.
type Citation struct {
	ID           string  `json:"id"`
	CitationText string  `json:"citation_text"`
	Confidence   float64 `json:"confidence"`

	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	SourceID   string `json:"source_id"`

	EpisodeID string `json:"episode_id,omitempty"`
	BeatID    string `json:"beat_id,omitempty"`

	ValidationScore *float64   `json:"validation_score,omitempty"`
	ValidatedAt     *time.Time `json:"validated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ValidationReport is the outcome of checking one citation against the
// response text that carries it.
type ValidationReport struct {
	Valid             bool    `json:"valid"`
	AccuracyScore     float64 `json:"accuracy_score"`
	Similarity        float64 `json:"similarity"`
	QuoteMatch        bool    `json:"quote_match"`
	SourceReliability float64 `json:"source_reliability"`
	Confidence        float64 `json:"confidence"`
	Error             string  `json:"error,omitempty"`
}

// CoverageReport quantifies how much of a response's factual content carries
// a citation.
type CoverageReport struct {
	TotalSentences   int     `json:"total_sentences"`
	FactualClaims    int     `json:"factual_claims"`
	CitationCount    int     `json:"citation_count"`
	CoveragePct      float64 `json:"coverage_pct"`
	MeetsRequirement bool    `json:"meets_requirement"`
}

// EpisodeCitationReport aggregates citation quality over one episode.
type EpisodeCitationReport struct {
	EpisodeID       string                `json:"episode_id"`
	TotalCitations  int                   `json:"total_citations"`
	ValidCitations  int                   `json:"valid_citations"`
	AverageAccuracy float64               `json:"average_accuracy"`
	SourcesUsed     int                   `json:"sources_used"`
	Sources         []SourceCitationStats `json:"sources"`
}

// SourceCitationStats aggregates citation quality for one source.
type SourceCitationStats struct {
	SourceID           string   `json:"source_id"`
	SourceTitle        string   `json:"source_title"`
	CitationCount      int      `json:"citation_count"`
	AvgConfidence      float64  `json:"avg_confidence"`
	AvgValidationScore *float64 `json:"avg_validation_score,omitempty"`
}
