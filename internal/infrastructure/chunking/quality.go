package chunking

import (
	"regexp"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

var (
	citationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\([^)]*\d{4}[^)]*\)`),
		regexp.MustCompile(`\[[^\]]*\d{4}[^\]]*\]`),
		regexp.MustCompile(`(?:p\.|pp\.|page|pages)\s*\d+`),
		regexp.MustCompile(`(?:vol\.|volume)\s*\d+`),
	}

	historicalMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:letter|speech|address|proclamation|order)\s+(?:to|from|of)`),
		regexp.MustCompile(`(?i)(?:dated|written|delivered)\s+(?:on\s+)?(?:january|february|march|april|may|june|july|august|september|october|november|december)`),
		regexp.MustCompile(`\b(?:18|19)\d{2}\b`),
	}
)

// QualityReport aggregates calibration stats over a set of chunks.
type QualityReport struct {
	TotalChunks              int     `json:"total_chunks"`
	TotalCharacters          int     `json:"total_characters"`
	AverageChunkSize         float64 `json:"average_chunk_size"`
	MinChunkSize             int     `json:"min_chunk_size"`
	MaxChunkSize             int     `json:"max_chunk_size"`
	ChunksWithCitations      int     `json:"chunks_with_citations"`
	CitationCoverage         float64 `json:"citation_coverage"`
	ChunksWithMarkers        int     `json:"chunks_with_historical_markers"`
	HistoricalMarkerCoverage float64 `json:"historical_marker_coverage"`
}

// Analyze reports aggregate size and marker stats for produced chunks.
func Analyze(chunks []domain.Chunk) QualityReport {
	if len(chunks) == 0 {
		return QualityReport{}
	}

	r := QualityReport{
		TotalChunks:  len(chunks),
		MinChunkSize: chunks[0].CharCount,
	}
	for _, c := range chunks {
		r.TotalCharacters += c.CharCount
		if c.CharCount < r.MinChunkSize {
			r.MinChunkSize = c.CharCount
		}
		if c.CharCount > r.MaxChunkSize {
			r.MaxChunkSize = c.CharCount
		}
		if matchesAny(citationPatterns, c.Text) {
			r.ChunksWithCitations++
		}
		if matchesAny(historicalMarkers, c.Text) {
			r.ChunksWithMarkers++
		}
	}
	r.AverageChunkSize = float64(r.TotalCharacters) / float64(len(chunks))
	r.CitationCoverage = float64(r.ChunksWithCitations) / float64(len(chunks))
	r.HistoricalMarkerCoverage = float64(r.ChunksWithMarkers) / float64(len(chunks))
	return r
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
