package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

// citationMarker is the wire format for inline citations. It must stay
// bit-exact: ASCII brackets, the literal word Source: and one space.
var citationMarker = regexp.MustCompile(`\[Source: ([^\]]+)\]`)

var quotedText = regexp.MustCompile(`"([^"]*)"`)

// CitationPolicy holds the scoring heuristics for citation matching and
// validation. The defaults are carried over from calibration on the
// original corpus; treat them as tunable, not load-bearing.
type CitationPolicy struct {
	TitleMatchScore   int
	AuthorMatchScore  int
	MaxMatchScore     int
	ValidThreshold    float64
	ClaimContextChars int

	SimilarityWeight  float64
	QuoteMatchWeight  float64
	ReliabilityWeight float64
	ConfidenceWeight  float64

	CoverageTargetPct float64
	ClaimIndicators   []string
}

func DefaultCitationPolicy() CitationPolicy {
	return CitationPolicy{
		TitleMatchScore:   2,
		AuthorMatchScore:  1,
		MaxMatchScore:     3,
		ValidThreshold:    0.7,
		ClaimContextChars: 200,
		SimilarityWeight:  0.4,
		QuoteMatchWeight:  0.3,
		ReliabilityWeight: 0.2,
		ConfidenceWeight:  0.1,
		CoverageTargetPct: 90,
		ClaimIndicators: []string{
			"in", "on", "during", "said", "wrote", "declared",
			"signed", "passed", "enacted", "established",
			"born", "died", "elected", "appointed",
		},
	}
}

// CitationAnalyzer extracts citation markers from generated text, matches
// them to retrieved context and scores claim support.
type CitationAnalyzer struct {
	policy     CitationPolicy
	indicators map[string]struct{}
}

func NewCitationAnalyzer(policy CitationPolicy) *CitationAnalyzer {
	def := DefaultCitationPolicy()
	if policy.MaxMatchScore <= 0 {
		policy = def
	}
	if policy.ClaimContextChars <= 0 {
		policy.ClaimContextChars = def.ClaimContextChars
	}
	if policy.ValidThreshold <= 0 {
		policy.ValidThreshold = def.ValidThreshold
	}
	if policy.CoverageTargetPct <= 0 {
		policy.CoverageTargetPct = def.CoverageTargetPct
	}
	if len(policy.ClaimIndicators) == 0 {
		policy.ClaimIndicators = def.ClaimIndicators
	}

	indicators := make(map[string]struct{}, len(policy.ClaimIndicators))
	for _, w := range policy.ClaimIndicators {
		indicators[strings.ToLower(w)] = struct{}{}
	}
	return &CitationAnalyzer{policy: policy, indicators: indicators}
}

// Extract scans responseText for citation markers and matches each to the
// best-scoring context chunk: a title mention beats an author mention, ties
// go to retrieval order. Markers matching nothing are silently skipped.
// A mention counts when either string contains the other, so both
// "[Source: Lincoln Biography, p.12]" and a bare "[Source: Lincoln]" match
// the title "Lincoln Biography".
func (a *CitationAnalyzer) Extract(responseText string, contextChunks []domain.RetrievedChunk) []domain.Citation {
	matches := citationMarker.FindAllStringSubmatch(responseText, -1)
	if len(matches) == 0 {
		return nil
	}

	var citations []domain.Citation
	for _, m := range matches {
		citationText := m[1]
		lowered := strings.ToLower(strings.TrimSpace(citationText))
		if lowered == "" {
			continue
		}

		var best *domain.RetrievedChunk
		bestScore := 0
		for i := range contextChunks {
			chunk := &contextChunks[i]
			score := 0
			if mentions(lowered, chunk.SourceTitle) {
				score += a.policy.TitleMatchScore
			}
			if mentions(lowered, chunk.SourceAuthor) {
				score += a.policy.AuthorMatchScore
			}
			if score > bestScore {
				best = chunk
				bestScore = score
			}
		}
		if best == nil {
			continue
		}

		confidence := float64(bestScore) / float64(a.policy.MaxMatchScore)
		if confidence > 1.0 {
			confidence = 1.0
		}
		citations = append(citations, domain.Citation{
			CitationText: citationText,
			Confidence:   confidence,
			ChunkID:      best.Chunk.ID,
			DocumentID:   best.Chunk.DocumentID,
			SourceID:     best.SourceID,
		})
	}
	return citations
}

// mentions reports whether a lowered marker and a source field reference
// each other, in either direction of containment.
func mentions(loweredMarker, field string) bool {
	if field == "" {
		return false
	}
	f := strings.ToLower(field)
	return strings.Contains(loweredMarker, f) || strings.Contains(f, loweredMarker)
}

// Validate scores how well the cited chunk supports the claim made around
// the citation marker in responseText.
func (a *CitationAnalyzer) Validate(citation domain.Citation, responseText, chunkText string, sourceReliability float64) domain.ValidationReport {
	claim := a.claimContext(responseText, citation.CitationText)
	if claim == "" {
		return domain.ValidationReport{
			Error: fmt.Sprintf("citation text not found in response: %q", citation.CitationText),
		}
	}

	similarity := jaccardSimilarity(claim, chunkText)
	quoteMatch := hasDirectQuote(claim, chunkText)

	quoteScore := 0.0
	if quoteMatch {
		quoteScore = 1.0
	}
	accuracy := a.policy.SimilarityWeight*similarity +
		a.policy.QuoteMatchWeight*quoteScore +
		a.policy.ReliabilityWeight*sourceReliability +
		a.policy.ConfidenceWeight*citation.Confidence
	if accuracy > 1.0 {
		accuracy = 1.0
	}

	return domain.ValidationReport{
		Valid:             accuracy >= a.policy.ValidThreshold,
		AccuracyScore:     accuracy,
		Similarity:        similarity,
		QuoteMatch:        quoteMatch,
		SourceReliability: sourceReliability,
		Confidence:        citation.Confidence,
	}
}

// Coverage reports how much of the response's factual content is cited.
// coverage_pct is clamped to [0,100] whatever the counts.
func (a *CitationAnalyzer) Coverage(responseText string, citationCount int) domain.CoverageReport {
	sentences := strings.Split(responseText, ".")
	factual := 0
	for _, s := range sentences {
		if a.isFactualClaim(s) {
			factual++
		}
	}

	divisor := factual
	if divisor < 1 {
		divisor = 1
	}
	ratio := float64(citationCount) / float64(divisor)
	if ratio > 1.0 {
		ratio = 1.0
	}
	pct := ratio * 100

	return domain.CoverageReport{
		TotalSentences:   len(sentences),
		FactualClaims:    factual,
		CitationCount:    citationCount,
		CoveragePct:      pct,
		MeetsRequirement: pct >= a.policy.CoverageTargetPct,
	}
}

func (a *CitationAnalyzer) ValidThreshold() float64 {
	return a.policy.ValidThreshold
}

// claimContext is the response text surrounding the citation marker,
// clipped to the policy's window on each side.
func (a *CitationAnalyzer) claimContext(responseText, citationText string) string {
	pos := strings.Index(responseText, citationText)
	if pos == -1 {
		return ""
	}
	start := pos - a.policy.ClaimContextChars
	if start < 0 {
		start = 0
	}
	end := pos + len(citationText) + a.policy.ClaimContextChars
	if end > len(responseText) {
		end = len(responseText)
	}
	return strings.TrimSpace(responseText[start:end])
}

func (a *CitationAnalyzer) isFactualClaim(sentence string) bool {
	for _, w := range strings.Fields(strings.ToLower(sentence)) {
		w = strings.Trim(w, `,;:!?"'()[]`)
		if _, ok := a.indicators[w]; ok {
			return true
		}
	}
	return false
}

// jaccardSimilarity compares the lower-cased word sets of two texts.
func jaccardSimilarity(a, b string) float64 {
	aWords := wordSet(a)
	bWords := wordSet(b)
	if len(aWords) == 0 || len(bWords) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range aWords {
		if _, ok := bWords[w]; ok {
			intersection++
		}
	}
	union := len(aWords) + len(bWords) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		out[w] = struct{}{}
	}
	return out
}

// hasDirectQuote reports whether any double-quoted span in the claim
// appears verbatim (case-insensitive) in the chunk text.
func hasDirectQuote(claim, chunkText string) bool {
	loweredChunk := strings.ToLower(chunkText)
	for _, m := range quotedText.FindAllStringSubmatch(claim, -1) {
		if m[1] != "" && strings.Contains(loweredChunk, strings.ToLower(m[1])) {
			return true
		}
	}
	return false
}
