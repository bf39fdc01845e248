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

// CitationTrackerUseCase persists citations per episode beat and aggregates
// them into episode-level reports.
type CitationTrackerUseCase struct {
	citations ports.CitationRepository
	episodes  ports.EpisodeRepository
	chunks    ports.ChunkRepository
	sources   ports.SourceRepository
	analyzer  *CitationAnalyzer

	now func() time.Time
}

func NewCitationTrackerUseCase(
	citations ports.CitationRepository,
	episodes ports.EpisodeRepository,
	chunks ports.ChunkRepository,
	sources ports.SourceRepository,
	analyzer *CitationAnalyzer,
) *CitationTrackerUseCase {
	return &CitationTrackerUseCase{
		citations: citations,
		episodes:  episodes,
		chunks:    chunks,
		sources:   sources,
		analyzer:  analyzer,
		now:       time.Now,
	}
}

// Record stores the citations extracted from one beat's response. IDs and
// timestamps are assigned here; validation fields already set by the caller
// are kept.
func (uc *CitationTrackerUseCase) Record(ctx context.Context, episodeID, beatID string, citations []domain.Citation) ([]domain.Citation, error) {
	now := uc.now().UTC()
	out := make([]domain.Citation, len(citations))
	for i, c := range citations {
		c.ID = uuid.NewString()
		c.EpisodeID = episodeID
		c.BeatID = beatID
		c.CreatedAt = now
		if err := uc.citations.Create(ctx, &c); err != nil {
			return nil, fmt.Errorf("store citation: %w", err)
		}
		out[i] = c
	}
	return out, nil
}

// EpisodeReport aggregates citation quality over one episode. Citations
// without a stored validation score count as invalid and contribute zero to
// the accuracy average.
func (uc *CitationTrackerUseCase) EpisodeReport(ctx context.Context, episodeID string) (*domain.EpisodeCitationReport, error) {
	if _, err := uc.episodes.GetEpisode(ctx, episodeID); err != nil {
		return nil, fmt.Errorf("resolve episode: %w", err)
	}

	citations, err := uc.citations.ListByEpisode(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("list citations: %w", err)
	}

	report := &domain.EpisodeCitationReport{EpisodeID: episodeID}
	report.TotalCitations = len(citations)

	var accuracySum float64
	for _, c := range citations {
		if c.ValidationScore == nil {
			continue
		}
		accuracySum += *c.ValidationScore
		if *c.ValidationScore >= uc.analyzer.ValidThreshold() {
			report.ValidCitations++
		}
	}
	if report.TotalCitations > 0 {
		report.AverageAccuracy = accuracySum / float64(report.TotalCitations)
	}

	stats, err := uc.citations.SourceStats(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("aggregate source stats: %w", err)
	}
	report.Sources = stats
	report.SourcesUsed = len(stats)
	return report, nil
}

// ValidateEpisode re-validates every stored citation of an episode against
// its beat's response text and the cited chunk, persisting the scores. A
// citation whose chunk has been deleted gets a failed report, not an error.
func (uc *CitationTrackerUseCase) ValidateEpisode(ctx context.Context, episodeID string) (map[string]domain.ValidationReport, error) {
	citations, err := uc.citations.ListByEpisode(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("list citations: %w", err)
	}

	reports := make(map[string]domain.ValidationReport, len(citations))
	beats := make(map[string]*domain.Beat)
	chunkText, reliability, err := uc.loadValidationInputs(ctx, citations)
	if err != nil {
		return nil, err
	}

	for _, c := range citations {
		beat, ok := beats[c.BeatID]
		if !ok {
			beat, err = uc.episodes.GetBeat(ctx, c.BeatID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					reports[c.ID] = domain.ValidationReport{Error: fmt.Sprintf("beat %s no longer exists", c.BeatID)}
					continue
				}
				return nil, fmt.Errorf("load beat: %w", err)
			}
			beats[c.BeatID] = beat
		}

		text, ok := chunkText[c.ChunkID]
		if !ok {
			reports[c.ID] = domain.ValidationReport{Error: fmt.Sprintf("chunk %s no longer exists", c.ChunkID)}
			continue
		}

		report := uc.analyzer.Validate(c, beat.Response, text, reliability[c.SourceID])
		reports[c.ID] = report
		if report.Error != "" {
			continue
		}
		if err := uc.citations.SaveValidation(ctx, c.ID, report.AccuracyScore, uc.now().UTC()); err != nil {
			return nil, fmt.Errorf("save validation: %w", err)
		}
	}
	return reports, nil
}

func (uc *CitationTrackerUseCase) loadValidationInputs(ctx context.Context, citations []domain.Citation) (map[string]string, map[string]float64, error) {
	chunkIDs := make([]string, 0, len(citations))
	sourceIDs := make([]string, 0, len(citations))
	seenChunk := make(map[string]struct{})
	seenSource := make(map[string]struct{})
	for _, c := range citations {
		if _, ok := seenChunk[c.ChunkID]; !ok {
			seenChunk[c.ChunkID] = struct{}{}
			chunkIDs = append(chunkIDs, c.ChunkID)
		}
		if _, ok := seenSource[c.SourceID]; !ok {
			seenSource[c.SourceID] = struct{}{}
			sourceIDs = append(sourceIDs, c.SourceID)
		}
	}

	chunkText := make(map[string]string, len(chunkIDs))
	if len(chunkIDs) > 0 {
		chunks, err := uc.chunks.GetByIDs(ctx, chunkIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("load chunks: %w", err)
		}
		for _, ch := range chunks {
			chunkText[ch.ID] = ch.Text
		}
	}

	reliability := make(map[string]float64, len(sourceIDs))
	if len(sourceIDs) > 0 {
		sources, err := uc.sources.GetByIDs(ctx, sourceIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("load sources: %w", err)
		}
		for id, src := range sources {
			reliability[id] = src.Reliability
		}
	}
	return chunkText, reliability, nil
}
