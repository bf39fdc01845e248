package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

type CitationRepository struct {
	db *sql.DB
}

func NewCitationRepository(db *sql.DB) *CitationRepository {
	return &CitationRepository{db: db}
}

func (r *CitationRepository) Create(ctx context.Context, c *domain.Citation) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO citations (id, citation_text, confidence, chunk_id, document_id, source_id, episode_id, beat_id, validation_score, validated_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		c.ID, c.CitationText, c.Confidence, c.ChunkID, c.DocumentID, c.SourceID,
		c.EpisodeID, c.BeatID, c.ValidationScore, c.ValidatedAt, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert citation: %w", err)
	}
	return nil
}

const citationColumns = `id, citation_text, confidence, chunk_id, document_id, source_id, episode_id, beat_id, validation_score, validated_at, created_at`

func (r *CitationRepository) GetByID(ctx context.Context, id string) (*domain.Citation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+citationColumns+` FROM citations WHERE id = $1`, id)

	var c domain.Citation
	err := row.Scan(
		&c.ID, &c.CitationText, &c.Confidence, &c.ChunkID, &c.DocumentID, &c.SourceID,
		&c.EpisodeID, &c.BeatID, &c.ValidationScore, &c.ValidatedAt, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("citation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan citation: %w", err)
	}
	return &c, nil
}

func (r *CitationRepository) ListByEpisode(ctx context.Context, episodeID string) ([]domain.Citation, error) {
	return r.list(ctx, `SELECT `+citationColumns+` FROM citations WHERE episode_id = $1 ORDER BY created_at`, episodeID)
}

func (r *CitationRepository) ListByBeat(ctx context.Context, beatID string) ([]domain.Citation, error) {
	return r.list(ctx, `SELECT `+citationColumns+` FROM citations WHERE beat_id = $1 ORDER BY created_at`, beatID)
}

func (r *CitationRepository) list(ctx context.Context, query string, arg any) ([]domain.Citation, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query citations: %w", err)
	}
	defer rows.Close()

	var out []domain.Citation
	for rows.Next() {
		var c domain.Citation
		if err := rows.Scan(
			&c.ID, &c.CitationText, &c.Confidence, &c.ChunkID, &c.DocumentID, &c.SourceID,
			&c.EpisodeID, &c.BeatID, &c.ValidationScore, &c.ValidatedAt, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan citation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CitationRepository) SaveValidation(ctx context.Context, id string, score float64, validatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE citations SET validation_score = $2, validated_at = $3 WHERE id = $1
`, id, score, validatedAt)
	if err != nil {
		return fmt.Errorf("save citation validation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("citation %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SourceStats aggregates citation counts and validation averages per
// source for one episode.
func (r *CitationRepository) SourceStats(ctx context.Context, episodeID string) ([]domain.SourceCitationStats, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.source_id, COALESCE(s.title, ''), COUNT(*), AVG(c.confidence), AVG(c.validation_score)
FROM citations c
LEFT JOIN sources s ON s.id = c.source_id
WHERE c.episode_id = $1
GROUP BY c.source_id, s.title
ORDER BY COUNT(*) DESC
`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("query source stats: %w", err)
	}
	defer rows.Close()

	var out []domain.SourceCitationStats
	for rows.Next() {
		var s domain.SourceCitationStats
		var avgValidation sql.NullFloat64
		if err := rows.Scan(&s.SourceID, &s.SourceTitle, &s.CitationCount, &s.AvgConfidence, &avgValidation); err != nil {
			return nil, fmt.Errorf("scan source stats: %w", err)
		}
		if avgValidation.Valid {
			s.AvgValidationScore = &avgValidation.Float64
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
