package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

type EpisodeRepository struct {
	db *sql.DB
}

func NewEpisodeRepository(db *sql.DB) *EpisodeRepository {
	return &EpisodeRepository{db: db}
}

func (r *EpisodeRepository) CreateEpisode(ctx context.Context, ep *domain.Episode) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO episodes (id, title, description, persona_name, status, total_beats, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, ep.ID, ep.Title, ep.Description, ep.PersonaName, string(ep.Status), ep.TotalBeats, ep.CreatedAt, ep.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}
	return nil
}

func (r *EpisodeRepository) GetEpisode(ctx context.Context, id string) (*domain.Episode, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, description, persona_name, status, total_beats, created_at, updated_at
FROM episodes WHERE id = $1
`, id)

	var ep domain.Episode
	var status string
	if err := row.Scan(&ep.ID, &ep.Title, &ep.Description, &ep.PersonaName, &status, &ep.TotalBeats, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("episode %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan episode: %w", err)
	}
	ep.Status = domain.EpisodeStatus(status)
	return &ep, nil
}

func (r *EpisodeRepository) UpdateEpisodeStatus(ctx context.Context, id string, status domain.EpisodeStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE episodes SET status = $2, updated_at = $3 WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update episode status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("episode %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *EpisodeRepository) CreateBeat(ctx context.Context, beat *domain.Beat) error {
	annotations, err := json.Marshal(beat.Annotations.Sanitize())
	if err != nil {
		return fmt.Errorf("marshal annotations: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin beat tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO beats (id, episode_id, sequence_number, user_message, response, response_time_ms, token_count, citation_count, annotations, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		beat.ID, beat.EpisodeID, beat.SequenceNumber, beat.UserMessage, beat.Response,
		beat.ResponseTimeMs, beat.TokenCount, beat.CitationCount, annotations, beat.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert beat: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE episodes SET total_beats = total_beats + 1, updated_at = $2 WHERE id = $1
`, beat.EpisodeID, beat.CreatedAt); err != nil {
		return fmt.Errorf("bump episode beat count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit beat tx: %w", err)
	}
	return nil
}

func (r *EpisodeRepository) GetBeat(ctx context.Context, id string) (*domain.Beat, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, episode_id, sequence_number, user_message, response, response_time_ms, token_count, citation_count, annotations, created_at
FROM beats WHERE id = $1
`, id)

	var b domain.Beat
	var annotationsRaw []byte
	if err := row.Scan(
		&b.ID, &b.EpisodeID, &b.SequenceNumber, &b.UserMessage, &b.Response,
		&b.ResponseTimeMs, &b.TokenCount, &b.CitationCount, &annotationsRaw, &b.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("beat %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan beat: %w", err)
	}
	if len(annotationsRaw) > 0 {
		if err := json.Unmarshal(annotationsRaw, &b.Annotations); err != nil {
			return nil, fmt.Errorf("unmarshal annotations: %w", err)
		}
	}
	return &b, nil
}

// ListRecentBeats returns the most recent beats in chronological order.
func (r *EpisodeRepository) ListRecentBeats(ctx context.Context, episodeID string, limit int) ([]domain.Beat, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, episode_id, sequence_number, user_message, response, response_time_ms, token_count, citation_count, annotations, created_at
FROM (
	SELECT * FROM beats WHERE episode_id = $1 ORDER BY sequence_number DESC LIMIT $2
) recent
ORDER BY sequence_number ASC
`, episodeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query beats: %w", err)
	}
	defer rows.Close()

	var out []domain.Beat
	for rows.Next() {
		var b domain.Beat
		var annotationsRaw []byte
		if err := rows.Scan(
			&b.ID, &b.EpisodeID, &b.SequenceNumber, &b.UserMessage, &b.Response,
			&b.ResponseTimeMs, &b.TokenCount, &b.CitationCount, &annotationsRaw, &b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan beat: %w", err)
		}
		if len(annotationsRaw) > 0 {
			if err := json.Unmarshal(annotationsRaw, &b.Annotations); err != nil {
				return nil, fmt.Errorf("unmarshal annotations: %w", err)
			}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *EpisodeRepository) NextSequenceNumber(ctx context.Context, episodeID string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM beats WHERE episode_id = $1
`, episodeID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("next sequence number: %w", err)
	}
	return n, nil
}
