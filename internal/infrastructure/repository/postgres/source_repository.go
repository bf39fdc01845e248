package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

type SourceRepository struct {
	db *sql.DB
}

func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

func (r *SourceRepository) Create(ctx context.Context, src *domain.Source) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sources (id, title, author, year, source_type, reliability, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		src.ID, src.Title, src.Author, src.Year, src.Type, src.Reliability, src.Notes, src.CreatedAt, src.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, author, year, source_type, reliability, notes, created_at, updated_at
FROM sources
WHERE id = $1
`, id)

	var src domain.Source
	err := row.Scan(&src.ID, &src.Title, &src.Author, &src.Year, &src.Type, &src.Reliability, &src.Notes, &src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}
	return &src, nil
}

func (r *SourceRepository) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Source, error) {
	out := make(map[string]domain.Source, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, author, year, source_type, reliability, notes, created_at, updated_at
FROM sources
WHERE id = ANY($1)
`, ids)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var src domain.Source
		if err := rows.Scan(&src.ID, &src.Title, &src.Author, &src.Year, &src.Type, &src.Reliability, &src.Notes, &src.CreatedAt, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out[src.ID] = src
	}
	return out, rows.Err()
}

func (r *SourceRepository) List(ctx context.Context) ([]domain.Source, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, author, year, source_type, reliability, notes, created_at, updated_at
FROM sources
ORDER BY created_at
`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var out []domain.Source
	for rows.Next() {
		var src domain.Source
		if err := rows.Scan(&src.ID, &src.Title, &src.Author, &src.Year, &src.Type, &src.Reliability, &src.Notes, &src.CreatedAt, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}
