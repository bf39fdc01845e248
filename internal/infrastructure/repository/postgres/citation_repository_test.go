package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

func TestSaveValidationReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewCitationRepository(db)

	mock.ExpectExec("UPDATE citations").
		WithArgs("missing", 0.8, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.SaveValidation(context.Background(), "missing", 0.8, time.Now())
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSourceStatsAggregatesPerSource(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewCitationRepository(db)

	rows := sqlmock.NewRows([]string{"source_id", "title", "count", "avg_confidence", "avg_validation"}).
		AddRow("src-1", "Collected Works", 4, 0.82, 0.91).
		AddRow("src-2", "Newspaper Archive", 1, 0.66, nil)

	mock.ExpectQuery("SELECT c.source_id").
		WithArgs("ep-1").
		WillReturnRows(rows)

	stats, err := repo.SourceStats(context.Background(), "ep-1")
	if err != nil {
		t.Fatalf("SourceStats() error = %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(stats))
	}
	if stats[0].SourceTitle != "Collected Works" || stats[0].CitationCount != 4 {
		t.Fatalf("unexpected first row: %+v", stats[0])
	}
	if stats[1].AvgValidationScore != nil {
		t.Fatalf("expected nil validation average for unvalidated source")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
