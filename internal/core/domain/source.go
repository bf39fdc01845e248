package domain

import "time"

// Source describes the provenance of one or more documents. The pipeline
// consumes it read-only: title/author/type feed prompt rendering, the
// reliability score feeds citation scoring.
type Source struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Year        int       `json:"year,omitempty"`
	Type        string    `json:"type"`        // book, letter, speech, newspaper, ...
	Reliability float64   `json:"reliability"` // curator-assigned, in [0,1]
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusChunking  DocumentStatus = "chunking"
	StatusIndexing  DocumentStatus = "indexing"
	StatusCompleted DocumentStatus = "completed"
	StatusError     DocumentStatus = "error"
)

type Document struct {
	ID          string         `json:"id"`
	SourceID    string         `json:"source_id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	ChunkCount  int            `json:"chunk_count"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}
