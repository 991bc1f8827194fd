package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/indepth/internal/models"
)

// ErrNotFound is returned when a source, report or chunk does not exist
var ErrNotFound = errors.New("not found")

// SourceStorage - persistence for report publishers
type SourceStorage interface {
	// GetOrCreateSource returns the source with this name, creating it if absent
	GetOrCreateSource(ctx context.Context, name, baseURL string) (*models.Source, error)
	GetSource(ctx context.Context, id string) (*models.Source, error)
	GetSourceByName(ctx context.Context, name string) (*models.Source, error)
	ListSources(ctx context.Context) ([]*models.Source, error)
	MarkScraped(ctx context.Context, id string, at time.Time) error
}

// ReportStorage - persistence for the report catalog
type ReportStorage interface {
	// UpsertReport inserts a report unless (SourceID, ExternalID) already exists.
	// The stored report is returned either way; created reports whether it was new.
	UpsertReport(ctx context.Context, report *models.Report) (stored *models.Report, created bool, err error)
	GetReport(ctx context.Context, id string) (*models.Report, error)
	// ListReports returns matching reports ordered by published date, newest first
	ListReports(ctx context.Context, query models.ReportQuery) ([]*models.Report, error)
	UpdateDownload(ctx context.Context, id string, update models.DownloadUpdate) error
	UpdateProcessing(ctx context.Context, id string, update models.ProcessingUpdate) error
}

// ChunkStorage - persistence for chunk text and embeddings
type ChunkStorage interface {
	// SaveChunks inserts or replaces chunks keyed by (ReportID, ChunkIndex)
	SaveChunks(ctx context.Context, chunks []*models.Chunk) error
	// GetChunks returns a report's chunks ordered by index; empty reportID returns all
	GetChunks(ctx context.Context, reportID string) ([]*models.Chunk, error)
	// GetEmbeddedChunks returns every chunk with an embedding ordered by (ReportID, ChunkIndex)
	GetEmbeddedChunks(ctx context.Context) ([]*models.Chunk, error)
	DeleteChunks(ctx context.Context, reportID string) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	SourceStorage() SourceStorage
	ReportStorage() ReportStorage
	ChunkStorage() ChunkStorage
	KeyValueStorage() KeyValueStorage
	StatusSummary(ctx context.Context) (*models.StatusSummary, error)
	CostSummary(ctx context.Context) ([]models.CostSummary, error)
	Close() error
}
