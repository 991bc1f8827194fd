package models

import "time"

// DownloadStatus tracks a report's file retrieval
type DownloadStatus string

const (
	DownloadPending    DownloadStatus = "pending"
	DownloadDownloaded DownloadStatus = "downloaded"
	DownloadFailed     DownloadStatus = "failed"
	DownloadSkipped    DownloadStatus = "skipped"
	DownloadRestricted DownloadStatus = "restricted"
)

// ProcessingStatus tracks a report through extract, chunk and embed
type ProcessingStatus string

const (
	ProcessingUnprocessed ProcessingStatus = "unprocessed"
	ProcessingExtracted   ProcessingStatus = "extracted"
	ProcessingChunked     ProcessingStatus = "chunked"
	ProcessingEmbedded    ProcessingStatus = "embedded"
	ProcessingFailed      ProcessingStatus = "failed"
)

// Source is a publisher of research reports. Name is unique.
type Source struct {
	ID            string     `json:"id"` // src_{uuid}
	Name          string     `json:"name" badgerhold:"index"`
	BaseURL       string     `json:"base_url"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Report is one catalogued research document. (SourceID, ExternalID) is unique.
type Report struct {
	ID               string           `json:"id"` // rpt_{uuid}
	SourceID         string           `json:"source_id" badgerhold:"index"`
	ExternalID       string           `json:"external_id"`
	Title            string           `json:"title"`
	Category         string           `json:"category"`
	Author           string           `json:"author"`
	PublishedDate    string           `json:"published_date"` // YYYY-MM-DD or empty
	URL              string           `json:"url"`
	FileName         string           `json:"file_name"`
	FileSizeBytes    int64            `json:"file_size_bytes"`
	FileHash         string           `json:"file_hash"` // sha256 hex
	DownloadStatus   DownloadStatus   `json:"download_status" badgerhold:"index"`
	DownloadError    string           `json:"download_error"`
	ProcessingStatus ProcessingStatus `json:"processing_status" badgerhold:"index"`
	PageCount        int              `json:"page_count"`
	ExtractionMethod string           `json:"extraction_method"`
	ExtractionCost   float64          `json:"extraction_cost_usd"`
	EmbeddingCost    float64          `json:"embedding_cost_usd"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Chunk is a token-bounded slice of a report's extracted text.
// Embedding holds little-endian float32 values.
type Chunk struct {
	ID             string `json:"id"` // {report_id}_{index}
	ReportID       string `json:"report_id" badgerhold:"index"`
	ChunkIndex     int    `json:"chunk_index"`
	Content        string `json:"content"`
	PageStart      *int   `json:"page_start,omitempty"`
	PageEnd        *int   `json:"page_end,omitempty"`
	TokenCount     int    `json:"token_count"`
	IsTable        bool   `json:"is_table"`
	Embedding      []byte `json:"-"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	HasEmbedding   bool   `json:"has_embedding" badgerhold:"index"`
}

// ReportQuery filters catalog listings. Zero values match everything.
type ReportQuery struct {
	SourceID         string
	DownloadStatus   DownloadStatus
	ProcessingStatus ProcessingStatus
	Limit            int
}

// DownloadUpdate records the outcome of a file download.
// Empty fields leave the stored value unchanged, except Error which is always written.
type DownloadUpdate struct {
	Status        DownloadStatus
	FileName      string
	FileSizeBytes int64
	FileHash      string
	Error         string
}

// ProcessingUpdate records progress through the pipeline.
// Nil fields leave the stored value unchanged.
type ProcessingUpdate struct {
	Status           ProcessingStatus
	PageCount        *int
	ExtractionMethod *string
	ExtractionCost   *float64
	EmbeddingCost    *float64
}

// StatusSummary counts catalog entries by state
type StatusSummary struct {
	Sources          int                      `json:"sources"`
	Reports          int                      `json:"reports"`
	Chunks           int                      `json:"chunks"`
	EmbeddedChunks   int                      `json:"embedded_chunks"`
	DownloadStatus   map[DownloadStatus]int   `json:"download_status"`
	ProcessingStatus map[ProcessingStatus]int `json:"processing_status"`
}

// CostSummary aggregates per-source progress and spend
type CostSummary struct {
	Name       string  `json:"name"`
	Total      int     `json:"total"`
	Downloaded int     `json:"downloaded"`
	Embedded   int     `json:"embedded"`
	TotalCost  float64 `json:"total_cost"`
}
