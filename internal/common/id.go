package common

import (
	"fmt"

	"github.com/google/uuid"
)

// NewSourceID generates a source ID. Format: src_<uuid>
func NewSourceID() string {
	return "src_" + uuid.New().String()
}

// NewReportID generates a report ID. Format: rpt_<uuid>
func NewReportID() string {
	return "rpt_" + uuid.New().String()
}

// ChunkID derives the chunk key from its report and position, so the pair
// (report, index) can only ever be stored once.
func ChunkID(reportID string, chunkIndex int) string {
	return fmt.Sprintf("%s_%06d", reportID, chunkIndex)
}
