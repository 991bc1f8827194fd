package interfaces

import (
	"context"
)

// NarrativeService writes long-form commentary for a finished report
type NarrativeService interface {
	Narrate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
