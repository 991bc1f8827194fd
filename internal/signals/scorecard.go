package signals

import (
	"strings"

	"github.com/ternarybob/indepth/internal/models"
)

// scorecard accumulates the rules a dimension triggered
type scorecard struct {
	scores  []float64
	reasons []string
}

// add records a triggered rule. An empty reason contributes a score only.
func (s *scorecard) add(score float64, reason string) {
	s.scores = append(s.scores, score)
	if reason != "" {
		s.reasons = append(s.reasons, reason)
	}
}

// note records a reason without a score
func (s *scorecard) note(reason string) {
	s.reasons = append(s.reasons, reason)
}

func (s *scorecard) empty() bool {
	return len(s.scores) == 0
}

func (s *scorecard) mean() float64 {
	return avg(s.scores)
}

func (s *scorecard) rationale() string {
	return strings.Join(s.reasons, "; ")
}

// scaled buckets the mean score with confidence min(ceiling, n/expected*ceiling) rounded to 2dp.
// Callers check empty() first.
func (s *scorecard) scaled(ceiling, expected float64) models.SignalWithConfidence {
	confidence := minFloat(ceiling, float64(len(s.scores))/expected*ceiling)
	return models.NewSignal(models.SignalFromScore(s.mean()), round(confidence, 2), s.rationale())
}

// fixed buckets the mean score with a constant confidence
func (s *scorecard) fixed(confidence float64) models.SignalWithConfidence {
	return models.NewSignal(models.SignalFromScore(s.mean()), confidence, s.rationale())
}

func neutral(confidence float64, rationale string) models.SignalWithConfidence {
	return models.NewSignal(models.SignalNeutral, confidence, rationale)
}
