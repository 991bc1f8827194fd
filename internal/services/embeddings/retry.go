package embeddings

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// retryPolicy controls backoff when the Gemini API reports an exhausted quota.
// The quota window resets roughly once a minute.
type retryPolicy struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		MaxRetries: 3,
		Initial:    45 * time.Second,
		Max:        90 * time.Second,
		Multiplier: 1.5,
	}
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "quota")
}

// Matches "Please retry in 45.3s" and "retryDelay: 45s"
var retryDelayPattern = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

func suggestedDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	m := retryDelayPattern.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return 0
	}
	seconds, parseErr := strconv.ParseFloat(m[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// backoff returns the wait before retry number attempt (zero based)
func (p retryPolicy) backoff(attempt int, apiDelay time.Duration) time.Duration {
	base := p.Initial
	if apiDelay > 0 {
		base = apiDelay + 5*time.Second
	}
	wait := float64(base)
	for i := 0; i < attempt; i++ {
		wait *= p.Multiplier
	}
	if time.Duration(wait) > p.Max {
		return p.Max
	}
	return time.Duration(wait)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
