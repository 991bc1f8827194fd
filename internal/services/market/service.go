// Package market supplies analysis inputs from EODHD, cached through an optional CacheService.
package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/eodhd"
	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

// DefaultCacheTTL applies when the service is created with a zero ttl
const DefaultCacheTTL = 6 * time.Hour

// Service implements interfaces.MarketDataProvider over the EODHD API
type Service struct {
	client *eodhd.Client
	cache  interfaces.CacheService
	ttl    time.Duration
	logger arbor.ILogger
	now    func() time.Time
}

var _ interfaces.MarketDataProvider = (*Service)(nil)

// NewService creates a provider. cache may be nil to disable caching.
func NewService(client *eodhd.Client, cache interfaces.CacheService, ttl time.Duration, logger arbor.ILogger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		client: client,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// cached loads key into dest, calling fetch and storing its result on a miss.
// Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, s *Service, key string, fetch func() (T, error)) (T, error) {
	var value T
	if s.cache != nil {
		found, err := s.cache.Get(ctx, key, &value)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Market cache read failed")
		} else if found {
			s.logger.Trace().Str("key", key).Msg("Market cache hit")
			return value, nil
		}
	}

	value, err := fetch()
	if err != nil {
		return value, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Market cache write failed")
		}
	}
	return value, nil
}

// GetHistory returns daily bars covering the trailing days, oldest first
func (s *Service) GetHistory(ctx context.Context, symbol string, days int) ([]models.PriceBar, error) {
	now := s.now().UTC()
	key := fmt.Sprintf("eod:%s:%d:%s", symbol, days, now.Format("2006-01-02"))

	return cached(ctx, s, key, func() ([]models.PriceBar, error) {
		from := now.AddDate(0, 0, -days)
		rows, err := s.client.GetEOD(ctx, symbol, eodhd.WithDateRange(from, now))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
		}
		bars := barsFromEOD(rows)
		s.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Fetched price history")
		return bars, nil
	})
}

// GetCompany returns the normalized fundamentals snapshot
func (s *Service) GetCompany(ctx context.Context, symbol string) (*models.CompanySnapshot, error) {
	return cached(ctx, s, "fundamentals:"+symbol, func() (*models.CompanySnapshot, error) {
		resp, err := s.client.GetFundamentals(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch fundamentals for %s: %w", symbol, err)
		}
		return snapshotFromFundamentals(symbol, resp, s.now()), nil
	})
}

// GetNews returns the latest headlines, newest first
func (s *Service) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	key := fmt.Sprintf("news:%s:%d", symbol, limit)
	return cached(ctx, s, key, func() ([]models.NewsArticle, error) {
		items, err := s.client.GetNews(ctx, []string{symbol}, eodhd.WithLimit(limit))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
		}
		return newsFromEODHD(items), nil
	})
}

// GetOptionChain returns the near-term chain. Symbols without listed options
// yield an empty chain rather than an error.
func (s *Service) GetOptionChain(ctx context.Context, symbol string) ([]models.OptionContract, error) {
	return cached(ctx, s, "options:"+symbol, func() ([]models.OptionContract, error) {
		now := s.now()
		resp, err := s.client.GetOptions(ctx, symbol, eodhd.WithDateRange(now, now.AddDate(0, 2, 0)))
		if err != nil {
			var apiErr *eodhd.APIError
			if errors.As(err, &apiErr) && apiErr.NotFound() {
				return []models.OptionContract{}, nil
			}
			return nil, fmt.Errorf("failed to fetch options for %s: %w", symbol, err)
		}
		chain := chainFromOptions(resp, now)
		if chain == nil {
			chain = []models.OptionContract{}
		}
		return chain, nil
	})
}
