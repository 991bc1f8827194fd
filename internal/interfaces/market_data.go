package interfaces

import (
	"context"

	"github.com/ternarybob/indepth/internal/models"
)

// MarketDataProvider supplies the raw inputs of an analysis run.
// Symbols are in EODHD CODE.EXCHANGE form.
type MarketDataProvider interface {
	// GetHistory returns daily bars for the trailing number of calendar days, oldest first
	GetHistory(ctx context.Context, symbol string, days int) ([]models.PriceBar, error)
	GetCompany(ctx context.Context, symbol string) (*models.CompanySnapshot, error)
	GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error)
	// GetOptionChain returns near-term listed contracts, empty when none are listed
	GetOptionChain(ctx context.Context, symbol string) ([]models.OptionContract, error)
}

// HoldingsProvider reads the current portfolio
type HoldingsProvider interface {
	ReadHoldings(ctx context.Context) ([]models.PortfolioHolding, error)
}
