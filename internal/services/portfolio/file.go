package portfolio

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

// FileReader reads holdings from a YAML file:
//
//	holdings:
//	  - ticker: AAPL
//	    shares: 10
//	    market_value: 1900
type FileReader struct {
	path string
}

var _ interfaces.HoldingsProvider = (*FileReader)(nil)

func NewFileReader(path string) *FileReader {
	return &FileReader{path: path}
}

type holdingsFile struct {
	Holdings []models.PortfolioHolding `yaml:"holdings"`
}

func (r *FileReader) ReadHoldings(ctx context.Context) ([]models.PortfolioHolding, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read holdings file: %w", err)
	}

	var file holdingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse holdings file %s: %w", r.path, err)
	}

	holdings := make([]models.PortfolioHolding, 0, len(file.Holdings))
	for _, h := range file.Holdings {
		h.Ticker = strings.ToUpper(strings.TrimSpace(h.Ticker))
		if h.Ticker == "" || h.Shares <= 0 {
			continue
		}
		h.Weight = nil
		holdings = append(holdings, h)
	}
	return holdings, nil
}
