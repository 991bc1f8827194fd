package portfolio

import (
	"context"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

// DefaultRange reads the first six columns of the first sheet, header included
const DefaultRange = "A:F"

// SheetsReader reads holdings from a spreadsheet shared with a service account
type SheetsReader struct {
	service       *sheets.Service
	spreadsheetID string
	rangeName     string
	logger        arbor.ILogger
}

var _ interfaces.HoldingsProvider = (*SheetsReader)(nil)

// NewSheetsReader authenticates with the service account key at credentialsFile
func NewSheetsReader(ctx context.Context, credentialsFile, spreadsheetID, rangeName string, logger arbor.ILogger) (*SheetsReader, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account credentials: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	service, err := sheets.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewSheetsReaderWithService(service, spreadsheetID, rangeName, logger), nil
}

// NewSheetsReaderWithService wraps an already configured Sheets service
func NewSheetsReaderWithService(service *sheets.Service, spreadsheetID, rangeName string, logger arbor.ILogger) *SheetsReader {
	if rangeName == "" {
		rangeName = DefaultRange
	}
	return &SheetsReader{
		service:       service,
		spreadsheetID: spreadsheetID,
		rangeName:     rangeName,
		logger:        logger,
	}
}

// ReadHoldings fetches the range and parses it as a header row plus one holding per row
func (r *SheetsReader) ReadHoldings(ctx context.Context) ([]models.PortfolioHolding, error) {
	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, r.rangeName).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read holdings sheet: %w", err)
	}

	rows := cellStrings(resp.Values)
	holdings := parseRows(rows)
	if skipped := len(rows) - 1 - len(holdings); skipped > 0 {
		r.logger.Debug().Int("skipped", skipped).Msg("Skipped unparseable holding rows")
	}
	r.logger.Debug().Int("holdings", len(holdings)).Str("range", r.rangeName).Msg("Read holdings from sheet")
	return holdings, nil
}
