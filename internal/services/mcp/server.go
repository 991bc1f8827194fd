package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/indepth/internal/common"
	"github.com/ternarybob/indepth/internal/models"
	"github.com/ternarybob/indepth/internal/services/render"
	"github.com/ternarybob/indepth/internal/services/search"
)

const ServerName = common.AppName

// Searcher runs semantic queries over the reference library
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Results, error)
}

// StatusSource reports catalog progress
type StatusSource interface {
	StatusSummary(ctx context.Context) (*models.StatusSummary, error)
	CostSummary(ctx context.Context) ([]models.CostSummary, error)
}

// Analyzer produces an investment report for one ticker
type Analyzer interface {
	Analyze(ctx context.Context, ticker string) (*models.InvestmentReport, *models.ReportData, error)
}

// Server exposes search, status and analyze as MCP tools. Any dependency may
// be nil, in which case its tool is not registered.
type Server struct {
	mcp      *server.MCPServer
	searcher Searcher
	status   StatusSource
	analyzer Analyzer
	logger   arbor.ILogger
}

func NewServer(searcher Searcher, status StatusSource, analyzer Analyzer, logger arbor.ILogger) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			common.GetVersion(),
			server.WithToolCapabilities(true),
		),
		searcher: searcher,
		status:   status,
		analyzer: analyzer,
		logger:   logger,
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server for transports other than stdio
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio blocks serving JSON-RPC on stdin/stdout
func (s *Server) ServeStdio() error {
	s.logger.Info().Msg("MCP server listening on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	if s.searcher != nil {
		s.mcp.AddTool(searchTool(), s.handleSearch)
	}
	if s.status != nil {
		s.mcp.AddTool(statusTool(), s.handleStatus)
	}
	if s.analyzer != nil {
		s.mcp.AddTool(analyzeTool(), s.handleAnalyze)
	}
}

func searchTool() mcp.Tool {
	return mcp.NewTool("search_references",
		mcp.WithDescription("Semantic search over downloaded research reports (KCIF and other sources). Returns the best matching passages with report title, date and pages."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language query, Korean or English")),
		mcp.WithNumber("top_k", mcp.Description("Number of passages to return (default: 5, max: 50)")),
		mcp.WithString("date_from", mcp.Description("Earliest publication date, YYYY-MM-DD")),
		mcp.WithString("date_to", mcp.Description("Latest publication date, YYYY-MM-DD")),
		mcp.WithString("source", mcp.Description("Restrict to one source, e.g. 'KCIF'")),
	)
}

func statusTool() mcp.Tool {
	return mcp.NewTool("reference_status",
		mcp.WithDescription("Counts of sources, reports and chunks by download and processing state, with per-source cost."),
	)
}

func analyzeTool() mcp.Tool {
	return mcp.NewTool("analyze_ticker",
		mcp.WithDescription("Run the full investment analysis for a ticker and return the markdown report with the overall signal."),
		mcp.WithString("ticker", mcp.Required(), mcp.Description("Ticker, optionally with exchange suffix (e.g. 'AAPL', 'BHP.AU')")),
	)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(message)},
		IsError: true,
	}
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return errorResult("Error: query parameter is required"), nil
	}

	topK := request.GetInt("top_k", search.DefaultTopK)
	if topK < 1 {
		topK = 1
	}
	if topK > 50 {
		topK = 50
	}

	q := search.Query{
		Text:     query,
		TopK:     topK,
		DateFrom: request.GetString("date_from", ""),
		DateTo:   request.GetString("date_to", ""),
		Source:   request.GetString("source", ""),
	}
	for _, d := range []string{q.DateFrom, q.DateTo} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return errorResult(fmt.Sprintf("Error: invalid date %q, expected YYYY-MM-DD", d)), nil
		}
	}

	res, err := s.searcher.Search(ctx, q)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("MCP search failed")
		return errorResult(fmt.Sprintf("Error: %v", err)), nil
	}
	return textResult(formatSearch(res)), nil
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.status.StatusSummary(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: %v", err)), nil
	}
	costs, err := s.status.CostSummary(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: %v", err)), nil
	}
	return textResult(formatStatus(summary, costs)), nil
}

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticker, err := request.RequireString("ticker")
	if err != nil || strings.TrimSpace(ticker) == "" {
		return errorResult("Error: ticker parameter is required"), nil
	}

	report, data, err := s.analyzer.Analyze(ctx, ticker)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("MCP analysis failed")
		return errorResult(fmt.Sprintf("Error: %v", err)), nil
	}
	return textResult(render.Markdown(report, data)), nil
}
