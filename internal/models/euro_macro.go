package models

import "time"

// MacroFinding is one research item gathered for the monthly macro report
type MacroFinding struct {
	Title          string  `json:"title"`
	Summary        string  `json:"summary"`
	SourceURL      string  `json:"source_url,omitempty"`
	SourceName     string  `json:"source_name"`
	PublishedDate  string  `json:"published_date,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
	Category       string  `json:"category,omitempty"`
}

// AgentResult is the output of one research agent. Error is set instead of
// findings when the agent could not run.
type AgentResult struct {
	AgentName     string         `json:"agent_name"`
	Findings      []MacroFinding `json:"findings"`
	SearchQueries []string       `json:"search_queries"`
	Error         string         `json:"error,omitempty"`
}

// FindingsMeta identifies the month a findings file was collected for
type FindingsMeta struct {
	Year            int       `json:"year" validate:"gte=2000"`
	Month           int       `json:"month" validate:"gte=1,lte=12"`
	GeneratedAt     time.Time `json:"generated_at"`
	PipelineVersion string    `json:"pipeline_version"`
}

// FindingsFile is the findings.json envelope written between collect and synthesize
type FindingsFile struct {
	Meta         FindingsMeta  `json:"meta"`
	AgentResults []AgentResult `json:"agent_results"`
}

// ReportSection is one "## " section of the synthesized report
type ReportSection struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// EuroMacroReport is the synthesized monthly European macro review
type EuroMacroReport struct {
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	Title         string          `json:"title"`
	Sections      []ReportSection `json:"sections"`
	AgentResults  []AgentResult   `json:"agent_results"`
	ModelUsed     string          `json:"model_used"`
	TotalFindings int             `json:"total_findings"`
	GeneratedAt   time.Time       `json:"generated_at"`
}
