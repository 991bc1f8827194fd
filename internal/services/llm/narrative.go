package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/indepth/internal/interfaces"
	"github.com/ternarybob/indepth/internal/models"
)

// NarrativeSystemPrompt frames the model as a sell-side analyst that may only
// use the figures it is given.
const NarrativeSystemPrompt = `You are an equity research analyst writing the closing commentary for an automated investment report.
Use only the figures in the report and reference excerpts you are given. Do not invent prices, ratios or dates.
Write 3 to 5 short paragraphs of plain markdown without headings: the overall verdict and how confident it is,
which dimensions drive it, where the dimensions disagree, and the main risks to watch.
If reference excerpts are provided, cite them by their title where they support or contradict the verdict.`

// NarrativePrompt builds the user prompt from a rendered report and optional
// research excerpts (one string per excerpt).
func NarrativePrompt(r *models.InvestmentReport, markdown string, references []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticker: %s\nOverall signal: %s (confidence %.0f%%, score %+.3f)\n\n",
		r.Ticker, r.OverallSignal, r.OverallConfidence*100, r.OverallScore)
	b.WriteString("<report>\n")
	b.WriteString(strings.TrimSpace(markdown))
	b.WriteString("\n</report>\n")

	if len(references) > 0 {
		b.WriteString("\n<references>\n")
		for i, ref := range references {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(ref))
		}
		b.WriteString("</references>\n")
	}
	return b.String()
}

// AddNarrative asks the narrator for commentary and stores it on the report
func AddNarrative(ctx context.Context, narrator interfaces.NarrativeService, r *models.InvestmentReport, markdown string, references []string) error {
	text, err := narrator.Narrate(ctx, NarrativeSystemPrompt, NarrativePrompt(r, markdown, references))
	if err != nil {
		return fmt.Errorf("failed to generate narrative for %s: %w", r.Ticker, err)
	}
	r.Narrative = text
	return nil
}
