package export

import (
	"fmt"
	"strings"

	"github.com/kevinreber/siphon/internal/analysis"
)

// BuildPrompt serializes an analysis result into a natural-language
// prompt for an external summarizer. The output is plain text so it can
// be pasted into any chat interface unchanged.
func BuildPrompt(result *analysis.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("You are reviewing one developer's captured activity for a work journal.\n")
	b.WriteString("Everything below was collected locally from their shell, editor, git, and browser.\n\n")

	fmt.Fprintf(&b, "Window: %s to %s.\n",
		result.StartTime.Format("2006-01-02 15:04"),
		result.EndTime.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Totals: %d events, %d clusters, %d sessions, average session %s, overall struggle %d/100.\n",
		result.Summary.TotalEvents,
		result.Summary.ClusterCount,
		result.Summary.SessionCount,
		formatMinutes(result.Summary.AverageSessionMinutes),
		result.Summary.OverallStruggle)

	if len(result.Summary.TopTopics) > 0 {
		names := make([]string, 0, len(result.Summary.TopTopics))
		for _, t := range result.Summary.TopTopics {
			names = append(names, t.Topic)
		}
		fmt.Fprintf(&b, "Topics: %s.\n", strings.Join(names, ", "))
	}

	if len(result.Clusters) > 0 {
		b.WriteString("\nActivity clusters:\n")
		for i, c := range result.Clusters {
			fmt.Fprintf(&b, "%d. %s, %s to %s: %d events, struggle %d/100, aha %d/100, %s confidence.\n",
				i+1, c.Topic,
				c.StartTime.Format("15:04"), c.EndTime.Format("15:04"),
				len(c.Events), c.StruggleScore, c.AhaIndex, c.Confidence)
			for _, s := range c.Signals {
				fmt.Fprintf(&b, "   - %s (%d/100): %s\n", s.Type, s.Intensity, s.Description)
			}
		}
	}

	if len(result.Summary.AhaMoments) > 0 {
		b.WriteString("\nBreakthroughs:\n")
		for _, m := range result.Summary.AhaMoments {
			fmt.Fprintf(&b, "- %s: %s\n", m.Timestamp.Format("15:04"), m.Description)
		}
	}

	if len(result.Ideas) > 0 {
		b.WriteString("\nContent ideas already extracted:\n")
		for _, idea := range result.Ideas {
			fmt.Fprintf(&b, "- %s (%s, %s confidence)\n", idea.Title, idea.SuggestedFormat, idea.Confidence)
		}
	}

	b.WriteString("\nWrite three short paragraphs: what was worked on, where the friction was, ")
	b.WriteString("and what broke through. Mention concrete topics from the data and do not invent details.\n")
	return b.String()
}

// formatMinutes renders a minute count as "2h 15m" or "45m".
func formatMinutes(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}
