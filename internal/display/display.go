// Package display renders analysis output for the terminal. Styling
// degrades to plain text automatically when stdout is not a terminal,
// so command output stays pipeable.
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/kevinreber/siphon/internal/analysis"
	"github.com/kevinreber/siphon/internal/collect"
)

// Result renders the full analysis report.
func Result(result *analysis.AnalysisResult) string {
	sections := []string{
		Summary(result),
		Sessions(result.Sessions),
		Clusters(result.Clusters),
		Ideas(result.Ideas),
	}
	return strings.Join(sections, "\n")
}

// Summary renders the roll-up header: totals, struggle meter, top topics.
func Summary(result *analysis.AnalysisResult) string {
	var b strings.Builder
	s := result.Summary

	window := fmt.Sprintf("%s – %s",
		result.StartTime.Format("Jan 2 15:04"),
		result.EndTime.Format("Jan 2 15:04"))
	b.WriteString(titleStyle.Render("siphon · "+window) + "\n\n")

	fmt.Fprintf(&b, "  %d events · %d clusters · %d sessions · avg session %d min\n",
		s.TotalEvents, s.ClusterCount, s.SessionCount, s.AverageSessionMinutes)
	fmt.Fprintf(&b, "  overall struggle %s %d/100\n",
		meter(s.OverallStruggle), s.OverallStruggle)

	if len(s.TopTopics) > 0 {
		b.WriteString(sectionStyle.Render("Top Topics") + "\n")
		for _, topic := range s.TopTopics {
			b.WriteString("  " + topicCol.Render(topic.Topic) +
				numCol.Render(fmt.Sprintf("%d ev", topic.EventCount)) +
				numCol.Render(fmt.Sprintf("%d min", topic.Minutes)) + "\n")
		}
	}

	if len(s.AhaMoments) > 0 {
		b.WriteString(sectionStyle.Render("Aha Moments") + "\n")
		for _, m := range s.AhaMoments {
			b.WriteString("  " + goodStyle.Render("⚡") + " " +
				dimStyle.Render(m.Timestamp.Format("15:04")) + "  " + m.Description + "\n")
		}
	}
	return b.String()
}

// Sessions renders one line per work session.
func Sessions(sessions []*analysis.Session) string {
	if len(sessions) == 0 {
		return dimStyle.Render("  no sessions in this window") + "\n"
	}

	var b strings.Builder
	b.WriteString(sectionStyle.Render("Sessions") + "\n")
	for _, sess := range sessions {
		window := fmt.Sprintf("%s–%s", sess.StartTime.Format("15:04"), sess.EndTime.Format("15:04"))
		b.WriteString("  " + windowCol.Render(window) +
			numCol.Render(fmt.Sprintf("%d min", sess.DurationMinutes)) + "  ")
		if sess.GapBeforeMinutes != nil {
			b.WriteString(dimStyle.Render(fmt.Sprintf("(after %d min break) ", *sess.GapBeforeMinutes)))
		}
		b.WriteString(sess.Description + "\n")
	}
	return b.String()
}

// Clusters renders the per-cluster score table.
func Clusters(clusters []*analysis.Cluster) string {
	if len(clusters) == 0 {
		return dimStyle.Render("  no clusters in this window") + "\n"
	}

	var b strings.Builder
	b.WriteString(sectionStyle.Render("Clusters") + "\n")
	b.WriteString("  " + dimStyle.Render(
		topicCol.Render("topic")+windowCol.Render("window")+
			numCol.Render("events")+numCol.Render("struggle")+numCol.Render("aha")) + "\n")
	for _, c := range clusters {
		window := fmt.Sprintf("%s–%s", c.StartTime.Format("15:04"), c.EndTime.Format("15:04"))
		b.WriteString("  " + topicCol.Render(topicStyle.Render(c.Topic)) +
			windowCol.Render(window) +
			numCol.Render(fmt.Sprintf("%d", len(c.Events))) +
			numCol.Render(scoreStyle(c.StruggleScore).Render(fmt.Sprintf("%d", c.StruggleScore))) +
			numCol.Render(fmt.Sprintf("%d", c.AhaIndex)) +
			"  " + confidenceBadge(string(c.Confidence)) + "\n")
	}
	return b.String()
}

// Ideas renders the ranked content idea list.
func Ideas(ideas []analysis.ContentIdea) string {
	if len(ideas) == 0 {
		return dimStyle.Render("  not enough signal for content ideas") + "\n"
	}

	var b strings.Builder
	b.WriteString(sectionStyle.Render("Content Ideas") + "\n")
	for i, idea := range ideas {
		fmt.Fprintf(&b, "  %d. %s  %s\n", i+1, topicStyle.Render(idea.Title),
			confidenceBadge(string(idea.Confidence)))
		b.WriteString("     " + dimStyle.Render("hook:") + " " + idea.Hook + "\n")
		b.WriteString("     " + dimStyle.Render("angle:") + " " + idea.Angle +
			dimStyle.Render(" · "+string(idea.SuggestedFormat)) + "\n")
	}
	return b.String()
}

// CollectorResults renders one status line per collector run.
func CollectorResults(results []collect.RunResult) string {
	var b strings.Builder
	for _, r := range results {
		mark := okMark
		if r.Err != nil {
			mark = failMark
		}
		b.WriteString("  " + mark + " " + topicCol.Render(r.Collector))
		if r.Err != nil {
			b.WriteString(badStyle.Render(r.Err.Error()) + "\n")
			continue
		}
		b.WriteString(numCol.Render(fmt.Sprintf("%d ev", r.Events)) +
			"  " + dimStyle.Render(r.Duration.Round(time.Millisecond).String()) + "\n")
	}
	return b.String()
}

// Table renders labeled rows, used by the stats command.
func Table(title string, rows [][2]string) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render(title) + "\n")
	for _, row := range rows {
		b.WriteString("  " + labelCol.Render(row[0]) + row[1] + "\n")
	}
	return b.String()
}

// meter draws a ten-segment bar for a 0-100 score.
func meter(score int) string {
	filled := score / 10
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return scoreStyle(score).Render(strings.Repeat("▰", filled)) +
		dimStyle.Render(strings.Repeat("▱", 10-filled))
}
