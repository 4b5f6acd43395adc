package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// Idea trigger thresholds.
const (
	ideaStruggleMin = 50
	ideaAhaMin      = 40
	deepDiveMinutes = 60
	deepDiveEvents  = 15
	skipStruggleBar = 30
)

// GenerateIdeas maps scored clusters to content ideas. Clusters are visited
// in detection order; each can yield up to three ideas, one per trigger,
// evaluated independently. Low-confidence clusters are skipped unless their
// struggle score alone makes them interesting. The final list is stably
// sorted so high-confidence ideas lead but equal ranks keep cluster order.
func GenerateIdeas(clusters []*Cluster) []ContentIdea {
	ideas := make([]ContentIdea, 0)

	for _, c := range clusters {
		if c.Confidence == ConfidenceLow && c.StruggleScore < skipStruggleBar {
			continue
		}

		if c.StruggleScore >= ideaStruggleMin {
			ideas = append(ideas, debuggingJourneyIdea(c))
		}
		if c.AhaIndex >= ideaAhaMin {
			ideas = append(ideas, breakthroughIdea(c))
		}
		if c.DurationMinutes >= deepDiveMinutes && len(c.Events) >= deepDiveEvents {
			ideas = append(ideas, deepDiveIdea(c))
		}
	}

	sort.SliceStable(ideas, func(i, j int) bool {
		return ideas[i].Confidence.rank() < ideas[j].Confidence.rank()
	})
	return ideas
}

func debuggingJourneyIdea(c *Cluster) ContentIdea {
	descriptions := make([]string, 0, len(c.Signals))
	for _, s := range c.Signals {
		descriptions = append(descriptions, s.Description)
	}

	return ContentIdea{
		Title:      fmt.Sprintf("Debugging %s: a real troubleshooting session", c.Topic),
		Hook:       "What do you do when nothing works? Here's the actual process, failures included.",
		Angle:      "Authentic problem-solving under pressure",
		Confidence: c.Confidence,
		Evidence: []string{
			fmt.Sprintf("%d events over %d minutes", len(c.Events), c.DurationMinutes),
			fmt.Sprintf("struggle score %d/100", c.StruggleScore),
			strings.Join(descriptions, "; "),
		},
		SuggestedFormat: FormatVideo,
	}
}

func breakthroughIdea(c *Cluster) ContentIdea {
	return ContentIdea{
		Title:      fmt.Sprintf("The moment %s finally clicked", c.Topic),
		Hook:       "After a string of failures, one success changed the whole session.",
		Angle:      "Breakthrough story with a concrete payoff",
		Confidence: c.Confidence,
		Evidence: []string{
			fmt.Sprintf("aha index %d/100", c.AhaIndex),
			fmt.Sprintf("topic: %s", c.Topic),
		},
		SuggestedFormat: FormatBlog,
	}
}

func deepDiveIdea(c *Cluster) ContentIdea {
	return ContentIdea{
		Title:      fmt.Sprintf("Deep dive: %d focused minutes on %s", c.DurationMinutes, c.Topic),
		Hook:       "A long, uninterrupted session from first command to working result.",
		Angle:      "Long-form walkthrough of sustained work",
		Confidence: c.Confidence,
		Evidence: []string{
			fmt.Sprintf("%d minutes of sustained work", c.DurationMinutes),
			fmt.Sprintf("%d events", len(c.Events)),
		},
		SuggestedFormat: FormatVideo,
	}
}
