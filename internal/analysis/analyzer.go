package analysis

import (
	"github.com/kevinreber/siphon/internal/event"
)

// Analyzer runs the full pipeline over a snapshot of events. It holds no
// state between calls and performs no I/O, so independent calls may run
// concurrently; the topic tables it reads are immutable after init.
type Analyzer struct{}

// NewAnalyzer creates an analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze derives clusters, sessions, signals, scores, ideas and a summary
// from the given events. The input is copied and sorted; the caller's slice
// is never mutated. Well-formed input never produces an error: an empty
// event list yields an empty result with zeroed summary fields, and a
// source contributing no events is not an error condition.
//
// Stages run strictly forward: each one fully consumes its predecessor's
// output. Rerunning over identical input reproduces identical output,
// excluding generated entity IDs.
func (a *Analyzer) Analyze(events []event.Event) (*AnalysisResult, error) {
	sorted := make([]event.Event, len(events))
	copy(sorted, events)
	event.SortByTime(sorted)

	clusters := BuildClusters(sorted)
	for _, c := range clusters {
		c.Signals = DetectSignals(c)
		c.StruggleScore = ScoreStruggle(c)
		c.AhaIndex = ScoreAha(c)
	}

	sessions := BuildSessions(sorted, clusters)
	ideas := GenerateIdeas(clusters)
	summary := BuildSummary(sorted, clusters, sessions)

	result := &AnalysisResult{
		Events:   sorted,
		Clusters: clusters,
		Sessions: sessions,
		Ideas:    ideas,
		Summary:  summary,
	}
	if len(sorted) > 0 {
		result.StartTime = sorted[0].Timestamp
		result.EndTime = sorted[len(sorted)-1].Timestamp
	}
	return result, nil
}
