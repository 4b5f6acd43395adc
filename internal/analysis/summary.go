package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/kevinreber/siphon/internal/event"
)

// ahaMomentBar is the aha index a cluster needs to surface in the summary.
const ahaMomentBar = 30

// BuildSummary rolls up global statistics across one run's outputs.
//
// OverallStruggle is deliberately simpler than the per-cluster score: it is
// the failure rate over all shell events in the run, not an average of
// cluster scores, so it stays comparable across runs with different
// clusterings.
func BuildSummary(events []event.Event, clusters []*Cluster, sessions []*Session) Summary {
	s := Summary{
		TotalEvents:  len(events),
		ClusterCount: len(clusters),
		SessionCount: len(sessions),
		TopTopics:    make([]TopicStat, 0),
		AhaMoments:   make([]AhaMoment, 0),
	}

	totalShell := 0
	failedShell := 0
	for _, e := range events {
		p, ok := e.Shell()
		if !ok {
			continue
		}
		totalShell++
		if p.ExitCode != 0 {
			failedShell++
		}
	}
	if totalShell > 0 {
		s.OverallStruggle = int(math.Round(float64(failedShell) / float64(totalShell) * 100))
	}

	s.TopTopics = topTopics(clusters, 5)

	for _, c := range clusters {
		if c.AhaIndex >= ahaMomentBar {
			s.AhaMoments = append(s.AhaMoments, AhaMoment{
				Description: fmt.Sprintf("Breakthrough after repeated failures in %s", c.Topic),
				Timestamp:   c.EndTime,
			})
		}
	}

	if len(sessions) > 0 {
		total := 0
		for _, sess := range sessions {
			total += sess.DurationMinutes
		}
		s.AverageSessionMinutes = int(math.Round(float64(total) / float64(len(sessions))))
	}

	return s
}

// topTopics aggregates event counts and cluster minutes per topic, ordered
// by count descending with first-seen order breaking ties.
func topTopics(clusters []*Cluster, limit int) []TopicStat {
	counts := make(map[string]*TopicStat)
	order := make([]string, 0)

	for _, c := range clusters {
		stat, seen := counts[c.Topic]
		if !seen {
			stat = &TopicStat{Topic: c.Topic}
			counts[c.Topic] = stat
			order = append(order, c.Topic)
		}
		stat.EventCount += len(c.Events)
		stat.Minutes += c.DurationMinutes
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]].EventCount > counts[order[j]].EventCount
	})
	if len(order) > limit {
		order = order[:limit]
	}

	stats := make([]TopicStat, 0, len(order))
	for _, topic := range order {
		stats = append(stats, *counts[topic])
	}
	return stats
}
