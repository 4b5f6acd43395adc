package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kevinreber/siphon/internal/event"
)

// sessionGap is the silence that ends a work session. It is deliberately
// coarser than clusterGap: a session survives topic changes and short
// breaks, and only a long walk-away closes it.
const sessionGap = 120 * time.Minute

// fallbackDescription is used when a session contains no topical clusters.
const fallbackDescription = "General development work"

// BuildSessions partitions time-sorted events into sessions and attaches
// every cluster whose full [start,end] interval lies inside the session
// window. Overlap is not enough; a cluster straddling a session boundary
// belongs to neither side.
func BuildSessions(events []event.Event, clusters []*Cluster) []*Session {
	sessions := make([]*Session, 0)
	if len(events) == 0 {
		return sessions
	}

	current := make([]event.Event, 0, len(events))
	var gapBefore *int

	for _, e := range events {
		if len(current) > 0 {
			gap := e.Timestamp.Sub(current[len(current)-1].Timestamp)
			if gap > sessionGap {
				sessions = append(sessions, finalizeSession(current, clusters, gapBefore))
				current = make([]event.Event, 0, len(events))
				// The gap is recorded on the session it precedes.
				minutes := roundMinutes(gap)
				gapBefore = &minutes
			}
		}
		current = append(current, e)
	}
	sessions = append(sessions, finalizeSession(current, clusters, gapBefore))
	return sessions
}

func finalizeSession(events []event.Event, clusters []*Cluster, gapBefore *int) *Session {
	first := events[0]
	last := events[len(events)-1]

	contained := make([]*Cluster, 0)
	for _, c := range clusters {
		if !c.StartTime.Before(first.Timestamp) && !c.EndTime.After(last.Timestamp) {
			contained = append(contained, c)
		}
	}

	return &Session{
		ID:               uuid.New().String(),
		StartTime:        first.Timestamp,
		EndTime:          last.Timestamp,
		DurationMinutes:  roundMinutes(last.Timestamp.Sub(first.Timestamp)),
		Events:           events,
		Clusters:         contained,
		GapBeforeMinutes: gapBefore,
		Description:      describeSession(contained),
	}
}

// describeSession names the session after its three busiest topics.
// Ties keep first-appearance order so reruns produce identical text.
func describeSession(clusters []*Cluster) string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, c := range clusters {
		if c.Topic == TopicGeneral {
			continue
		}
		if _, seen := counts[c.Topic]; !seen {
			order = append(order, c.Topic)
		}
		counts[c.Topic] += len(c.Events)
	}
	if len(order) == 0 {
		return fallbackDescription
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > 3 {
		order = order[:3]
	}
	return fmt.Sprintf("Working on %s", strings.Join(order, ", "))
}
