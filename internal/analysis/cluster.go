package analysis

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kevinreber/siphon/internal/event"
)

// clusterGap is the largest silence allowed between consecutive events of
// one cluster.
const clusterGap = 30 * time.Minute

// clusterAccumulator is the single open cluster while scanning the stream.
// Its topic starts general and is claimed by the first topical event.
type clusterAccumulator struct {
	events []event.Event
	topic  string
}

// BuildClusters groups time-sorted events into topic-coherent clusters.
// A new cluster starts when the accumulator is empty, when the gap since
// the last accumulated event exceeds clusterGap, or when a topical event
// disagrees with the current topic. General events never split a cluster;
// they inherit whatever topic is current.
func BuildClusters(events []event.Event) []*Cluster {
	clusters := make([]*Cluster, 0)
	var acc *clusterAccumulator

	for _, e := range events {
		topic := DetectTopic(e)

		gap := time.Duration(0)
		if acc != nil && len(acc.events) > 0 {
			gap = e.Timestamp.Sub(acc.events[len(acc.events)-1].Timestamp)
		}

		startNew := acc == nil ||
			gap > clusterGap ||
			(topic != acc.topic && topic != TopicGeneral)

		if startNew {
			if acc != nil && len(acc.events) > 0 {
				clusters = append(clusters, finalizeCluster(acc))
			}
			acc = &clusterAccumulator{topic: TopicGeneral}
		}

		acc.events = append(acc.events, e)
		if topic != TopicGeneral {
			acc.topic = topic
		}
	}

	if acc != nil && len(acc.events) > 0 {
		clusters = append(clusters, finalizeCluster(acc))
	}
	return clusters
}

// finalizeCluster stamps time bounds and confidence. Struggle, aha and
// signals stay zeroed here; the scorer and signal detector fill them in.
func finalizeCluster(acc *clusterAccumulator) *Cluster {
	first := acc.events[0]
	last := acc.events[len(acc.events)-1]
	duration := roundMinutes(last.Timestamp.Sub(first.Timestamp))

	confidence := ConfidenceLow
	switch {
	case len(acc.events) >= 10 && duration >= 60:
		confidence = ConfidenceHigh
	case len(acc.events) >= 5:
		confidence = ConfidenceMedium
	}

	return &Cluster{
		ID:              uuid.New().String(),
		Topic:           acc.topic,
		Events:          acc.events,
		StartTime:       first.Timestamp,
		EndTime:         last.Timestamp,
		DurationMinutes: duration,
		Confidence:      confidence,
		Signals:         []LearningSignal{},
	}
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}
