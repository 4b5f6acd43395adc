package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinreber/siphon/internal/event"
)

func TestBuildSessionsGapRecordedOnNewSession(t *testing.T) {
	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	events := []event.Event{
		shellAt(base, "kubectl get pods", 0, 100),
		shellAt(base.Add(30*time.Minute), "kubectl get svc", 0, 100),
		// 151 minutes after the previous event: over the 120 minute limit.
		shellAt(base.Add(181*time.Minute), "kubectl get deploy", 0, 100),
	}

	sessions := BuildSessions(events, nil)

	require.Len(t, sessions, 2)
	assert.Nil(t, sessions[0].GapBeforeMinutes)
	require.NotNil(t, sessions[1].GapBeforeMinutes)
	assert.Equal(t, 151, *sessions[1].GapBeforeMinutes)
	assert.Equal(t, 30, sessions[0].DurationMinutes)
	assert.Len(t, sessions[0].Events, 2)
	assert.Len(t, sessions[1].Events, 1)
}

func TestBuildSessionsSurviveTopicChanges(t *testing.T) {
	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	events := []event.Event{
		shellAt(base, "kubectl get pods", 0, 100),
		shellAt(base.Add(60*time.Minute), "docker build .", 0, 100),
		shellAt(base.Add(119*time.Minute), "cargo test", 0, 100),
	}

	sessions := BuildSessions(events, nil)

	require.Len(t, sessions, 1)
	assert.Len(t, sessions[0].Events, 3)
}

func TestBuildSessionsRequireFullClusterContainment(t *testing.T) {
	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	events := []event.Event{
		shellAt(base, "kubectl get pods", 0, 100),
		shellAt(base.Add(20*time.Minute), "kubectl get svc", 0, 100),
		shellAt(base.Add(200*time.Minute), "docker build .", 0, 100),
	}

	contained := &Cluster{
		StartTime: base,
		EndTime:   base.Add(20 * time.Minute),
	}
	straddling := &Cluster{
		StartTime: base.Add(10 * time.Minute),
		EndTime:   base.Add(200 * time.Minute),
	}

	sessions := BuildSessions(events, []*Cluster{contained, straddling})

	require.Len(t, sessions, 2)
	require.Len(t, sessions[0].Clusters, 1)
	assert.Same(t, contained, sessions[0].Clusters[0])
	// The straddling cluster overlaps both sessions but is contained by
	// neither, so it is attached to neither.
	assert.Empty(t, sessions[1].Clusters)
}

func TestDescribeSession(t *testing.T) {
	tests := []struct {
		name     string
		clusters []*Cluster
		expected string
	}{
		{
			name:     "no clusters falls back",
			clusters: nil,
			expected: "General development work",
		},
		{
			name: "only general clusters falls back",
			clusters: []*Cluster{
				{Topic: TopicGeneral, Events: make([]event.Event, 4)},
			},
			expected: "General development work",
		},
		{
			name: "top three topics by event count",
			clusters: []*Cluster{
				{Topic: "docker", Events: make([]event.Event, 3)},
				{Topic: "kubernetes", Events: make([]event.Event, 9)},
				{Topic: "git", Events: make([]event.Event, 5)},
				{Topic: "rust", Events: make([]event.Event, 1)},
			},
			expected: "Working on kubernetes, git, docker",
		},
		{
			name: "ties keep first-seen order",
			clusters: []*Cluster{
				{Topic: "docker", Events: make([]event.Event, 4)},
				{Topic: "kubernetes", Events: make([]event.Event, 4)},
			},
			expected: "Working on docker, kubernetes",
		},
		{
			name: "same topic across clusters is aggregated",
			clusters: []*Cluster{
				{Topic: "docker", Events: make([]event.Event, 2)},
				{Topic: "kubernetes", Events: make([]event.Event, 3)},
				{Topic: "docker", Events: make([]event.Event, 2)},
			},
			expected: "Working on docker, kubernetes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, describeSession(tt.clusters))
		})
	}
}

func TestBuildSessionsEmptyInput(t *testing.T) {
	assert.Empty(t, BuildSessions(nil, nil))
}
