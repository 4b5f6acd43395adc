package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinreber/siphon/internal/event"
)

var clusterBase = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

// shellAt builds a shell event for pipeline tests; shared across the
// package's test files.
func shellAt(ts time.Time, command string, exitCode int, durationMs int64) event.Event {
	return event.New(ts, "command", event.ShellPayload{
		Command:    command,
		ExitCode:   exitCode,
		DurationMs: durationMs,
	}, "")
}

func browserAt(ts time.Time, domain, title string) event.Event {
	return event.New(ts, "visit", event.BrowserPayload{
		URL:    "https://" + domain,
		Domain: domain,
		Title:  title,
	}, "")
}

func editorAt(ts time.Time, filePath string) event.Event {
	return event.New(ts, "save", event.EditorPayload{Action: "save", FilePath: filePath}, "")
}

func TestBuildClustersGeneralEventsInheritTopic(t *testing.T) {
	// A general command between two kubernetes commands neither resets nor
	// splits the topic: all three land in one cluster.
	events := []event.Event{
		shellAt(clusterBase, "kubectl get pods", 0, 100),
		shellAt(clusterBase.Add(5*time.Minute), "ls", 0, 10),
		shellAt(clusterBase.Add(10*time.Minute), "kubectl delete pod x", 0, 200),
	}

	clusters := BuildClusters(events)

	require.Len(t, clusters, 1)
	assert.Equal(t, "kubernetes", clusters[0].Topic)
	assert.Len(t, clusters[0].Events, 3)
}

func TestBuildClustersGapSplits(t *testing.T) {
	events := []event.Event{
		shellAt(clusterBase, "kubectl get pods", 0, 100),
		shellAt(clusterBase.Add(10*time.Minute), "kubectl get svc", 0, 100),
		// 31 minutes after the previous event: over the threshold.
		shellAt(clusterBase.Add(41*time.Minute), "kubectl get deploy", 0, 100),
	}

	clusters := BuildClusters(events)

	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0].Events, 2)
	assert.Len(t, clusters[1].Events, 1)
	assert.Equal(t, "kubernetes", clusters[0].Topic)
	assert.Equal(t, "kubernetes", clusters[1].Topic)
}

func TestBuildClustersTopicChangeSplits(t *testing.T) {
	events := []event.Event{
		shellAt(clusterBase, "kubectl get pods", 0, 100),
		shellAt(clusterBase.Add(2*time.Minute), "kubectl logs api", 0, 100),
		shellAt(clusterBase.Add(4*time.Minute), "docker build .", 0, 100),
		shellAt(clusterBase.Add(6*time.Minute), "docker push api", 0, 100),
	}

	clusters := BuildClusters(events)

	require.Len(t, clusters, 2)
	assert.Equal(t, "kubernetes", clusters[0].Topic)
	assert.Equal(t, "docker", clusters[1].Topic)
}

func TestBuildClustersConfidence(t *testing.T) {
	tests := []struct {
		name          string
		eventCount    int
		spacing       time.Duration
		expected      Confidence
		expectedSpan  int
		expectedTopic string
	}{
		{
			name:          "ten events over an hour is high",
			eventCount:    10,
			spacing:       7 * time.Minute, // span 63 minutes
			expected:      ConfidenceHigh,
			expectedSpan:  63,
			expectedTopic: "kubernetes",
		},
		{
			name:          "ten events over a short span is only medium",
			eventCount:    10,
			spacing:       3 * time.Minute, // span 27 minutes
			expected:      ConfidenceMedium,
			expectedSpan:  27,
			expectedTopic: "kubernetes",
		},
		{
			name:          "five events is medium",
			eventCount:    5,
			spacing:       5 * time.Minute,
			expected:      ConfidenceMedium,
			expectedSpan:  20,
			expectedTopic: "kubernetes",
		},
		{
			name:          "four events is low",
			eventCount:    4,
			spacing:       5 * time.Minute,
			expected:      ConfidenceLow,
			expectedSpan:  15,
			expectedTopic: "kubernetes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := make([]event.Event, 0, tt.eventCount)
			for i := 0; i < tt.eventCount; i++ {
				events = append(events, shellAt(clusterBase.Add(time.Duration(i)*tt.spacing), "kubectl get pods", 0, 100))
			}

			clusters := BuildClusters(events)

			require.Len(t, clusters, 1)
			assert.Equal(t, tt.expected, clusters[0].Confidence)
			assert.Equal(t, tt.expectedSpan, clusters[0].DurationMinutes)
			assert.Equal(t, tt.expectedTopic, clusters[0].Topic)
		})
	}
}

func TestBuildClustersLeaveScoresForLaterStages(t *testing.T) {
	events := []event.Event{
		shellAt(clusterBase, "kubectl get pods", 1, 100),
		shellAt(clusterBase.Add(time.Minute), "kubectl get pods", 1, 100),
	}

	clusters := BuildClusters(events)

	require.Len(t, clusters, 1)
	assert.Zero(t, clusters[0].StruggleScore)
	assert.Zero(t, clusters[0].AhaIndex)
	assert.Empty(t, clusters[0].Signals)
}

func TestBuildClustersEmptyInput(t *testing.T) {
	assert.Empty(t, BuildClusters(nil))
	assert.Empty(t, BuildClusters([]event.Event{}))
}

func TestBuildClustersGapInvariant(t *testing.T) {
	// Irregular spacing with two deliberate long gaps; no two consecutive
	// events inside any one cluster may be more than 30 minutes apart.
	offsets := []int{0, 5, 45, 50, 55, 120, 125}
	events := make([]event.Event, 0, len(offsets))
	for _, off := range offsets {
		events = append(events, shellAt(clusterBase.Add(time.Duration(off)*time.Minute), "kubectl get pods", 0, 100))
	}

	clusters := BuildClusters(events)

	total := 0
	for _, c := range clusters {
		total += len(c.Events)
		for i := 1; i < len(c.Events); i++ {
			gap := c.Events[i].Timestamp.Sub(c.Events[i-1].Timestamp)
			assert.LessOrEqual(t, gap, 30*time.Minute)
		}
	}
	assert.Equal(t, len(events), total)
}
