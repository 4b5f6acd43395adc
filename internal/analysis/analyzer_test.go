package analysis

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinreber/siphon/internal/event"
)

// workday builds a realistic mixed-source day: a morning debugging block,
// a long gap, then an afternoon research block that ends in a breakthrough.
func workday(t *testing.T) []event.Event {
	t.Helper()
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	events := []event.Event{
		shellAt(base, "docker build -t api .", 1, 42000),
		shellAt(base.Add(3*time.Minute), "docker build -t api .", 1, 39000),
		shellAt(base.Add(6*time.Minute), "docker build -t api .", 1, 40000),
		shellAt(base.Add(9*time.Minute), "docker logs api", 0, 800),
		shellAt(base.Add(12*time.Minute), "docker build -t api .", 1, 41000),
		editorAt(base.Add(14*time.Minute), "Dockerfile"),
		shellAt(base.Add(16*time.Minute), "docker build -t api .", 0, 38000),
		shellAt(base.Add(18*time.Minute), "docker run api", 0, 1200),

		// 3h gap: new session, new cluster.
		browserAt(base.Add(198*time.Minute), "pkg.go.dev", "context package"),
		browserAt(base.Add(201*time.Minute), "stackoverflow.com", "goroutine leak"),
		shellAt(base.Add(205*time.Minute), "go test ./...", 1, 9000),
		shellAt(base.Add(209*time.Minute), "go test ./...", 1, 8700),
		shellAt(base.Add(213*time.Minute), "go test ./...", 0, 9100),
	}
	return events
}

func TestAnalyzeEmptyInput(t *testing.T) {
	res, err := NewAnalyzer().Analyze(nil)

	require.NoError(t, err)
	assert.Empty(t, res.Events)
	assert.Empty(t, res.Clusters)
	assert.Empty(t, res.Sessions)
	assert.Empty(t, res.Ideas)
	assert.Equal(t, 0, res.Summary.TotalEvents)
	assert.Equal(t, 0, res.Summary.OverallStruggle)
	assert.True(t, res.StartTime.IsZero())
	assert.True(t, res.EndTime.IsZero())
}

func TestAnalyzeWorkday(t *testing.T) {
	events := workday(t)

	res, err := NewAnalyzer().Analyze(events)
	require.NoError(t, err)

	// The afternoon research pages each carry their own topic, so topic
	// changes split them off before the test-loop cluster.
	require.Len(t, res.Clusters, 4)
	morning := res.Clusters[0]

	assert.Equal(t, "docker", morning.Topic)
	assert.Len(t, morning.Events, 8)
	assert.NotZero(t, morning.StruggleScore)
	assert.NotEmpty(t, morning.Signals)

	assert.Equal(t, "go", res.Clusters[1].Topic)
	assert.Equal(t, "debugging", res.Clusters[2].Topic)

	testLoop := res.Clusters[3]
	assert.Equal(t, "testing", testLoop.Topic)
	assert.Len(t, testLoop.Events, 3)
	assert.Equal(t, 30, testLoop.AhaIndex)

	require.Len(t, res.Sessions, 2)
	assert.Nil(t, res.Sessions[0].GapBeforeMinutes)
	require.NotNil(t, res.Sessions[1].GapBeforeMinutes)
	assert.Equal(t, 180, *res.Sessions[1].GapBeforeMinutes)

	assert.True(t, res.StartTime.Equal(events[0].Timestamp))
	assert.True(t, res.EndTime.Equal(events[len(events)-1].Timestamp))
}

func TestAnalyzeDoesNotMutateInput(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	events := []event.Event{
		shellAt(base.Add(10*time.Minute), "git status", 0, 50),
		shellAt(base, "git log", 0, 60),
	}

	_, err := NewAnalyzer().Analyze(events)
	require.NoError(t, err)

	// Caller's slice keeps its original order.
	assert.Equal(t, base.Add(10*time.Minute), events[0].Timestamp)
	assert.Equal(t, base, events[1].Timestamp)
}

func TestAnalyzeEventPartition(t *testing.T) {
	events := workday(t)

	res, err := NewAnalyzer().Analyze(events)
	require.NoError(t, err)

	// Every event lands in exactly one cluster, and every cluster in
	// exactly one session.
	clustered := make(map[string]int)
	for _, c := range res.Clusters {
		for _, e := range c.Events {
			clustered[e.ID]++
		}
	}
	require.Len(t, clustered, len(events))
	for id, n := range clustered {
		assert.Equal(t, 1, n, "event %s clustered %d times", id, n)
	}

	sessioned := make(map[string]int)
	for _, s := range res.Sessions {
		for _, c := range s.Clusters {
			sessioned[c.ID]++
		}
	}
	require.Len(t, sessioned, len(res.Clusters))
	for id, n := range sessioned {
		assert.Equal(t, 1, n, "cluster %s assigned %d times", id, n)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	events := workday(t)

	first, err := NewAnalyzer().Analyze(events)
	require.NoError(t, err)

	// Shuffle the input; the sort step must restore a single canonical order.
	shuffled := make([]event.Event, len(events))
	copy(shuffled, events)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	second, err := NewAnalyzer().Analyze(shuffled)
	require.NoError(t, err)

	require.Len(t, second.Clusters, len(first.Clusters))
	for i := range first.Clusters {
		a, b := first.Clusters[i], second.Clusters[i]
		assert.Equal(t, a.Topic, b.Topic)
		assert.Equal(t, a.StruggleScore, b.StruggleScore)
		assert.Equal(t, a.AhaIndex, b.AhaIndex)
		assert.Equal(t, a.Confidence, b.Confidence)
		assert.Equal(t, a.Signals, b.Signals)
		assert.Equal(t, len(a.Events), len(b.Events))
	}

	require.Len(t, second.Sessions, len(first.Sessions))
	for i := range first.Sessions {
		assert.Equal(t, first.Sessions[i].Description, second.Sessions[i].Description)
		assert.Equal(t, first.Sessions[i].DurationMinutes, second.Sessions[i].DurationMinutes)
	}

	require.Len(t, second.Ideas, len(first.Ideas))
	for i := range first.Ideas {
		assert.Equal(t, first.Ideas[i].Title, second.Ideas[i].Title)
		assert.Equal(t, first.Ideas[i].Confidence, second.Ideas[i].Confidence)
	}

	assert.Equal(t, first.Summary, second.Summary)
}

func TestAnalyzeRerunOnClusterEventsIsStable(t *testing.T) {
	events := workday(t)

	first, err := NewAnalyzer().Analyze(events)
	require.NoError(t, err)

	// Feeding the clustered events back through the pipeline reproduces the
	// same boundaries and scores: clustering is a fixpoint of its own output.
	flattened := make([]event.Event, 0, len(events))
	for _, c := range first.Clusters {
		flattened = append(flattened, c.Events...)
	}

	second, err := NewAnalyzer().Analyze(flattened)
	require.NoError(t, err)

	require.Len(t, second.Clusters, len(first.Clusters))
	for i := range first.Clusters {
		assert.Equal(t, first.Clusters[i].Topic, second.Clusters[i].Topic)
		assert.Equal(t, first.Clusters[i].StruggleScore, second.Clusters[i].StruggleScore)
		assert.Equal(t, first.Clusters[i].AhaIndex, second.Clusters[i].AhaIndex)
		assert.True(t, first.Clusters[i].StartTime.Equal(second.Clusters[i].StartTime))
		assert.True(t, first.Clusters[i].EndTime.Equal(second.Clusters[i].EndTime))
	}
}
