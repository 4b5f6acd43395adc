package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinreber/siphon/internal/event"
)

// struggleFixture builds twelve docker-topic shell events spread over 50
// minutes: 4 failures, mean duration 5000ms, and no leading token repeated
// more than twice. Expected struggle: 13 (failures) + 10 (retries) + 5
// (duration) = 28.
func struggleFixture(t *testing.T) *Cluster {
	t.Helper()

	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	offsets := []int{0, 5, 9, 14, 18, 23, 27, 32, 36, 41, 45, 50}
	commands := []struct {
		cmd      string
		exitCode int
	}{
		{"docker build -t api .", 1},
		{"docker run --rm api", 1},
		{"podman ps -a", 1},
		{"podman logs api", 1},
		{"cat dockerfile", 0},
		{"cat docker-compose.yml", 0},
		{"vim dockerfile", 0},
		{"vim docker-compose.yml", 0},
		{"grep -r docker scripts/", 0},
		{"grep expose dockerfile", 0},
		{"less dockerfile", 0},
		{"less docker-compose.override.yml", 0},
	}

	events := make([]event.Event, 0, len(commands))
	for i, c := range commands {
		ts := base.Add(time.Duration(offsets[i]) * time.Minute)
		events = append(events, shellAt(ts, c.cmd, c.exitCode, 5000))
	}

	clusters := BuildClusters(events)
	require.Len(t, clusters, 1)
	return clusters[0]
}

func TestScoreStruggleComponents(t *testing.T) {
	c := struggleFixture(t)

	// round(4/12*40)=13, min(2*5,30)=10, min(round(5000/1000),30)=5.
	assert.Equal(t, 28, ScoreStruggle(c))
	assert.Equal(t, "docker", c.Topic)
	// Twelve events but only 50 minutes: not high.
	assert.Equal(t, ConfidenceMedium, c.Confidence)
}

func TestScoreStruggleNoShellEvents(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	c := &Cluster{Events: []event.Event{
		browserAt(base, "stackoverflow.com", "help"),
		editorAt(base.Add(time.Minute), "main.go"),
	}}

	assert.Zero(t, ScoreStruggle(c))
	assert.Zero(t, ScoreAha(c))
}

func TestScoreStruggleCaps(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	// Everything failing, one command repeated constantly, long runtimes:
	// each component hits its cap and the sum clips to 100.
	events := make([]event.Event, 0, 20)
	for i := 0; i < 20; i++ {
		events = append(events, shellAt(base.Add(time.Duration(i)*time.Minute), "npm run build", 1, 90_000))
	}
	c := &Cluster{Events: events}

	score := ScoreStruggle(c)
	assert.Equal(t, 100, score)
}

func TestScoreStruggleRetryUsesFirstTokenOnly(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	// Four git commands with two different subcommands: the retry metric's
	// one-token grouping sees "git" four times, while the signal detector's
	// two-token grouping sees two groups of two and stays silent. The two
	// computations are intentionally different.
	events := []event.Event{
		shellAt(base, "git push origin main", 0, 0),
		shellAt(base.Add(1*time.Minute), "git push upstream main", 0, 0),
		shellAt(base.Add(2*time.Minute), "git pull origin main", 0, 0),
		shellAt(base.Add(3*time.Minute), "git pull --rebase", 0, 0),
	}
	c := &Cluster{Topic: "git", Events: events}

	// failure 0 + retry min(4*5,30)=20 + duration 0.
	assert.Equal(t, 20, ScoreStruggle(c))
	assert.Empty(t, DetectSignals(c))
}

func TestScoreAha(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		exitCodes []int
		expected  int
	}{
		{
			name:      "two failures then success",
			exitCodes: []int{1, 1, 0},
			expected:  30,
		},
		{
			name:      "fewer than three shell events scores zero",
			exitCodes: []int{1, 0},
			expected:  0,
		},
		{
			name:      "single failure before success is not a breakthrough",
			exitCodes: []int{1, 0, 1, 0},
			expected:  0,
		},
		{
			name:      "best streak wins",
			exitCodes: []int{1, 1, 0, 1, 1, 1, 1, 0},
			expected:  60,
		},
		{
			name:      "success resets the streak",
			exitCodes: []int{1, 0, 1, 1, 1, 0},
			expected:  45,
		},
		{
			name:      "trailing failures never resolve",
			exitCodes: []int{1, 1, 1, 1},
			expected:  0,
		},
		{
			name:      "long streak caps at 100",
			exitCodes: []int{1, 1, 1, 1, 1, 1, 1, 1, 0},
			expected:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := make([]event.Event, 0, len(tt.exitCodes))
			for i, code := range tt.exitCodes {
				events = append(events, shellAt(base.Add(time.Duration(i)*time.Minute), "npm test", code, 100))
			}
			c := &Cluster{Events: events}

			assert.Equal(t, tt.expected, ScoreAha(c))
		})
	}
}

func TestScoreBounds(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	events := make([]event.Event, 0, 40)
	for i := 0; i < 40; i++ {
		code := 0
		if i%2 == 0 {
			code = 127
		}
		events = append(events, shellAt(base.Add(time.Duration(i)*time.Minute), "make deploy", code, 120_000))
	}
	c := &Cluster{Events: events}

	struggle := ScoreStruggle(c)
	aha := ScoreAha(c)
	assert.GreaterOrEqual(t, struggle, 0)
	assert.LessOrEqual(t, struggle, 100)
	assert.GreaterOrEqual(t, aha, 0)
	assert.LessOrEqual(t, aha, 100)
}

func TestFirstTokens(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		n        int
		expected string
	}{
		{
			name:     "two tokens from a long command",
			command:  "git push origin main",
			n:        2,
			expected: "git push",
		},
		{
			name:     "one token",
			command:  "Docker build .",
			n:        1,
			expected: "docker",
		},
		{
			name:     "shorter command than requested",
			command:  "ls",
			n:        2,
			expected: "ls",
		},
		{
			name:     "collapses repeated whitespace",
			command:  "  git   status  ",
			n:        2,
			expected: "git status",
		},
		{
			name:     "empty command",
			command:  "",
			n:        2,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, firstTokens(tt.command, tt.n))
		})
	}
}
