package analysis

import (
	"math"
	"strings"

	"github.com/kevinreber/siphon/internal/event"
)

// Struggle component caps. Failure share can contribute at most 40 points,
// retries and slow commands 30 each; the sum is clipped to 100.
const (
	failureCap  = 40
	retryCap    = 30
	durationCap = 30
)

// ScoreStruggle rates how hard a cluster's shell work was on a 0-100 scale.
// Clusters without shell events score 0; there is nothing to measure.
func ScoreStruggle(c *Cluster) int {
	shell := shellPayloads(c.Events)
	if len(shell) == 0 {
		return 0
	}

	failed := 0
	for _, p := range shell {
		if p.ExitCode != 0 {
			failed++
		}
	}
	failureScore := clampInt(int(math.Round(float64(failed)/float64(len(shell))*failureCap)), 0, failureCap)

	// Retry pressure groups by the leading token only ("git" counts pushes
	// and pulls together). The signal detector's two-token grouping is a
	// separate computation; keep them apart.
	counts := make(map[string]int)
	maxRepeat := 0
	for _, p := range shell {
		key := firstTokens(p.Command, 1)
		counts[key]++
		if counts[key] > maxRepeat {
			maxRepeat = counts[key]
		}
	}
	retryScore := min(maxRepeat*5, retryCap)

	var totalMs int64
	for _, p := range shell {
		totalMs += p.DurationMs
	}
	meanMs := float64(totalMs) / float64(len(shell))
	durationScore := min(int(math.Round(meanMs/1000)), durationCap)

	return min(failureScore+retryScore+durationScore, 100)
}

// ScoreAha rates breakthrough-after-failure intensity: a success landing
// after a streak of at least two failures scores streak×15, and the best
// such moment wins. One forward pass, no backtracking; every success
// resets the streak whether or not it scored.
func ScoreAha(c *Cluster) int {
	shell := shellPayloads(c.Events)
	if len(shell) < 3 {
		return 0
	}

	best := 0
	streak := 0
	for _, p := range shell {
		if p.ExitCode != 0 {
			streak++
			continue
		}
		if streak >= 2 {
			if candidate := min(streak*15, 100); candidate > best {
				best = candidate
			}
		}
		streak = 0
	}
	return best
}

// shellPayloads pulls the shell payloads out of a mixed event list,
// preserving order.
func shellPayloads(events []event.Event) []event.ShellPayload {
	shell := make([]event.ShellPayload, 0, len(events))
	for _, e := range events {
		if p, ok := e.Shell(); ok {
			shell = append(shell, p)
		}
	}
	return shell
}

// firstTokens normalizes a command to its first n lowercase tokens.
func firstTokens(command string, n int) string {
	fields := strings.Fields(strings.ToLower(command))
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
