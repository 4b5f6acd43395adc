package analysis

import "fmt"

// Signal thresholds. Debugging needs more than three failures; exploration
// needs at least one command shape repeated three times.
const (
	debuggingFailureFloor = 3
	explorationRepeatMin  = 3
)

// DetectSignals inspects a cluster's shell events for debugging and
// exploration patterns. Other sources carry no exit codes or retry shapes
// and are ignored here.
//
// Exploration groups commands by their first two tokens ("git push" and
// "git pull" are different shapes). The scorer's retry metric groups by the
// first token only; the two computations are intentionally independent and
// must not be unified.
func DetectSignals(c *Cluster) []LearningSignal {
	signals := make([]LearningSignal, 0)
	shell := shellPayloads(c.Events)

	failed := 0
	for _, p := range shell {
		if p.ExitCode != 0 {
			failed++
		}
	}
	if failed > debuggingFailureFloor {
		signals = append(signals, LearningSignal{
			Type:        SignalDebugging,
			Description: fmt.Sprintf("%d failed commands while working on %s", failed, c.Topic),
			Intensity:   min(failed*10, 100),
		})
	}

	groups := make(map[string]int)
	for _, p := range shell {
		groups[firstTokens(p.Command, 2)]++
	}
	repeatedGroups := 0
	for _, n := range groups {
		if n >= explorationRepeatMin {
			repeatedGroups++
		}
	}
	if repeatedGroups > 0 {
		signals = append(signals, LearningSignal{
			Type:        SignalExploration,
			Description: fmt.Sprintf("%d command patterns repeated while exploring %s", repeatedGroups, c.Topic),
			Intensity:   min(repeatedGroups*20, 100),
		})
	}

	return signals
}
