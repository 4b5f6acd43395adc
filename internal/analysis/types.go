package analysis

import (
	"time"

	"github.com/kevinreber/siphon/internal/event"
)

// Confidence rates the evidentiary weight behind a cluster or idea.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// rank orders confidences for sorting: high sorts before medium before low.
func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 0
	case ConfidenceMedium:
		return 1
	default:
		return 2
	}
}

// SignalType classifies a learning signal detected inside a cluster.
type SignalType string

const (
	SignalDebugging       SignalType = "debugging"
	SignalExploration     SignalType = "exploration"
	SignalResearch        SignalType = "research"
	SignalTroubleshooting SignalType = "troubleshooting"
	SignalBreakthrough    SignalType = "breakthrough"
)

// LearningSignal is one behavioral pattern observed in a cluster's events.
type LearningSignal struct {
	Type        SignalType `json:"type"`
	Description string     `json:"description"`
	Intensity   int        `json:"intensity"`
}

// Cluster is a maximal run of temporally close, topic-coherent events.
// Clusters are derived fresh on every analysis run and never persisted.
type Cluster struct {
	ID              string           `json:"id"`
	Topic           string           `json:"topic"`
	Events          []event.Event    `json:"events"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	DurationMinutes int              `json:"duration_minutes"`
	Confidence      Confidence       `json:"confidence"`
	StruggleScore   int              `json:"struggle_score"`
	AhaIndex        int              `json:"aha_index"`
	Signals         []LearningSignal `json:"signals"`
}

// Session is a coarser grouping of activity separated by long gaps.
// GapBeforeMinutes is nil for the first session of a run.
type Session struct {
	ID               string        `json:"id"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	DurationMinutes  int           `json:"duration_minutes"`
	Events           []event.Event `json:"events"`
	Clusters         []*Cluster    `json:"clusters"`
	GapBeforeMinutes *int          `json:"gap_before_minutes,omitempty"`
	Description      string        `json:"description"`
}

// IdeaFormat is the suggested medium for a content idea.
type IdeaFormat string

const (
	FormatVideo      IdeaFormat = "video"
	FormatBlog       IdeaFormat = "blog"
	FormatThread     IdeaFormat = "thread"
	FormatNewsletter IdeaFormat = "newsletter"
)

// ContentIdea is a ranked suggestion derived from a scored cluster.
type ContentIdea struct {
	Title           string     `json:"title"`
	Hook            string     `json:"hook"`
	Angle           string     `json:"angle"`
	Confidence      Confidence `json:"confidence"`
	Evidence        []string   `json:"evidence"`
	SuggestedFormat IdeaFormat `json:"suggested_format"`
}

// TopicStat aggregates one topic's footprint across all clusters.
type TopicStat struct {
	Topic      string `json:"topic"`
	EventCount int    `json:"event_count"`
	Minutes    int    `json:"minutes"`
}

// AhaMoment marks a cluster whose aha index crossed the reporting bar.
type AhaMoment struct {
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Summary rolls up global statistics for one analysis run.
type Summary struct {
	TotalEvents           int         `json:"total_events"`
	ClusterCount          int         `json:"cluster_count"`
	SessionCount          int         `json:"session_count"`
	AverageSessionMinutes int         `json:"average_session_minutes"`
	OverallStruggle       int         `json:"overall_struggle"`
	TopTopics             []TopicStat `json:"top_topics"`
	AhaMoments            []AhaMoment `json:"aha_moments"`
}

// AnalysisResult is the full output of one pipeline run. It is owned by the
// caller; nothing here is retained between runs.
type AnalysisResult struct {
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Events    []event.Event `json:"events"`
	Clusters  []*Cluster    `json:"clusters"`
	Sessions  []*Session    `json:"sessions"`
	Ideas     []ContentIdea `json:"ideas"`
	Summary   Summary       `json:"summary"`
}
