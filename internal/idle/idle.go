// Package idle tracks whether the user is actively working. The daemon
// feeds it every ingested event and polls it on a timer; transitions come
// back to the caller, which logs them and closes the work session once the
// user has walked away.
package idle

import (
	"fmt"
	"sync"
	"time"
)

// State is the user's current activity level.
type State string

const (
	StateActive State = "active"
	StateIdle   State = "idle"
	StateAway   State = "away"
)

// Config tunes the inactivity thresholds.
type Config struct {
	// IdleAfter is the inactivity span before the user counts as idle.
	IdleAfter time.Duration
	// AwayAfter is the inactivity span before the work session ends.
	AwayAfter time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		IdleAfter: 5 * time.Minute,
		AwayAfter: 30 * time.Minute,
	}
}

// Transition describes one state change.
type Transition struct {
	Previous         State  `json:"previous_state"`
	New              State  `json:"new_state"`
	IdleDurationSecs int64  `json:"idle_duration_seconds"`
	LastActivityType string `json:"last_activity_type,omitempty"`
}

// Period is one stretch of idle time inside a session.
type Period struct {
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Seconds   int64     `json:"duration_seconds"`
}

// Session summarizes the current work session.
type Session struct {
	ID              string     `json:"session_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationMinutes int64      `json:"duration_minutes"`
	EventCount      int64      `json:"event_count"`
	IdlePeriods     []Period   `json:"idle_periods"`
}

// Detector is the activity state machine. Safe for concurrent use.
type Detector struct {
	mu sync.Mutex

	config           Config
	state            State
	lastActivity     time.Time
	lastActivityType string

	sessionStart *time.Time
	eventCount   int64
	idlePeriods  []Period
	idleStart    *time.Time

	now func() time.Time
}

// New creates a detector in the active state.
func New(config Config) *Detector {
	d := &Detector{
		config: config,
		state:  StateActive,
		now:    time.Now,
	}
	d.lastActivity = d.now()
	return d
}

// State returns the current activity state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// RecordActivity notes one user action. It returns a transition when the
// action wakes the user out of idle or away.
func (d *Detector) RecordActivity(activityType string) *Transition {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	previous := d.state

	if d.idleStart != nil {
		d.idlePeriods = append(d.idlePeriods, Period{
			StartedAt: *d.idleStart,
			EndedAt:   now,
			Seconds:   int64(now.Sub(*d.idleStart).Seconds()),
		})
		d.idleStart = nil
	}
	if d.sessionStart == nil {
		start := now
		d.sessionStart = &start
	}

	idleFor := now.Sub(d.lastActivity)
	d.lastActivity = now
	d.lastActivityType = activityType
	d.state = StateActive
	d.eventCount++

	if previous == StateActive {
		return nil
	}
	return &Transition{
		Previous:         previous,
		New:              StateActive,
		IdleDurationSecs: int64(idleFor.Seconds()),
		LastActivityType: activityType,
	}
}

// CheckIdle advances the state machine from elapsed wall time. Call it on a
// timer; it returns a transition when the state changed.
func (d *Detector) CheckIdle() *Transition {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	elapsed := now.Sub(d.lastActivity)
	previous := d.state

	var next State
	switch {
	case elapsed >= d.config.AwayAfter:
		next = StateAway
	case elapsed >= d.config.IdleAfter:
		next = StateIdle
	default:
		next = StateActive
	}
	if next == previous {
		return nil
	}

	d.state = next
	if next == StateIdle {
		start := now
		d.idleStart = &start
	}
	if next == StateAway && d.idleStart != nil {
		d.idlePeriods = append(d.idlePeriods, Period{
			StartedAt: *d.idleStart,
			EndedAt:   now,
			Seconds:   int64(now.Sub(*d.idleStart).Seconds()),
		})
		d.idleStart = nil
	}

	return &Transition{
		Previous:         previous,
		New:              next,
		IdleDurationSecs: int64(elapsed.Seconds()),
		LastActivityType: d.lastActivityType,
	}
}

// Session returns the current session snapshot, or nil before any activity.
func (d *Detector) Session() *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionLocked()
}

func (d *Detector) sessionLocked() *Session {
	if d.sessionStart == nil {
		return nil
	}

	now := d.now()
	var ended *time.Time
	if d.state == StateAway {
		last := d.lastActivity
		ended = &last
	}

	periods := make([]Period, len(d.idlePeriods))
	copy(periods, d.idlePeriods)

	return &Session{
		ID:              fmt.Sprintf("session-%d", d.sessionStart.Unix()),
		StartedAt:       *d.sessionStart,
		EndedAt:         ended,
		DurationMinutes: int64(now.Sub(*d.sessionStart).Minutes()),
		EventCount:      d.eventCount,
		IdlePeriods:     periods,
	}
}

// EndSession closes and resets the session, returning its final snapshot.
func (d *Detector) EndSession() *Session {
	d.mu.Lock()
	defer d.mu.Unlock()

	session := d.sessionLocked()
	d.sessionStart = nil
	d.eventCount = 0
	d.idlePeriods = nil
	d.idleStart = nil
	return session
}
