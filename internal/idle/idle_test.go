package idle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestDetector() (*Detector, *fakeClock) {
	clock := &fakeClock{current: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
	d := New(DefaultConfig())
	d.now = clock.now
	d.lastActivity = clock.current
	return d, clock
}

func TestStateProgression(t *testing.T) {
	d, clock := newTestDetector()
	require.Equal(t, StateActive, d.State())

	// Under five minutes: still active, no transition.
	clock.advance(4 * time.Minute)
	assert.Nil(t, d.CheckIdle())
	assert.Equal(t, StateActive, d.State())

	// Past five minutes: idle.
	clock.advance(2 * time.Minute)
	tr := d.CheckIdle()
	require.NotNil(t, tr)
	assert.Equal(t, StateActive, tr.Previous)
	assert.Equal(t, StateIdle, tr.New)

	// Second check without further elapse change: no repeat transition.
	assert.Nil(t, d.CheckIdle())

	// Past thirty minutes total: away.
	clock.advance(25 * time.Minute)
	tr = d.CheckIdle()
	require.NotNil(t, tr)
	assert.Equal(t, StateIdle, tr.Previous)
	assert.Equal(t, StateAway, tr.New)
	assert.GreaterOrEqual(t, tr.IdleDurationSecs, int64(30*60))
}

func TestActivityWakesFromIdle(t *testing.T) {
	d, clock := newTestDetector()
	d.RecordActivity("shell")

	clock.advance(6 * time.Minute)
	require.NotNil(t, d.CheckIdle())
	require.Equal(t, StateIdle, d.State())

	clock.advance(time.Minute)
	tr := d.RecordActivity("editor")

	require.NotNil(t, tr)
	assert.Equal(t, StateIdle, tr.Previous)
	assert.Equal(t, StateActive, tr.New)
	assert.Equal(t, "editor", tr.LastActivityType)
	assert.Equal(t, StateActive, d.State())
}

func TestActivityWhileActiveIsSilent(t *testing.T) {
	d, clock := newTestDetector()

	assert.Nil(t, d.RecordActivity("shell"))
	clock.advance(time.Minute)
	assert.Nil(t, d.RecordActivity("shell"))
}

func TestIdlePeriodsAreRecorded(t *testing.T) {
	d, clock := newTestDetector()
	d.RecordActivity("shell")

	// Go idle for eight minutes, then wake.
	clock.advance(6 * time.Minute)
	require.NotNil(t, d.CheckIdle())
	clock.advance(8 * time.Minute)
	d.RecordActivity("shell")

	session := d.Session()
	require.NotNil(t, session)
	require.Len(t, session.IdlePeriods, 1)
	assert.Equal(t, int64(8*60), session.IdlePeriods[0].Seconds)
	assert.Equal(t, int64(2), session.EventCount)
}

func TestSessionLifecycle(t *testing.T) {
	d, clock := newTestDetector()
	assert.Nil(t, d.Session(), "no session before activity")

	d.RecordActivity("shell")
	clock.advance(45 * time.Minute)
	// One jump past the away threshold skips the idle state entirely.
	require.NotNil(t, d.CheckIdle())
	require.Equal(t, StateAway, d.State())

	session := d.Session()
	require.NotNil(t, session)
	require.NotNil(t, session.EndedAt)
	assert.Equal(t, int64(45), session.DurationMinutes)

	ended := d.EndSession()
	require.NotNil(t, ended)
	assert.Nil(t, d.Session(), "session state reset")
}
