// Package progress tracks elapsed playback time for the current track.
package progress

import (
	"sync"
	"time"
)

// DefaultInterval is the tick period used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// State is the tracker's play state.
type State int

const (
	Idle State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// Snapshot is a point-in-time copy of the tracker state.
type Snapshot struct {
	Elapsed  time.Duration
	Duration time.Duration
	State    State
}

// Playing reports whether the tick loop is running.
func (s Snapshot) Playing() bool {
	return s.State == Playing
}

// Fraction returns elapsed/duration clamped to [0, 1], or 0 when the
// duration is unknown.
func (s Snapshot) Fraction() float64 {
	if s.Duration <= 0 {
		return 0
	}
	f := float64(s.Elapsed) / float64(s.Duration)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Remaining returns duration minus elapsed, floored at zero.
func (s Snapshot) Remaining() time.Duration {
	if r := s.Duration - s.Elapsed; r > 0 {
		return r
	}
	return 0
}

// Tracker holds elapsed/duration/playing state and advances elapsed on a
// fixed tick while playing. It is safe for concurrent use.
//
// Each tick advances elapsed by the interval, clamped to the duration;
// reaching the duration pauses the tracker.
type Tracker struct {
	interval time.Duration
	onTick   func(Snapshot)

	mu       sync.Mutex
	elapsed  time.Duration
	duration time.Duration
	state    State
	gen      uint64        // bumped whenever the tick loop is stopped
	stop     chan struct{} // closed to stop the current tick loop
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithTickFunc registers fn to receive a snapshot after every tick. fn runs
// with the tracker locked and must not call back into the Tracker.
func WithTickFunc(fn func(Snapshot)) Option {
	return func(t *Tracker) {
		t.onTick = fn
	}
}

// New creates an idle Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{interval: DefaultInterval}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetTrack resets the tracker for a new track. startAt is clamped into
// [0, duration]. When playing is true the tick loop is (re)started.
func (t *Tracker) SetTrack(duration, startAt time.Duration, playing bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	if duration < 0 {
		duration = 0
	}
	t.duration = duration
	t.elapsed = clamp(startAt, duration)

	if playing {
		t.state = Playing
		t.startLocked()
	} else {
		t.state = Paused
	}
}

// Update sets elapsed, clamped into [0, duration]. The play state is
// unchanged.
func (t *Tracker) Update(elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.elapsed = clamp(elapsed, t.duration)
}

// Play resumes ticking. It does nothing when the duration is unknown.
func (t *Tracker) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.duration <= 0 || t.state == Playing {
		return
	}
	t.state = Playing
	t.startLocked()
}

// Pause stops ticking. No tick is delivered after Pause returns.
func (t *Tracker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pauseLocked()
}

// Reset stops ticking and returns the tracker to Idle.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.elapsed = 0
	t.duration = 0
	t.state = Idle
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{Elapsed: t.elapsed, Duration: t.duration, State: t.state}
}

func (t *Tracker) pauseLocked() {
	t.stopLocked()
	if t.state == Playing {
		t.state = Paused
	}
}

func (t *Tracker) startLocked() {
	if t.duration <= 0 {
		return
	}
	t.stopLocked()

	stop := make(chan struct{})
	t.stop = stop
	go t.loop(t.gen, stop)
}

func (t *Tracker) stopLocked() {
	t.gen++
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Tracker) loop(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !t.tick(gen) {
				return
			}
		}
	}
}

// tick advances elapsed for the loop identified by gen. It reports false
// when that loop has been superseded or has finished.
func (t *Tracker) tick(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen {
		return false
	}

	t.elapsed = clamp(t.elapsed+t.interval, t.duration)
	done := t.elapsed >= t.duration
	if done {
		t.pauseLocked()
	}
	if t.onTick != nil {
		t.onTick(t.snapshotLocked())
	}
	return !done
}

func clamp(d, max time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}
