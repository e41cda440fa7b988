package daemon

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/jfmyers9/scrobbled/internal/activity"
	"github.com/jfmyers9/scrobbled/internal/music"
	"github.com/jfmyers9/scrobbled/internal/progress"
	"github.com/jfmyers9/scrobbled/pkg/lastfm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nowPlayingCall struct {
	Artist, Track, Album string
	Duration             time.Duration
}

type scrobbleCall struct {
	Artist, Track, Album string
	StartedAt            time.Time
	Duration             time.Duration
}

// fakeScrobbler records calls instead of talking to Last.fm.
type fakeScrobbler struct {
	mu            sync.Mutex
	authenticated bool
	nowPlayingErr error
	scrobbleErr   error
	artwork       string
	nowPlaying    []nowPlayingCall
	scrobbles     []scrobbleCall
	artworkCalls  int
}

func newFakeScrobbler() *fakeScrobbler {
	return &fakeScrobbler{authenticated: true}
}

func (f *fakeScrobbler) Authenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

func (f *fakeScrobbler) UpdateNowPlaying(_ context.Context, artist, track, album string, duration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nowPlaying = append(f.nowPlaying, nowPlayingCall{artist, track, album, duration})
	return f.nowPlayingErr
}

func (f *fakeScrobbler) SubmitScrobble(_ context.Context, artist, track, album string, startedAt time.Time, duration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrobbles = append(f.scrobbles, scrobbleCall{artist, track, album, startedAt, duration})
	return f.scrobbleErr
}

func (f *fakeScrobbler) FetchArtworkURL(context.Context, string, string, string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artworkCalls++
	return f.artwork
}

func (f *fakeScrobbler) nowPlayingCalls() []nowPlayingCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]nowPlayingCall(nil), f.nowPlaying...)
}

func (f *fakeScrobbler) scrobbleCalls() []scrobbleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scrobbleCall(nil), f.scrobbles...)
}

// memorySink keeps records in memory.
type memorySink struct {
	mu      sync.Mutex
	records []activity.Record
}

func (m *memorySink) Record(_ context.Context, r activity.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *memorySink) all() []activity.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]activity.Record(nil), m.records...)
}

// fakeProgress records the last call of each kind.
type fakeProgress struct {
	mu       sync.Mutex
	duration time.Duration
	elapsed  time.Duration
	playing  bool
	resets   int
}

func (p *fakeProgress) SetTrack(duration, startAt time.Duration, playing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.duration, p.elapsed, p.playing = duration, startAt, playing
}

func (p *fakeProgress) Update(elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elapsed = elapsed
}

func (p *fakeProgress) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
}

func (p *fakeProgress) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

func (p *fakeProgress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.duration, p.elapsed, p.playing = 0, 0, false
	p.resets++
}

func (p *fakeProgress) snapshot() (elapsed time.Duration, playing bool, resets int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elapsed, p.playing, p.resets
}

func (f *fakeScrobbler) setAuthenticated(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authenticated = v
}

func (f *fakeScrobbler) artworkLookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.artworkCalls
}

type harness struct {
	coord    *Coordinator
	lastfm   *fakeScrobbler
	sink     *memorySink
	progress *fakeProgress
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		lastfm:   newFakeScrobbler(),
		sink:     &memorySink{},
		progress: &fakeProgress{},
	}
	h.coord = NewCoordinator(CoordinatorConfig{
		Scrobbler: h.lastfm,
		Progress:  h.progress,
		Sink:      h.sink,
		Logger:    zerolog.Nop(),
	})
	t.Cleanup(func() { _ = h.coord.Shutdown(context.Background()) })
	return h
}

func playing(title string, duration time.Duration) music.Event {
	return music.Event{
		State:    music.StatePlaying,
		Title:    title,
		Artist:   "Artist",
		Album:    "Album",
		Duration: duration,
	}
}

func TestCoordinator_DuplicatePlayingSuppressed(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)

		h.coord.Handle(playing("Song", 200*time.Second))
		seek := playing("Song", 200*time.Second)
		seek.Position = 42 * time.Second
		seek.HasPosition = true
		h.coord.Handle(seek)
		synctest.Wait()

		assert.Len(t, h.lastfm.nowPlayingCalls(), 1)
		elapsed, _, _ := h.progress.snapshot()
		assert.Equal(t, 42*time.Second, elapsed, "duplicate still refreshes progress")

		s, ok := h.coord.Session()
		require.True(t, ok)
		assert.Equal(t, music.Identity("Artist|Song|Album"), s.Identity)
	})
}

func TestCoordinator_DeferredScrobbleFiresAtThreshold(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		start := time.Now()

		h.coord.Handle(playing("Song", 200*time.Second))

		time.Sleep(99 * time.Second)
		synctest.Wait()
		assert.Empty(t, h.lastfm.scrobbleCalls())

		time.Sleep(2 * time.Second)
		synctest.Wait()

		calls := h.lastfm.scrobbleCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, start, calls[0].StartedAt)
		assert.Equal(t, 200*time.Second, calls[0].Duration)
		assert.Equal(t, "Song", calls[0].Track)
	})
}

func TestCoordinator_TrackChangeCancelsPendingScrobble(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)

		h.coord.Handle(playing("First", 200*time.Second))
		time.Sleep(50 * time.Second)

		secondStart := time.Now()
		h.coord.Handle(playing("Second", 300*time.Second))

		// Well past the first track's 100s threshold, short of the second's 150s.
		time.Sleep(120 * time.Second)
		synctest.Wait()
		assert.Empty(t, h.lastfm.scrobbleCalls(), "superseded track must never scrobble")

		time.Sleep(40 * time.Second)
		synctest.Wait()

		calls := h.lastfm.scrobbleCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, "Second", calls[0].Track)
		assert.Equal(t, secondStart, calls[0].StartedAt)
		assert.Len(t, h.lastfm.nowPlayingCalls(), 2)
	})
}

func TestCoordinator_StopBeforeThreshold(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)

		h.coord.Handle(playing("Song", 200*time.Second))
		time.Sleep(50 * time.Second)
		h.coord.Handle(music.Event{State: music.StateStopped})

		time.Sleep(10 * time.Minute)
		synctest.Wait()

		assert.Empty(t, h.lastfm.scrobbleCalls())
		_, ok := h.coord.Session()
		assert.False(t, ok, "stop clears the session")
		_, _, resets := h.progress.snapshot()
		assert.Equal(t, 1, resets)
	})
}

func TestCoordinator_StopAfterThreshold(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		start := time.Now()

		h.coord.Handle(playing("Song", 200*time.Second))
		time.Sleep(150 * time.Second)
		h.coord.Handle(music.Event{State: music.StateStopped})

		time.Sleep(10 * time.Minute)
		synctest.Wait()

		calls := h.lastfm.scrobbleCalls()
		require.Len(t, calls, 1, "deferred scrobble and stop must not both submit")
		assert.Equal(t, start, calls[0].StartedAt)
		assert.Equal(t, 200*time.Second, calls[0].Duration)
	})
}

func TestCoordinator_StopAfterThresholdWithoutDeferred(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		start := time.Now()

		h.coord.Handle(playing("Song", 200*time.Second))
		time.Sleep(60 * time.Second)

		// Pausing cancels the deferred scrobble; resuming does not re-arm it.
		h.coord.Handle(music.Event{State: music.StatePaused, Title: "Song", Artist: "Artist", Album: "Album"})
		time.Sleep(30 * time.Second)
		h.coord.Handle(playing("Song", 200*time.Second))
		time.Sleep(60 * time.Second)
		synctest.Wait()
		assert.Empty(t, h.lastfm.scrobbleCalls())

		h.coord.Handle(music.Event{State: music.StateStopped})
		synctest.Wait()

		calls := h.lastfm.scrobbleCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, start, calls[0].StartedAt)
	})
}

func TestCoordinator_PauseKeepsSession(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)

		h.coord.Handle(playing("Song", 200*time.Second))
		before, _ := h.coord.Session()

		time.Sleep(10 * time.Second)
		h.coord.Handle(music.Event{State: music.StatePaused, Title: "Song", Artist: "Artist", Album: "Album"})
		_, isPlaying, _ := h.progress.snapshot()
		assert.False(t, isPlaying)

		time.Sleep(10 * time.Minute)
		synctest.Wait()
		assert.Empty(t, h.lastfm.scrobbleCalls(), "paused track has no pending scrobble")

		h.coord.Handle(playing("Song", 200*time.Second))
		after, ok := h.coord.Session()
		require.True(t, ok)
		assert.Equal(t, before, after, "resuming keeps the original session")
		_, isPlaying, _ = h.progress.snapshot()
		assert.True(t, isPlaying)
		assert.Len(t, h.lastfm.nowPlayingCalls(), 1)
	})
}

func TestCoordinator_ShortTrackNotScheduled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)

		h.coord.Handle(playing("Jingle", 30*time.Second))
		time.Sleep(10 * time.Minute)
		synctest.Wait()

		assert.Empty(t, h.lastfm.scrobbleCalls())
		assert.Len(t, h.lastfm.nowPlayingCalls(), 1)
	})
}

func TestCoordinator_UnknownDuration(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)

		h.coord.Handle(playing("Stream", 0))
		time.Sleep(10 * time.Minute)
		synctest.Wait()
		assert.Empty(t, h.lastfm.scrobbleCalls(), "no deferred scrobble without a duration")

		h.coord.Handle(music.Event{State: music.StateStopped})
		synctest.Wait()
		calls := h.lastfm.scrobbleCalls()
		require.Len(t, calls, 1, "stop uses the 30s floor")
		assert.Equal(t, time.Duration(0), calls[0].Duration)
	})
}

func TestCoordinator_Unauthenticated(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		h.lastfm.setAuthenticated(false)

		h.coord.Handle(playing("Song", 200*time.Second))
		time.Sleep(150 * time.Second)
		h.coord.Handle(music.Event{State: music.StateStopped})
		synctest.Wait()

		assert.Empty(t, h.lastfm.nowPlayingCalls())
		assert.Empty(t, h.lastfm.scrobbleCalls())
		assert.Equal(t, 1, h.lastfm.artworkLookups(), "artwork needs no session")
		assert.Empty(t, h.sink.all())
	})
}

func TestCoordinator_RecordsOutcomes(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		h.lastfm.scrobbleErr = errors.New("lastfm: track.scrobble: error 9: Invalid session key")

		h.coord.Handle(playing("Song", 200*time.Second))
		s, _ := h.coord.Session()
		time.Sleep(101 * time.Second)
		synctest.Wait()

		records := h.sink.all()
		require.Len(t, records, 2)

		assert.Equal(t, activity.KindNowPlaying, records[0].Kind)
		assert.Equal(t, activity.StatusOK, records[0].Status)
		assert.Empty(t, records[0].Extra)

		assert.Equal(t, activity.KindScrobble, records[1].Kind)
		assert.Equal(t, activity.StatusFailed, records[1].Status)
		assert.Contains(t, records[1].Extra, "Invalid session key")

		for _, r := range records {
			assert.Equal(t, s.ID, r.SessionID)
			assert.Equal(t, "Song", r.Track)
			assert.Equal(t, "Album", r.Album)
		}

		// A failed scrobble is not retried.
		time.Sleep(time.Hour)
		synctest.Wait()
		assert.Len(t, h.lastfm.scrobbleCalls(), 1)
	})
}

func TestCoordinator_NowPlayingFailureIsRecorded(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		h.lastfm.nowPlayingErr = errors.New("connection refused")

		h.coord.Handle(playing("Song", 200*time.Second))
		synctest.Wait()

		records := h.sink.all()
		require.Len(t, records, 1)
		assert.Equal(t, activity.StatusFailed, records[0].Status)
		assert.Equal(t, "connection refused", records[0].Extra)

		_, ok := h.coord.Session()
		assert.True(t, ok, "network failure does not affect state")
	})
}

func TestCoordinator_Artwork(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fake := newFakeScrobbler()
		fake.artwork = "https://img/xl.png"

		var mu sync.Mutex
		var got []string
		coord := NewCoordinator(CoordinatorConfig{
			Scrobbler: fake,
			Progress:  &fakeProgress{},
			Logger:    zerolog.Nop(),
			OnArtwork: func(s TrackSession, url string) {
				mu.Lock()
				defer mu.Unlock()
				got = append(got, s.Title+"="+url)
			},
		})
		defer func() { _ = coord.Shutdown(context.Background()) }()

		coord.Handle(playing("Song", 200*time.Second))
		synctest.Wait()

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"Song=https://img/xl.png"}, got)
	})
}

func TestCoordinator_IgnoresIncompleteAndUnknownEvents(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)

		h.coord.Handle(music.Event{State: music.StatePlaying, Title: "No artist"})
		h.coord.Handle(music.Event{State: music.StateUnknown, Title: "x", Artist: "y"})
		synctest.Wait()

		_, ok := h.coord.Session()
		assert.False(t, ok)
		assert.Empty(t, h.lastfm.nowPlayingCalls())
	})
}

func TestCoordinator_IncompleteTrackEndsSession(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)

		h.coord.Handle(playing("First", 200*time.Second))
		time.Sleep(10 * time.Second)

		// An untagged item replaces the track; it is not reported itself.
		h.coord.Handle(music.Event{State: music.StatePlaying, Title: "Untagged", Duration: 300 * time.Second})
		time.Sleep(5 * time.Minute)
		synctest.Wait()

		_, ok := h.coord.Session()
		assert.False(t, ok)
		assert.Empty(t, h.lastfm.scrobbleCalls(), "skipped track must not be scrobbled")
		assert.Len(t, h.lastfm.nowPlayingCalls(), 1)

		_, isPlaying, resets := h.progress.snapshot()
		assert.False(t, isPlaying)
		assert.Equal(t, 1, resets)

		// A stop afterwards has nothing to scrobble either.
		h.coord.Handle(music.Event{State: music.StateStopped})
		synctest.Wait()
		assert.Empty(t, h.lastfm.scrobbleCalls())
	})
}

// syncBuffer is a bytes.Buffer safe for concurrent writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCoordinator_FailureLogMarksTemporary(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "transport failure",
			err:  &lastfm.TransportError{Method: "track.updateNowPlaying", Err: errors.New("connection reset")},
			want: `"temporary":true`,
		},
		{
			name: "invalid session",
			err:  &lastfm.ProviderError{Method: "track.updateNowPlaying", Code: lastfm.ErrCodeInvalidSessionKey, Message: "Invalid session key"},
			want: `"temporary":false`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				fake := newFakeScrobbler()
				fake.nowPlayingErr = tt.err

				var logs syncBuffer
				coord := NewCoordinator(CoordinatorConfig{
					Scrobbler: fake,
					Progress:  &fakeProgress{},
					Logger:    zerolog.New(&logs),
				})
				defer func() { _ = coord.Shutdown(context.Background()) }()

				coord.Handle(playing("Song", 200*time.Second))
				synctest.Wait()

				assert.Contains(t, logs.String(), "Last.fm request failed")
				assert.Contains(t, logs.String(), tt.want)
			})
		})
	}
}

func TestCoordinator_Run(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		events := make(chan music.Event)

		done := make(chan error, 1)
		go func() { done <- h.coord.Run(context.Background(), events) }()

		events <- playing("One", 200*time.Second)
		events <- playing("One", 200*time.Second)
		events <- playing("Two", 200*time.Second)
		close(events)

		require.NoError(t, <-done)
		synctest.Wait()
		assert.Len(t, h.lastfm.nowPlayingCalls(), 2)
	})
}

func TestCoordinator_ShutdownCancelsPending(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)

		h.coord.Handle(playing("Song", 200*time.Second))
		require.NoError(t, h.coord.Shutdown(context.Background()))

		time.Sleep(10 * time.Minute)
		synctest.Wait()
		assert.Empty(t, h.lastfm.scrobbleCalls())
	})
}

func TestCoordinator_WithProgressTracker(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracker := progress.New()
		coord := NewCoordinator(CoordinatorConfig{
			Scrobbler: newFakeScrobbler(),
			Progress:  tracker,
			Logger:    zerolog.Nop(),
		})
		defer func() { _ = coord.Shutdown(context.Background()) }()

		coord.Handle(playing("Song", 200*time.Second))
		time.Sleep(10*time.Second + 100*time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 10*time.Second, tracker.Snapshot().Elapsed)

		coord.Handle(music.Event{State: music.StatePaused, Title: "Song", Artist: "Artist", Album: "Album"})
		time.Sleep(time.Minute)
		synctest.Wait()
		assert.Equal(t, 10*time.Second, tracker.Snapshot().Elapsed)

		coord.Handle(music.Event{State: music.StateStopped})
		assert.Equal(t, progress.Idle, tracker.Snapshot().State)
	})
}
