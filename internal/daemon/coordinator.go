package daemon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jfmyers9/scrobbled/internal/activity"
	"github.com/jfmyers9/scrobbled/internal/music"
	"github.com/jfmyers9/scrobbled/internal/scrobbler"
	"github.com/jfmyers9/scrobbled/pkg/lastfm"
	"github.com/rs/zerolog"
)

// Scrobbler is the network side of the coordinator.
type Scrobbler interface {
	Authenticated() bool
	UpdateNowPlaying(ctx context.Context, artist, track, album string, duration time.Duration) error
	SubmitScrobble(ctx context.Context, artist, track, album string, startedAt time.Time, duration time.Duration) error
	FetchArtworkURL(ctx context.Context, artist, track, album string) string
}

// Progress receives playback timing.
type Progress interface {
	SetTrack(duration, startAt time.Duration, playing bool)
	Update(elapsed time.Duration)
	Play()
	Pause()
	Reset()
}

// TrackSession describes the active track. Values are copies; they are
// safe to hand to other goroutines.
type TrackSession struct {
	ID        string
	Identity  music.Identity
	Title     string
	Artist    string
	Album     string
	StartedAt time.Time
	Duration  time.Duration // whole seconds; zero if unknown
}

// session is the coordinator's mutable view of the active track.
type session struct {
	TrackSession
	cancel    context.CancelFunc // cancels the pending deferred scrobble, if any
	submitted *atomic.Bool       // set once a scrobble for this play is sent
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	Scrobbler Scrobbler
	Progress  Progress
	Sink      activity.Sink
	Logger    zerolog.Logger

	// OnArtwork, if set, receives artwork URLs found for new tracks.
	OnArtwork func(s TrackSession, url string)
}

// Coordinator turns playback events into now-playing updates and
// scrobbles.
//
// Events must be delivered from a single goroutine (Run does this). Network
// calls run in their own goroutines and never block event handling.
type Coordinator struct {
	scrobbler Scrobbler
	progress  Progress
	sink      activity.Sink
	logger    zerolog.Logger
	onArtwork func(TrackSession, string)

	// Network tasks run under ctx so that cancelling a deferred scrobble
	// never aborts a submission already in flight.
	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.RWMutex
	session *session
}

// NewCoordinator creates an idle Coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	ctx, stop := context.WithCancel(context.Background())
	return &Coordinator{
		scrobbler: cfg.Scrobbler,
		progress:  cfg.Progress,
		sink:      cfg.Sink,
		logger:    cfg.Logger.With().Str("component", "coordinator").Logger(),
		onArtwork: cfg.OnArtwork,
		ctx:       ctx,
		stop:      stop,
	}
}

// Run handles events until the channel closes or ctx is done.
func (c *Coordinator) Run(ctx context.Context, events <-chan music.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.Handle(ev)
		}
	}
}

// Session returns the active track, if any.
func (c *Coordinator) Session() (TrackSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return TrackSession{}, false
	}
	return c.session.TrackSession, true
}

// Handle applies one event.
func (c *Coordinator) Handle(ev music.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.State {
	case music.StatePlaying:
		c.handlePlaying(ev)
	case music.StatePaused:
		c.handlePaused(ev)
	case music.StateStopped:
		c.handleStopped()
	default:
		c.logger.Debug().Str("player", ev.Player).Msg("Ignoring event with unknown state")
	}
}

func (c *Coordinator) handlePlaying(ev music.Event) {
	id := ev.Identity()

	// Players repeat Playing (seek, poll); the same track is not a new play.
	if s := c.session; s != nil && s.Identity == id {
		if ev.HasPosition {
			c.progress.Update(ev.Position)
		}
		c.progress.Play()
		return
	}

	// Something else is playing now, so the old track can no longer be
	// scrobbled even if the new one cannot be reported.
	if ev.Title == "" || ev.Artist == "" {
		if c.session != nil {
			c.endSession()
			c.progress.Reset()
		}
		c.logger.Debug().
			Str("track", ev.Title).
			Str("artist", ev.Artist).
			Msg("Ignoring track without title or artist")
		return
	}

	c.endSession()

	s := &session{
		TrackSession: TrackSession{
			ID:        uuid.NewString(),
			Identity:  id,
			Title:     ev.Title,
			Artist:    ev.Artist,
			Album:     ev.Album,
			StartedAt: time.Now(),
			Duration:  ev.Duration.Truncate(time.Second),
		},
		submitted: new(atomic.Bool),
	}
	c.session = s

	var startAt time.Duration
	if ev.HasPosition {
		startAt = ev.Position
	}
	c.progress.SetTrack(ev.Duration, startAt, true)

	c.logger.Info().
		Str("session", s.ID).
		Str("track", s.Title).
		Str("artist", s.Artist).
		Str("album", s.Album).
		Dur("duration", s.Duration).
		Msg("Track changed")

	c.startNowPlaying(s.TrackSession)

	if scrobbler.ShouldSchedule(s.Duration) {
		c.schedule(s)
	}
}

func (c *Coordinator) handlePaused(ev music.Event) {
	if s := c.session; s != nil && s.cancel != nil {
		s.cancel()
		s.cancel = nil
		c.logger.Debug().Str("session", s.ID).Msg("Paused; pending scrobble cancelled")
	}
	if ev.HasPosition && c.session != nil && c.session.Identity == ev.Identity() {
		c.progress.Update(ev.Position)
	}
	c.progress.Pause()
}

func (c *Coordinator) handleStopped() {
	defer c.progress.Reset()

	s := c.session
	if s == nil {
		return
	}

	played := time.Since(s.StartedAt)
	if scrobbler.ShouldScrobble(s.Duration, played) && s.submitted.CompareAndSwap(false, true) {
		c.logger.Debug().
			Str("session", s.ID).
			Dur("played", played).
			Msg("Stopped after threshold; scrobbling")
		snap := s.TrackSession
		c.goAsync(func() { c.submitScrobble(snap) })
	}

	c.endSession()
	c.logger.Info().Str("session", s.ID).Msg("Music stopped")
}

// endSession cancels any pending scrobble and clears the active track.
func (c *Coordinator) endSession() {
	if s := c.session; s != nil && s.cancel != nil {
		s.cancel()
	}
	c.session = nil
}

// schedule arms the deferred scrobble for s. The task holds a copy of the
// session so a later track change cannot alter what it submits.
func (c *Coordinator) schedule(s *session) {
	ctx, cancel := context.WithCancel(c.ctx)
	s.cancel = cancel

	snap := s.TrackSession
	submitted := s.submitted
	threshold := scrobbler.Threshold(snap.Duration)

	c.logger.Debug().
		Str("session", snap.ID).
		Dur("threshold", threshold).
		Msg("Scrobble scheduled")

	c.goAsync(func() {
		timer := time.NewTimer(threshold)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if ctx.Err() != nil || !submitted.CompareAndSwap(false, true) {
			return
		}
		c.submitScrobble(snap)
	})
}

// startNowPlaying looks up the new track's artwork and reports it as now
// playing. Artwork lookups are unsigned and run without a session.
func (c *Coordinator) startNowPlaying(s TrackSession) {
	c.goAsync(func() {
		url := c.scrobbler.FetchArtworkURL(c.ctx, s.Artist, s.Title, s.Album)
		if url != "" && c.onArtwork != nil {
			c.onArtwork(s, url)
		}
	})

	if !c.scrobbler.Authenticated() {
		c.logger.Debug().Str("session", s.ID).Msg("Not authenticated; skipping now playing")
		return
	}

	c.goAsync(func() {
		err := c.scrobbler.UpdateNowPlaying(c.ctx, s.Artist, s.Title, s.Album, s.Duration)
		c.record(activity.KindNowPlaying, s, err)
	})
}

func (c *Coordinator) submitScrobble(s TrackSession) {
	if !c.scrobbler.Authenticated() {
		c.logger.Debug().Str("session", s.ID).Msg("Not authenticated; skipping scrobble")
		return
	}

	err := c.scrobbler.SubmitScrobble(c.ctx, s.Artist, s.Title, s.Album, s.StartedAt, s.Duration)
	c.record(activity.KindScrobble, s, err)
}

// record logs the outcome of a network call and writes it to the sink.
func (c *Coordinator) record(kind activity.Kind, s TrackSession, err error) {
	r := activity.Record{
		SessionID: s.ID,
		Kind:      kind,
		Status:    activity.StatusOK,
		Track:     s.Title,
		Artist:    s.Artist,
		Album:     s.Album,
		Duration:  s.Duration,
		StartedAt: s.StartedAt,
		CreatedAt: time.Now(),
	}

	if err != nil {
		r.Status = activity.StatusFailed
		r.Extra = err.Error()
		c.logger.Warn().
			Err(err).
			Bool("temporary", lastfm.IsTemporary(err)).
			Str("session", s.ID).
			Str("kind", string(kind)).
			Str("track", s.Title).
			Str("artist", s.Artist).
			Msg("Last.fm request failed")
	} else {
		c.logger.Info().
			Str("session", s.ID).
			Str("kind", string(kind)).
			Str("track", s.Title).
			Str("artist", s.Artist).
			Msg("Last.fm request succeeded")
	}

	if c.sink == nil {
		return
	}
	if err := c.sink.Record(context.WithoutCancel(c.ctx), r); err != nil {
		c.logger.Error().Err(err).Msg("Failed to record activity")
	}
}

func (c *Coordinator) goAsync(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// Shutdown cancels any pending deferred scrobble and waits for in-flight
// network calls. If ctx expires first, those calls are cancelled.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if s := c.session; s != nil && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.stop()
		return nil
	case <-ctx.Done():
		c.stop()
		<-done
		return ctx.Err()
	}
}
