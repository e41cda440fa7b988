package music

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PollingSource polls a Snapshotter at a fixed interval and emits one
// event per successful poll. Repeated events for the same track are
// expected; consumers deduplicate by Identity.
type PollingSource struct {
	snap     Snapshotter
	interval time.Duration
	logger   zerolog.Logger
}

// NewPollingSource creates a new PollingSource instance
func NewPollingSource(snap Snapshotter, interval time.Duration, logger zerolog.Logger) *PollingSource {
	return &PollingSource{
		snap:     snap,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Subscribe starts the polling loop.
func (p *PollingSource) Subscribe(ctx context.Context) (Subscription, error) {
	return startSubscription(ctx, 1, p.run, nil), nil
}

// run polls until ctx is cancelled.
func (p *PollingSource) run(ctx context.Context, emit func(Event) bool) {
	p.logger.Info().
		Dur("interval", p.interval).
		Msg("Starting poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Poll immediately on start
	if !p.poll(ctx, emit) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return
		case <-ticker.C:
			if !p.poll(ctx, emit) {
				return
			}
		}
	}
}

// poll queries the player and emits the result. It reports false once
// the subscription is closed.
func (p *PollingSource) poll(ctx context.Context, emit func(Event) bool) bool {
	n, err := p.snap.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Debug().Err(err).Msg("Error getting player state")
		return true
	}

	ev := Normalize(n)
	if !emit(ev) {
		return false
	}

	if ev.State == StatePlaying || ev.State == StatePaused {
		p.logger.Debug().
			Str("track", ev.Title).
			Str("artist", ev.Artist).
			Str("state", ev.State.String()).
			Msg("Poll update")
	}
	return true
}
