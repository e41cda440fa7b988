// Package activity records the outcome of now-playing updates and
// scrobbles.
package activity

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Kind discriminates activity records.
type Kind string

const (
	KindNowPlaying Kind = "nowPlaying"
	KindScrobble   Kind = "scrobble"
)

// Status is the outcome of a network operation.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Record is one log entry.
type Record struct {
	ID        int64
	SessionID string // correlates the nowPlaying and scrobble records of one play
	Kind      Kind
	Status    Status
	Track     string
	Artist    string
	Album     string        // optional
	Duration  time.Duration // optional
	StartedAt time.Time     // when the track started playing
	Extra     string        // failure message, if any
	CreatedAt time.Time
}

// Sink accepts activity records.
type Sink interface {
	Record(ctx context.Context, r Record) error
}

// LogSink writes records as structured log lines.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "activity").Logger()}
}

func (s *LogSink) Record(_ context.Context, r Record) error {
	ev := s.logger.Info()
	if r.Status == StatusFailed {
		ev = s.logger.Warn()
	}
	ev = ev.
		Str("session", r.SessionID).
		Str("kind", string(r.Kind)).
		Str("status", string(r.Status)).
		Str("track", r.Track).
		Str("artist", r.Artist)
	if r.Album != "" {
		ev = ev.Str("album", r.Album)
	}
	if r.Extra != "" {
		ev = ev.Str("extra", r.Extra)
	}
	ev.Msg("Activity")
	return nil
}

// MultiSink fans a record out to several sinks. Every sink is tried; the
// errors are joined.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, r Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
