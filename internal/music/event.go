package music

import (
	"context"
	"strings"
	"time"
)

// State is the playback state reported by a player.
type State int

const (
	StateUnknown State = iota // Player reported something we don't recognize
	StatePlaying              // Track is currently playing
	StatePaused               // Track is paused
	StateStopped              // No track playing
)

// String returns a human-readable representation of the State
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// ParseState maps a player state string ("Playing", "paused", ...) to a
// State. Unrecognized values map to StateUnknown.
func ParseState(s string) State {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "playing":
		return StatePlaying
	case "paused":
		return StatePaused
	case "stopped":
		return StateStopped
	default:
		return StateUnknown
	}
}

// Event is one normalized observation of the player.
type Event struct {
	State    State
	Title    string
	Artist   string
	Album    string        // may be empty
	Duration time.Duration // zero if unknown
	Position time.Duration // valid only when HasPosition
	// HasPosition is set when the player reported its playback position.
	HasPosition bool
	// Player names the source, e.g. "Music" or "org.mpris.MediaPlayer2.spotify".
	Player string
}

// Identity is the key used to decide whether two events describe the same
// track.
type Identity string

// Identity returns artist|title|album.
func (e Event) Identity() Identity {
	return Identity(e.Artist + "|" + e.Title + "|" + e.Album)
}

// Notification is a raw player-state notification, in the shape of the
// Apple Music "com.apple.Music.playerInfo" user info dictionary.
type Notification struct {
	PlayerState string // "Playing", "Paused", "Stopped"
	Name        string
	Artist      string
	Album       string
	TotalTimeMs int64 // "Total Time", milliseconds

	Position    time.Duration
	HasPosition bool
	Player      string
}

// Normalize converts a raw notification into an Event.
func Normalize(n Notification) Event {
	ev := Event{
		State:       ParseState(n.PlayerState),
		Title:       strings.TrimSpace(n.Name),
		Artist:      strings.TrimSpace(n.Artist),
		Album:       strings.TrimSpace(n.Album),
		Position:    n.Position,
		HasPosition: n.HasPosition,
		Player:      n.Player,
	}
	if n.TotalTimeMs > 0 {
		ev.Duration = time.Duration(n.TotalTimeMs) * time.Millisecond
	}
	if ev.Position < 0 {
		ev.Position = 0
	}
	return ev
}

// Source produces playback events.
type Source interface {
	// Subscribe starts delivering events. The returned Subscription must be
	// closed to release the underlying observer.
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is an active event feed.
type Subscription interface {
	// Events delivers events in arrival order. It is closed after Close or
	// when the subscribing context is done.
	Events() <-chan Event
	// Close stops the producer and waits for it to exit. It is safe to
	// call more than once.
	Close() error
}

// Snapshotter reads the player's current state on demand.
type Snapshotter interface {
	Snapshot(ctx context.Context) (Notification, error)
}
