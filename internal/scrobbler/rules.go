package scrobbler

import (
	"time"
)

// Last.fm scrobbling rules constants
const (
	// MinimumThreshold is the least playing time that can count as a scrobble (30 seconds).
	// Tracks must also be longer than this for a scrobble to be scheduled.
	MinimumThreshold = 30 * time.Second

	// ScrobblePercentage is the fraction of track that must be played (50%)
	ScrobblePercentage = 0.5

	// MaxScrobbleThreshold is the maximum time that needs to be played (4 minutes)
	MaxScrobbleThreshold = 4 * time.Minute
)

// Threshold returns how long a track of the given duration must play
// before it counts as a scrobble: half its length, at least 30 seconds and
// at most 4 minutes. An unknown (zero) duration yields 30 seconds.
func Threshold(trackDuration time.Duration) time.Duration {
	threshold := time.Duration(float64(trackDuration) * ScrobblePercentage)

	if threshold < MinimumThreshold {
		return MinimumThreshold
	}
	if threshold > MaxScrobbleThreshold {
		return MaxScrobbleThreshold
	}
	return threshold
}

// ShouldSchedule reports whether a deferred scrobble should be scheduled
// for a newly started track. Tracks of 30 seconds or less, and tracks of
// unknown length, are not.
func ShouldSchedule(trackDuration time.Duration) bool {
	return trackDuration > MinimumThreshold
}

// ShouldScrobble reports whether a track that played for playedDuration
// has reached its threshold.
func ShouldScrobble(trackDuration, playedDuration time.Duration) bool {
	return playedDuration >= Threshold(trackDuration)
}
