package music

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const appleMusicPlayer = "Music"

// AppleScriptClient implements Snapshotter using AppleScript to query Apple Music
type AppleScriptClient struct{}

// NewAppleScriptClient creates a new AppleScript-based music client
func NewAppleScriptClient() *AppleScriptClient {
	return &AppleScriptClient{}
}

// Snapshot returns the player state of Apple Music as a notification.
// A stopped or closed Music app reports PlayerState "Stopped".
// This uses a single osascript call that checks if Music is running and queries
// track data atomically, avoiding the overhead of two separate subprocess spawns.
func (c *AppleScriptClient) Snapshot(ctx context.Context) (Notification, error) {
	script := `
tell application "System Events"
	if not ((name of processes) contains "Music") then
		return "not_running"
	end if
end tell
tell application "Music"
	if player state is stopped then
		return "stopped"
	else
		set trackName to name of current track
		set trackArtist to artist of current track
		set trackAlbum to album of current track
		set trackDuration to duration of current track
		set playerPos to player position
		set playerState to player state as string

		return trackName & "|||" & trackArtist & "|||" & trackAlbum & "|||" & trackDuration & "|||" & playerPos & "|||" & playerState
	end if
end tell`

	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	output, err := cmd.Output()
	if err != nil {
		// If there's an error, try to extract the error message
		if exitErr, ok := err.(*exec.ExitError); ok {
			return Notification{}, fmt.Errorf("osascript error: %s", string(exitErr.Stderr))
		}
		return Notification{}, fmt.Errorf("failed to execute osascript: %w", err)
	}

	result := strings.TrimSpace(string(output))

	// Handle not running or stopped states
	if result == "not_running" || result == "stopped" {
		return Notification{PlayerState: "Stopped", Player: appleMusicPlayer}, nil
	}

	n, err := parseTrackOutput(result)
	if err != nil {
		return Notification{}, fmt.Errorf("failed to parse track output: %w", err)
	}

	return n, nil
}

// parseTrackOutput parses the delimited output from the AppleScript
func parseTrackOutput(output string) (Notification, error) {
	// Split by our custom delimiter
	parts := strings.Split(output, "|||")
	if len(parts) != 6 {
		return Notification{}, fmt.Errorf("expected 6 parts, got %d: %q", len(parts), output)
	}

	durationStr := strings.TrimSpace(parts[3])
	positionStr := strings.TrimSpace(parts[4])
	stateStr := strings.TrimSpace(parts[5])

	// Parse duration (in seconds as float)
	durationSec, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return Notification{}, fmt.Errorf("failed to parse duration %q: %w", durationStr, err)
	}

	// Parse position (in seconds as float)
	positionSec, err := strconv.ParseFloat(positionStr, 64)
	if err != nil {
		return Notification{}, fmt.Errorf("failed to parse position %q: %w", positionStr, err)
	}

	if ParseState(stateStr) == StateUnknown {
		return Notification{}, fmt.Errorf("unknown player state: %q", stateStr)
	}

	return Notification{
		PlayerState: stateStr,
		Name:        strings.TrimSpace(parts[0]),
		Artist:      strings.TrimSpace(parts[1]),
		Album:       strings.TrimSpace(parts[2]),
		TotalTimeMs: int64(durationSec * 1000),
		Position:    secondsToDuration(positionSec),
		HasPosition: true,
		Player:      appleMusicPlayer,
	}, nil
}

// secondsToDuration converts seconds (as float) to time.Duration
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
