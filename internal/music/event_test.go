package music

import (
	"testing"
	"time"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "stopped"},
		{StatePlaying, "playing"},
		{StatePaused, "paused"},
		{StateUnknown, "unknown"},
		{State(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Notification
		want Event
	}{
		{
			name: "playing with duration",
			in: Notification{
				PlayerState: "Playing",
				Name:        " Hey Jude ",
				Artist:      "The Beatles",
				Album:       "Hey Jude",
				TotalTimeMs: 431333,
			},
			want: Event{
				State:    StatePlaying,
				Title:    "Hey Jude",
				Artist:   "The Beatles",
				Album:    "Hey Jude",
				Duration: 431333 * time.Millisecond,
			},
		},
		{
			name: "paused without duration",
			in:   Notification{PlayerState: "Paused", Name: "Stream", Artist: "Radio"},
			want: Event{State: StatePaused, Title: "Stream", Artist: "Radio"},
		},
		{
			name: "stopped",
			in:   Notification{PlayerState: "Stopped"},
			want: Event{State: StateStopped},
		},
		{
			name: "unrecognized state",
			in:   Notification{PlayerState: "Buffering", Name: "x"},
			want: Event{State: StateUnknown, Title: "x"},
		},
		{
			name: "negative position clamps",
			in:   Notification{PlayerState: "playing", Position: -time.Second, HasPosition: true},
			want: Event{State: StatePlaying, HasPosition: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEvent_Identity(t *testing.T) {
	a := Event{Artist: "Queen", Title: "Bohemian Rhapsody", Album: "A Night at the Opera"}
	b := a
	b.State = StatePaused
	b.Position = time.Minute

	if a.Identity() != b.Identity() {
		t.Error("state and position must not affect identity")
	}
	if a.Identity() != "Queen|Bohemian Rhapsody|A Night at the Opera" {
		t.Errorf("Identity() = %q", a.Identity())
	}

	c := a
	c.Album = ""
	if a.Identity() == c.Identity() {
		t.Error("album is part of the identity")
	}
}
