package lastfm

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Track identifies a track for now-playing updates and scrobbles.
type Track struct {
	Artist   string
	Name     string
	Album    string        // optional
	Duration time.Duration // optional; sent in whole seconds when positive
}

// params renders the common track parameters.
func (t Track) params() map[string]string {
	p := map[string]string{
		"artist": t.Artist,
		"track":  t.Name,
	}
	if t.Album != "" {
		p["album"] = t.Album
	}
	if secs := int64(t.Duration / time.Second); secs > 0 {
		p["duration"] = strconv.FormatInt(secs, 10)
	}
	return p
}

// Image is one entry of an image list. Size is one of small, medium,
// large, extralarge or mega.
type Image struct {
	Size string `json:"size"`
	URL  string `json:"#text"`
}

// Session is the result of a completed authentication handshake.
type Session struct {
	Key        string
	Name       string
	Subscriber bool
}

// ScrobbleResult reports whether Last.fm accepted or ignored a scrobble.
type ScrobbleResult struct {
	Accepted       int
	Ignored        int
	IgnoredCode    int
	IgnoredMessage string
}

// RecentTrack is one entry of a user's listening history.
type RecentTrack struct {
	Artist     string
	Name       string
	Album      string
	URL        string
	Images     []Image
	PlayedAt   time.Time // zero when NowPlaying
	NowPlaying bool
}

// TrackInfo is the subset of track.getInfo used by this package.
type TrackInfo struct {
	Name     string
	Artist   string
	Album    string
	URL      string
	Duration time.Duration
	Images   []Image // album images, if the track has an album
}

// AlbumInfo is the subset of album.getInfo used by this package.
type AlbumInfo struct {
	Name   string
	Artist string
	URL    string
	Images []Image
}

// flexInt decodes integers that Last.fm sends either as JSON numbers or as
// quoted strings. Empty strings decode as zero.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// flexBool decodes "1"/"0", "true"/"false" and JSON booleans.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	switch s {
	case "1", "true":
		*b = true
	default:
		*b = false
	}
	return nil
}

// text decodes either a bare string or an object carrying a "#text" field.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	var obj struct {
		Text string `json:"#text"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Text != "" {
		*t = text(obj.Text)
	} else {
		*t = text(obj.Name)
	}
	return nil
}

// oneOrMany decodes a list that collapses to a bare object when it has a
// single element.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*o = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*o = items
		return nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*o = oneOrMany[T]{item}
	return nil
}
