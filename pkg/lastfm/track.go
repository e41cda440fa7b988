package lastfm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// TrackService handles track.* methods.
type TrackService struct {
	client *Client
}

type nowPlayingResponse struct {
	NowPlaying struct {
		IgnoredMessage struct {
			Code    flexInt `json:"code"`
			Message string  `json:"#text"`
		} `json:"ignoredMessage"`
	} `json:"nowplaying"`
}

type scrobbleEntry struct {
	IgnoredMessage struct {
		Code    flexInt `json:"code"`
		Message string  `json:"#text"`
	} `json:"ignoredMessage"`
}

type scrobbleResponse struct {
	Scrobbles struct {
		Scrobble oneOrMany[scrobbleEntry] `json:"scrobble"`
		Attr     struct {
			Accepted flexInt `json:"accepted"`
			Ignored  flexInt `json:"ignored"`
		} `json:"@attr"`
	} `json:"scrobbles"`
}

// UpdateNowPlaying reports track as currently playing
// (track.updateNowPlaying). Requires a session key.
func (s *TrackService) UpdateNowPlaying(ctx context.Context, track Track) error {
	const method = "track.updateNowPlaying"

	if err := validateTrack(track); err != nil {
		return err
	}

	body, err := s.client.call(ctx, method, track.params(), signedSession)
	if err != nil {
		return err
	}

	var resp nowPlayingResponse
	if err := decode(method, body, &resp); err != nil {
		return err
	}
	if code := resp.NowPlaying.IgnoredMessage.Code; code != 0 {
		s.client.logDebugf("lastfm: now playing ignored: %d %s", code, resp.NowPlaying.IgnoredMessage.Message)
	}
	return nil
}

// Scrobble submits a single play of track (track.scrobble). startedAt is
// when playback began, not when the scrobble is sent. Requires a session
// key.
func (s *TrackService) Scrobble(ctx context.Context, track Track, startedAt time.Time) (*ScrobbleResult, error) {
	const method = "track.scrobble"

	if err := validateTrack(track); err != nil {
		return nil, err
	}

	params := track.params()
	params["timestamp"] = strconv.FormatInt(startedAt.Unix(), 10)

	body, err := s.client.call(ctx, method, params, signedSession)
	if err != nil {
		return nil, err
	}

	var resp scrobbleResponse
	if err := decode(method, body, &resp); err != nil {
		return nil, err
	}

	result := &ScrobbleResult{
		Accepted: int(resp.Scrobbles.Attr.Accepted),
		Ignored:  int(resp.Scrobbles.Attr.Ignored),
	}
	if len(resp.Scrobbles.Scrobble) > 0 {
		msg := resp.Scrobbles.Scrobble[0].IgnoredMessage
		result.IgnoredCode = int(msg.Code)
		result.IgnoredMessage = msg.Message
	}
	return result, nil
}

type trackInfoResponse struct {
	Track struct {
		Name     string  `json:"name"`
		URL      string  `json:"url"`
		Duration flexInt `json:"duration"` // milliseconds
		Artist   text    `json:"artist"`
		Album    struct {
			Title  string  `json:"title"`
			Images []Image `json:"image"`
		} `json:"album"`
	} `json:"track"`
}

// GetInfo fetches metadata for a track (track.getInfo). Unsigned.
func (s *TrackService) GetInfo(ctx context.Context, artist, track string) (*TrackInfo, error) {
	const method = "track.getInfo"

	if artist == "" || track == "" {
		return nil, fmt.Errorf("%w: artist and track are required", ErrInvalidConfig)
	}

	body, err := s.client.call(ctx, method, map[string]string{
		"artist":      artist,
		"track":       track,
		"autocorrect": "1",
	}, unsigned)
	if err != nil {
		return nil, err
	}

	var resp trackInfoResponse
	if err := decode(method, body, &resp); err != nil {
		return nil, err
	}

	t := resp.Track
	return &TrackInfo{
		Name:     t.Name,
		Artist:   string(t.Artist),
		Album:    t.Album.Title,
		URL:      t.URL,
		Duration: time.Duration(t.Duration) * time.Millisecond,
		Images:   t.Album.Images,
	}, nil
}

func validateTrack(t Track) error {
	if t.Artist == "" {
		return errors.New("lastfm: artist is required")
	}
	if t.Name == "" {
		return errors.New("lastfm: track name is required")
	}
	return nil
}
