package lastfm

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// UserService handles user.* methods.
type UserService struct {
	client *Client
}

type recentTrackEntry struct {
	Artist text    `json:"artist"`
	Name   string  `json:"name"`
	Album  text    `json:"album"`
	URL    string  `json:"url"`
	Images []Image `json:"image"`
	Date   struct {
		UTS flexInt `json:"uts"`
	} `json:"date"`
	Attr struct {
		NowPlaying flexBool `json:"nowplaying"`
	} `json:"@attr"`
}

type recentTracksResponse struct {
	RecentTracks struct {
		Track oneOrMany[recentTrackEntry] `json:"track"`
	} `json:"recenttracks"`
}

// GetRecentTracks lists the most recent plays of user
// (user.getRecentTracks). A limit of zero uses the server default.
// Unsigned; no session key is needed.
func (s *UserService) GetRecentTracks(ctx context.Context, user string, limit int) ([]RecentTrack, error) {
	const method = "user.getRecentTracks"

	if user == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidConfig)
	}

	params := map[string]string{"user": user}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	body, err := s.client.call(ctx, method, params, unsigned)
	if err != nil {
		return nil, err
	}

	var resp recentTracksResponse
	if err := decode(method, body, &resp); err != nil {
		return nil, err
	}

	tracks := make([]RecentTrack, 0, len(resp.RecentTracks.Track))
	for _, e := range resp.RecentTracks.Track {
		rt := RecentTrack{
			Artist:     string(e.Artist),
			Name:       e.Name,
			Album:      string(e.Album),
			URL:        e.URL,
			Images:     e.Images,
			NowPlaying: bool(e.Attr.NowPlaying),
		}
		if e.Date.UTS > 0 {
			rt.PlayedAt = time.Unix(int64(e.Date.UTS), 0)
		}
		tracks = append(tracks, rt)
	}
	return tracks, nil
}
