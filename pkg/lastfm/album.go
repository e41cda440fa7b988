package lastfm

import (
	"context"
	"fmt"
)

// AlbumService handles album.* methods.
type AlbumService struct {
	client *Client
}

type albumInfoResponse struct {
	Album struct {
		Name   string  `json:"name"`
		Artist text    `json:"artist"`
		URL    string  `json:"url"`
		Images []Image `json:"image"`
	} `json:"album"`
}

// GetInfo fetches metadata for an album (album.getInfo). Unsigned.
func (s *AlbumService) GetInfo(ctx context.Context, artist, album string) (*AlbumInfo, error) {
	const method = "album.getInfo"

	if artist == "" || album == "" {
		return nil, fmt.Errorf("%w: artist and album are required", ErrInvalidConfig)
	}

	body, err := s.client.call(ctx, method, map[string]string{
		"artist":      artist,
		"album":       album,
		"autocorrect": "1",
	}, unsigned)
	if err != nil {
		return nil, err
	}

	var resp albumInfoResponse
	if err := decode(method, body, &resp); err != nil {
		return nil, err
	}

	a := resp.Album
	return &AlbumInfo{
		Name:   a.Name,
		Artist: string(a.Artist),
		URL:    a.URL,
		Images: a.Images,
	}, nil
}
