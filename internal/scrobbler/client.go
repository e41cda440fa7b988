package scrobbler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jfmyers9/scrobbled/internal/secrets"
	"github.com/jfmyers9/scrobbled/pkg/lastfm"
	"github.com/rs/zerolog"
)

// Secret store account names.
const (
	AccountSessionKey = "lastfm.session_key"
	AccountUsername   = "lastfm.username"
)

// Config configures a Client.
type Config struct {
	APIKey     string
	APISecret  string
	BaseURL    string       // optional; Last.fm 2.0 endpoint by default
	AuthURL    string       // optional; Last.fm auth page by default
	HTTPClient *http.Client // optional
	Secrets    secrets.Store
	Logger     zerolog.Logger
}

// Client wraps the Last.fm API client with session state: the session key
// and username are restored from and persisted to the secret store.
type Client struct {
	api     *lastfm.Client
	secrets secrets.Store
	logger  zerolog.Logger
	artwork *artworkCache

	mu       sync.RWMutex
	username string
}

// New creates a client and restores any persisted session.
func New(cfg Config) (*Client, error) {
	if cfg.Secrets == nil {
		return nil, errors.New("scrobbler: secret store is required")
	}

	logger := cfg.Logger.With().Str("component", "scrobbler").Logger()

	api, err := lastfm.NewClient(lastfm.Config{
		APIKey:     cfg.APIKey,
		APISecret:  cfg.APISecret,
		BaseURL:    cfg.BaseURL,
		AuthURL:    cfg.AuthURL,
		HTTPClient: cfg.HTTPClient,
		Logger:     zerologAdapter{logger: logger},
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		api:     api,
		secrets: cfg.Secrets,
		logger:  logger,
		artwork: newArtworkCache(),
	}
	c.restore()
	return c, nil
}

// restore loads the persisted session, if any. A half-written session
// (key without username or the reverse) is ignored.
func (c *Client) restore() {
	key, err := c.secrets.Get(AccountSessionKey)
	if err != nil {
		if !errors.Is(err, secrets.ErrNotFound) {
			c.logger.Warn().Err(err).Msg("Failed to read session key")
		}
		return
	}
	username, err := c.secrets.Get(AccountUsername)
	if err != nil {
		if !errors.Is(err, secrets.ErrNotFound) {
			c.logger.Warn().Err(err).Msg("Failed to read username")
		}
		return
	}

	c.api.SetSessionKey(key)
	c.mu.Lock()
	c.username = username
	c.mu.Unlock()

	c.logger.Debug().Str("user", username).Msg("Restored session")
}

// Authenticated reports whether a session key is set.
func (c *Client) Authenticated() bool {
	return c.api.SessionKey() != ""
}

// Username returns the signed-in user, or "".
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// RequestToken starts the authentication handshake. The token must be
// approved by the user at AuthURL(token) before ExchangeSession.
func (c *Client) RequestToken(ctx context.Context) (string, error) {
	return c.api.Auth().GetToken(ctx)
}

// AuthURL returns the page where the user approves token.
func (c *Client) AuthURL(token string) *url.URL {
	return c.api.Auth().AuthURL(token)
}

// ExchangeSession trades an approved token for a session and persists it.
// If persisting fails the session stays active in memory and the error is
// returned.
func (c *Client) ExchangeSession(ctx context.Context, token string) error {
	session, err := c.api.Auth().GetSession(ctx, token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.username = session.Name
	c.mu.Unlock()

	c.logger.Info().Str("user", session.Name).Msg("Authenticated with Last.fm")

	if err := c.secrets.Set(session.Key, AccountSessionKey); err != nil {
		return fmt.Errorf("failed to persist session key: %w", err)
	}
	if err := c.secrets.Set(session.Name, AccountUsername); err != nil {
		return fmt.Errorf("failed to persist username: %w", err)
	}
	return nil
}

// SignOut clears the session in memory and in the secret store. It is
// idempotent and never fails; delete errors are logged.
func (c *Client) SignOut() {
	c.api.SetSessionKey("")
	c.mu.Lock()
	c.username = ""
	c.mu.Unlock()

	for _, account := range []string{AccountSessionKey, AccountUsername} {
		if err := c.secrets.Delete(account); err != nil {
			c.logger.Warn().Err(err).Str("account", account).Msg("Failed to delete credential")
		}
	}
}

// UpdateNowPlaying sends a now-playing notification. It does nothing when
// not authenticated.
func (c *Client) UpdateNowPlaying(ctx context.Context, artist, track, album string, duration time.Duration) error {
	if !c.Authenticated() {
		return nil
	}

	return c.api.Track().UpdateNowPlaying(ctx, lastfm.Track{
		Artist:   artist,
		Name:     track,
		Album:    album,
		Duration: duration,
	})
}

// SubmitScrobble scrobbles a track that started playing at startedAt. It
// does nothing when not authenticated. A scrobble Last.fm ignores is
// reported as an error.
func (c *Client) SubmitScrobble(ctx context.Context, artist, track, album string, startedAt time.Time, duration time.Duration) error {
	if !c.Authenticated() {
		return nil
	}

	result, err := c.api.Track().Scrobble(ctx, lastfm.Track{
		Artist:   artist,
		Name:     track,
		Album:    album,
		Duration: duration,
	}, startedAt)
	if err != nil {
		return err
	}

	if result.Ignored > 0 {
		return fmt.Errorf("scrobble was ignored: %s", result.IgnoredMessage)
	}
	return nil
}

// FetchRecentTracks lists the recent plays of username. It does not need a
// session.
func (c *Client) FetchRecentTracks(ctx context.Context, username string, limit int) ([]lastfm.RecentTrack, error) {
	return c.api.User().GetRecentTracks(ctx, username, limit)
}

// FetchArtworkURL looks up cover art for a track, falling back to the album
// when the track has none. It returns "" on any failure.
func (c *Client) FetchArtworkURL(ctx context.Context, artist, track, album string) string {
	key := artist + "|" + track + "|" + album
	if u, ok := c.artwork.get(key); ok {
		return u
	}

	u := c.lookupArtwork(ctx, artist, track, album)
	if ctx.Err() == nil {
		// Cache misses too, unless the lookup was cut short.
		c.artwork.put(key, u)
	}
	return u
}

func (c *Client) lookupArtwork(ctx context.Context, artist, track, album string) string {
	info, err := c.api.Track().GetInfo(ctx, artist, track)
	if err != nil {
		c.logger.Debug().Err(err).Str("track", track).Msg("Track artwork lookup failed")
	} else if u := lastfm.BestImage(info.Images); u != "" {
		return u
	}

	if album == "" {
		return ""
	}

	albumInfo, err := c.api.Album().GetInfo(ctx, artist, album)
	if err != nil {
		c.logger.Debug().Err(err).Str("album", album).Msg("Album artwork lookup failed")
		return ""
	}
	return lastfm.BestImage(albumInfo.Images)
}

// zerologAdapter satisfies lastfm.Logger.
type zerologAdapter struct {
	logger zerolog.Logger
}

func (z zerologAdapter) Debugf(format string, args ...interface{}) {
	z.logger.Debug().Msgf(format, args...)
}
