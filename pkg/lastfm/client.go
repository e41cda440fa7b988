package lastfm

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// Config holds client configuration.
type Config struct {
	APIKey     string       // Required: Last.fm API key
	APISecret  string       // Required: Last.fm API secret
	SessionKey string       // Optional: Session key for authenticated requests
	HTTPClient *http.Client // Optional: HTTP client (defaults to http.DefaultClient)
	BaseURL    string       // Optional: API endpoint (defaults to DefaultBaseURL, used for testing)
	AuthURL    string       // Optional: user authorization page (defaults to DefaultAuthURL)
	UserAgent  string       // Optional: User-Agent header (defaults to DefaultUserAgent)
	Logger     Logger       // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the main entry point for Last.fm API operations.
//
// A Client is safe for concurrent use. Each call builds and signs its own
// request; the session key may be swapped while calls are in flight, in
// which case those calls use whichever key they read first.
type Client struct {
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	baseURL    string
	authURL    *url.URL
	userAgent  string
	logger     Logger

	mu         sync.RWMutex
	sessionKey string

	auth  *AuthService
	track *TrackService
	album *AlbumService
	user  *UserService
}

const (
	// DefaultBaseURL is the default Last.fm API endpoint.
	DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

	// DefaultAuthURL is the page where users authorize a request token.
	DefaultAuthURL = "https://www.last.fm/api/auth/"

	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "scrobbled/1.0"
)

// NewClient creates a new Last.fm API client.
//
// Returns an error if required configuration (APIKey, APISecret) is missing
// or AuthURL does not parse.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}
	if cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: APISecret is required", ErrInvalidConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	rawAuthURL := cfg.AuthURL
	if rawAuthURL == "" {
		rawAuthURL = DefaultAuthURL
	}
	authURL, err := url.Parse(rawAuthURL)
	if err != nil || authURL.Scheme == "" || authURL.Host == "" {
		return nil, fmt.Errorf("%w: AuthURL %q is not an absolute URL", ErrInvalidConfig, rawAuthURL)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	c := &Client{
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		sessionKey: cfg.SessionKey,
		httpClient: httpClient,
		baseURL:    baseURL,
		authURL:    authURL,
		userAgent:  userAgent,
		logger:     cfg.Logger,
	}

	c.auth = &AuthService{client: c}
	c.track = &TrackService{client: c}
	c.album = &AlbumService{client: c}
	c.user = &UserService{client: c}

	return c, nil
}

// Auth returns the authentication service.
func (c *Client) Auth() *AuthService {
	return c.auth
}

// Track returns the track service (now playing, scrobbling, track info).
func (c *Client) Track() *TrackService {
	return c.track
}

// Album returns the album service.
func (c *Client) Album() *AlbumService {
	return c.album
}

// User returns the user service.
func (c *Client) User() *UserService {
	return c.user
}

// APIKey returns the configured API key.
func (c *Client) APIKey() string {
	return c.apiKey
}

// SetSessionKey sets the session key for authenticated requests.
// An empty key clears the session.
func (c *Client) SetSessionKey(key string) {
	c.mu.Lock()
	c.sessionKey = key
	c.mu.Unlock()
}

// SessionKey returns the current session key.
func (c *Client) SessionKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionKey
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
