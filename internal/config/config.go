package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "scrobbled"

// Playback event sources.
const (
	SourceAppleScript = "applescript"
	SourceMPRIS       = "mpris"
)

// Config holds application configuration
type Config struct {
	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Name}}"
	OutputFormat string

	// Pad or truncate now output to this many columns (0 = no padding)
	OutputWidth int

	// Playback event source: "applescript" or "mpris"
	Source string

	// Poll interval for the AppleScript source
	PollInterval time.Duration

	// Tick period for the progress tracker
	ProgressInterval time.Duration

	// Directory holding the activity database
	DataDir string

	// Last.fm API credentials and endpoints
	LastFM LastFMConfig

	MPRIS MPRISConfig

	History HistoryConfig
}

// LastFMConfig holds Last.fm specific configuration.
// The session key is kept in the secret store, not here.
type LastFMConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	AuthURL   string
}

// MPRISConfig selects the D-Bus media player.
type MPRISConfig struct {
	// Bus name suffix after org.mpris.MediaPlayer2., e.g. "spotify".
	// Empty follows any player.
	Player string
}

// HistoryConfig controls activity retention.
type HistoryConfig struct {
	RetentionDays int
}

// Retention returns the history retention as a duration.
func (h HistoryConfig) Retention() time.Duration {
	return time.Duration(h.RetentionDays) * 24 * time.Hour
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := newViper()

	// Read config file (optional - don't fail if missing)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		OutputFormat:     v.GetString("output_format"),
		OutputWidth:      v.GetInt("output_width"),
		Source:           v.GetString("source"),
		PollInterval:     time.Duration(v.GetInt("poll_interval")) * time.Second,
		ProgressInterval: time.Duration(v.GetInt("progress_interval")) * time.Millisecond,
		DataDir:          v.GetString("data_dir"),
		LastFM: LastFMConfig{
			APIKey:    v.GetString("lastfm.api_key"),
			APISecret: v.GetString("lastfm.api_secret"),
			BaseURL:   v.GetString("lastfm.base_url"),
			AuthURL:   v.GetString("lastfm.auth_url"),
		},
		MPRIS: MPRISConfig{
			Player: v.GetString("mpris.player"),
		},
		History: HistoryConfig{
			RetentionDays: v.GetInt("history.retention_days"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newViper builds a viper instance with paths, defaults and env binding.
func newViper() *viper.Viper {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	v.AddConfigPath(GetConfigDir())
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("output_format", "{{.Artist}} - {{.Name}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("source", defaultSource())
	v.SetDefault("poll_interval", 3)
	v.SetDefault("progress_interval", 500)
	v.SetDefault("data_dir", filepath.Join(xdg.DataHome, appName))
	v.SetDefault("lastfm.api_key", "")
	v.SetDefault("lastfm.api_secret", "")
	v.SetDefault("lastfm.base_url", "https://ws.audioscrobbler.com/2.0/")
	v.SetDefault("lastfm.auth_url", "https://www.last.fm/api/auth/")
	v.SetDefault("mpris.player", "")
	v.SetDefault("history.retention_days", 30)

	// Read from environment variables: SCROBBLED_LASTFM_API_KEY etc.
	v.SetEnvPrefix("SCROBBLED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// defaultSource picks the event source native to the running OS.
func defaultSource() string {
	if runtime.GOOS == "darwin" {
		return SourceAppleScript
	}
	return SourceMPRIS
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceAppleScript, SourceMPRIS:
	default:
		return fmt.Errorf("invalid source %q: must be %q or %q", c.Source, SourceAppleScript, SourceMPRIS)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress_interval must be positive")
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must not be negative")
	}
	return nil
}

// HasCredentials reports whether the Last.fm API key and secret are set.
func (c *Config) HasCredentials() bool {
	return c.LastFM.APIKey != "" && c.LastFM.APISecret != ""
}

// DatabasePath returns the activity database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "activity.db")
}

// GetConfigDir returns the configuration directory path.
// Creates the directory if it doesn't exist
func GetConfigDir() string {
	configDir := filepath.Join(xdg.ConfigHome, appName)

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	configFile := filepath.Join(GetConfigDir(), "config.yaml")

	// Set values in viper
	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("source", c.Source)
	v.Set("poll_interval", int(c.PollInterval/time.Second))
	v.Set("progress_interval", int(c.ProgressInterval/time.Millisecond))
	v.Set("data_dir", c.DataDir)
	v.Set("lastfm.api_key", c.LastFM.APIKey)
	v.Set("lastfm.api_secret", c.LastFM.APISecret)
	v.Set("lastfm.base_url", c.LastFM.BaseURL)
	v.Set("lastfm.auth_url", c.LastFM.AuthURL)
	v.Set("mpris.player", c.MPRIS.Player)
	v.Set("history.retention_days", c.History.RetentionDays)

	// Write to file
	return v.WriteConfigAs(configFile)
}
