package cmd

import (
	"fmt"
	"os"

	"github.com/jfmyers9/scrobbled/internal/config"
	"github.com/jfmyers9/scrobbled/internal/scrobbler"
	"github.com/jfmyers9/scrobbled/internal/secrets"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scrobbled",
	Short: "Now-playing and scrobble tracker for Last.fm",
	Long: `scrobbled watches your music player and reports to Last.fm.

It runs as a background daemon that follows playback events from Apple Music
(macOS) or any MPRIS player (Linux), sends now-playing updates when a track
starts, and scrobbles the track once half of it (or four minutes) has played.

It also provides commands to query the current track, your recent scrobbles
and the daemon's activity history.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// newScrobbler builds a session-aware Last.fm client backed by the
// credentials file.
func newScrobbler(cfg *config.Config, logger zerolog.Logger) (*scrobbler.Client, error) {
	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("Last.fm API credentials not configured. Run 'scrobbled auth login' first")
	}

	store, err := secrets.NewFileStore("")
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	client, err := scrobbler.New(scrobbler.Config{
		APIKey:    cfg.LastFM.APIKey,
		APISecret: cfg.LastFM.APISecret,
		BaseURL:   cfg.LastFM.BaseURL,
		AuthURL:   cfg.LastFM.AuthURL,
		Secrets:   store,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Last.fm client: %w", err)
	}
	return client, nil
}
