package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jfmyers9/scrobbled/internal/config"
	"github.com/jfmyers9/scrobbled/internal/daemon"
	"github.com/jfmyers9/scrobbled/internal/music"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	daemonLogFile  string
	daemonLogLevel string
	daemonDataDir  string
	daemonSource   string
	daemonPlayer   string
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scrobbling daemon",
	Long: `Run the scrobbling daemon that follows your music player and reports to Last.fm.

The daemon will:
- Listen for playback events (Apple Music polling on macOS, MPRIS signals on Linux)
- Send a now-playing update when a new track starts
- Scrobble tracks once they meet the scrobbling threshold (50% or 4 minutes)
- Record every update and scrobble in the activity history
- Handle graceful shutdown on SIGINT/SIGTERM

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	// Command-line flags
	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "Log file path (default: stderr)")
	daemonCmd.Flags().StringVar(&daemonLogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	daemonCmd.Flags().StringVar(&daemonDataDir, "data-dir", "", "Data directory for the activity history (default: $XDG_DATA_HOME/scrobbled)")
	daemonCmd.Flags().StringVar(&daemonSource, "source", "", "Playback source: applescript or mpris (overrides config)")
	daemonCmd.Flags().StringVar(&daemonPlayer, "player", "", "MPRIS player bus name suffix, e.g. spotify (overrides config)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if daemonDataDir != "" {
		cfg.DataDir = daemonDataDir
	}
	if daemonSource != "" {
		cfg.Source = daemonSource
	}
	if daemonPlayer != "" {
		cfg.MPRIS.Player = daemonPlayer
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Set up logging
	logger := setupLogger(daemonLogFile, daemonLogLevel)

	logger.Info().
		Str("version", version).
		Str("source", cfg.Source).
		Msg("Starting scrobbled daemon")

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	logger.Info().Str("data_dir", cfg.DataDir).Msg("Using data directory")

	// Create Last.fm client
	client, err := newScrobbler(cfg, logger)
	if err != nil {
		return err
	}
	if !client.Authenticated() {
		logger.Warn().Msg("Not signed in to Last.fm; tracking playback without reporting. Run 'scrobbled auth login'")
	}

	// Create daemon config
	daemonCfg := daemon.Config{
		HistoryDB:        cfg.DatabasePath(),
		Retention:        cfg.History.Retention(),
		ProgressInterval: cfg.ProgressInterval,
		ShutdownTimeout:  10 * time.Second,
	}

	// Create daemon
	d, err := daemon.New(daemonCfg, newSource(cfg, logger), client, logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	// Run daemon (blocks until shutdown signal)
	if err := d.Run(); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}

	logger.Info().Msg("Daemon stopped")
	return nil
}

// newSource builds the playback event source selected by the config.
func newSource(cfg *config.Config, logger zerolog.Logger) music.Source {
	if cfg.Source == config.SourceAppleScript {
		return music.NewPollingSource(music.NewAppleScriptClient(), cfg.PollInterval, logger)
	}
	return music.NewMPRISSource(cfg.MPRIS.Player, logger)
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	// Parse log level
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	// Create logger
	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
