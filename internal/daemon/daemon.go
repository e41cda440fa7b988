package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jfmyers9/scrobbled/internal/activity"
	"github.com/jfmyers9/scrobbled/internal/music"
	"github.com/jfmyers9/scrobbled/internal/progress"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config holds daemon configuration
type Config struct {
	HistoryDB        string        // Path to activity database
	Retention        time.Duration // Activity older than this is pruned on shutdown (0 keeps everything)
	ProgressInterval time.Duration // Progress tracker tick period
	ShutdownTimeout  time.Duration // How long to wait for in-flight requests on shutdown
}

// Daemon connects a playback source to the coordinator
type Daemon struct {
	config      Config
	source      music.Source
	store       *activity.Store
	tracker     *progress.Tracker
	coordinator *Coordinator
	logger      zerolog.Logger
}

// New creates a new Daemon instance
func New(cfg Config, source music.Source, client Scrobbler, logger zerolog.Logger) (*Daemon, error) {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	// Create activity store
	store, err := activity.NewStore(cfg.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity store: %w", err)
	}

	d := &Daemon{
		config: cfg,
		source: source,
		store:  store,
		logger: logger.With().Str("component", "daemon").Logger(),
	}

	d.tracker = progress.New(
		progress.WithInterval(cfg.ProgressInterval),
		progress.WithTickFunc(func(s progress.Snapshot) {
			d.logger.Trace().
				Dur("elapsed", s.Elapsed).
				Dur("duration", s.Duration).
				Msg("Progress")
		}),
	)

	d.coordinator = NewCoordinator(CoordinatorConfig{
		Scrobbler: client,
		Progress:  d.tracker,
		Sink:      activity.MultiSink{activity.NewLogSink(logger), store},
		Logger:    logger,
		OnArtwork: func(s TrackSession, url string) {
			d.logger.Info().
				Str("session", s.ID).
				Str("track", s.Title).
				Str("artwork", url).
				Msg("Artwork found")
		},
	})

	return d, nil
}

// Coordinator returns the daemon's coordinator.
func (d *Daemon) Coordinator() *Coordinator {
	return d.coordinator
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Second signal forces exit
		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	// Run the daemon
	runErr := d.run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	return errors.Join(runErr, d.Shutdown())
}

// run subscribes to the source and feeds the coordinator until ctx is done
func (d *Daemon) run(ctx context.Context) error {
	d.logger.Info().Msg("Starting daemon")

	sub, err := d.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to player events: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	gctx, stop := context.WithCancel(gctx)
	defer stop()

	// Main loop: one goroutine owns all state transitions
	g.Go(func() error {
		defer stop()
		return d.coordinator.Run(gctx, sub.Events())
	})

	// Release the subscription once the loop is done with it
	g.Go(func() error {
		<-gctx.Done()
		return sub.Close()
	})

	err = g.Wait()
	d.logger.Info().Msg("Daemon stopped")
	return err
}

// Shutdown waits for in-flight requests, prunes old activity and closes the store
func (d *Daemon) Shutdown() error {
	d.logger.Info().Msg("Shutting down daemon")

	ctx, cancel := context.WithTimeout(context.Background(), d.config.ShutdownTimeout)
	defer cancel()

	if err := d.coordinator.Shutdown(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("In-flight requests did not finish")
	}
	d.tracker.Reset()

	// Cleanup old records
	if d.config.Retention > 0 {
		deleted, err := d.store.Cleanup(context.Background(), d.config.Retention)
		if err != nil {
			d.logger.Warn().Err(err).Msg("Failed to cleanup activity")
		} else if deleted > 0 {
			d.logger.Info().Int64("deleted", deleted).Msg("Pruned old activity")
		}
	}

	// Close store
	if err := d.store.Close(); err != nil {
		return fmt.Errorf("failed to close activity store: %w", err)
	}

	return nil
}
