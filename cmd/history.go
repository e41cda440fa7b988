package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jfmyers9/scrobbled/internal/activity"
	"github.com/jfmyers9/scrobbled/internal/config"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the daemon's recent activity",
	Long: `Show the now-playing updates and scrobbles the daemon has sent, newest first,
followed by totals. Failed requests include the error Last.fm returned.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of records to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := activity.NewStore(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open activity store: %w", err)
	}
	defer store.Close()

	return printHistory(ctx, cmd.OutOrStdout(), store, historyLimit, time.Now())
}

// printHistory writes the latest records and the scrobble totals.
func printHistory(ctx context.Context, w io.Writer, store *activity.Store, limit int, now time.Time) error {
	records, err := store.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read activity: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No activity recorded yet")
		return nil
	}

	for _, r := range records {
		fmt.Fprintln(w, formatRecord(r, now))
	}

	scrobbled, err := store.Count(ctx, activity.KindScrobble, activity.StatusOK)
	if err != nil {
		return fmt.Errorf("failed to count scrobbles: %w", err)
	}
	failed, err := store.Count(ctx, activity.KindScrobble, activity.StatusFailed)
	if err != nil {
		return fmt.Errorf("failed to count scrobbles: %w", err)
	}

	fmt.Fprintf(w, "\n%s scrobbled, %s failed\n", humanize.Comma(int64(scrobbled)), humanize.Comma(int64(failed)))
	return nil
}

// formatRecord renders one row: when, kind, status, artist - track, error.
func formatRecord(r activity.Record, now time.Time) string {
	row := padToWidth(humanize.RelTime(r.CreatedAt, now, "ago", "from now"), 16) + "  " +
		padToWidth(string(r.Kind), 10) + "  " +
		padToWidth(string(r.Status), 6) + "  " +
		padToWidth(r.Artist+" - "+r.Track, 48)
	if r.Extra != "" {
		row += "  " + r.Extra
	}
	return row
}
