package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jfmyers9/scrobbled/internal/config"
	"github.com/jfmyers9/scrobbled/pkg/lastfm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var recentLimit int

var recentCmd = &cobra.Command{
	Use:   "recent [user]",
	Short: "List recent scrobbles from Last.fm",
	Long: `List the most recent scrobbles of a Last.fm user.

Without a user argument the signed-in user is listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecent,
}

func init() {
	rootCmd.AddCommand(recentCmd)
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "n", 10, "Number of tracks to list")
}

func runRecent(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := newScrobbler(cfg, zerolog.Nop())
	if err != nil {
		return err
	}

	user := client.Username()
	if len(args) > 0 {
		user = args[0]
	}
	if user == "" {
		return fmt.Errorf("no user given and not signed in. Run 'scrobbled auth login' or pass a user")
	}

	tracks, err := client.FetchRecentTracks(ctx, user, recentLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch recent tracks: %w", err)
	}

	if len(tracks) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No recent tracks for %s\n", user)
		return nil
	}

	now := time.Now()
	for _, t := range tracks {
		fmt.Fprintln(cmd.OutOrStdout(), formatRecentTrack(t, now))
	}
	return nil
}

// formatRecentTrack renders one row: when, artist - track, album.
func formatRecentTrack(t lastfm.RecentTrack, now time.Time) string {
	when := "now playing"
	if !t.NowPlaying {
		when = humanize.RelTime(t.PlayedAt, now, "ago", "from now")
	}

	row := padToWidth(when, 16) + "  " + padToWidth(t.Artist+" - "+t.Name, 48)
	if t.Album != "" {
		row += "  " + t.Album
	}
	return row
}
