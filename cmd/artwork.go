package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jfmyers9/scrobbled/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var artworkCmd = &cobra.Command{
	Use:   "artwork ARTIST TRACK [ALBUM]",
	Short: "Look up cover art for a track",
	Long: `Print the URL of the largest cover image Last.fm has for a track.

When the track has no image and an album is given, the album's image is used.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runArtwork,
}

func init() {
	rootCmd.AddCommand(artworkCmd)
}

func runArtwork(cmd *cobra.Command, args []string) error {
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

	var album string
	if len(args) == 3 {
		album = args[2]
	}

	url := client.FetchArtworkURL(ctx, args[0], args[1], album)
	if url == "" {
		return fmt.Errorf("no artwork found for %s - %s", args[0], args[1])
	}

	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}
