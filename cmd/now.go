package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/jfmyers9/scrobbled/internal/config"
	"github.com/jfmyers9/scrobbled/internal/music"
	"github.com/jfmyers9/scrobbled/internal/progress"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the currently playing track",
	Long: `Query the configured player and display the currently playing track.

The output format can be customized in ~/.config/scrobbled/config.yaml
using a Go template. Available fields: .Name, .Artist, .Album, .Player,
.Duration, .Elapsed, .Remaining, .Fraction. The clock function renders a
duration as m:ss, e.g. {{clock .Elapsed}}.

Exit codes:
  0 - Track is currently playing
  1 - No track playing, paused, or player not running`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	// Add format flag to override config
	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	// Add width flag to set fixed output width
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
}

// nowTrack is the template data of the now command.
type nowTrack struct {
	Name      string
	Artist    string
	Album     string
	Player    string
	Duration  time.Duration
	Elapsed   time.Duration
	Remaining time.Duration
	Fraction  float64
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Check for format flag override
	formatFlag, _ := cmd.Flags().GetString("format")
	if formatFlag != "" {
		cfg.OutputFormat = formatFlag
	}

	// Get current track
	ev, err := currentEvent(ctx, cfg)
	if err != nil {
		// If the player is not running or other error, exit with code 1
		return fmt.Errorf("failed to get current track: %w", err)
	}

	// If not playing, exit with code 1
	if ev.State != music.StatePlaying {
		os.Exit(1)
		return nil
	}

	// Format and print output
	output, err := formatTrack(newNowTrack(ev), cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	// Apply width padding if requested
	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}
	output = padToWidth(output, width)

	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

// currentEvent reads one event from the configured source.
func currentEvent(ctx context.Context, cfg *config.Config) (music.Event, error) {
	if cfg.Source == config.SourceAppleScript {
		n, err := music.NewAppleScriptClient().Snapshot(ctx)
		if err != nil {
			return music.Event{}, err
		}
		return music.Normalize(n), nil
	}

	// MPRIS emits the player's current state right after subscribing.
	sub, err := music.NewMPRISSource(cfg.MPRIS.Player, zerolog.Nop()).Subscribe(ctx)
	if err != nil {
		return music.Event{}, err
	}
	defer sub.Close()

	select {
	case ev, ok := <-sub.Events():
		if !ok {
			return music.Event{}, fmt.Errorf("no MPRIS player found")
		}
		return ev, nil
	case <-ctx.Done():
		return music.Event{}, fmt.Errorf("no MPRIS player found: %w", ctx.Err())
	}
}

// newNowTrack derives the progress fields of ev.
func newNowTrack(ev music.Event) nowTrack {
	tracker := progress.New()
	tracker.SetTrack(ev.Duration, ev.Position, false)
	snap := tracker.Snapshot()

	return nowTrack{
		Name:      ev.Title,
		Artist:    ev.Artist,
		Album:     ev.Album,
		Player:    ev.Player,
		Duration:  snap.Duration,
		Elapsed:   snap.Elapsed,
		Remaining: snap.Remaining(),
		Fraction:  snap.Fraction(),
	}
}

// formatTrack applies the template to the track data
func formatTrack(track nowTrack, templateStr string) (string, error) {
	tmpl, err := template.New("output").
		Funcs(template.FuncMap{"clock": formatClock}).
		Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, track); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// formatClock renders d as m:ss, or h:mm:ss from one hour.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text // no padding requested
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			// If width is too small, just return ellipsis truncated to width
			return runewidth.Truncate(ellipsis, width, "")
		}

		// Truncate to (width - ellipsisWidth) and add ellipsis
		result := runewidth.Truncate(text, width-ellipsisWidth, "") + ellipsis

		// Wide runes can leave the result one column short
		if resultWidth := runewidth.StringWidth(result); resultWidth < width {
			return result + strings.Repeat(" ", width-resultWidth)
		}
		return result
	} else if currentWidth < width {
		// Pad with spaces
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text // exactly the right width
}
