package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jfmyers9/scrobbled/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Last.fm session",
	Long: `Sign in to Last.fm, sign out, or show the current session.

The API key and secret are stored in the config file. The session key and
username are stored separately in an owner-only credentials file.

You can get API credentials from: https://www.last.fm/api/account/create`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with Last.fm",
	Long: `Authenticate with Last.fm to enable scrobbling.

This command will guide you through the Last.fm authentication process:
1. You'll be prompted to enter your Last.fm API key and secret
2. A browser URL will be provided for you to authorize the application
3. After authorization, the session is saved to your credentials file`,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the Last.fm session",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the signed-in Last.fm user",
	RunE:  runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)
	out := cmd.OutOrStdout()

	// Load existing config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Step 1: Get API credentials
	fmt.Fprintln(out, "Last.fm Authentication")
	fmt.Fprintln(out, "======================")
	fmt.Fprintln(out)

	// Check if we already have credentials
	if cfg.HasCredentials() {
		fmt.Fprintf(out, "Found existing API credentials.\n")
		fmt.Fprintf(out, "API Key: %s\n", cfg.LastFM.APIKey)
		fmt.Fprint(out, "\nUse existing credentials? [Y/n]: ")
		if !confirm(reader) {
			cfg.LastFM.APIKey = ""
			cfg.LastFM.APISecret = ""
		}
	}

	// Prompt for API key if not set
	if cfg.LastFM.APIKey == "" {
		fmt.Fprint(out, "Enter your Last.fm API Key: ")
		apiKey, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		cfg.LastFM.APIKey = strings.TrimSpace(apiKey)
	}

	// Prompt for API secret if not set
	if cfg.LastFM.APISecret == "" {
		fmt.Fprint(out, "Enter your Last.fm API Secret: ")
		apiSecret, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API secret: %w", err)
		}
		cfg.LastFM.APISecret = strings.TrimSpace(apiSecret)
	}

	// Validate inputs
	if !cfg.HasCredentials() {
		return fmt.Errorf("API key and secret are required")
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	// Step 2: Create client and get auth token
	client, err := newScrobbler(cfg, zerolog.Nop())
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nGenerating authentication token...")
	token, err := client.RequestToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate auth token: %w", err)
	}

	// Step 3: Direct user to authorize
	fmt.Fprintln(out, "\nPlease visit this URL to authorize scrobbled:")
	fmt.Fprintf(out, "\n  %s\n\n", client.AuthURL(token))
	fmt.Fprintln(out, "After authorizing, press Enter to continue...")
	_, _ = reader.ReadString('\n')

	// Step 4: Exchange the approved token for a session
	fmt.Fprintln(out, "Retrieving session key...")
	if err := client.ExchangeSession(ctx, token); err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	fmt.Fprintf(out, "\n✓ Authenticated as %s\n", client.Username())
	fmt.Fprintf(out, "✓ Config saved to %s/config.yaml\n", config.GetConfigDir())
	fmt.Fprintln(out, "\nYou can now use 'scrobbled daemon' to start scrobbling.")

	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := newScrobbler(cfg, zerolog.Nop())
	if err != nil {
		return err
	}

	user := client.Username()
	client.SignOut()

	if user == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed out %s\n", user)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	if !cfg.HasCredentials() {
		fmt.Fprintln(out, "API credentials: not configured")
		return nil
	}
	fmt.Fprintf(out, "API key: %s\n", cfg.LastFM.APIKey)

	client, err := newScrobbler(cfg, zerolog.Nop())
	if err != nil {
		return err
	}

	if !client.Authenticated() {
		fmt.Fprintln(out, "Session: not signed in")
		return nil
	}
	fmt.Fprintf(out, "Session: signed in as %s\n", client.Username())
	return nil
}

// confirm reads a yes/no answer where an empty answer means yes.
func confirm(reader *bufio.Reader) bool {
	response, err := reader.ReadString('\n')
	if err != nil {
		return true
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "" || response == "y" || response == "yes"
}
