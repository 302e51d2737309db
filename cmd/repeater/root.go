package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/repeater/internal/app"
)

// version is set at build time.
var version = "dev"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	apiURL     string
	prefsPath  string
	poll       time.Duration
	jsonOut    bool

	streams streams
}

func (o *rootOptions) appOptions() app.Options {
	return app.Options{
		ConfigPath: o.configPath,
		PrefsPath:  o.prefsPath,
		APIURL:     o.apiURL,
		PollEvery:  o.poll,
	}
}

// withRuntime boots the runtime for a one-shot command and releases it
// afterwards.
func (o *rootOptions) withRuntime(cmd *cobra.Command, fn func(rt *app.Runtime) error) error {
	rt, err := app.Bootstrap(cmd.Context(), o.appOptions())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	return fn(rt)
}

func (o *rootOptions) writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd(s streams) *cobra.Command {
	opts := &rootOptions{streams: s}

	root := &cobra.Command{
		Use:   "repeater",
		Short: "Spaced-repetition flashcards in the terminal",
		Long: `repeater is a terminal client for the Repeater flashcard service.

Run without arguments to open the interactive interface. The subcommands
cover sign-in and quick one-shot queries.

Examples:
  # Sign in, then review due cards
  repeater login --email me@example.com
  repeater

  # List the cards that are due in one deck
  repeater cards --deck <deck-id> --due

  # Use a different backend
  repeater --api-url https://repeater.example.com decks`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts.appOptions())
		},
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.err)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/repeater/config.toml)")
	flags.StringVar(&opts.apiURL, "api-url", "", "backend base URL, overrides api_url from config")
	flags.StringVar(&opts.prefsPath, "prefs", "", "preferences file (default ~/.config/repeater/prefs.toml)")
	flags.BoolVar(&opts.jsonOut, "json", false, "print results as JSON")
	root.Flags().DurationVar(&opts.poll, "poll", 0, "due-card refresh interval (default from config)")

	root.AddCommand(
		newTUICmd(opts),
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newLogoutCmd(opts),
		newDecksCmd(opts),
		newCardsCmd(opts),
		newReviewCmd(opts),
		newStatsCmd(opts),
		newExportCmd(opts),
		newLogsCmd(opts),
	)
	return root
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive interface (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts.appOptions())
		},
	}
	cmd.Flags().DurationVar(&opts.poll, "poll", 0, "due-card refresh interval (default from config)")
	return cmd
}

func requireSignedIn(cmd *cobra.Command, rt *app.Runtime) error {
	if !rt.SignedIn(cmd.Context()) {
		return fmt.Errorf("not signed in: run `repeater login`")
	}
	return nil
}
