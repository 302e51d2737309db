package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/repeater/internal/app"
	"github.com/five82/repeater/internal/mutation"
	"github.com/five82/repeater/internal/repeater"
	"github.com/five82/repeater/internal/stats"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func newDecksCmd(opts *rootOptions) *cobra.Command {
	var archived bool
	cmd := &cobra.Command{
		Use:   "decks",
		Short: "List decks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withRuntime(cmd, func(rt *app.Runtime) error {
				if err := requireSignedIn(cmd, rt); err != nil {
					return err
				}
				decks, err := rt.Client.ListDecks(cmd.Context(), repeater.DeckFilter{Archived: archived})
				if err != nil {
					return fmt.Errorf("list decks: %w", err)
				}
				if opts.jsonOut {
					return opts.writeJSON(cmd.OutOrStdout(), decks)
				}
				return printDecks(cmd.OutOrStdout(), decks)
			})
		},
	}
	cmd.Flags().BoolVar(&archived, "archived", false, "list archived decks instead")
	return cmd
}

func printDecks(w io.Writer, decks []repeater.Deck) error {
	if len(decks) == 0 {
		_, err := fmt.Fprintln(w, "No decks found.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tSTATE\tDESCRIPTION")
	for _, d := range decks {
		state := "active"
		switch {
		case d.IsArchived:
			state = "archived"
		case d.IsPaused:
			state = "paused"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Name, state, firstLine(d.Description, 50))
	}
	return tw.Flush()
}

func newCardsCmd(opts *rootOptions) *cobra.Command {
	var (
		deckID  string
		dueOnly bool
	)
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "List cards",
		Long: `List cards across all decks, or in one deck.

Examples:
  # Every card that is due now
  repeater cards --due

  # All cards of one deck
  repeater cards --deck <deck-id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if deckID != "" {
				id, err := repeater.ParseID("deck", deckID)
				if err != nil {
					return err
				}
				deckID = id
			}
			return opts.withRuntime(cmd, func(rt *app.Runtime) error {
				if err := requireSignedIn(cmd, rt); err != nil {
					return err
				}
				filter := repeater.CardFilter{DeckID: deckID, OnlyDue: dueOnly}
				if dueOnly {
					filter.ExcludeArchived = true
					filter.ExcludePaused = true
				}
				cards, err := rt.Client.ListCards(cmd.Context(), filter)
				if err != nil {
					return fmt.Errorf("list cards: %w", err)
				}
				if opts.jsonOut {
					return opts.writeJSON(cmd.OutOrStdout(), cards)
				}
				return printCards(cmd.OutOrStdout(), cards, time.Now())
			})
		},
	}
	cmd.Flags().StringVar(&deckID, "deck", "", "only cards of this deck")
	cmd.Flags().BoolVar(&dueOnly, "due", false, "only cards that are due")
	return cmd
}

func printCards(w io.Writer, cards []repeater.Card, now time.Time) error {
	if len(cards) == 0 {
		_, err := fmt.Fprintln(w, "No cards found.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDECK\tNEXT REVIEW\tFRONT")
	for _, c := range cards {
		next := "-"
		if t := c.ParsedNextReview(); !t.IsZero() {
			next = t.Local().Format("2006-01-02")
			if c.Overdue || !t.After(now) {
				next += " (due)"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.DeckName, next, firstLine(c.Front(), 60))
	}
	return tw.Flush()
}

func newReviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "review <card-id> <ok|forgot|skipped>",
		Short: "Record a review for a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cardID, err := repeater.ParseID("card", args[0])
			if err != nil {
				return err
			}
			feedback, err := repeater.ParseFeedback(args[1])
			if err != nil {
				return err
			}
			return opts.withRuntime(cmd, func(rt *app.Runtime) error {
				if err := requireSignedIn(cmd, rt); err != nil {
					return err
				}
				res := rt.Mutations.Run(cmd.Context(), mutation.SubmitReview{CardID: cardID, Feedback: feedback})
				if res.Err != nil {
					return fmt.Errorf("submit review: %w", res.Err)
				}
				if opts.jsonOut {
					return opts.writeJSON(cmd.OutOrStdout(), res.Value)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s for card %s\n", feedback, cardID)
				return nil
			})
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var deckID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show review statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if deckID != "" {
				id, err := repeater.ParseID("deck", deckID)
				if err != nil {
					return err
				}
				deckID = id
			}
			return opts.withRuntime(cmd, func(rt *app.Runtime) error {
				if err := requireSignedIn(cmd, rt); err != nil {
					return err
				}
				var (
					st  *repeater.Statistics
					err error
				)
				if deckID != "" {
					st, err = rt.Client.DeckStatistics(cmd.Context(), deckID)
				} else {
					st, err = rt.Client.UserStatistics(cmd.Context())
				}
				if err != nil {
					return fmt.Errorf("load statistics: %w", err)
				}
				if opts.jsonOut {
					return opts.writeJSON(cmd.OutOrStdout(), st)
				}
				return printStats(cmd.OutOrStdout(), st)
			})
		},
	}
	cmd.Flags().StringVar(&deckID, "deck", "", "statistics for one deck")
	return cmd
}

func printStats(w io.Writer, st *repeater.Statistics) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Streak\t%s\n", stats.Streak(st.Streak))
	fmt.Fprintf(tw, "Reviews\t%d\n", st.TotalReviews)
	fmt.Fprintf(tw, "Success\t%s\n", stats.Percent(st.SuccessRate))
	fmt.Fprintf(tw, "Retention\t%s\n", stats.Percent(st.RetentionRate))
	if err := tw.Flush(); err != nil {
		return err
	}

	decks := stats.SortDecks(st.DeckStatistics)
	if len(decks) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "DECK\tREVIEWS\tRETENTION\tLAST STUDIED\tDIFFICULTY")
	for _, d := range decks {
		last := d.LastStudied
		if last == "" {
			last = "never"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", d.DeckName, d.TotalReviews, stats.Percent(d.RetentionRate), last, d.DifficultyRanking)
	}
	return tw.Flush()
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export <deck-id>",
		Short: "Download a deck export",
		Long: `Download a deck export file. The file name comes from the server; the
file is written to the exports folder of the data directory unless -o is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deckID, err := repeater.ParseID("deck", args[0])
			if err != nil {
				return err
			}
			return opts.withRuntime(cmd, func(rt *app.Runtime) error {
				if err := requireSignedIn(cmd, rt); err != nil {
					return err
				}
				export, err := rt.Client.ExportDeck(cmd.Context(), deckID)
				if err != nil {
					return fmt.Errorf("export deck: %w", err)
				}
				target := dir
				if target == "" {
					target = rt.Config.ExportDir()
				}
				path, err := repeater.SaveExport(target, export)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", "", "directory to write the export to")
	return cmd
}

// firstLine returns the first line of s cut to limit runes.
func firstLine(s string, limit int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
