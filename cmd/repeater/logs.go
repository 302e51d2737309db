package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/five82/repeater/internal/config"
	"github.com/five82/repeater/internal/logtail"
)

func newLogsCmd(opts *rootOptions) *cobra.Command {
	var (
		lines int
		level string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent entries from the client log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			minLevel, err := zapcore.ParseLevel(level)
			if err != nil {
				return fmt.Errorf("invalid --level %q: %w", level, err)
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			entries, err := logtail.Tail(cfg.LogFile, logtail.Options{Lines: lines, MinLevel: minLevel})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return opts.writeJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "No log entries in %s\n", cfg.LogFile)
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(out, e.Format())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of entries to show (0 for all)")
	cmd.Flags().StringVar(&level, "level", "info", "minimum level: debug, info, warn, error")
	return cmd
}
