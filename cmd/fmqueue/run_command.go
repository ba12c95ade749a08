package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fmqueue/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var maxPasses int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, deduplicate, and process every queued payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			if cmd.Flags().Changed("max-passes") {
				cfg.Queue.MaxPasses = maxPasses
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := runner.New(cfg).Run(runCtx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s finished in %s\n", summary.RunID, summary.Elapsed.Round(10*time.Millisecond))
			fmt.Fprintf(out, "  fetched:    %d\n", summary.Fetched)
			fmt.Fprintf(out, "  duplicates: %d\n", summary.Duplicates)
			fmt.Fprintf(out, "  processed:  %d (%d succeeded, %d failed)\n",
				summary.Drain.Processed, summary.Drain.Succeeded, summary.Drain.Failed)
			if summary.SweepRan {
				fmt.Fprintf(out, "  swept:      %d aged files\n", summary.SweptFiles)
			}
			fmt.Fprintf(out, "Log: %s\n", summary.LogPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level for this run")
	cmd.Flags().IntVar(&maxPasses, "max-passes", 0, "Cap the number of drain passes (0 uses the configured value)")
	return cmd
}
