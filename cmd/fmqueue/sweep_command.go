package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fmqueue/internal/logging"
	"fmqueue/internal/retention"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete aged files from the archive and failed directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("prepare directories: %w", err)
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stdout"},
			})
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			sweeper := retention.NewSweeper(logger)
			dirs := []string{cfg.Paths.ArchiveDir, cfg.Paths.FailedDir}

			var result retention.Result
			if force {
				result = sweeper.Force(dirs, cfg.Retention.MaxAgeDays, cfg.StampPath())
			} else {
				result = sweeper.Sweep(dirs, cfg.Retention.MaxAgeDays, cfg.StampPath(), cfg.Retention.MinIntervalDays)
			}

			out := cmd.OutOrStdout()
			if !result.Ran {
				fmt.Fprintln(out, "Sweep skipped; the last sweep is still recent (use --force to override)")
				return nil
			}
			fmt.Fprintf(out, "Sweep removed %d files older than %d days\n", result.Deleted, cfg.Retention.MaxAgeDays)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Sweep even if the minimum interval has not elapsed")
	return cmd
}
