package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fmqueue/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed payloads from the run journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read run journal: %w", err)
			}

			if asJSON {
				return writeJSON(cmd, historyPayload(entries))
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No processed payloads recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.StartedAt.Local().Format("2006-01-02 15:04:05"),
					entry.OpCode,
					string(entry.Status),
					entry.Message,
					entry.Item,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Operation", "Status", "Message", "Payload"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

type historyEntry struct {
	RunID      string `json:"runId"`
	Item       string `json:"item"`
	Operation  string `json:"operation"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	LogPath    string `json:"logPath,omitempty"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

func historyPayload(entries []journal.Entry) []historyEntry {
	result := make([]historyEntry, 0, len(entries))
	for _, entry := range entries {
		converted := historyEntry{
			RunID:     entry.RunID,
			Item:      entry.Item,
			Operation: entry.OpCode,
			Status:    string(entry.Status),
			Message:   entry.Message,
			LogPath:   entry.LogPath,
			StartedAt: entry.StartedAt.UTC().Format(time.RFC3339),
		}
		if entry.FinishedAt != nil {
			converted.FinishedAt = entry.FinishedAt.UTC().Format(time.RFC3339)
		}
		result = append(result, converted)
	}
	return result
}
