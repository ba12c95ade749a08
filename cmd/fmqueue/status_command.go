package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"fmqueue/internal/config"
	"fmqueue/internal/payload"
)

type statusReport struct {
	Queue         []statusQueueItem `json:"queue"`
	NextOperation string            `json:"nextOperation"`
	Count         int               `json:"count"`
	ArchiveCount  int               `json:"archiveCount"`
	FailedCount   int               `json:"failedCount"`
	WorkerBinary  string            `json:"workerBinary"`
	WorkerFound   bool              `json:"workerFound"`
	Notifications bool              `json:"notifications"`
}

type statusQueueItem struct {
	Position  int    `json:"position"`
	Name      string `json:"name"`
	Operation string `json:"operation"`
	Queued    string `json:"queued,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the queued payloads and directory state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report, err := buildStatusReport(cfg)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(out, line)
			}
			if report.Count == 0 {
				fmt.Fprintln(out, statusIndent+"empty")
			} else {
				rows := make([][]string, 0, len(report.Queue))
				for _, item := range report.Queue {
					rows = append(rows, []string{
						fmt.Sprintf("%d", item.Position),
						item.Operation,
						item.Queued,
						item.Name,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Operation", "Queued", "Payload"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			workerKind := statusOK
			workerMsg := report.WorkerBinary
			if !report.WorkerFound {
				workerKind = statusError
				workerMsg = report.WorkerBinary + " (not found)"
			}
			fmt.Fprintln(out, renderStatusLine("Worker", workerKind, workerMsg, colorize))

			notifyKind := statusInfo
			notifyMsg := "disabled"
			if report.Notifications {
				notifyKind = statusOK
				notifyMsg = "enabled"
			}
			fmt.Fprintln(out, renderStatusLine("Notifications", notifyKind, notifyMsg, colorize))
			fmt.Fprintln(out, renderStatusLine("Archive", statusInfo, fmt.Sprintf("%d files", report.ArchiveCount), colorize))

			failedKind := statusOK
			if report.FailedCount > 0 {
				failedKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d files", report.FailedCount), colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func buildStatusReport(cfg *config.Config) (statusReport, error) {
	parser := payload.NewParser(cfg.Queue.PayloadPrefix)
	snap, err := payload.TakeSnapshot(cfg.Paths.InboundDir, parser)
	if err != nil {
		return statusReport{}, fmt.Errorf("scan inbound: %w", err)
	}

	report := statusReport{
		Queue:         make([]statusQueueItem, 0, snap.Count()),
		NextOperation: snap.NextOperation(),
		Count:         snap.Count(),
		WorkerBinary:  cfg.Worker.Binary,
		WorkerFound:   workerResolvable(cfg.Worker.Binary),
		Notifications: cfg.Notifications.Enabled,
	}

	for i, item := range snap.Items() {
		entry := statusQueueItem{
			Position:  i + 1,
			Name:      item.Name,
			Operation: parser.OperationCode(item.Name),
		}
		if parsed, ok := parser.Parse(item.Name); ok {
			if ts, err := parsed.Time(); err == nil {
				entry.Queued = ts.Format("2006-01-02 15:04:05")
			}
		}
		report.Queue = append(report.Queue, entry)
	}

	report.ArchiveCount = countFiles(cfg.Paths.ArchiveDir)
	report.FailedCount = countFiles(cfg.Paths.FailedDir)
	return report, nil
}

func workerResolvable(binary string) bool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return false
	}
	if strings.ContainsRune(binary, os.PathSeparator) {
		_, err := os.Stat(binary)
		return err == nil
	}
	_, err := exec.LookPath(binary)
	return err == nil
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}
	return count
}
