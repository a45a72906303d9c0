package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/richhaase/docs-build-filter/internal/domain"
	"github.com/richhaase/docs-build-filter/internal/state"
	"github.com/richhaase/docs-build-filter/internal/terminal"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool
	var follow bool
	var statusStateDir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the most recent build snapshot",
		Long:  "Render the snapshot written by a dbf run with --share-state: build status, issues, and how stale the record is.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !terminal.IsStdoutTTY() || os.Getenv("NO_COLOR") != "" {
				terminal.DisableColors()
			}

			path, ok := state.FindSnapshot(statusStateDir)
			if !ok {
				return fmt.Errorf("no build state found; run dbf with --share-state first")
			}

			if follow {
				return followSnapshot(path, asJSON)
			}
			return printSnapshot(path, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw snapshot JSON")
	cmd.Flags().BoolVar(&follow, "follow", false, "Keep watching and re-render when the snapshot changes")
	cmd.Flags().StringVar(&statusStateDir, "state-dir", "", "Directory the snapshot was written to (default: per-project temp dir)")

	return cmd
}

func printSnapshot(path string, asJSON bool) error {
	if asJSON {
		// Parse first so a corrupt file fails loudly instead of dumping garbage.
		if _, err := state.ReadSnapshot(path); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read state file: %w", err)
		}
		fmt.Printf("%s\n", data)
		return nil
	}

	snap, err := state.ReadSnapshot(path)
	if err != nil {
		return err
	}
	fmt.Println(renderSnapshot(snap))
	return nil
}

// followSnapshot prints the current snapshot and re-renders on every
// rewrite until interrupted. Ctrl-C is the normal way out, so it exits
// clean.
func followSnapshot(path string, asJSON bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := printSnapshot(path, asJSON); err != nil {
		return err
	}

	err := state.WatchSnapshot(ctx, path, func(snap *state.Snapshot) {
		if asJSON {
			_ = printSnapshot(path, true)
			return
		}
		fmt.Println()
		fmt.Println(terminal.Ruler(terminal.ReportWidth(), "═"))
		fmt.Println(renderSnapshot(snap))
	})
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr)
		return nil
	}
	return err
}

// renderSnapshot renders one snapshot in the report style.
func renderSnapshot(snap *state.Snapshot) string {
	width := terminal.ReportWidth()
	age := terminal.FormatAge(snap.Age())

	var lines []string

	switch {
	case snap.BuildStatus == state.StatusBuilding:
		lines = append(lines, fmt.Sprintf("%s● Build in progress%s %s(updated %s)%s",
			terminal.Color(terminal.Cyan), terminal.Color(terminal.Reset),
			terminal.Color(terminal.Dim), age, terminal.Color(terminal.Reset)))
	case countSnapshotSeverity(snap, domain.SeverityError) > 0:
		lines = append(lines, fmt.Sprintf("%s✗ Build finished with errors%s %s(updated %s)%s",
			terminal.Color(terminal.Red), terminal.Color(terminal.Reset),
			terminal.Color(terminal.Dim), age, terminal.Color(terminal.Reset)))
	default:
		lines = append(lines, fmt.Sprintf("%s✓ Build complete%s %s(updated %s)%s",
			terminal.Color(terminal.Green), terminal.Color(terminal.Reset),
			terminal.Color(terminal.Dim), age, terminal.Color(terminal.Reset)))
	}

	if snap.ProjectDir != "" {
		lines = append(lines, fmt.Sprintf("%sProject: %s%s",
			terminal.Color(terminal.Dim), snap.ProjectDir, terminal.Color(terminal.Reset)))
	}

	if len(snap.Issues) > 0 {
		lines = append(lines, "")
		lines = append(lines, terminal.Ruler(width, "─"))
		for _, issue := range snap.Issues {
			lines = append(lines, snapshotIssueLine(issue))
		}
		lines = append(lines, terminal.Ruler(width, "─"))
		lines = append(lines, snapshotCountsLine(snap))
	} else if snap.BuildStatus == state.StatusComplete {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("%s✓%s %s%sNo warnings or errors%s",
			terminal.Color(terminal.Green), terminal.Color(terminal.Reset),
			terminal.Color(terminal.Green), terminal.Color(terminal.Bold), terminal.Color(terminal.Reset)))
	}

	footer := snapshotFooterLines(snap)
	if len(footer) > 0 {
		lines = append(lines, "")
		lines = append(lines, footer...)
	}

	return strings.Join(lines, "\n")
}

// snapshotIssueLine renders an issue as one compact row.
func snapshotIssueLine(issue domain.Issue) string {
	icon := "⚠"
	color := terminal.Yellow
	if issue.Severity == domain.SeverityError {
		icon = "✗"
		color = terminal.Red
	}

	line := fmt.Sprintf("%s%s %s%s %s",
		terminal.Color(color), icon, issue.Severity, terminal.Color(terminal.Reset), issue.Message)
	if issue.File != "" {
		location := issue.File
		if issue.Line > 0 {
			location = fmt.Sprintf("%s:%d", issue.File, issue.Line)
		}
		line += fmt.Sprintf(" %s(%s)%s", terminal.Color(terminal.Dim), location, terminal.Color(terminal.Reset))
	}
	return line
}

func snapshotCountsLine(snap *state.Snapshot) string {
	var parts []string
	if errs := countSnapshotSeverity(snap, domain.SeverityError); errs > 0 {
		parts = append(parts, fmt.Sprintf("%s%s%d error(s)%s",
			terminal.Color(terminal.Red), terminal.Color(terminal.Bold), errs, terminal.Color(terminal.Reset)))
	}
	if warns := countSnapshotSeverity(snap, domain.SeverityWarning); warns > 0 {
		parts = append(parts, fmt.Sprintf("%s%s%d warning(s)%s",
			terminal.Color(terminal.Yellow), terminal.Color(terminal.Bold), warns, terminal.Color(terminal.Reset)))
	}
	return "Summary: " + strings.Join(parts, ", ")
}

func snapshotFooterLines(snap *state.Snapshot) []string {
	var lines []string
	if snap.BuildInfo.ServerURL != "" {
		lines = append(lines, fmt.Sprintf("%s%s🌐 Server:%s %s%s%s",
			terminal.Color(terminal.Green), terminal.Color(terminal.Bold), terminal.Color(terminal.Reset),
			terminal.Color(terminal.Cyan), snap.BuildInfo.ServerURL, terminal.Color(terminal.Reset)))
	}
	if snap.BuildInfo.BuildDir != "" {
		lines = append(lines, fmt.Sprintf("%s%s📁 Output:%s %s",
			terminal.Color(terminal.Blue), terminal.Color(terminal.Bold), terminal.Color(terminal.Reset),
			snap.BuildInfo.BuildDir))
	}
	if snap.BuildInfo.BuildTime != "" {
		lines = append(lines, fmt.Sprintf("%sBuilt in %ss%s",
			terminal.Color(terminal.Dim), snap.BuildInfo.BuildTime, terminal.Color(terminal.Reset)))
	}
	return lines
}

func countSnapshotSeverity(snap *state.Snapshot, sev domain.Severity) int {
	count := 0
	for _, issue := range snap.Issues {
		if issue.Severity == sev {
			count++
		}
	}
	return count
}
