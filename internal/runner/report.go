package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/richhaase/docs-build-filter/internal/domain"
	"github.com/richhaase/docs-build-filter/internal/terminal"
)

const (
	// maxSnippetLines caps the config excerpt shown with an issue; the
	// tail is what points at the broken setting.
	maxSnippetLines = 10
	// maxOutputLines caps captured tool output shown in verbose mode.
	maxOutputLines = 15
)

// renderIssue renders one issue: a severity header, the source location,
// and any captured excerpt. Verbose keeps full excerpts and appends the
// tool output tail.
func renderIssue(issue domain.Issue, verbose bool) string {
	var lines []string

	icon := "⚠"
	color := terminal.Yellow
	if issue.Severity == domain.SeverityError {
		icon = "✗"
		color = terminal.Red
	}

	header := fmt.Sprintf("%s%s%s %s%s",
		terminal.Color(color), terminal.Color(terminal.Bold), icon, issue.Severity, terminal.Color(terminal.Reset))
	if issue.Source != "" {
		header += fmt.Sprintf(" %s[%s]%s", terminal.Color(terminal.Dim), issue.Source, terminal.Color(terminal.Reset))
	}
	header += " " + issue.Message
	if issue.WarningCode != "" {
		header += fmt.Sprintf(" %s[%s]%s", terminal.Color(terminal.Dim), issue.WarningCode, terminal.Color(terminal.Reset))
	}
	lines = append(lines, header)

	if issue.File != "" {
		loc := issue.File
		if issue.Line > 0 {
			loc = fmt.Sprintf("%s:%d", issue.File, issue.Line)
		}
		lines = append(lines, fmt.Sprintf("   %s📍 %s%s", terminal.Color(terminal.Cyan), loc, terminal.Color(terminal.Reset)))
	}

	if issue.Code != "" {
		lines = append(lines, renderCodeExcerpt(issue.Code, verbose)...)
	}

	if verbose && issue.Output != "" {
		lines = append(lines, renderOutputTail(issue.Output)...)
	}

	return strings.Join(lines, "\n")
}

// renderCodeExcerpt indents a config or source excerpt under its issue.
// Outside verbose mode only the tail is shown; that is where the broken
// setting sits in the excerpts the tools produce.
func renderCodeExcerpt(code string, verbose bool) []string {
	codeLines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	keep := maxSnippetLines
	if verbose {
		keep = len(codeLines)
	}

	var lines []string
	if len(codeLines) > keep {
		lines = append(lines, fmt.Sprintf("     %s# ... (%d lines above)%s",
			terminal.Color(terminal.Dim), len(codeLines)-keep, terminal.Color(terminal.Reset)))
		codeLines = codeLines[len(codeLines)-keep:]
	}
	for _, cl := range codeLines {
		lines = append(lines, "     "+cl)
	}
	return lines
}

// renderOutputTail shows the last lines of captured tool output, dimmed
// so the issue header stays the focus.
func renderOutputTail(output string) []string {
	outLines := strings.Split(strings.TrimRight(output, "\n"), "\n")

	var lines []string
	if len(outLines) > maxOutputLines {
		lines = append(lines, fmt.Sprintf("   %s... (%d lines omitted)%s",
			terminal.Color(terminal.Dim), len(outLines)-maxOutputLines, terminal.Color(terminal.Reset)))
		outLines = outLines[len(outLines)-maxOutputLines:]
	}
	for _, ol := range outLines {
		lines = append(lines, fmt.Sprintf("   %s%s%s", terminal.Color(terminal.Dim), ol, terminal.Color(terminal.Reset)))
	}
	return lines
}

// rebuildBanner marks the start of a watch rebuild in streaming output.
func rebuildBanner() string {
	return fmt.Sprintf("%s🔄 File change detected, rebuilding...%s",
		terminal.Color(terminal.Cyan), terminal.Color(terminal.Reset))
}

// serverBanner announces the dev server address as soon as it is known.
func serverBanner(url string) string {
	return fmt.Sprintf("%s%s🌐 Serving on%s %s%s%s",
		terminal.Color(terminal.Green), terminal.Color(terminal.Bold), terminal.Color(terminal.Reset),
		terminal.Color(terminal.Cyan), url, terminal.Color(terminal.Reset))
}

// ReportOptions control report composition.
type ReportOptions struct {
	// IncludeIssues lists every issue in the report. Streaming already
	// printed issues live, so it passes false; batch passes true.
	IncludeIssues bool
	// Verbose keeps full excerpts and shows per-notice detail.
	Verbose bool
}

// RenderReport renders the end-of-stream report for an outcome.
func RenderReport(outcome *Outcome, opts ReportOptions) string {
	width := terminal.ReportWidth()

	var lines []string

	// Warnings about the stream itself
	var warnings []string
	if outcome.LinesRead > 0 && !outcome.SawBuildOutput {
		warnings = append(warnings, "no recognizable build output; expected a mkdocs or sphinx log")
	}
	if outcome.ServerError {
		warnings = append(warnings, "the dev server failed to start")
	}
	if outcome.ChildExit > 0 && outcome.Errors() == 0 {
		warnings = append(warnings, fmt.Sprintf("tool exited with code %d but no errors were parsed", outcome.ChildExit))
	}
	if reported := outcome.BuildInfo.WarningCount; reported > outcome.Warnings()+outcome.Excluded {
		warnings = append(warnings, fmt.Sprintf("tool reported %d warnings, %d parsed", reported, outcome.Warnings()))
	}

	if len(warnings) > 0 {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("%s⚠ Warnings%s", terminal.Color(terminal.Yellow), terminal.Color(terminal.Reset)))
		lines = append(lines, terminal.Ruler(width, "─"))
		for _, w := range warnings {
			lines = append(lines, fmt.Sprintf("  %s•%s %s", terminal.Color(terminal.Yellow), terminal.Color(terminal.Reset), w))
		}
	}

	// Clean build
	if len(outcome.Issues) == 0 {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("%s✓%s %s%sNo warnings or errors%s",
			terminal.Color(terminal.Green), terminal.Color(terminal.Reset),
			terminal.Color(terminal.Green), terminal.Color(terminal.Bold), terminal.Color(terminal.Reset)))
		lines = append(lines, noticeLines(outcome, opts)...)
		lines = append(lines, footerLines(outcome)...)
		return strings.Join(lines, "\n")
	}

	if opts.IncludeIssues {
		for _, issue := range outcome.Issues {
			lines = append(lines, "")
			lines = append(lines, renderIssue(issue, opts.Verbose))
		}
	}

	lines = append(lines, "")
	lines = append(lines, terminal.Ruler(width, "─"))
	lines = append(lines, summaryLine(outcome))

	lines = append(lines, noticeLines(outcome, opts)...)

	if outcome.Excluded > 0 {
		issueWord := "issue"
		if outcome.Excluded != 1 {
			issueWord = "issues"
		}
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("%sℹ %d %s hidden by exclude patterns%s",
			terminal.Color(terminal.Dim), outcome.Excluded, issueWord, terminal.Color(terminal.Reset)))
	}

	lines = append(lines, footerLines(outcome)...)

	if !opts.Verbose {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("%sHint: -v for verbose output, --raw for the full build log%s",
			terminal.Color(terminal.Dim), terminal.Color(terminal.Reset)))
	}

	return strings.Join(lines, "\n")
}

// summaryLine counts issues by severity; only nonzero counts appear.
func summaryLine(outcome *Outcome) string {
	var parts []string
	if errs := outcome.Errors(); errs > 0 {
		parts = append(parts, fmt.Sprintf("%s%s%d error(s)%s",
			terminal.Color(terminal.Red), terminal.Color(terminal.Bold), errs, terminal.Color(terminal.Reset)))
	}
	if warns := outcome.Warnings(); warns > 0 {
		parts = append(parts, fmt.Sprintf("%s%s%d warning(s)%s",
			terminal.Color(terminal.Yellow), terminal.Color(terminal.Bold), warns, terminal.Color(terminal.Reset)))
	}
	return "Summary: " + strings.Join(parts, ", ")
}

// noticeOrder fixes the rendering order of notice categories.
var noticeOrder = []domain.InfoCategory{
	domain.CategoryBrokenLink,
	domain.CategoryAbsoluteLink,
	domain.CategoryUnrecognizedLink,
	domain.CategoryMissingNav,
	domain.CategoryNoGitLogs,
	domain.CategoryDeprecation,
}

func noticeLabel(cat domain.InfoCategory, n int) string {
	plural := n != 1
	switch cat {
	case domain.CategoryBrokenLink:
		if plural {
			return "broken links"
		}
		return "broken link"
	case domain.CategoryAbsoluteLink:
		if plural {
			return "absolute links"
		}
		return "absolute link"
	case domain.CategoryUnrecognizedLink:
		if plural {
			return "unrecognized links"
		}
		return "unrecognized link"
	case domain.CategoryMissingNav:
		if plural {
			return "pages missing from nav"
		}
		return "page missing from nav"
	case domain.CategoryNoGitLogs:
		if plural {
			return "pages without git history"
		}
		return "page without git history"
	case domain.CategoryDeprecation:
		if plural {
			return "deprecation notices"
		}
		return "deprecation notice"
	}
	return string(cat)
}

// noticeLines aggregates notices into one dim line; verbose mode lists
// each notice under it.
func noticeLines(outcome *Outcome, opts ReportOptions) []string {
	if len(outcome.InfoMessages) == 0 {
		return nil
	}
	groups := domain.GroupInfoMessages(outcome.InfoMessages)

	var parts []string
	for _, cat := range noticeOrder {
		if n := len(groups[cat]); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, noticeLabel(cat, n)))
		}
	}

	var lines []string
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("%sℹ %s%s",
		terminal.Color(terminal.Dim), strings.Join(parts, ", "), terminal.Color(terminal.Reset)))

	if opts.Verbose {
		for _, cat := range noticeOrder {
			for _, msg := range groups[cat] {
				lines = append(lines, fmt.Sprintf("  %s%s%s",
					terminal.Color(terminal.Dim), describeNotice(msg), terminal.Color(terminal.Reset)))
			}
		}
	}
	return lines
}

func describeNotice(msg domain.InfoMessage) string {
	s := msg.File
	if msg.Target != "" {
		s += " -> " + msg.Target
	}
	if msg.Suggestion != "" {
		s += fmt.Sprintf(" (did you mean %q?)", msg.Suggestion)
	}
	return s
}

// footerLines renders collected build metadata.
func footerLines(outcome *Outcome) []string {
	info := outcome.BuildInfo

	var lines []string
	if info.Empty() && outcome.Elapsed < time.Second {
		return nil
	}
	lines = append(lines, "")
	if info.ServerURL != "" {
		lines = append(lines, fmt.Sprintf("%s%s🌐 Server:%s %s%s%s",
			terminal.Color(terminal.Green), terminal.Color(terminal.Bold), terminal.Color(terminal.Reset),
			terminal.Color(terminal.Cyan), info.ServerURL, terminal.Color(terminal.Reset)))
	}
	if info.BuildDir != "" {
		lines = append(lines, fmt.Sprintf("%s%s📁 Output:%s %s",
			terminal.Color(terminal.Blue), terminal.Color(terminal.Bold), terminal.Color(terminal.Reset), info.BuildDir))
	}
	if info.BuildTime != "" {
		lines = append(lines, fmt.Sprintf("%sBuilt in %ss%s",
			terminal.Color(terminal.Dim), info.BuildTime, terminal.Color(terminal.Reset)))
	}
	if outcome.Elapsed >= time.Second {
		lines = append(lines, fmt.Sprintf("%sElapsed: %s%s",
			terminal.Color(terminal.Dim), terminal.FormatDuration(outcome.Elapsed), terminal.Color(terminal.Reset)))
	}
	return lines
}
