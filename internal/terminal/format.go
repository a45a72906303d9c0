package terminal

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MaxReportWidth is the maximum width for reports.
const MaxReportWidth = 90

var (
	stderrPrefixPattern    = regexp.MustCompile(`^\[stderr\]\s*`)
	timestampPrefixPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2},\d+\s*-\s*`)
	loggerPrefixPattern    = regexp.MustCompile(`^[\w.]+\s*-\s*(INFO|WARNING|ERROR)\s*-\s*`)
)

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	mins := int(secs / 60)
	remainSecs := secs - float64(mins*60)
	return fmt.Sprintf("%dm %.1fs", mins, remainSecs)
}

// FormatAge formats how long ago something happened, for status output.
func FormatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Seconds())
	if secs < 60 {
		return fmt.Sprintf("%ds ago", secs)
	}
	mins := secs / 60
	if mins < 60 {
		return fmt.Sprintf("%dm ago", mins)
	}
	hours := mins / 60
	mins -= hours * 60
	return fmt.Sprintf("%dh %dm ago", hours, mins)
}

// TruncateLine strips log prefixes from a build line and caps its length,
// keeping the part worth showing next to a spinner.
func TruncateLine(line string, maxLen int) string {
	line = strings.TrimSpace(line)
	line = stderrPrefixPattern.ReplaceAllString(line, "")
	line = timestampPrefixPattern.ReplaceAllString(line, "")
	line = loggerPrefixPattern.ReplaceAllString(line, "")
	if len(line) > maxLen {
		return line[:maxLen] + "..."
	}
	return line
}

// Ruler returns a horizontal rule string.
func Ruler(width int, char string) string {
	return fmt.Sprintf("%s%s%s", Color(Dim), strings.Repeat(char, width), Color(Reset))
}

// WrapText wraps text to width with proper indentation.
func WrapText(text string, width int, indent string) string {
	if width <= len(indent) {
		return indent + text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	var currentLine strings.Builder
	currentLine.WriteString(indent)
	lineWidth := len(indent)
	maxWidth := width

	for i, word := range words {
		wordLen := len(word)

		if i == 0 {
			currentLine.WriteString(word)
			lineWidth += wordLen
			continue
		}

		if lineWidth+1+wordLen > maxWidth {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(indent)
			currentLine.WriteString(word)
			lineWidth = len(indent) + wordLen
		} else {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
			lineWidth += 1 + wordLen
		}
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n")
}

// ReportWidth returns the report width based on terminal width.
func ReportWidth() int {
	w := GetTerminalWidth()
	if w > MaxReportWidth {
		return MaxReportWidth
	}
	return w
}
