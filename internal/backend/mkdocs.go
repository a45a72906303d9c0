package backend

import (
	"regexp"
	"strings"

	"github.com/richhaase/docs-build-filter/internal/domain"
)

// MkDocsBackend parses mkdocs build and serve output.
type MkDocsBackend struct{}

// NewMkDocsBackend creates a backend for mkdocs output.
func NewMkDocsBackend() *MkDocsBackend {
	return &MkDocsBackend{}
}

var (
	// Plain log format: "INFO    -  message"
	mkdocsLevelPattern = regexp.MustCompile(`^(INFO|WARNING|ERROR|DEBUG)\s+-`)

	// Timestamped log format: "2024-01-15 10:30:00 WARNING ..."
	mkdocsTimestampedLevelPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}.*?(INFO|WARNING|ERROR)`)

	// New log entry after a blank line, used for the error block heuristic
	mkdocsEntryPattern = regexp.MustCompile(`^(INFO|WARNING|ERROR)\s*-`)

	// Any log entry terminating a markdown_exec block, DEBUG included
	mkdocsBlockEndPattern = regexp.MustCompile(`^(INFO|DEBUG|WARNING|ERROR)\s*-`)

	mkdocsTimestampPattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	mkdocsBuildCompletePattern = regexp.MustCompile(`Documentation built in [\d.]+ seconds`)
	mkdocsServingPattern       = regexp.MustCompile(`Serving on https?://`)

	mkdocsServerURLPattern = regexp.MustCompile(`Serving on (https?://[^\s\x1b]+)`)
	mkdocsBuildTimePattern = regexp.MustCompile(`Documentation built in ([\d.]+) seconds`)
	mkdocsBuildDirPattern  = regexp.MustCompile(`Building documentation to directory: (.+)`)

	// Prefixes stripped from issue messages
	mkdocsStderrPrefixPattern    = regexp.MustCompile(`^\[stderr\]\s*`)
	mkdocsTimestampPrefixPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}.*?-\s*`)
	mkdocsLevelPrefixPattern     = regexp.MustCompile(`^(WARNING|ERROR)\s*-?\s*`)

	mkdocsSingleQuotedMdPattern = regexp.MustCompile(`'([^']+\.md)'`)
	mkdocsDoubleQuotedMdPattern = regexp.MustCompile(`"([^"]+\.md)"`)

	// INFO-level notices worth surfacing
	mkdocsBrokenLinkPattern       = regexp.MustCompile(`Doc file ['"]([^'"]+)['"] contains a link ['"]([^'"]+)['"].*(?:target is not found|not found)`)
	mkdocsAbsoluteLinkPattern     = regexp.MustCompile(`Doc file ['"]([^'"]+)['"] contains an absolute link ['"]([^'"]+)['"].*left as is`)
	mkdocsUnrecognizedLinkPattern = regexp.MustCompile(`Doc file ['"]([^'"]+)['"] contains an unrecognized relative link ['"]([^'"]+)['"]`)
	mkdocsDidYouMeanPattern       = regexp.MustCompile(`Did you mean ['"]([^'"]+)['"]`)
	mkdocsNoGitLogsPattern        = regexp.MustCompile(`\[git-revision-date-localized-plugin\].*['"]([^'"]+)['"].*has no git logs`)

	// Context lines used to attribute markdown_exec blocks to a source file
	mkdocsReadingPattern    = regexp.MustCompile(`DEBUG\s*-\s*Reading:\s*(\S+\.md)`)
	mkdocsBreadcrumbPattern = regexp.MustCompile(`Generated breadcrumb string:.*\[([^\]]+)\]\(/([^)]+)\)`)
	mkdocsDocFilePattern    = regexp.MustCompile(`Doc file '([^']+\.md)'`)

	mkdocsSessionLinePattern = regexp.MustCompile(`File "<code block: session ([^;]+); n(\d+)>", line (\d+)`)
)

// Tool returns ToolMkDocs.
func (b *MkDocsBackend) Tool() Tool {
	return ToolMkDocs
}

// Detect reports whether a line looks like mkdocs output.
func (b *MkDocsBackend) Detect(line string) bool {
	if mkdocsLevelPattern.MatchString(line) {
		return true
	}
	if mkdocsTimestampedLevelPattern.MatchString(line) {
		return true
	}
	if strings.Contains(line, "Documentation built in") {
		return true
	}
	if strings.Contains(line, "Building documentation to directory") {
		return true
	}
	return false
}

// DetectChunkBoundary classifies a line as a boundary in mkdocs output.
func (b *MkDocsBackend) DetectChunkBoundary(line, prevLine string) domain.ChunkBoundary {
	stripped := strings.TrimSpace(line)

	if mkdocsBuildCompletePattern.MatchString(line) {
		return domain.BoundaryBuildComplete
	}

	if mkdocsServingPattern.MatchString(line) {
		return domain.BoundaryServerStarted
	}

	if strings.Contains(line, "Detected file changes") || strings.Contains(line, "Reloading docs") {
		return domain.BoundaryRebuildStarted
	}

	// Timestamped serve-mode rebuild announcement
	if mkdocsTimestampPattern.MatchString(stripped) && strings.Contains(line, "Building documentation") {
		return domain.BoundaryRebuildStarted
	}

	// A new log entry right after a blank line closes any pending error block
	if strings.TrimSpace(prevLine) == "" {
		if mkdocsEntryPattern.MatchString(stripped) {
			return domain.BoundaryErrorBlockEnd
		}
		if mkdocsTimestampedLevelPattern.MatchString(stripped) {
			return domain.BoundaryErrorBlockEnd
		}
	}

	return domain.BoundaryNone
}

// ExtractBuildInfo pulls server URL, build directory, and timing out of
// mkdocs output lines.
func (b *MkDocsBackend) ExtractBuildInfo(lines []string) domain.BuildInfo {
	var info domain.BuildInfo
	for _, line := range lines {
		if m := mkdocsServerURLPattern.FindStringSubmatch(line); m != nil {
			info.ServerURL = m[1]
		}
		if m := mkdocsBuildTimePattern.FindStringSubmatch(line); m != nil {
			info.BuildTime = m[1]
		}
		if m := mkdocsBuildDirPattern.FindStringSubmatch(line); m != nil {
			info.BuildDir = strings.TrimSpace(m[1])
		}
	}
	return info
}

// InMultilineBlock reports whether the window ends inside an unterminated
// markdown_exec block. A block stays open until another log entry follows
// its header line.
func (b *MkDocsBackend) InMultilineBlock(lines []string) bool {
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !strings.Contains(line, "markdown_exec") {
			continue
		}
		if !strings.Contains(line, "WARNING") && !strings.Contains(line, "ERROR") {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			check := strings.TrimSpace(lines[j])
			if check == "" {
				continue
			}
			if mkdocsEntryPattern.MatchString(check) {
				return false
			}
			if mkdocsTimestampedLevelPattern.MatchString(check) {
				return false
			}
		}
		return true
	}
	return false
}

// ParseIssues extracts warnings and errors from mkdocs output.
func (b *MkDocsBackend) ParseIssues(lines []string) []domain.Issue {
	var issues []domain.Issue

	i := 0
	for i < len(lines) {
		line := lines[i]

		if !strings.Contains(line, "WARNING") && !strings.Contains(line, "ERROR") {
			i++
			continue
		}

		severity := domain.SeverityWarning
		if strings.Contains(line, "ERROR") {
			severity = domain.SeverityError
		}

		if strings.Contains(line, "markdown_exec") {
			issue, end := parseMarkdownExecIssue(lines, i, severity)
			issues = append(issues, issue)
			i = end
			continue
		}

		// Traceback interior lines mention the level words without being
		// log entries themselves
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "raise ") || strings.HasPrefix(stripped, "File ") {
			i++
			continue
		}

		message := line
		message = mkdocsStderrPrefixPattern.ReplaceAllString(message, "")
		message = mkdocsTimestampPrefixPattern.ReplaceAllString(message, "")
		message = mkdocsLevelPrefixPattern.ReplaceAllString(message, "")

		if strings.TrimSpace(message) != "" {
			var file string
			if m := mkdocsSingleQuotedMdPattern.FindStringSubmatch(message); m != nil {
				file = m[1]
			} else if m := mkdocsDoubleQuotedMdPattern.FindStringSubmatch(message); m != nil {
				file = m[1]
			}

			issues = append(issues, domain.Issue{
				Severity: severity,
				Source:   "mkdocs",
				Message:  strings.TrimSpace(message),
				File:     file,
			})
		}

		i++
	}

	return issues
}

// parseMarkdownExecIssue parses a markdown_exec warning or error block
// starting at the header line. It returns the issue and the index of the
// line that terminated the block.
func parseMarkdownExecIssue(lines []string, start int, severity domain.Severity) (domain.Issue, int) {
	// The block itself never names its source file; scan recent context
	// lines for one.
	var file string
	low := max(-1, start-50)
	for j := start - 1; j > low; j-- {
		prev := lines[j]
		if m := mkdocsReadingPattern.FindStringSubmatch(prev); m != nil {
			file = m[1]
			break
		}
		if m := mkdocsBreadcrumbPattern.FindStringSubmatch(prev); m != nil {
			file = m[2] + ".md"
			break
		}
		if m := mkdocsDocFilePattern.FindStringSubmatch(prev); m != nil {
			file = m[1]
			break
		}
	}

	var codeLines, outputLines []string
	var session, lineNumber string
	inCode := false
	inOutput := false

	i := start + 1
	for i < len(lines) {
		line := lines[i]
		stripped := strings.TrimSpace(line)

		if stripped == "Code block is:" {
			inCode = true
			inOutput = false
			i++
			continue
		}
		if stripped == "Output is:" {
			inCode = false
			inOutput = true
			i++
			continue
		}

		if mkdocsBlockEndPattern.MatchString(stripped) {
			break
		}
		if mkdocsTimestampPattern.MatchString(stripped) {
			break
		}
		if strings.HasPrefix(stripped, "[stderr]") {
			break
		}

		if inCode && stripped != "" {
			codeLines = append(codeLines, strings.TrimRight(line, " \t"))
		} else if inOutput && stripped != "" {
			outputLines = append(outputLines, strings.TrimRight(line, " \t"))
			if m := mkdocsSessionLinePattern.FindStringSubmatch(stripped); m != nil {
				session = m[1]
				lineNumber = m[3]
			}
		}

		i++
	}

	// The last Error/Exception line of the output names the actual failure
	message := "Code execution failed"
	for j := len(outputLines) - 1; j >= 0; j-- {
		candidate := strings.TrimSpace(outputLines[j])
		if candidate == "" || strings.HasPrefix(candidate, "File ") {
			continue
		}
		if strings.Contains(candidate, "Error:") || strings.Contains(candidate, "Exception:") {
			message = candidate
			break
		}
	}

	var locationParts []string
	if file != "" {
		locationParts = append(locationParts, file)
	}
	if session != "" {
		locationParts = append(locationParts, "session '"+session+"'")
	}
	if lineNumber != "" {
		locationParts = append(locationParts, "line "+lineNumber)
	}

	var code string
	if len(codeLines) > 0 {
		code = domain.DedentCode(strings.Join(codeLines, "\n"))
	}
	var output string
	if len(outputLines) > 0 {
		output = strings.Join(outputLines, "\n")
	}

	return domain.Issue{
		Severity: severity,
		Source:   "markdown_exec",
		Message:  message,
		File:     strings.Join(locationParts, " → "),
		Code:     code,
		Output:   output,
	}, i
}

// ParseInfoMessages extracts notable INFO-level notices from mkdocs output.
func (b *MkDocsBackend) ParseInfoMessages(lines []string) []domain.InfoMessage {
	var messages []domain.InfoMessage

	i := 0
	for i < len(lines) {
		line := lines[i]

		// WARNING/ERROR lines belong to ParseIssues
		if strings.Contains(line, "WARNING") || strings.Contains(line, "ERROR") {
			i++
			continue
		}

		if m := mkdocsBrokenLinkPattern.FindStringSubmatch(line); m != nil {
			messages = append(messages, domain.InfoMessage{
				Category: domain.CategoryBrokenLink,
				File:     m[1],
				Target:   m[2],
			})
			i++
			continue
		}

		if m := mkdocsAbsoluteLinkPattern.FindStringSubmatch(line); m != nil {
			messages = append(messages, domain.InfoMessage{
				Category:   domain.CategoryAbsoluteLink,
				File:       m[1],
				Target:     m[2],
				Suggestion: didYouMean(line),
			})
			i++
			continue
		}

		if m := mkdocsUnrecognizedLinkPattern.FindStringSubmatch(line); m != nil {
			messages = append(messages, domain.InfoMessage{
				Category:   domain.CategoryUnrecognizedLink,
				File:       m[1],
				Target:     m[2],
				Suggestion: didYouMean(line),
			})
			i++
			continue
		}

		if m := mkdocsNoGitLogsPattern.FindStringSubmatch(line); m != nil {
			messages = append(messages, domain.InfoMessage{
				Category: domain.CategoryNoGitLogs,
				File:     m[1],
			})
			i++
			continue
		}

		// "The following pages exist in the docs directory, but are not
		// included in the nav:" is followed by an indented "- page.md" list
		if strings.Contains(line, "pages exist in the docs directory, but are not included") {
			i++
			for i < len(lines) {
				next := strings.TrimSpace(lines[i])
				if strings.HasPrefix(next, "- ") {
					messages = append(messages, domain.InfoMessage{
						Category: domain.CategoryMissingNav,
						File:     strings.TrimSpace(next[2:]),
					})
					i++
				} else if next != "" && !strings.HasPrefix(next, "-") {
					break
				} else {
					i++
				}
			}
			continue
		}

		i++
	}

	return messages
}

func didYouMean(line string) string {
	if !strings.Contains(line, "Did you mean") {
		return ""
	}
	if m := mkdocsDidYouMeanPattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}
