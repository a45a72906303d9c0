package backend

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/richhaase/docs-build-filter/internal/domain"
)

// SphinxBackend parses sphinx-build and sphinx-autobuild output.
type SphinxBackend struct{}

// NewSphinxBackend creates a backend for Sphinx output.
func NewSphinxBackend() *SphinxBackend {
	return &SphinxBackend{}
}

var (
	sphinxVersionPattern = regexp.MustCompile(`^Running Sphinx v`)

	// Issue forms, most specific first: "file:line: WARNING: msg",
	// "file: WARNING: msg", "WARNING: msg"
	sphinxIssueWithLinePattern = regexp.MustCompile(`^(.+?):(\d+): (WARNING|ERROR): (.+)`)
	sphinxIssueWithFilePattern = regexp.MustCompile(`^(.+?): (WARNING|ERROR): (.+)`)
	sphinxIssueBarePattern     = regexp.MustCompile(`^(WARNING|ERROR): (.+)`)

	// Prefix-only variants used to classify without capturing
	sphinxFileLineTagPattern = regexp.MustCompile(`^.+?:\d+: (WARNING|ERROR): `)
	sphinxFileTagPattern     = regexp.MustCompile(`^.+?: (WARNING|ERROR): `)
	sphinxBareTagPattern     = regexp.MustCompile(`^(WARNING|ERROR): `)

	sphinxBuildCompletePattern = regexp.MustCompile(`^build (succeeded|finished)`)
	sphinxHTMLPagesPattern     = regexp.MustCompile(`^The HTML pages are in `)
	sphinxServingPattern       = regexp.MustCompile(`Serving on https?://`)
	sphinxServerURLPattern     = regexp.MustCompile(`Serving on (https?://[^\s\x1b]+)`)
	sphinxBuildDirPattern      = regexp.MustCompile(`The HTML pages are in (.+)\.`)
	sphinxWarningCountPattern  = regexp.MustCompile(`build (?:succeeded|finished),?\s*(\d+)\s+warnings?`)
	sphinxBuildTimePattern     = regexp.MustCompile(`build (?:succeeded|finished).*?in\s+([\d.]+)\s*s`)
	sphinxAltBuildTimePattern  = regexp.MustCompile(`The build finished in ([\d.]+) sec`)

	// Optional machine-readable suffix like "[toc.not_readable]"
	sphinxWarningCodePattern      = regexp.MustCompile(`\[([a-z][a-z0-9_.]+)\]\s*$`)
	sphinxWarningCodeStripPattern = regexp.MustCompile(`\s*\[([a-z][a-z0-9_.]+)\]\s*$`)

	// Python deprecation warnings: "file:line: SomeDeprecationWarning: msg".
	// CamelCase warning class, unlike Sphinx's all-caps WARNING.
	sphinxDeprecationPattern  = regexp.MustCompile(`^(.+?):(\d+): ([A-Z][a-zA-Z0-9]*Warning): (.+)`)
	sphinxSitePackagesPattern = regexp.MustCompile(`site-packages/([^/]+)`)
	sphinxDistInfoPattern     = regexp.MustCompile(`[-.]dist-info$`)

	// Error type lines at the end of a traceback: "ValueError: msg" or
	// "nbclient.exceptions.CellExecutionError: msg"
	sphinxErrorLinePattern   = regexp.MustCompile(`^[A-Z]\w*(Error|Exception|Warning)`)
	sphinxDottedErrorPattern = regexp.MustCompile(`^[a-z][\w.]*\.[A-Z]\w*(Error|Exception)`)
)

// cellDelimiter separates cell code from the traceback in myst-nb
// CellExecutionError blocks.
const cellDelimiter = "------------------"

// Tool returns ToolSphinx.
func (b *SphinxBackend) Tool() Tool {
	return ToolSphinx
}

// Detect reports whether a line looks like Sphinx output.
func (b *SphinxBackend) Detect(line string) bool {
	if sphinxVersionPattern.MatchString(line) {
		return true
	}
	if strings.Contains(line, "[sphinx-autobuild]") {
		return true
	}
	if sphinxFileLineTagPattern.MatchString(line) {
		return true
	}
	if sphinxBuildCompletePattern.MatchString(line) {
		return true
	}
	if sphinxHTMLPagesPattern.MatchString(line) {
		return true
	}
	if strings.Contains(line, "Sphinx exited with exit code:") {
		return true
	}
	if strings.Contains(line, "reading sources...") || strings.Contains(line, "writing output...") {
		return true
	}
	return false
}

// DetectChunkBoundary classifies a line as a boundary in Sphinx output.
func (b *SphinxBackend) DetectChunkBoundary(line, prevLine string) domain.ChunkBoundary {
	if sphinxBuildCompletePattern.MatchString(line) {
		return domain.BoundaryBuildComplete
	}

	// "The HTML pages are in ..." lands on stdout even when "build
	// succeeded" goes to stderr, so it doubles as a completion marker
	if sphinxHTMLPagesPattern.MatchString(line) {
		return domain.BoundaryBuildComplete
	}

	// sphinx-autobuild reports a failed inner build this way; the build
	// cycle is over either way
	if strings.Contains(line, "Sphinx exited with exit code:") {
		return domain.BoundaryBuildComplete
	}

	if sphinxServingPattern.MatchString(line) {
		return domain.BoundaryServerStarted
	}

	if strings.Contains(line, "[sphinx-autobuild]") &&
		(strings.Contains(line, "Detected change") || strings.Contains(line, "Rebuilding")) {
		return domain.BoundaryRebuildStarted
	}

	return domain.BoundaryNone
}

// ExtractBuildInfo pulls server URL, build directory, timing, and the
// reported warning count out of Sphinx output lines.
func (b *SphinxBackend) ExtractBuildInfo(lines []string) domain.BuildInfo {
	var info domain.BuildInfo
	for _, line := range lines {
		if m := sphinxServerURLPattern.FindStringSubmatch(line); m != nil {
			info.ServerURL = m[1]
		}
		if m := sphinxBuildDirPattern.FindStringSubmatch(line); m != nil {
			info.BuildDir = strings.TrimSpace(m[1])
		}
		if m := sphinxWarningCountPattern.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				info.WarningCount = n
			}
		}
		if m := sphinxBuildTimePattern.FindStringSubmatch(line); m != nil {
			info.BuildTime = m[1]
		}
		if m := sphinxAltBuildTimePattern.FindStringSubmatch(line); m != nil {
			info.BuildTime = m[1]
		}
	}
	return info
}

// InMultilineBlock always reports false: Sphinx diagnostics that span lines
// are handled inline by ParseIssues, there is no open-ended block format
// like mkdocs markdown_exec output.
func (b *SphinxBackend) InMultilineBlock(lines []string) bool {
	return false
}

// ParseIssues extracts warnings and errors from Sphinx output. Single-line
// diagnostics are the common case; myst-nb CellExecutionError warnings pull
// in the traceback and cell code that follow them.
func (b *SphinxBackend) ParseIssues(lines []string) []domain.Issue {
	var issues []domain.Issue

	i := 0
	for i < len(lines) {
		line := lines[i]

		if m := sphinxIssueWithLinePattern.FindStringSubmatch(line); m != nil {
			lineNum, _ := strconv.Atoi(m[2])
			message := m[4]
			warningCode := extractWarningCode(message)
			if warningCode != "" {
				message = stripWarningCode(message)
			}

			issues = append(issues, domain.Issue{
				Severity:    sphinxSeverity(m[3]),
				Source:      "sphinx",
				Message:     message,
				File:        m[1],
				Line:        lineNum,
				WarningCode: warningCode,
			})
			i++
			continue
		}

		if m := sphinxIssueWithFilePattern.FindStringSubmatch(line); m != nil {
			message := m[3]
			warningCode := extractWarningCode(message)
			if warningCode != "" {
				message = stripWarningCode(message)
			}

			var code, output string
			if strings.Contains(message, "CellExecutionError") {
				if cell, ok := parseCellExecutionError(lines, i+1); ok {
					code = cell.code
					output = cell.output
					i = cell.endIndex
					if output != "" {
						errLine := extractErrorLine(output)
						if errLine != "" && errLine != "CellExecutionError" {
							message = "Executing notebook failed: " + errLine
						}
					}
				}
			}

			issues = append(issues, domain.Issue{
				Severity:    sphinxSeverity(m[2]),
				Source:      "sphinx",
				Message:     message,
				File:        m[1],
				Code:        code,
				Output:      output,
				WarningCode: warningCode,
			})
			i++
			continue
		}

		if m := sphinxIssueBarePattern.FindStringSubmatch(line); m != nil {
			message := m[2]
			warningCode := extractWarningCode(message)
			if warningCode != "" {
				message = stripWarningCode(message)
			}

			issues = append(issues, domain.Issue{
				Severity:    sphinxSeverity(m[1]),
				Source:      "sphinx",
				Message:     message,
				WarningCode: warningCode,
			})
		}

		i++
	}

	return issues
}

func sphinxSeverity(tag string) domain.Severity {
	if tag == "ERROR" {
		return domain.SeverityError
	}
	return domain.SeverityWarning
}

// cellBlock is the parsed body of a myst-nb CellExecutionError warning.
type cellBlock struct {
	code     string
	output   string
	endIndex int
}

// parseCellExecutionError parses the multi-line block following a
// CellExecutionError warning line:
//
//	Traceback (most recent call last):
//	  ...
//	nbclient.exceptions.CellExecutionError: An error occurred...
//	------------------
//	...cell code...
//	------------------
//
//	ErrorType
//
// Returns false when no such block starts within the next few lines.
func parseCellExecutionError(lines []string, start int) (cellBlock, bool) {
	if start >= len(lines) {
		return cellBlock{}, false
	}

	tracebackStart := -1
	for j := start; j < min(start+5, len(lines)); j++ {
		if strings.HasPrefix(strings.TrimSpace(lines[j]), "Traceback") {
			tracebackStart = j
			break
		}
		if strings.Contains(lines[j], "CellExecutionError:") {
			tracebackStart = j
			break
		}
	}
	if tracebackStart == -1 {
		return cellBlock{}, false
	}

	var tracebackLines, cellCodeLines, errorOutputLines []string
	inCellCode := false
	foundDelimiter := false
	endIndex := start

	i := tracebackStart
	for i < len(lines) {
		line := lines[i]

		if strings.TrimSpace(line) == cellDelimiter {
			if !inCellCode && !foundDelimiter {
				inCellCode = true
				foundDelimiter = true
				i++
				continue
			}
			if inCellCode {
				inCellCode = false
				i++
				// Whatever follows the closing delimiter, up to the next
				// recognizable log content, is the bare error type
				for i < len(lines) {
					remaining := strings.TrimSpace(lines[i])
					if sphinxFileTagPattern.MatchString(lines[i]) {
						break
					}
					if sphinxBareTagPattern.MatchString(lines[i]) {
						break
					}
					if strings.HasPrefix(remaining, "Versions") {
						break
					}
					if strings.HasPrefix(remaining, "[sphinx-autobuild]") {
						break
					}
					if strings.HasPrefix(remaining, "The HTML pages are in") {
						break
					}
					if strings.HasPrefix(remaining, "build succeeded") || strings.HasPrefix(remaining, "build finished") {
						break
					}
					if strings.HasPrefix(remaining, "Sphinx exited with exit code") {
						break
					}
					if remaining != "" && !strings.HasPrefix(remaining, "[mystnb") {
						errorOutputLines = append(errorOutputLines, remaining)
					}
					i++
				}
				endIndex = i
				break
			}
		}

		if inCellCode {
			cellCodeLines = append(cellCodeLines, line)
		} else {
			tracebackLines = append(tracebackLines, line)
		}

		i++
	}

	if !foundDelimiter && len(tracebackLines) == 0 {
		return cellBlock{}, false
	}

	block := cellBlock{endIndex: endIndex}
	if len(cellCodeLines) > 0 {
		block.code = domain.DedentCode(strings.Join(cellCodeLines, "\n"))
	}

	outputParts := append([]string(nil), tracebackLines...)
	if len(errorOutputLines) > 0 {
		if len(outputParts) > 0 {
			outputParts = append(outputParts, "")
		}
		outputParts = append(outputParts, errorOutputLines...)
	}
	if len(outputParts) > 0 {
		block.output = strings.Join(outputParts, "\n")
	}

	return block, true
}

// extractErrorLine finds the actual error type at the end of traceback
// output, e.g. "ValueError", "TypeError: message", or the tail of
// "nbclient.exceptions.CellExecutionError: ...".
func extractErrorLine(output string) string {
	lines := strings.Split(output, "\n")
	for j := len(lines) - 1; j >= 0; j-- {
		line := strings.TrimSpace(lines[j])
		if line == "" {
			continue
		}
		if sphinxErrorLinePattern.MatchString(line) {
			return line
		}
		if sphinxDottedErrorPattern.MatchString(line) {
			if idx := strings.LastIndex(line, ":"); idx != -1 {
				return strings.TrimSpace(line[idx+1:])
			}
			return line
		}
	}
	return ""
}

// ParseInfoMessages extracts Python deprecation warnings that surface in
// Sphinx builds. These come from the Python warnings module, not Sphinx
// itself, and are grouped by the package that emitted them.
func (b *SphinxBackend) ParseInfoMessages(lines []string) []domain.InfoMessage {
	type deprecation struct {
		class   string
		message string
	}

	byPackage := make(map[string][]deprecation)
	var packageOrder []string

	for _, line := range lines {
		// WARNING/ERROR lines belong to ParseIssues
		if sphinxFileLineTagPattern.MatchString(line) {
			continue
		}
		if sphinxFileTagPattern.MatchString(line) {
			continue
		}
		if sphinxBareTagPattern.MatchString(line) {
			continue
		}

		m := sphinxDeprecationPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		class := m[3]
		if !strings.Contains(class, "Deprecat") &&
			!strings.Contains(class, "Removed") &&
			!strings.Contains(class, "Pending") {
			continue
		}

		pkg := extractPackageFromPath(m[1])
		if _, ok := byPackage[pkg]; !ok {
			packageOrder = append(packageOrder, pkg)
		}
		byPackage[pkg] = append(byPackage[pkg], deprecation{class: class, message: m[4]})
	}

	var messages []domain.InfoMessage
	for _, pkg := range packageOrder {
		seen := make(map[string]struct{})
		for _, d := range byPackage[pkg] {
			key := d.class + ":" + d.message
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			messages = append(messages, domain.InfoMessage{
				Category:   domain.CategoryDeprecation,
				File:       pkg,
				Target:     d.class,
				Suggestion: d.message,
			})
		}
	}

	return messages
}

// extractPackageFromPath reduces a warning's file path to a package name:
// the site-packages entry when present, otherwise the parent directory.
func extractPackageFromPath(filepath string) string {
	if m := sphinxSitePackagesPattern.FindStringSubmatch(filepath); m != nil {
		return sphinxDistInfoPattern.ReplaceAllString(m[1], "")
	}

	parts := strings.Split(strings.ReplaceAll(filepath, `\`, "/"), "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return filepath
}

func extractWarningCode(message string) string {
	if m := sphinxWarningCodePattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}

func stripWarningCode(message string) string {
	return strings.TrimRight(sphinxWarningCodeStripPattern.ReplaceAllString(message, ""), " \t")
}
