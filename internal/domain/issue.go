package domain

import "strings"

// Issue is one diagnostic reconstructed from build tool output. Issues are
// immutable once constructed; the message carries no level token or
// timestamp prefix, those are stripped by the parser that built it.
type Issue struct {
	Severity Severity `json:"severity"`
	// Source names the backend (or sub-format) that produced the issue,
	// e.g. "mkdocs", "sphinx", "markdown_exec".
	Source  string `json:"source"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	// Line is 1-based when set.
	Line int `json:"line_number,omitempty"`
	// Code holds a dedented code snippet when the diagnostic carried one.
	Code string `json:"code,omitempty"`
	// Output holds a verbatim output or traceback excerpt.
	Output string `json:"output,omitempty"`
	// WarningCode is the tool's short machine code, e.g. "toc.not_readable".
	WarningCode string `json:"warning_code,omitempty"`
}

// issueIdentityLen bounds how much of the message participates in identity.
const issueIdentityLen = 100

// Key returns the deduplication identity of the issue. Two issues with the
// same severity and the same leading message text are the same diagnostic
// even when their file or context snippets differ; first seen wins.
func (i Issue) Key() string {
	msg := i.Message
	if len(msg) > issueIdentityLen {
		msg = msg[:issueIdentityLen]
	}
	return i.Severity.String() + "\x00" + msg
}

// DedupeIssues removes duplicate issues, keeping the first occurrence of
// each identity in input order.
func DedupeIssues(issues []Issue) []Issue {
	seen := make(map[string]struct{}, len(issues))
	result := make([]Issue, 0, len(issues))
	for _, issue := range issues {
		key := issue.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, issue)
	}
	return result
}

// DedentCode strips the common leading whitespace from every non-blank line
// of a code snippet, preserving relative indentation.
func DedentCode(code string) string {
	lines := strings.Split(code, "\n")

	minIndent := -1
	for _, line := range lines {
		stripped := strings.TrimLeft(line, " \t")
		if stripped == "" {
			continue
		}
		indent := len(line) - len(stripped)
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent <= 0 {
		return code
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines[i] = line[minIndent:]
	}
	return strings.Join(lines, "\n")
}
