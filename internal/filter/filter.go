// Package filter drops issues a user has explicitly excluded.
package filter

import (
	"fmt"
	"regexp"

	"github.com/richhaase/docs-build-filter/internal/domain"
)

// Filter holds compiled regex patterns for excluding issues.
type Filter struct {
	excludePatterns []*regexp.Regexp
}

// New creates a Filter from pattern strings. Returns an error naming the
// first pattern that is not a valid regex.
func New(patterns []string) (*Filter, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Filter{excludePatterns: compiled}, nil
}

// Empty reports whether the filter has no patterns.
func (f *Filter) Empty() bool {
	return len(f.excludePatterns) == 0
}

// Excludes reports whether any pattern matches the issue. Patterns are
// tried against the message and against the file path, so both
// `has no docstring` and `docs/generated/.*` work as excludes.
func (f *Filter) Excludes(issue domain.Issue) bool {
	for _, re := range f.excludePatterns {
		if re.MatchString(issue.Message) {
			return true
		}
		if issue.File != "" && re.MatchString(issue.File) {
			return true
		}
	}
	return false
}

// Apply returns the issues no exclude pattern matches.
// Does not mutate the input.
func (f *Filter) Apply(issues []domain.Issue) []domain.Issue {
	if len(f.excludePatterns) == 0 {
		return issues
	}

	kept := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if !f.Excludes(issue) {
			kept = append(kept, issue)
		}
	}
	return kept
}
