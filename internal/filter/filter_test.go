package filter

import (
	"testing"

	"github.com/richhaase/docs-build-filter/internal/domain"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		wantErr  bool
	}{
		{
			name:     "empty patterns",
			patterns: []string{},
			wantErr:  false,
		},
		{
			name:     "valid pattern",
			patterns: []string{"has no docstring"},
			wantErr:  false,
		},
		{
			name:     "multiple valid patterns",
			patterns: []string{"griffe", "docs/generated/.*", ".*deprecated.*"},
			wantErr:  false,
		},
		{
			name:     "invalid regex",
			patterns: []string{"[invalid"},
			wantErr:  true,
		},
		{
			name:     "one invalid among valid",
			patterns: []string{"valid", "[invalid", "also-valid"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.patterns)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if f == nil {
				t.Error("expected filter, got nil")
			}
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		input        []domain.Issue
		wantMessages []string
	}{
		{
			name:     "no patterns - no filtering",
			patterns: []string{},
			input: []domain.Issue{
				{Message: "some warning"},
				{Message: "another warning"},
			},
			wantMessages: []string{"some warning", "another warning"},
		},
		{
			name:     "single pattern excludes matching issue",
			patterns: []string{"has no docstring"},
			input: []domain.Issue{
				{Message: "broken internal link"},
				{Message: "griffe: Object 'Foo.bar' has no docstring"},
			},
			wantMessages: []string{"broken internal link"},
		},
		{
			name:     "pattern matches the file path",
			patterns: []string{"docs/generated/.*"},
			input: []domain.Issue{
				{Message: "stale anchor", File: "docs/generated/api.md"},
				{Message: "stale anchor elsewhere", File: "docs/guide.md"},
			},
			wantMessages: []string{"stale anchor elsewhere"},
		},
		{
			name:     "multiple patterns - excludes if any match",
			patterns: []string{"deprecated", "griffe"},
			input: []domain.Issue{
				{Message: "deprecated config key"},
				{Message: "griffe: missing annotation"},
				{Message: "real problem"},
			},
			wantMessages: []string{"real problem"},
		},
		{
			name:     "case sensitive matching",
			patterns: []string{"ERROR"},
			input: []domain.Issue{
				{Message: "error in template"},
				{Message: "ERROR in template"},
			},
			wantMessages: []string{"error in template"},
		},
		{
			name:     "case insensitive pattern",
			patterns: []string{"(?i)unclosed"},
			input: []domain.Issue{
				{Message: "Unclosed div tag"},
				{Message: "unclosed span tag"},
				{Message: "fine"},
			},
			wantMessages: []string{"fine"},
		},
		{
			name:     "regex special characters",
			patterns: []string{`\[stderr\]`},
			input: []domain.Issue{
				{Message: "[stderr] noise from plugin"},
				{Message: "stderr mentioned in prose"},
			},
			wantMessages: []string{"stderr mentioned in prose"},
		},
		{
			name:         "empty input",
			patterns:     []string{"pattern"},
			input:        []domain.Issue{},
			wantMessages: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.patterns)
			if err != nil {
				t.Fatalf("failed to create filter: %v", err)
			}

			result := f.Apply(tt.input)

			if len(result) != len(tt.wantMessages) {
				t.Fatalf("got %d issues, want %d", len(result), len(tt.wantMessages))
			}
			for i, want := range tt.wantMessages {
				if result[i].Message != want {
					t.Errorf("message[%d] = %q, want %q", i, result[i].Message, want)
				}
			}
		})
	}
}

func TestFilter_Excludes(t *testing.T) {
	f, err := New([]string{"no git logs"})
	if err != nil {
		t.Fatalf("failed to create filter: %v", err)
	}

	if !f.Excludes(domain.Issue{Message: "'new.md' has no git logs"}) {
		t.Error("expected a matching message to be excluded")
	}
	if f.Excludes(domain.Issue{Message: "unrelated warning"}) {
		t.Error("expected a non-matching message to pass")
	}
}

func TestFilter_Apply_DoesNotMutateOriginal(t *testing.T) {
	original := []domain.Issue{
		{Message: "exclude me"},
		{Message: "keep me"},
	}

	f, _ := New([]string{"exclude"})
	result := f.Apply(original)

	if len(original) != 2 {
		t.Errorf("original was mutated: got %d issues, want 2", len(original))
	}
	if len(result) != 1 || result[0].Message != "keep me" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestFilter_Empty(t *testing.T) {
	f, _ := New(nil)
	if !f.Empty() {
		t.Error("expected a pattern-less filter to be empty")
	}

	f, _ = New([]string{"x"})
	if f.Empty() {
		t.Error("expected a filter with patterns to be non-empty")
	}
}
