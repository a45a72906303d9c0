package backend

import (
	"strings"
	"testing"

	"github.com/richhaase/docs-build-filter/internal/domain"
)

func TestSphinxBackend_Detect(t *testing.T) {
	b := NewSphinxBackend()

	tests := []struct {
		name     string
		line     string
		expected bool
	}{
		{"version line", "Running Sphinx v7.2.6", true},
		{"autobuild marker", "[sphinx-autobuild] Starting initial build", true},
		{"file line warning", "docs/index.rst:5: WARNING: unknown document", true},
		{"build succeeded", "build succeeded, 2 warnings.", true},
		{"build finished", "build finished with problems, 3 warnings.", true},
		{"html pages", "The HTML pages are in _build/html.", true},
		{"sphinx crash", "Command exited: Sphinx exited with exit code: 2", true},
		{"reading sources", "reading sources... [ 50%] api", true},
		{"writing output", "writing output... [100%] index", true},
		{"mkdocs line", "INFO    -  Building documentation...", false},
		{"plain text", "just some text", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Detect(tt.line); got != tt.expected {
				t.Errorf("Detect(%q) = %v, want %v", tt.line, got, tt.expected)
			}
		})
	}
}

func TestSphinxBackend_ParseIssues_FileLineWarning(t *testing.T) {
	b := NewSphinxBackend()

	issues := b.ParseIssues([]string{"/docs/api.rst:15: WARNING: duplicate label api-reference"})

	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	issue := issues[0]
	if issue.Severity != domain.SeverityWarning {
		t.Errorf("expected warning severity, got %v", issue.Severity)
	}
	if issue.Source != "sphinx" {
		t.Errorf("expected source sphinx, got %q", issue.Source)
	}
	if issue.File != "/docs/api.rst" {
		t.Errorf("expected file /docs/api.rst, got %q", issue.File)
	}
	if issue.Line != 15 {
		t.Errorf("expected line 15, got %d", issue.Line)
	}
	if issue.Message != "duplicate label api-reference" {
		t.Errorf("unexpected message: %q", issue.Message)
	}
	if issue.Code != "" {
		t.Errorf("expected no code snippet, got %q", issue.Code)
	}
}

func TestSphinxBackend_ParseIssues_WarningCode(t *testing.T) {
	b := NewSphinxBackend()

	issues := b.ParseIssues([]string{
		"docs/index.rst:5: WARNING: toctree contains reference to nonexisting document 'missing' [toc.not_readable]",
	})

	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	if issues[0].WarningCode != "toc.not_readable" {
		t.Errorf("expected warning code toc.not_readable, got %q", issues[0].WarningCode)
	}
	if strings.Contains(issues[0].Message, "[toc.not_readable]") {
		t.Errorf("expected code stripped from message, got %q", issues[0].Message)
	}
	if issues[0].Message != "toctree contains reference to nonexisting document 'missing'" {
		t.Errorf("unexpected message: %q", issues[0].Message)
	}
}

func TestSphinxBackend_ParseIssues_FileWithoutLine(t *testing.T) {
	b := NewSphinxBackend()

	issues := b.ParseIssues([]string{"docs/conf.py: ERROR: extension 'missing_ext' could not be imported"})

	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	if issues[0].Severity != domain.SeverityError {
		t.Errorf("expected error severity, got %v", issues[0].Severity)
	}
	if issues[0].File != "docs/conf.py" {
		t.Errorf("expected file docs/conf.py, got %q", issues[0].File)
	}
	if issues[0].Line != 0 {
		t.Errorf("expected no line number, got %d", issues[0].Line)
	}
}

func TestSphinxBackend_ParseIssues_BareWarning(t *testing.T) {
	b := NewSphinxBackend()

	issues := b.ParseIssues([]string{"WARNING: html_static_path entry '_static' does not exist"})

	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	if issues[0].File != "" {
		t.Errorf("expected no file, got %q", issues[0].File)
	}
	if issues[0].Message != "html_static_path entry '_static' does not exist" {
		t.Errorf("unexpected message: %q", issues[0].Message)
	}
}

func TestSphinxBackend_ParseIssues_CellExecutionError(t *testing.T) {
	b := NewSphinxBackend()

	issues := b.ParseIssues([]string{
		"docs/notebook.ipynb: WARNING: Executing notebook failed: CellExecutionError",
		"Traceback (most recent call last):",
		`  File "nbclient/client.py", line 918, in async_execute_cell`,
		"nbclient.exceptions.CellExecutionError: An error occurred while executing the following cell:",
		"------------------",
		"import foo",
		"foo.bar()",
		"------------------",
		"",
		"ValueError",
		"",
		"build succeeded, 1 warning.",
	})

	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	issue := issues[0]
	if issue.Message != "Executing notebook failed: ValueError" {
		t.Errorf("expected rewritten message, got %q", issue.Message)
	}
	if issue.File != "docs/notebook.ipynb" {
		t.Errorf("expected notebook file, got %q", issue.File)
	}
	if issue.Code != "import foo\nfoo.bar()" {
		t.Errorf("unexpected code: %q", issue.Code)
	}
	if !strings.Contains(issue.Output, "Traceback (most recent call last):") {
		t.Errorf("expected traceback in output, got %q", issue.Output)
	}
	if !strings.Contains(issue.Output, "ValueError") {
		t.Errorf("expected error type in output, got %q", issue.Output)
	}
}

func TestSphinxBackend_ParseIssues_CellExecutionErrorWithoutBlock(t *testing.T) {
	b := NewSphinxBackend()

	// No traceback follows; the warning stands alone with its original
	// message.
	issues := b.ParseIssues([]string{
		"docs/notebook.ipynb: WARNING: Executing notebook failed: CellExecutionError",
		"writing output... [100%] index",
	})

	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	if issues[0].Message != "Executing notebook failed: CellExecutionError" {
		t.Errorf("unexpected message: %q", issues[0].Message)
	}
	if issues[0].Output != "" {
		t.Errorf("expected no output, got %q", issues[0].Output)
	}
}

func TestSphinxBackend_ParseInfoMessages_Deprecations(t *testing.T) {
	b := NewSphinxBackend()

	messages := b.ParseInfoMessages([]string{
		"/usr/lib/python3.11/site-packages/foo/core.py:10: DeprecationWarning: foo.thing is deprecated",
		"/usr/lib/python3.11/site-packages/foo/core.py:10: DeprecationWarning: foo.thing is deprecated",
		"/usr/lib/python3.11/site-packages/bar/util.py:5: PendingDeprecationWarning: bar.helper will change",
		"docs/conf.py:3: UserWarning: not a deprecation",
		"docs/index.rst:5: WARNING: this is a real sphinx warning",
	})

	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}

	first := messages[0]
	if first.Category != domain.CategoryDeprecation {
		t.Errorf("expected deprecation_warning, got %v", first.Category)
	}
	if first.File != "foo" {
		t.Errorf("expected package foo, got %q", first.File)
	}
	if first.Target != "DeprecationWarning" {
		t.Errorf("expected warning class, got %q", first.Target)
	}
	if first.Suggestion != "foo.thing is deprecated" {
		t.Errorf("unexpected suggestion: %q", first.Suggestion)
	}

	if messages[1].File != "bar" {
		t.Errorf("expected package bar second, got %q", messages[1].File)
	}
}

func TestSphinxBackend_ParseInfoMessages_FallbackPackageName(t *testing.T) {
	b := NewSphinxBackend()

	messages := b.ParseInfoMessages([]string{
		"/home/user/project/mylib/compat.py:7: DeprecationWarning: old API",
	})

	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].File != "mylib" {
		t.Errorf("expected parent directory as package, got %q", messages[0].File)
	}
}

func TestSphinxBackend_DetectChunkBoundary(t *testing.T) {
	b := NewSphinxBackend()

	tests := []struct {
		name     string
		line     string
		prevLine string
		expected domain.ChunkBoundary
	}{
		{"build succeeded", "build succeeded, 2 warnings.", "x", domain.BoundaryBuildComplete},
		{"build finished", "build finished with problems.", "x", domain.BoundaryBuildComplete},
		{"html pages fallback", "The HTML pages are in _build/html.", "x", domain.BoundaryBuildComplete},
		{"sphinx crash", "Sphinx exited with exit code: 2", "x", domain.BoundaryBuildComplete},
		{"server started", "Serving on http://127.0.0.1:8000", "x", domain.BoundaryServerStarted},
		{"detected change", "[sphinx-autobuild] Detected change: docs/index.rst", "x", domain.BoundaryRebuildStarted},
		{"rebuilding", "[sphinx-autobuild] Rebuilding...", "x", domain.BoundaryRebuildStarted},
		{"autobuild alone", "[sphinx-autobuild] Starting initial build", "x", domain.BoundaryNone},
		{"no block end heuristic", "WARNING: something", "", domain.BoundaryNone},
		{"plain text", "reading sources... [ 50%] api", "x", domain.BoundaryNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.DetectChunkBoundary(tt.line, tt.prevLine); got != tt.expected {
				t.Errorf("DetectChunkBoundary(%q, %q) = %v, want %v", tt.line, tt.prevLine, got, tt.expected)
			}
		})
	}
}

func TestSphinxBackend_ExtractBuildInfo(t *testing.T) {
	b := NewSphinxBackend()

	info := b.ExtractBuildInfo([]string{
		"Serving on http://127.0.0.1:8000",
		"The HTML pages are in _build/html.",
		"build succeeded, 5 warnings.",
	})

	if info.ServerURL != "http://127.0.0.1:8000" {
		t.Errorf("expected server URL, got %q", info.ServerURL)
	}
	if info.BuildDir != "_build/html" {
		t.Errorf("expected build dir _build/html, got %q", info.BuildDir)
	}
	if info.WarningCount != 5 {
		t.Errorf("expected 5 warnings, got %d", info.WarningCount)
	}
}

func TestSphinxBackend_ExtractBuildInfo_BuildTime(t *testing.T) {
	b := NewSphinxBackend()

	info := b.ExtractBuildInfo([]string{"The build finished in 12.3 sec"})
	if info.BuildTime != "12.3" {
		t.Errorf("expected build time 12.3, got %q", info.BuildTime)
	}

	info = b.ExtractBuildInfo([]string{"build succeeded in 42.2s"})
	if info.BuildTime != "42.2" {
		t.Errorf("expected build time 42.2, got %q", info.BuildTime)
	}
}

func TestSphinxBackend_InMultilineBlock(t *testing.T) {
	b := NewSphinxBackend()

	if b.InMultilineBlock([]string{"Traceback (most recent call last):"}) {
		t.Error("expected sphinx to never report an open block")
	}
}
