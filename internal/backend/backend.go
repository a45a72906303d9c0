// Package backend provides per-tool parsers for documentation build output.
// Each supported build tool (mkdocs, sphinx) has a backend that knows how to
// recognize its log format, extract warnings and errors, and spot the
// boundaries between build cycles in a live stream.
package backend

import (
	"fmt"

	"github.com/richhaase/docs-build-filter/internal/domain"
)

// Tool identifies a documentation build tool.
type Tool string

const (
	ToolMkDocs Tool = "mkdocs"
	ToolSphinx Tool = "sphinx"
	// ToolAuto defers the choice to stream auto-detection.
	ToolAuto Tool = "auto"
)

// SupportedTools lists all valid tool names.
var SupportedTools = []string{"mkdocs", "sphinx", "auto"}

// ParseTool validates a tool name from user input.
func ParseTool(name string) (Tool, error) {
	switch name {
	case "mkdocs":
		return ToolMkDocs, nil
	case "sphinx":
		return ToolSphinx, nil
	case "auto", "":
		return ToolAuto, nil
	default:
		return "", fmt.Errorf("unknown tool %q, supported: mkdocs, sphinx, auto", name)
	}
}

// Backend parses one build tool's output format.
// Implementations include MkDocsBackend and SphinxBackend.
// All methods must be total over arbitrary input: build logs are free text,
// and an unrecognized or corrupted line is a no-match, never an error.
type Backend interface {
	// Tool returns the build tool this backend parses.
	Tool() Tool

	// Detect reports whether a single line is recognizable as this tool's
	// output. It runs on every line until a backend is bound, so it must
	// stay cheap.
	Detect(line string) bool

	// ParseIssues extracts warnings and errors from a window of output
	// lines. The same line may be seen across successive windows; callers
	// deduplicate.
	ParseIssues(lines []string) []domain.Issue

	// ParseInfoMessages extracts notable INFO-level notices (broken links,
	// pages missing from nav, deprecation warnings). Lines claimed by
	// ParseIssues are never reported here as well.
	ParseInfoMessages(lines []string) []domain.InfoMessage

	// DetectChunkBoundary classifies a line as a boundary in the output
	// stream. prevLine is the preceding line; the caller is responsible
	// for ignoring BoundaryErrorBlockEnd when no previous line exists,
	// since that heuristic needs a blank line before the current one.
	DetectChunkBoundary(line, prevLine string) domain.ChunkBoundary

	// ExtractBuildInfo pulls server URL, build directory, and timing out
	// of a window of output lines.
	ExtractBuildInfo(lines []string) domain.BuildInfo

	// InMultilineBlock reports whether the window ends inside an unclosed
	// multi-line diagnostic block, meaning parsing should wait for more
	// lines.
	InMultilineBlock(lines []string) bool
}

// Registry holds backend instances in detection priority order.
// Construct one at startup and pass it to whatever needs detection;
// there is no package-level instance.
type Registry struct {
	backends []Backend
}

// NewRegistry creates a registry with all supported backends.
// MkDocs is registered ahead of Sphinx, so a line both could claim
// resolves to MkDocs.
func NewRegistry() *Registry {
	return &Registry{
		backends: []Backend{
			NewMkDocsBackend(),
			NewSphinxBackend(),
		},
	}
}

// Detect returns the first backend that recognizes the line, or nil if
// none does.
func (r *Registry) Detect(line string) Backend {
	for _, b := range r.backends {
		if b.Detect(line) {
			return b
		}
	}
	return nil
}

// DetectFromLines scans lines in order and returns the first backend
// detected, falling back to the backend for fallback when nothing matches.
func (r *Registry) DetectFromLines(lines []string, fallback Tool) Backend {
	for _, line := range lines {
		if b := r.Detect(line); b != nil {
			return b
		}
	}
	return r.ForTool(fallback)
}

// ForTool returns the backend for an explicit tool choice. ToolAuto maps
// to MkDocs; callers that can should prefer stream auto-detection over
// ForTool(ToolAuto).
func (r *Registry) ForTool(tool Tool) Backend {
	if tool == ToolSphinx {
		return r.sphinx()
	}
	return r.mkdocs()
}

func (r *Registry) mkdocs() Backend {
	for _, b := range r.backends {
		if b.Tool() == ToolMkDocs {
			return b
		}
	}
	return NewMkDocsBackend()
}

func (r *Registry) sphinx() Backend {
	for _, b := range r.backends {
		if b.Tool() == ToolSphinx {
			return b
		}
	}
	return NewSphinxBackend()
}
