// Package processor turns a raw build-output stream into deduplicated
// issues, notices, and build metadata, one line at a time.
package processor

import (
	"regexp"
	"strings"
	"time"

	"github.com/richhaase/docs-build-filter/internal/backend"
	"github.com/richhaase/docs-build-filter/internal/domain"
	"github.com/richhaase/docs-build-filter/internal/state"
)

const (
	// parseWindow bounds how many lines are kept for boundary-driven
	// parsing; no multi-line diagnostic spans more than this.
	parseWindow = 200
	// rawWindow bounds the unfiltered tail kept for state snapshots.
	rawWindow = 500
)

var (
	// Lines that look like build output even before any backend has
	// claimed the stream.
	levelLinePattern     = regexp.MustCompile(`^(INFO|WARNING|ERROR|DEBUG)\s+-`)
	timestampLinePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}.*?(INFO|WARNING|ERROR)`)

	// Exceptions a crashing dev server prints at the start of a traceback
	// frame.
	serverErrorPattern = regexp.MustCompile(`^(OSError|IOError|PermissionError|ConnectionError):`)
)

// Options configure a Processor.
type Options struct {
	// ErrorsOnly drops everything below error severity.
	ErrorsOnly bool
	// Backend pins the parser; nil auto-detects from the stream.
	Backend backend.Backend
	// Registry supplies the known backends; nil uses the defaults.
	Registry *backend.Registry
	// Store persists a snapshot after each build cycle; nil disables
	// persistence.
	Store *state.Store
	// OnIssue is invoked once per unique issue, in stream order.
	OnIssue func(domain.Issue)
	// OnRebuild is invoked when a watch rebuild begins, before per-build
	// state is reset.
	OnRebuild func()
	// OnBuildComplete is invoked when a build cycle reaches a completion
	// boundary, with the metadata collected so far.
	OnBuildComplete func(domain.BuildInfo)
}

// Processor consumes one line of build output at a time, detects which
// tool produced the stream, buffers lines until a chunk boundary, and
// parses each completed chunk into issues and notices. Results accumulate
// per build cycle; a rebuild boundary starts a fresh cycle.
type Processor struct {
	opts    Options
	backend backend.Backend

	buffer    []string
	rawBuffer []string

	issues       []domain.Issue
	infoMessages []domain.InfoMessage
	seenIssues   map[string]struct{}
	seenInfo     map[string]struct{}
	buildInfo    domain.BuildInfo

	prevLine string
	havePrev bool

	sawBuildOutput bool
	serveMode      bool
	serverError    bool
	errorLines     []string

	buildStartedAt time.Time
}

// New returns a processor ready to consume a stream. When a store is
// configured, a building snapshot is written immediately so observers can
// tell a build is in flight.
func New(opts Options) *Processor {
	if opts.Registry == nil {
		opts.Registry = backend.NewRegistry()
	}
	p := &Processor{
		opts:       opts,
		backend:    opts.Backend,
		seenIssues: make(map[string]struct{}),
		seenInfo:   make(map[string]struct{}),
	}
	p.writeBuildingSnapshot()
	return p
}

// ProcessLine consumes one line of output. Trailing whitespace is
// stripped; everything else, ANSI escapes included, is kept verbatim.
func (p *Processor) ProcessLine(line string) {
	line = strings.TrimRight(line, " \t\r\n")

	p.buffer = append(p.buffer, line)
	p.rawBuffer = append(p.rawBuffer, line)

	if p.backend == nil {
		p.backend = p.opts.Registry.Detect(line)
	}

	if !p.sawBuildOutput {
		if p.backend != nil || levelLinePattern.MatchString(line) || timestampLinePattern.MatchString(line) {
			p.sawBuildOutput = true
		}
	}

	if strings.Contains(line, "Serving on http") {
		p.serveMode = true
	}

	if isServerErrorLine(line) {
		p.serverError = true
	}
	if p.serverError {
		p.errorLines = append(p.errorLines, line)
	}

	if len(p.buffer) > parseWindow {
		p.buffer = p.buffer[len(p.buffer)-parseWindow:]
	}
	if len(p.rawBuffer) > rawWindow {
		p.rawBuffer = p.rawBuffer[len(p.rawBuffer)-rawWindow:]
	}

	boundary := p.activeBackend().DetectChunkBoundary(line, p.prevLine)
	if boundary == domain.BoundaryErrorBlockEnd && !p.havePrev {
		// The very first line of a stream cannot close a block.
		boundary = domain.BoundaryNone
	}
	p.prevLine = line
	p.havePrev = true

	switch boundary {
	case domain.BoundaryRebuildStarted:
		p.startRebuild()
	case domain.BoundaryBuildComplete, domain.BoundaryServerStarted:
		p.flush()
		p.mergeBuildInfo([]string{line})
		p.writeCompleteSnapshot()
		if p.opts.OnBuildComplete != nil {
			p.opts.OnBuildComplete(p.buildInfo)
		}
	case domain.BoundaryErrorBlockEnd:
		p.flush()
	}
}

// Finalize parses whatever the window still holds and returns the results
// for the current build cycle. When persistence is enabled the final
// snapshot is written even if the stream never reached a completion
// boundary, so an interrupted build still leaves an inspectable record.
func (p *Processor) Finalize() ([]domain.Issue, domain.BuildInfo) {
	p.flush()
	p.writeCompleteSnapshot()
	return p.issues, p.buildInfo
}

// Issues returns the unique issues accumulated for the current build cycle.
func (p *Processor) Issues() []domain.Issue { return p.issues }

// InfoMessages returns the notices accumulated for the current build cycle.
func (p *Processor) InfoMessages() []domain.InfoMessage { return p.infoMessages }

// BuildInfo returns the build metadata collected so far.
func (p *Processor) BuildInfo() domain.BuildInfo { return p.buildInfo }

// Backend returns the backend bound to the stream, nil before detection.
func (p *Processor) Backend() backend.Backend { return p.backend }

// SawBuildOutput reports whether the stream ever looked like build output.
func (p *Processor) SawBuildOutput() bool { return p.sawBuildOutput }

// ServeMode reports whether the stream belongs to a live-reload dev server.
func (p *Processor) ServeMode() bool { return p.serveMode }

// ServerError reports whether a fatal dev-server failure was seen.
func (p *Processor) ServerError() bool { return p.serverError }

// ErrorLines returns the raw lines captured from the first fatal server
// failure onward.
func (p *Processor) ErrorLines() []string { return p.errorLines }

// RawTail returns the retained tail of the unfiltered stream.
func (p *Processor) RawTail() []string { return p.rawBuffer }

// flush parses the current window and folds new issues and notices into
// the accumulated results. The window is not cleared: boundaries can fire
// mid-diagnostic, and deduplication makes re-parsing the same lines safe.
func (p *Processor) flush() {
	if len(p.buffer) == 0 {
		return
	}
	b := p.activeBackend()
	p.mergeBuildInfo(p.buffer)

	for _, msg := range b.ParseInfoMessages(p.buffer) {
		key := msg.Key()
		if _, ok := p.seenInfo[key]; ok {
			continue
		}
		p.seenInfo[key] = struct{}{}
		p.infoMessages = append(p.infoMessages, msg)
	}

	for _, issue := range b.ParseIssues(p.buffer) {
		if p.opts.ErrorsOnly && issue.Severity != domain.SeverityError {
			continue
		}
		key := issue.Key()
		if _, ok := p.seenIssues[key]; ok {
			continue
		}
		p.seenIssues[key] = struct{}{}
		p.issues = append(p.issues, issue)
		if p.opts.OnIssue != nil {
			p.opts.OnIssue(issue)
		}
	}
}

// startRebuild flushes whatever the previous build cycle still buffered,
// then resets per-build state. The server URL survives: a rebuild does not
// restart the dev server.
func (p *Processor) startRebuild() {
	p.flush()
	if p.opts.OnRebuild != nil {
		p.opts.OnRebuild()
	}

	serverURL := p.buildInfo.ServerURL
	p.buffer = p.buffer[:0]
	p.rawBuffer = p.rawBuffer[:0]
	p.issues = nil
	p.infoMessages = nil
	p.seenIssues = make(map[string]struct{})
	p.seenInfo = make(map[string]struct{})
	p.buildInfo = domain.BuildInfo{ServerURL: serverURL}

	p.writeBuildingSnapshot()
}

func (p *Processor) activeBackend() backend.Backend {
	if p.backend != nil {
		return p.backend
	}
	return p.opts.Registry.ForTool(backend.ToolAuto)
}

func (p *Processor) mergeBuildInfo(lines []string) {
	info := p.activeBackend().ExtractBuildInfo(lines)
	p.buildInfo.Merge(info)
}

// writeBuildingSnapshot marks a build as in flight. Persistence failures
// never interrupt stream processing.
func (p *Processor) writeBuildingSnapshot() {
	if p.opts.Store == nil {
		return
	}
	p.buildStartedAt = time.Now()
	_ = p.opts.Store.Write(&state.Snapshot{
		BuildInfo:      p.buildInfo,
		BuildStatus:    state.StatusBuilding,
		BuildStartedAt: p.buildStartedAt,
	})
}

func (p *Processor) writeCompleteSnapshot() {
	if p.opts.Store == nil {
		return
	}
	_ = p.opts.Store.Write(&state.Snapshot{
		Issues:         p.issues,
		InfoMessages:   p.infoMessages,
		BuildInfo:      p.buildInfo,
		RawOutput:      p.rawBuffer,
		BuildStatus:    state.StatusComplete,
		BuildStartedAt: p.buildStartedAt,
	})
}

// isServerErrorLine reports fatal dev-server failures: an exception name
// opening a traceback line, a port collision, or an OS-level permission
// error.
func isServerErrorLine(line string) bool {
	stripped := strings.TrimSpace(line)
	if serverErrorPattern.MatchString(stripped) {
		return true
	}
	if strings.Contains(line, "Address already in use") {
		return true
	}
	return strings.Contains(line, "Permission denied") && strings.Contains(line, "OSError")
}
