// Package runner provides the stream execution engine: it feeds build
// output through the processor and renders results in each output mode.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/richhaase/docs-build-filter/internal/backend"
	"github.com/richhaase/docs-build-filter/internal/domain"
	"github.com/richhaase/docs-build-filter/internal/filter"
	"github.com/richhaase/docs-build-filter/internal/processor"
	"github.com/richhaase/docs-build-filter/internal/state"
	"github.com/richhaase/docs-build-filter/internal/terminal"
	"github.com/richhaase/docs-build-filter/internal/ui"
)

const (
	// scannerInitialBuffer is the initial buffer size for reading lines.
	scannerInitialBuffer = 64 * 1024

	// scannerMaxLineSize caps a single line of build output. Sphinx
	// tracebacks and minified asset dumps can get long, but nothing
	// legitimate approaches this.
	scannerMaxLineSize = 100 * 1024 * 1024

	// eventBuffer absorbs bursts between the stream pump and the
	// interactive session.
	eventBuffer = 256
)

// Config holds the runner configuration.
type Config struct {
	// Tool pins the backend; ToolAuto detects from the stream.
	Tool backend.Tool
	// ErrorsOnly drops everything below error severity.
	ErrorsOnly bool
	// Verbose includes captured tool output with each issue.
	Verbose bool
	// Raw echoes every line unfiltered; issues are still parsed for the
	// exit code and the state snapshot, but nothing else is printed.
	Raw bool
	// ShowProgress runs a spinner on stderr while streaming.
	ShowProgress bool
	// Exclude drops issues matching user-supplied patterns; nil keeps
	// everything.
	Exclude *filter.Filter
	// Store persists state snapshots; nil disables persistence.
	Store *state.Store
	// Logger receives status messages; nil uses the default.
	Logger *terminal.Logger
	// Out receives filtered output; nil uses stdout.
	Out io.Writer
}

// Runner consumes build output and produces filtered results.
type Runner struct {
	config   Config
	logger   *terminal.Logger
	out      io.Writer
	registry *backend.Registry
}

// New creates a runner. Zero-value config fields get usable defaults.
func New(config Config) *Runner {
	logger := config.Logger
	if logger == nil {
		logger = terminal.NewLogger()
	}
	out := config.Out
	if out == nil {
		out = os.Stdout
	}
	return &Runner{
		config:   config,
		logger:   logger,
		out:      out,
		registry: backend.NewRegistry(),
	}
}

// Outcome is everything a finished stream produced.
type Outcome struct {
	Issues         []domain.Issue
	InfoMessages   []domain.InfoMessage
	BuildInfo      domain.BuildInfo
	SawBuildOutput bool
	ServerError    bool
	Rebuilds       int
	LinesRead      int
	Excluded       int
	ChildExit      int
	Elapsed        time.Duration
}

// ExitCode maps the outcome onto a process exit code: 1 when the build
// produced errors or the dev server failed, 0 otherwise. A wrapped
// tool's own exit code wins when it is worse than the filter's verdict,
// so `dbf -- mkdocs build --strict` keeps the strict failure visible.
func (o *Outcome) ExitCode() domain.ExitCode {
	verdict := domain.ExitClean
	for _, issue := range o.Issues {
		if issue.Severity == domain.SeverityError {
			verdict = domain.ExitBuildErrors
			break
		}
	}
	if o.ServerError {
		verdict = domain.ExitBuildErrors
	}
	if o.ChildExit > int(verdict) {
		return domain.ExitCode(o.ChildExit)
	}
	return verdict
}

// Errors returns the number of error-severity issues.
func (o *Outcome) Errors() int {
	return countSeverity(o.Issues, domain.SeverityError)
}

// Warnings returns the number of warning-severity issues.
func (o *Outcome) Warnings() int {
	return countSeverity(o.Issues, domain.SeverityWarning)
}

func countSeverity(issues []domain.Issue, sev domain.Severity) int {
	n := 0
	for _, issue := range issues {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}

// Stream filters in line by line, printing each unique issue as it is
// found. This is the default mode and the right one for `mkdocs serve`,
// where output keeps arriving across rebuilds.
func (r *Runner) Stream(ctx context.Context, in io.Reader) (*Outcome, error) {
	return r.consume(ctx, in, true)
}

// Batch reads the entire stream before reporting anything. Nothing is
// printed during consumption; the caller renders the outcome once.
func (r *Runner) Batch(ctx context.Context, in io.Reader) (*Outcome, error) {
	return r.consume(ctx, in, false)
}

// Wrap launches argv with stdout and stderr merged, filters its output,
// and records the tool's exit code in the outcome.
func (r *Runner) Wrap(ctx context.Context, argv []string) (*Outcome, error) {
	child, err := startCommand(ctx, argv)
	if err != nil {
		return nil, err
	}
	r.logger.Logf(terminal.StyleDim, "running %s", strings.Join(argv, " "))

	outcome, streamErr := r.Stream(ctx, child)
	_ = child.Close()
	if outcome != nil {
		outcome.ChildExit = child.ExitCode()
	}
	return outcome, streamErr
}

// Interactive feeds the stream into a full-screen session instead of
// printing lines. It returns when the user quits; if the stream ends
// first the session stays open so results can still be inspected.
func (r *Runner) Interactive(ctx context.Context, in io.Reader) (*Outcome, error) {
	g, gctx := errgroup.WithContext(ctx)

	events := make(chan ui.Event, eventBuffer)
	pumpCtx, stopPump := context.WithCancel(gctx)
	defer stopPump()

	var outcome *Outcome
	g.Go(func() error {
		defer close(events)
		var err error
		outcome, err = r.pump(pumpCtx, in, events)
		return err
	})
	g.Go(func() error {
		// When the session ends the pump has no consumer left; stop it
		// so a blocked send cannot strand the goroutine.
		defer stopPump()
		return ui.Run(gctx, events)
	})

	return outcome, g.Wait()
}

// consume is the shared scan loop. When live is set, issues and build
// milestones print as they happen; otherwise the stream is only
// accumulated into the outcome.
func (r *Runner) consume(ctx context.Context, in io.Reader, live bool) (*Outcome, error) {
	start := time.Now()

	var spin *terminal.Spinner
	spinnerDone := make(chan struct{})
	var spinnerCancel context.CancelFunc
	if live && r.config.ShowProgress && !r.config.Raw {
		spin = terminal.NewSpinner()
		var spinnerCtx context.Context
		spinnerCtx, spinnerCancel = context.WithCancel(context.Background())
		go func() {
			spin.Run(spinnerCtx)
			close(spinnerDone)
		}()
	} else {
		close(spinnerDone)
	}
	stopSpinner := func() {
		if spinnerCancel != nil {
			spinnerCancel()
			spinnerCancel = nil
		}
		<-spinnerDone
	}
	defer stopSpinner()

	clearSpinner := func() {
		if spin != nil {
			spin.Clear()
		}
	}

	rebuilds := 0
	var lastServerURL string

	proc := processor.New(processor.Options{
		ErrorsOnly: r.config.ErrorsOnly,
		Backend:    r.pinnedBackend(),
		Registry:   r.registry,
		Store:      r.config.Store,
		OnIssue: func(issue domain.Issue) {
			if !live || r.config.Raw {
				return
			}
			if r.config.Exclude != nil && r.config.Exclude.Excludes(issue) {
				return
			}
			clearSpinner()
			fmt.Fprintf(r.out, "%s\n\n", renderIssue(issue, r.config.Verbose))
		},
		OnRebuild: func() {
			rebuilds++
			if !live || r.config.Raw {
				return
			}
			clearSpinner()
			fmt.Fprintf(r.out, "\n%s\n\n", rebuildBanner())
		},
		OnBuildComplete: func(info domain.BuildInfo) {
			if !live || r.config.Raw {
				return
			}
			if info.ServerURL != "" && info.ServerURL != lastServerURL {
				lastServerURL = info.ServerURL
				clearSpinner()
				fmt.Fprintf(r.out, "%s\n", serverBanner(info.ServerURL))
			}
		},
	})

	lines := 0
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxLineSize)

	var readErr error
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Text()
		lines++
		if spin != nil {
			spin.Observe(line)
		}
		if r.config.Raw {
			fmt.Fprintln(r.out, line)
		}
		proc.ProcessLine(line)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		readErr = fmt.Errorf("failed to read build output: %w", err)
	}

	stopSpinner()

	return r.finishOutcome(proc, rebuilds, lines, start), readErr
}

// pump is the interactive counterpart of consume: stream progress goes
// out as session events instead of prints.
func (r *Runner) pump(ctx context.Context, in io.Reader, events chan<- ui.Event) (*Outcome, error) {
	start := time.Now()

	send := func(ev ui.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	rebuilds := 0
	proc := processor.New(processor.Options{
		ErrorsOnly: r.config.ErrorsOnly,
		Backend:    r.pinnedBackend(),
		Registry:   r.registry,
		Store:      r.config.Store,
		OnIssue: func(issue domain.Issue) {
			if r.config.Exclude != nil && r.config.Exclude.Excludes(issue) {
				return
			}
			send(ui.Event{Kind: ui.EventIssue, Issue: issue})
		},
		OnRebuild: func() {
			rebuilds++
			send(ui.Event{Kind: ui.EventRebuild})
		},
		OnBuildComplete: func(info domain.BuildInfo) {
			send(ui.Event{Kind: ui.EventBuildComplete, Info: info})
		},
	})

	lines := 0
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxLineSize)

	var readErr error
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Text()
		lines++
		send(ui.Event{Kind: ui.EventRawLine, Line: line})
		proc.ProcessLine(line)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		readErr = fmt.Errorf("failed to read build output: %w", err)
	}

	return r.finishOutcome(proc, rebuilds, lines, start), readErr
}

// finishOutcome flushes the processor and applies exclude patterns.
// Excluded issues stay out of the outcome entirely, exit code included;
// the state snapshot keeps the full parse.
func (r *Runner) finishOutcome(proc *processor.Processor, rebuilds, lines int, start time.Time) *Outcome {
	issues, info := proc.Finalize()
	kept := issues
	if r.config.Exclude != nil {
		kept = r.config.Exclude.Apply(issues)
	}
	return &Outcome{
		Issues:         kept,
		InfoMessages:   proc.InfoMessages(),
		BuildInfo:      info,
		SawBuildOutput: proc.SawBuildOutput(),
		ServerError:    proc.ServerError(),
		Rebuilds:       rebuilds,
		LinesRead:      lines,
		Excluded:       len(issues) - len(kept),
		ChildExit:      -1,
		Elapsed:        time.Since(start),
	}
}

func (r *Runner) pinnedBackend() backend.Backend {
	if r.config.Tool == "" || r.config.Tool == backend.ToolAuto {
		return nil
	}
	return r.registry.ForTool(r.config.Tool)
}
