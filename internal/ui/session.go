// Package ui implements the interactive full-screen session: a live issue
// list fed by the stream processor, with keys to switch between the
// filtered view and the raw output tail.
package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/richhaase/docs-build-filter/internal/domain"
)

// rawTailLines bounds the unfiltered tail kept for the raw view.
const rawTailLines = 500

// EventKind discriminates stream events fed into the session.
type EventKind int

const (
	// EventRawLine is one unparsed line of build output.
	EventRawLine EventKind = iota
	// EventIssue is a unique issue emitted by the stream processor.
	EventIssue
	// EventRebuild marks the start of a watch rebuild cycle.
	EventRebuild
	// EventBuildComplete marks the end of a build cycle.
	EventBuildComplete
)

// Event is one unit of stream progress shown by the session.
type Event struct {
	Kind  EventKind
	Line  string
	Issue domain.Issue
	Info  domain.BuildInfo
}

type eventMsg Event
type doneMsg struct{}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type sessionModel struct {
	events  <-chan Event
	spinner spinner.Model

	issues    []domain.Issue
	rawTail   []string
	buildInfo domain.BuildInfo

	building   bool
	rebuilds   int
	showRaw    bool
	errorsOnly bool
	done       bool

	width  int
	height int
}

// NewSession returns a Bubble Tea model that renders the filter session.
func NewSession(events <-chan Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	return &sessionModel{
		events:   events,
		spinner:  sp,
		building: true,
		width:    80,
		height:   24,
	}
}

func (m *sessionModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		m.building = false
		return m, nil
	case spinner.TickMsg:
		if !m.building {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.showRaw = true
		case "f":
			m.showRaw = false
		case "e":
			m.errorsOnly = !m.errorsOnly
		}
		return m, nil
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		if msg.Height > 0 {
			m.height = msg.Height
		}
		return m, nil
	}
	return m, nil
}

func (m *sessionModel) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.countsView())
	b.WriteString("\n\n")

	body := m.bodyLines()
	limit := m.bodyHeight()
	if len(body) > limit {
		body = body[len(body)-limit:]
	}
	for _, line := range body {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.footerView())
	b.WriteString("\n")

	return b.String()
}

func (m *sessionModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *sessionModel) applyEvent(ev Event) tea.Cmd {
	switch ev.Kind {
	case EventRawLine:
		m.rawTail = append(m.rawTail, ev.Line)
		if len(m.rawTail) > rawTailLines {
			m.rawTail = m.rawTail[len(m.rawTail)-rawTailLines:]
		}
	case EventIssue:
		m.issues = append(m.issues, ev.Issue)
	case EventRebuild:
		wasIdle := !m.building
		m.rebuilds++
		m.building = true
		m.issues = nil
		m.buildInfo = domain.BuildInfo{ServerURL: m.buildInfo.ServerURL}
		if wasIdle {
			// The spinner stopped ticking when the last build finished.
			return m.spinner.Tick
		}
	case EventBuildComplete:
		m.building = false
		m.buildInfo.Merge(ev.Info)
	}
	return nil
}

func (m *sessionModel) headerView() string {
	status := "build complete"
	switch {
	case m.done:
		status = "stream ended"
	case m.building && m.rebuilds > 0:
		status = fmt.Sprintf("rebuilding (cycle %d)", m.rebuilds+1)
	case m.building:
		status = "building"
	case m.buildInfo.ServerURL != "":
		status = "serving " + m.buildInfo.ServerURL
	}

	header := titleStyle.Render("docs build") + " " + dimStyle.Render(status)
	if m.building && !m.done {
		header = m.spinner.View() + " " + header
	}
	return header
}

func (m *sessionModel) countsView() string {
	errs, warns := 0, 0
	for _, issue := range m.issues {
		if issue.Severity == domain.SeverityError {
			errs++
		} else {
			warns++
		}
	}

	parts := []string{
		errorStyle.Render(fmt.Sprintf("✗ %d errors", errs)),
		warnStyle.Render(fmt.Sprintf("⚠ %d warnings", warns)),
	}
	if m.buildInfo.BuildTime != "" {
		parts = append(parts, dimStyle.Render(fmt.Sprintf("built in %ss", m.buildInfo.BuildTime)))
	}
	return strings.Join(parts, "  ")
}

func (m *sessionModel) bodyLines() []string {
	if m.showRaw {
		lines := make([]string, 0, len(m.rawTail))
		for _, raw := range m.rawTail {
			lines = append(lines, dimStyle.MaxWidth(m.width-2).Render("  "+raw))
		}
		return lines
	}

	var lines []string
	for _, issue := range m.issues {
		if m.errorsOnly && issue.Severity != domain.SeverityError {
			continue
		}
		lines = append(lines, m.issueLine(issue))
	}
	if len(lines) == 0 {
		if m.building {
			lines = append(lines, dimStyle.Render("  waiting for build output"))
		} else {
			lines = append(lines, okStyle.Render("  ✓ no warnings or errors"))
		}
	}
	return lines
}

func (m *sessionModel) issueLine(issue domain.Issue) string {
	marker := warnStyle.Render("⚠")
	if issue.Severity == domain.SeverityError {
		marker = errorStyle.Render("✗")
	}

	line := fmt.Sprintf("  %s %s %s", marker, dimStyle.Render("["+issue.Source+"]"), issue.Message)
	if issue.File != "" {
		loc := issue.File
		if issue.Line > 0 {
			loc = fmt.Sprintf("%s:%d", issue.File, issue.Line)
		}
		line += " " + accentStyle.Render(loc)
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

func (m *sessionModel) bodyHeight() int {
	// Header, counts, two separators, and the footer take five rows.
	h := m.height - 5
	if h < 3 {
		h = 3
	}
	return h
}

func (m *sessionModel) footerView() string {
	view := "filtered"
	if m.showRaw {
		view = "raw"
	}
	if m.errorsOnly {
		view += " (errors only)"
	}

	help := "r raw · f filtered · e errors-only · q quit"
	if m.done {
		help = "stream ended · q quit"
	}
	return dimStyle.Render(fmt.Sprintf("view: %s   %s", view, help))
}

// Run drives a session over events until the user quits or ctx is
// canceled. The caller owns the producer side: on return it should stop
// the stream so the producer can finish.
func Run(ctx context.Context, events <-chan Event) error {
	model := NewSession(events)
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithOutput(os.Stdout),
		tea.WithAltScreen(),
	)
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		// Shutdown came from the context, not a terminal failure.
		return nil
	}
	return err
}
