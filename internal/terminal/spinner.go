package terminal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	spinnerInterval = 200 * time.Millisecond
	spinnerLabelMax = 60
)

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Spinner displays build progress on stderr while output streams through.
// It is transient: when stopped it erases itself so the report starts on
// a clean row.
type Spinner struct {
	isTTY bool
	lines *atomic.Int32

	mu    sync.Mutex
	label string
}

// NewSpinner creates a new spinner.
func NewSpinner() *Spinner {
	return &Spinner{
		isTTY: IsStderrTTY(),
		lines: &atomic.Int32{},
	}
}

// Lines returns a pointer to the atomic counter for processed lines.
func (s *Spinner) Lines() *atomic.Int32 {
	return s.lines
}

// Observe records a raw build line: it bumps the line counter and keeps a
// truncated copy to show next to the spinner frame.
func (s *Spinner) Observe(line string) {
	s.lines.Add(1)
	s.mu.Lock()
	s.label = TruncateLine(line, spinnerLabelMax)
	s.mu.Unlock()
}

func (s *Spinner) currentLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// Clear erases the spinner line so other output starts on a clean row.
func (s *Spinner) Clear() {
	if !s.isTTY {
		return
	}
	fmt.Fprint(os.Stderr, "\r"+strings.Repeat(" ", 100)+"\r")
}

// Run runs the spinner until the context is cancelled.
func (s *Spinner) Run(ctx context.Context) {
	if !s.isTTY {
		<-ctx.Done()
		return
	}

	idx := 0
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Clear()
			return

		case <-ticker.C:
			frame := string(spinnerFrames[idx%len(spinnerFrames)])
			tag := fmt.Sprintf("%s[%s%sdbf%s%s]%s",
				Color(Dim), Color(Reset), Color(Cyan), Color(Reset), Color(Dim), Color(Reset))
			line := fmt.Sprintf("%s %s%s%s Building %s(%d lines)%s %s%s%s",
				tag, Color(Cyan), frame, Color(Reset),
				Color(Dim), s.lines.Load(), Color(Reset),
				Color(Dim), s.currentLabel(), Color(Reset))
			fmt.Fprint(os.Stderr, "\r"+strings.Repeat(" ", 100)+"\r"+line)
			idx++
		}
	}
}

// PhaseSpinner displays a simple spinner for a single phase.
type PhaseSpinner struct {
	isTTY bool
	label string
}

// NewPhaseSpinner creates a new phase spinner.
func NewPhaseSpinner(label string) *PhaseSpinner {
	return &PhaseSpinner{
		isTTY: IsStderrTTY(),
		label: label,
	}
}

// Run runs the phase spinner until the context is cancelled.
func (s *PhaseSpinner) Run(ctx context.Context) {
	if !s.isTTY {
		<-ctx.Done()
		return
	}

	idx := 0
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final state
			tag := fmt.Sprintf("%s[%s%sdbf%s%s]%s",
				Color(Dim), Color(Reset), Color(Green), Color(Reset), Color(Dim), Color(Reset))
			final := fmt.Sprintf("\r%s %s✓%s %s",
				tag, Color(Green), Color(Reset), s.label)
			fmt.Fprint(os.Stderr, final+"          \n")
			return

		case <-ticker.C:
			frame := string(spinnerFrames[idx%len(spinnerFrames)])
			tag := fmt.Sprintf("%s[%s%sdbf%s%s]%s",
				Color(Dim), Color(Reset), Color(Cyan), Color(Reset), Color(Dim), Color(Reset))
			line := fmt.Sprintf("\r%s %s%s%s %s",
				tag, Color(Cyan), frame, Color(Reset), s.label)
			fmt.Fprint(os.Stderr, line+"          ")
			idx++
		}
	}
}
