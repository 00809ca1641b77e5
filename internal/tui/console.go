package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Krive/spbatch/pkg/spbatch"
)

// RequestSummary is the static (pre-dispatch) description of one queued
// request, enough to render a row before its ProgressEvent arrives.
type RequestSummary struct {
	ID     string
	Method spbatch.HTTPMethod
	Family spbatch.APIFamily
	Label  string // e.g. the request URL, for display only
}

type rowState struct {
	RequestSummary
	done   bool
	status int
	err    error
}

type eventsClosedMsg struct{}

// Console is a bubbletea Model that renders one row per queued request and
// fills it in live as spbatch.ProgressEvent values arrive on events. Wire
// it with Client.SetProgressChannel before calling Client.ExecuteBatch in a
// separate goroutine, then run the console with bubbletea.
type Console struct {
	rows    []rowState
	byID    map[string]int
	events  <-chan spbatch.ProgressEvent
	closed  bool
	width   int
	spinner spinner.Model
}

// NewConsole builds a console for the given requests, reading progress
// from events. events should be the receive side of the channel passed to
// Client.SetProgressChannel.
func NewConsole(requests []RequestSummary, events <-chan spbatch.ProgressEvent) Console {
	rows := make([]rowState, len(requests))
	byID := make(map[string]int, len(requests))
	for i, r := range requests {
		rows[i] = rowState{RequestSummary: r}
		byID[r.ID] = i
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = pendingStyle

	return Console{rows: rows, byID: byID, events: events, spinner: s}
}

func (c Console) Init() tea.Cmd {
	return tea.Batch(waitForEvent(c.events), c.spinner.Tick)
}

func waitForEvent(ch <-chan spbatch.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return ev
	}
}

func (c Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = m.Width
		return c, nil

	case tea.KeyMsg:
		switch m.String() {
		case "q", "ctrl+c":
			return c, tea.Quit
		}
		return c, nil

	case spbatch.ProgressEvent:
		if idx, ok := c.byID[m.RequestID]; ok {
			c.rows[idx].done = true
			c.rows[idx].status = m.Status
			c.rows[idx].err = m.Err
		}
		return c, waitForEvent(c.events)

	case eventsClosedMsg:
		c.closed = true
		return c, nil
	}

	var cmd tea.Cmd
	c.spinner, cmd = c.spinner.Update(msg)
	return c, cmd
}

func (c Console) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("spbatch — dispatching %d request(s)", len(c.rows))))
	b.WriteString("\n\n")

	for _, r := range c.rows {
		line := fmt.Sprintf("%-6s %-5s %s", r.Method, r.Family, r.Label)
		switch {
		case !r.done:
			b.WriteString(c.spinner.View() + " " + pendingStyle.Render(line))
		case r.err != nil:
			b.WriteString(errStyle.Render(fmt.Sprintf("✗ %s (%v)", line, r.err)))
		default:
			b.WriteString(okStyle.Render(fmt.Sprintf("✓ %s (%d)", line, r.status)))
		}
		b.WriteString("\n")
	}

	footer := "press q to quit"
	if c.closed {
		footer = "done — press q to quit"
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render(footer))
	return b.String()
}
