// Package tui replays the welcome splash in a terminal.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zachkp/folio/internal/welcome"
)

const barWidth = 32

var (
	positionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	greetingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).MarginBottom(1)
	languageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	barFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	barTrackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

type frameMsg welcome.Frame

type doneMsg struct{}

// Model is the Bubble Tea model driving one sequencer.
type Model struct {
	seq    *welcome.Sequencer
	frames chan welcome.Frame

	frame     welcome.Frame
	completed bool
	skipped   bool
	width     int
	height    int
}

// NewModel builds a model around a fresh sequencer. The sequencer starts in
// Init.
func NewModel(translations []welcome.Translation, opts ...welcome.Option) (*Model, error) {
	// start frame, one per advance, exiting and complete: at most len+2
	frames := make(chan welcome.Frame, len(translations)+2)
	opts = append(opts, welcome.WithObserver(func(f welcome.Frame) { frames <- f }))

	seq, err := welcome.New(translations, func() {}, opts...)
	if err != nil {
		return nil, err
	}
	return &Model{
		seq:    seq,
		frames: frames,
		frame:  seq.Frame(),
		width:  80,
	}, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.seq.Start()
	return m.waitForFrame()
}

func (m *Model) waitForFrame() tea.Cmd {
	frames, done := m.frames, m.seq.Done()
	return func() tea.Msg {
		select {
		case f := <-frames:
			return frameMsg(f)
		case <-done:
			select {
			case f := <-frames:
				return frameMsg(f)
			default:
				return doneMsg{}
			}
		}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frame = welcome.Frame(msg)
		if m.frame.Phase == welcome.PhaseComplete {
			m.completed = true
			return m, tea.Quit
		}
		return m, m.waitForFrame()

	case doneMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c", "enter", " ":
			m.skipped = true
			m.seq.Dispose()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if !m.frame.Visible {
		return ""
	}

	var b strings.Builder
	b.WriteString(positionStyle.Render(strings.ToUpper(fmt.Sprintf("Language %d of %d", m.frame.Position(), m.frame.Total))))
	b.WriteString("\n\n")
	b.WriteString(greetingStyle.Render(m.frame.Entry.Text))
	b.WriteString("\n")
	b.WriteString(languageStyle.Render(m.frame.Entry.LanguageName))
	b.WriteString("\n\n")
	b.WriteString(progressBar(m.frame.Progress, barWidth))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter to skip • q to quit"))

	block := lipgloss.NewStyle().Align(lipgloss.Center).Render(b.String())
	if m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, block)
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, block)
}

// Dispose stops the sequencer. It is safe to call more than once and after
// the sequence has completed.
func (m *Model) Dispose() {
	m.seq.Dispose()
}

// Outcome is "completed", "skipped" or "interrupted".
func (m *Model) Outcome() string {
	switch {
	case m.completed:
		return "completed"
	case m.skipped:
		return "skipped"
	default:
		return "interrupted"
	}
}

// Completed reports whether the sequence ran to the end.
func (m *Model) Completed() bool {
	return m.completed
}

// Skipped reports whether the user cut the sequence short.
func (m *Model) Skipped() bool {
	return m.skipped
}

func progressBar(progress float64, width int) string {
	filled := int(progress * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return barFillStyle.Render(strings.Repeat("━", filled)) + barTrackStyle.Render(strings.Repeat("━", width-filled))
}
