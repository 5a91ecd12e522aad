// internal/tui/tui.go

// Package tui shows live benchmark progress in a Bubble Tea program.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/tokbench/internal/benchmark"
	"github.com/mwiater/tokbench/internal/logging"
	"github.com/mwiater/tokbench/internal/report"
	"github.com/mwiater/tokbench/internal/suite"
	"github.com/mwiater/tokbench/internal/util"
)

const (
	maxLogLines   = 8
	maxBarWidth   = 60
	previewLength = 60
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type (
	testStartedMsg struct {
		index, total int
		tc           suite.TestCase
	}
	invocationStartedMsg struct {
		model string
		tc    suite.TestCase
	}
	invocationFinishedMsg struct {
		model   string
		rec     benchmark.ResultRecord
		preview string
	}
	invocationFailedMsg struct {
		model string
		tc    suite.TestCase
		err   error
	}
	runDoneMsg struct{ err error }
)

// model is the Bubble Tea model for the progress view.
type model struct {
	title     string
	spinner   spinner.Model
	progress  progress.Model
	total     int
	completed int
	failed    int
	testIndex int
	testTotal int
	current   suite.TestCase
	running   []string
	log       []string
	done      bool
	err       error
	cancel    context.CancelFunc
}

func newModel(title string, totalInvocations int, cancel context.CancelFunc) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &model{
		title:    title,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		total:    totalInvocations,
		cancel:   cancel,
	}
}

// Init starts the spinner.
func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update applies run events and terminal input to the model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.progress.Width = min(maxBarWidth, max(10, msg.Width-4))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case testStartedMsg:
		m.testIndex, m.testTotal, m.current = msg.index, msg.total, msg.tc

	case invocationStartedMsg:
		m.running = append(m.running, msg.model)

	case invocationFinishedMsg:
		m.finish(msg.model)
		line := fmt.Sprintf("✓ %s  %s  %s tok/s", msg.model, msg.rec.Label, report.FormatRate(msg.rec.TokensPerSecond))
		if msg.preview != "" {
			line += dimStyle.Render("  " + msg.preview)
		}
		m.appendLog(okStyle.Render(line))
		return m, m.progress.SetPercent(m.percent())

	case invocationFailedMsg:
		m.finish(msg.model)
		m.failed++
		m.appendLog(errorStyle.Render(fmt.Sprintf("✗ %s  %s  %s", msg.model, msg.tc.Label, util.Preview(msg.err.Error(), previewLength))))
		return m, m.progress.SetPercent(m.percent())

	case runDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) finish(name string) {
	m.completed++
	for i, r := range m.running {
		if r == name {
			m.running = append(m.running[:i], m.running[i+1:]...)
			break
		}
	}
}

func (m *model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m *model) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.completed) / float64(m.total)
}

// View renders the progress view.
func (m *model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.title))
	b.WriteString("\n\n")

	if m.done {
		b.WriteString(fmt.Sprintf("Finished %d/%d invocations", m.completed, m.total))
	} else {
		b.WriteString(m.spinner.View())
		if m.testTotal > 0 {
			b.WriteString(fmt.Sprintf(" [%d/%d] %s", m.testIndex+1, m.testTotal, m.current.Category))
			if m.current.Label != m.current.Category {
				b.WriteString(" - " + m.current.Label)
			}
		} else {
			b.WriteString(" starting")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")
	if len(m.running) > 0 {
		b.WriteString(dimStyle.Render("running: " + strings.Join(m.running, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, line := range m.log {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	status := fmt.Sprintf("%d/%d done", m.completed, m.total)
	if m.failed > 0 {
		status += fmt.Sprintf(", %d failed", m.failed)
	}
	b.WriteString(dimStyle.Render(status + " | q to quit"))
	b.WriteString("\n")
	return b.String()
}

// Observer forwards runner events to a Bubble Tea program.
type Observer struct {
	send func(tea.Msg)
}

// NewObserver returns an Observer that delivers events with send, usually (*tea.Program).Send.
func NewObserver(send func(tea.Msg)) *Observer {
	return &Observer{send: send}
}

func (o *Observer) TestStarted(index, total int, tc suite.TestCase) {
	o.send(testStartedMsg{index: index, total: total, tc: tc})
}

func (o *Observer) InvocationStarted(model string, tc suite.TestCase) {
	o.send(invocationStartedMsg{model: model, tc: tc})
}

func (o *Observer) InvocationFinished(model string, rec benchmark.ResultRecord, content string) {
	o.send(invocationFinishedMsg{model: model, rec: rec, preview: util.Preview(content, previewLength)})
}

func (o *Observer) InvocationFailed(model string, tc suite.TestCase, err error) {
	o.send(invocationFailedMsg{model: model, tc: tc, err: err})
}

// RunFunc executes a benchmark, reporting progress to obs.
type RunFunc func(ctx context.Context, obs benchmark.Observer) error

// Run shows the progress view while fn executes in a goroutine. Quitting the
// view cancels the context passed to fn. Run returns fn's error once it has
// stopped.
func Run(ctx context.Context, title string, totalInvocations int, fn RunFunc, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(title, totalInvocations, cancel)
	p := tea.NewProgram(m, opts...)

	errCh := make(chan error, 1)
	go func() {
		err := fn(ctx, NewObserver(p.Send))
		errCh <- err
		p.Send(runDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errCh
		return fmt.Errorf("progress view: %w", err)
	}
	cancel()
	err := <-errCh
	if err != nil {
		logging.LogError("%s finished with error: %v", title, err)
	}
	return err
}
