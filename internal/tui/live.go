// Package tui renders a live view of a running training session. The
// pipeline reports iterations through a channel; the view keeps a rolling
// loss history and draws it alongside run statistics.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const historyCapacity = 600

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(42)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	stageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 2)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// ProgressMsg reports one optimizer iteration.
type ProgressMsg struct {
	Stage     int
	Iteration int
	Loss      float64
}

// DoneMsg signals the end of training. Err is nil on success.
type DoneMsg struct {
	Err error
}

// Model displays training progress streamed over a channel.
type Model struct {
	progress <-chan ProgressMsg
	done     <-chan DoneMsg

	stage     int
	iteration int
	loss      float64
	best      float64
	history   []float64
	start     time.Time
	finished  bool
	err       error
}

func NewModel(progress <-chan ProgressMsg, done <-chan DoneMsg) Model {
	return Model{
		progress: progress,
		done:     done,
		best:     0,
		history:  make([]float64, 0, historyCapacity),
		start:    time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.wait()
}

// wait blocks on the next progress or completion message.
func (m Model) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg, ok := <-m.progress:
			if !ok {
				return DoneMsg{}
			}
			return msg
		case msg := <-m.done:
			return msg
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case ProgressMsg:
		m.stage = msg.Stage
		m.iteration = msg.Iteration
		m.loss = msg.Loss
		if len(m.history) == 0 || msg.Loss < m.best {
			m.best = msg.Loss
		}
		m.history = append(m.history, msg.Loss)
		if len(m.history) > historyCapacity {
			m.history = m.history[1:]
		}
		return m, m.wait()
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("TRAINING") + "\n")

	status := "RUNNING"
	if m.finished {
		status = "DONE"
		if m.err != nil {
			status = "FAILED"
		}
	}
	s.WriteString(stageName(m.stage) + "  " + status + "\n\n")

	s.WriteString(labelStyle.Render("Iteration") + valueStyle.Render(fmt.Sprintf("%d", m.iteration)) + "\n")
	s.WriteString(labelStyle.Render("Loss") + valueStyle.Render(fmt.Sprintf("%.6g", m.loss)) + "\n")
	s.WriteString(labelStyle.Render("Best") + valueStyle.Render(fmt.Sprintf("%.6g", m.best)) + "\n")
	s.WriteString(labelStyle.Render("Elapsed") + valueStyle.Render(time.Since(m.start).Round(time.Second).String()) + "\n")

	if m.err != nil {
		s.WriteString("\n" + errStyle.Render(m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("\nQ:Quit"))
	statsView := statsStyle.Render(s.String())

	graphView := ""
	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history,
			asciigraph.Height(16),
			asciigraph.Width(70),
			asciigraph.Caption("loss"))
		graphView = graphStyle.Render(chart)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, graphView, statsView)
}

func stageName(stage int) string {
	switch stage {
	case 1:
		return stageStyle.Render("STAGE 1 (ADAM)")
	case 2:
		return stageStyle.Render("STAGE 2 (LBFGS)")
	default:
		return stageStyle.Render("WARMUP")
	}
}
