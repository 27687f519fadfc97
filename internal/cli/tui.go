package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wardline/wardline/pkg/pipeline"
)

// Stage list styles
var (
	stageDoneStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	stageFailStyle   = lipgloss.NewStyle().Foreground(colorRed)
	stageActiveStyle = lipgloss.NewStyle().Foreground(colorWhite)
	stageIdleStyle   = lipgloss.NewStyle().Foreground(colorDim)
	barOnStyle       = lipgloss.NewStyle().Foreground(colorCyan)
	barOffStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Messages
// =============================================================================

// Messages delivered into the run model from the pipeline goroutine.
type (
	stageStartMsg struct{ Stage string }

	stageDoneMsg struct {
		Stage    string
		Duration time.Duration
		Err      error
	}

	stagePercentMsg struct {
		Stage   string
		Percent int
	}

	runFinishedMsg struct{}

	frameMsg time.Time
)

// Stage display states.
const (
	stageIdle = iota
	stageActive
	stageDone
	stageFailed
)

// =============================================================================
// RunModel - Live pipeline progress
// =============================================================================

// RunModel is the bubbletea model shown while a plan is computed. Stage
// transitions arrive as messages; stages that never start (cache hits)
// stay idle.
type RunModel struct {
	Title   string
	Aborted bool

	stages   []string
	status   map[string]int
	times    map[string]time.Duration
	percent  map[string]int
	frame    int
	finished bool
}

// NewRunModel creates a run model covering the four pipeline stages.
func NewRunModel(title string) RunModel {
	stages := []string{
		pipeline.StageFetch,
		pipeline.StageAssemble,
		pipeline.StagePartition,
		pipeline.StageSummarize,
	}
	status := make(map[string]int, len(stages))
	for _, s := range stages {
		status[s] = stageIdle
	}
	return RunModel{
		Title:   title,
		stages:  stages,
		status:  status,
		times:   make(map[string]time.Duration, len(stages)),
		percent: make(map[string]int, 1),
	}
}

func (m RunModel) Init() tea.Cmd {
	return frameTick()
}

func frameTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Aborted = true
			return m, tea.Quit
		}
	case frameMsg:
		if m.finished {
			return m, nil
		}
		m.frame++
		return m, frameTick()
	case stageStartMsg:
		m.status[msg.Stage] = stageActive
	case stageDoneMsg:
		if msg.Err != nil {
			m.status[msg.Stage] = stageFailed
		} else {
			m.status[msg.Stage] = stageDone
		}
		m.times[msg.Stage] = msg.Duration
	case stagePercentMsg:
		if m.status[msg.Stage] == stageIdle {
			m.status[msg.Stage] = stageActive
		}
		m.percent[msg.Stage] = msg.Percent
	case runFinishedMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m RunModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n\n")

	for _, stage := range m.stages {
		b.WriteString(m.renderStage(stage))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(stageIdleStyle.Render("q or ctrl+c to abort"))
	b.WriteString("\n")

	return b.String()
}

func (m RunModel) renderStage(stage string) string {
	switch m.status[stage] {
	case stageDone:
		line := fmt.Sprintf("  %s %-10s", stageDoneStyle.Render(iconSuccess), stage)
		if d, ok := m.times[stage]; ok {
			line += " " + stageIdleStyle.Render(formatDuration(d))
		}
		return line
	case stageFailed:
		return fmt.Sprintf("  %s %-10s", stageFailStyle.Render(iconError), stage)
	case stageActive:
		frame := spinnerFrames[m.frame%len(spinnerFrames)]
		line := fmt.Sprintf("  %s %s", styleIconSpinner.Render(frame), stageActiveStyle.Render(fmt.Sprintf("%-10s", stage)))
		if pct, ok := m.percent[stage]; ok {
			line += " " + renderBar(pct, 20) + " " + stageActiveStyle.Render(fmt.Sprintf("%3d%%", pct))
		}
		return line
	default:
		return "  " + stageIdleStyle.Render(fmt.Sprintf("  %-10s", stage))
	}
}

// renderBar draws a fixed-width progress bar for the given percentage.
func renderBar(pct, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	return barOnStyle.Render(strings.Repeat("█", filled)) +
		barOffStyle.Render(strings.Repeat("░", width-filled))
}

// formatDuration trims a duration to a display-friendly precision.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// =============================================================================
// Pipeline Hooks Bridge
// =============================================================================

// uiHooks forwards pipeline stage events into a running bubbletea
// program. Registered for the duration of one plan run.
type uiHooks struct {
	prog *tea.Program
}

func (h uiHooks) OnStageStart(_ context.Context, stage string) {
	h.prog.Send(stageStartMsg{Stage: stage})
}

func (h uiHooks) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	h.prog.Send(stageDoneMsg{Stage: stage, Duration: d, Err: err})
}
