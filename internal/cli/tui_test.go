package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wardline/wardline/pkg/pipeline"
)

var errTest = errors.New("stage failed")

func TestRunModelStageFlow(t *testing.T) {
	m := NewRunModel("Computing plan")

	next, _ := m.Update(stageStartMsg{Stage: pipeline.StageFetch})
	m = next.(RunModel)
	if m.status[pipeline.StageFetch] != stageActive {
		t.Errorf("fetch status = %d, want active", m.status[pipeline.StageFetch])
	}

	next, _ = m.Update(stageDoneMsg{Stage: pipeline.StageFetch, Duration: 1200 * time.Millisecond})
	m = next.(RunModel)
	if m.status[pipeline.StageFetch] != stageDone {
		t.Errorf("fetch status = %d, want done", m.status[pipeline.StageFetch])
	}

	view := m.View()
	if !strings.Contains(view, "Computing plan") {
		t.Error("View() should include the title")
	}
	if !strings.Contains(view, pipeline.StageFetch) {
		t.Error("View() should list the fetch stage")
	}
}

func TestRunModelStageFailure(t *testing.T) {
	m := NewRunModel("t")

	next, _ := m.Update(stageDoneMsg{Stage: pipeline.StagePartition, Err: errTest})
	m = next.(RunModel)
	if m.status[pipeline.StagePartition] != stageFailed {
		t.Errorf("partition status = %d, want failed", m.status[pipeline.StagePartition])
	}
}

func TestRunModelPercent(t *testing.T) {
	m := NewRunModel("t")

	next, _ := m.Update(stagePercentMsg{Stage: pipeline.StagePartition, Percent: 40})
	m = next.(RunModel)
	if m.status[pipeline.StagePartition] != stageActive {
		t.Error("a percent update should activate an idle stage")
	}

	view := m.View()
	if !strings.Contains(view, "40%") {
		t.Errorf("View() should show the percentage\n%s", view)
	}
}

func TestRunModelAbort(t *testing.T) {
	m := NewRunModel("t")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(RunModel)
	if !m.Aborted {
		t.Error("ctrl+c should set Aborted")
	}
	if cmd == nil {
		t.Error("ctrl+c should quit the program")
	}
}

func TestRunModelFinished(t *testing.T) {
	m := NewRunModel("t")

	next, cmd := m.Update(runFinishedMsg{})
	m = next.(RunModel)
	if !m.finished {
		t.Error("runFinishedMsg should mark the model finished")
	}
	if cmd == nil {
		t.Error("runFinishedMsg should quit the program")
	}
	if m.Aborted {
		t.Error("a normal finish is not an abort")
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		pct        int
		wantFilled int
	}{
		{0, 0},
		{50, 10},
		{100, 20},
		{-5, 0},
		{150, 20},
	}

	for _, tt := range tests {
		bar := renderBar(tt.pct, 20)
		if got := strings.Count(bar, "█"); got != tt.wantFilled {
			t.Errorf("renderBar(%d, 20) filled = %d, want %d", tt.pct, got, tt.wantFilled)
		}
		if got := strings.Count(bar, "░"); got != 20-tt.wantFilled {
			t.Errorf("renderBar(%d, 20) empty = %d, want %d", tt.pct, got, 20-tt.wantFilled)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{1234 * time.Millisecond, "1.23s"},
		{90 * time.Second, "1m30s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
