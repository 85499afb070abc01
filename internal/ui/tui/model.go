package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/onboard/internal/onboarding"
	"github.com/imamik/onboard/internal/registry"
)

// Mode selects the wording of the view.
type Mode string

const (
	ModeRun      Mode = "run"
	ModeRollback Mode = "rollback"
)

// PhaseRow is one displayed phase.
type PhaseRow struct {
	ID      string
	Name    string
	Status  onboarding.StepStatus
	Message string
	// Started is set while the phase runs.
	Started   time.Time
	Duration  time.Duration
	Simulated bool
}

// Model is the Bubble Tea model for the progress view.
type Model struct {
	Node   string
	Mode   Mode
	DryRun bool

	Phases []PhaseRow

	// Animation
	SpinnerFrame int
	StartTime    time.Time
	now          func() time.Time

	// UI state
	Width      int
	Height     int
	Cancelling bool
	Err        error
	Done       bool

	cancel func()
}

// NewModel creates a model listing phases in the order they will be visited.
func NewModel(node string, mode Mode, dryRun bool, phases []registry.Phase, cancel func()) Model {
	rows := make([]PhaseRow, 0, len(phases))
	for _, p := range phases {
		rows = append(rows, PhaseRow{ID: p.ID, Name: p.DisplayName})
	}
	return Model{
		Node:      node,
		Mode:      mode,
		DryRun:    dryRun,
		Phases:    rows,
		StartTime: time.Now(),
		now:       time.Now,
		cancel:    cancel,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			// The run stops at the next safe point and reports back with DoneMsg.
			if !m.Cancelling && m.cancel != nil {
				m.Cancelling = true
				m.cancel()
			}
		case "q":
			if m.Done {
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case PhaseMsg:
		m.updatePhase(msg.Result)

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case DoneMsg:
		m.Done = true
		m.Err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) updatePhase(r onboarding.PhaseResult) {
	idx := -1
	for i, row := range m.Phases {
		if row.ID == r.PhaseID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	row := &m.Phases[idx]
	row.Status = r.Status
	row.Simulated = r.Simulated
	switch r.Status {
	case onboarding.StepStarted:
		row.Started = m.clock()
		row.Message = ""
	default:
		row.Message = r.Message
		row.Duration = r.Duration
		row.Started = time.Time{}
	}
}

func (m Model) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
