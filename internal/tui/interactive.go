// Package tui provides an interactive terminal front end to the
// simulation kernel: pick a model, tune a few parameters, and watch it
// run live. Adapted from
// _examples/san-kum-dynsim/internal/tui/interactive.go's bubbletea
// menu/config/sim state machine, generalized from the teacher's
// hardcoded pendulum/cartpole/drone model list to the two SPEC_FULL
// models and rewired to stream steps from a real internal/driver.Driver
// run instead of stepping a bespoke Dynamics/Integrator pair inline.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rigidkernel/simkernel/internal/config"
	"github.com/rigidkernel/simkernel/internal/constraint"
	"github.com/rigidkernel/simkernel/internal/driver"
	"github.com/rigidkernel/simkernel/internal/dynamo"
	"github.com/rigidkernel/simkernel/internal/kernellog"
	"github.com/rigidkernel/simkernel/internal/oracle"
	"github.com/rigidkernel/simkernel/internal/registry"
	"github.com/rigidkernel/simkernel/internal/viz"
)

var modelInfo = map[string]string{
	"oscillator":      "1-dof point mass, no forcing",
	"tethered_points": "two point masses under a distance constraint",
}

type uiState int

const (
	stateMenu uiState = iota
	stateConfig
	stateSim
)

type stepSnapshot struct {
	t float64
	x dynamo.State
}

type runDone struct {
	result *dynamo.Result
	err    error
}

type model struct {
	state    uiState
	cursor   int
	models   []string
	selected string

	paramNames  []string
	params      map[string]float64
	paramCursor int
	editing     bool
	editBuf     string

	stepCh chan stepSnapshot
	doneCh chan runDone

	running   bool
	done      bool
	lastStep  stepSnapshot
	trail     []float64
	stepCount int
	err       error

	width, height int
}

// NewInteractiveApp returns the top-level bubbletea model for the menu
// state.
func NewInteractiveApp() *model {
	return &model{
		state:  stateMenu,
		models: []string{"oscillator", "tethered_points"},
		params: map[string]float64{
			"dt": 1e-3, "duration": 10.0, "kp": config.DefaultKp, "kd": config.DefaultKd,
		},
		width:  80,
		height: 24,
	}
}

func (m model) Init() tea.Cmd { return nil }

func waitForStep(ch chan stepSnapshot, done chan runDone) tea.Cmd {
	return func() tea.Msg {
		select {
		case s, ok := <-ch:
			if !ok {
				return <-done
			}
			return s
		case d := <-done:
			return d
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case stepSnapshot:
		m.lastStep = msg
		m.stepCount++
		if m.selected == "oscillator" {
			m.trail = append(m.trail, msg.x.Q[0])
			if len(m.trail) > 60 {
				m.trail = m.trail[1:]
			}
		}
		return m, waitForStep(m.stepCh, m.doneCh)
	case runDone:
		m.running = false
		m.done = true
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		return m.simKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.models)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.models[m.cursor]
		m.state = stateConfig
		m.paramCursor = 0
		m.setParamsForModel()
	}
	return m, nil
}

func (m *model) setParamsForModel() {
	switch m.selected {
	case "tethered_points":
		m.paramNames = []string{"dt", "duration", "kp", "kd"}
	default:
		m.paramNames = []string{"dt", "duration"}
	}
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			fmt.Sscanf(m.editBuf, "%f", &val)
			m.params[m.paramNames[m.paramCursor]] = val
			m.editing = false
			m.editBuf = ""
		case "esc":
			m.editing = false
			m.editBuf = ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(m.paramNames)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing = true
		m.editBuf = fmt.Sprintf("%.4g", m.params[m.paramNames[m.paramCursor]])
	case "s":
		cmd := m.start()
		m.state = stateSim
		return m, tea.Batch(tea.ClearScreen, cmd)
	}
	return m, nil
}

func (m model) simKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "escape", "c":
		m.running = false
		m.state = stateMenu
		return m, tea.ClearScreen
	}
	return m, nil
}

// start builds a Config/model/driver from the current parameters and
// launches the run in a goroutine, streaming steps back over m.stepCh.
func (m *model) start() tea.Cmd {
	m.trail = nil
	m.stepCount = 0
	m.done = false
	m.err = nil
	m.running = true

	cfg := config.DefaultConfig()
	cfg.Model = m.selected
	cfg.InitDt = m.params["dt"]
	cfg.Duration = m.params["duration"]

	switch m.selected {
	case "oscillator":
		cfg.InitState = config.InitStateConfig{Q: []float64{0.5}, V: []float64{0}}
	case "tethered_points":
		cfg.InitState = config.InitStateConfig{Q: []float64{0, 0, 0, 1, 0, 0}, V: []float64{0, 0, 0, 0, 1, 0}}
		cfg.Constraints = []config.ConstraintConfig{{Kind: "distance", FrameA: "A", FrameB: "B", Kp: m.params["kp"], Kd: m.params["kd"]}}
	}

	stepCh := make(chan stepSnapshot, 8)
	doneCh := make(chan runDone, 1)
	m.stepCh = stepCh
	m.doneCh = doneCh

	go runInBackground(cfg, stepCh, doneCh)

	return waitForStep(stepCh, doneCh)
}

func runInBackground(cfg *config.Config, stepCh chan stepSnapshot, doneCh chan runDone) {
	defer close(stepCh)

	o, err := registry.BuildModel(cfg.Model)
	if err != nil {
		doneCh <- runDone{err: err}
		return
	}
	modelRef := constraint.NewModelRef(&oracle.Model{Oracle: o})
	cs, err := registry.BuildConstraints(cfg.Constraints, modelRef, o.Layout().VDim)
	if err != nil {
		doneCh <- runDone{err: err}
		return
	}
	x0 := dynamo.NewState(o.Layout())
	copy(x0.Q, cfg.InitState.Q)
	copy(x0.V, cfg.InitState.V)
	if err := cs.Reset(x0.Q, x0.V); err != nil {
		doneCh <- runDone{err: err}
		return
	}
	ctrl, err := registry.BuildController(cfg.Control, o.Layout().VDim)
	if err != nil {
		doneCh <- runDone{err: err}
		return
	}
	log := kernellog.New(discardWriter{}, 0)
	drv, err := driver.New(o, cs, ctrl, cfg, log)
	if err != nil {
		doneCh <- runDone{err: err}
		return
	}
	drv.OnStep = func(t float64, x dynamo.State, _ dynamo.Control) {
		select {
		case stepCh <- stepSnapshot{t: t, x: x.Clone()}:
		default:
		}
		time.Sleep(2 * time.Millisecond)
	}

	result, err := drv.Run(x0, cfg.InitDt, cfg.MinDt, cfg.MaxDt, cfg.Duration)
	doneCh <- runDone{result: result, err: err}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.viewSim()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(viz.GradientText("  s i m k e r n e l", viz.CurrentTheme.Primary, viz.CurrentTheme.Secondary))
	b.WriteString("\n\n")
	for i, name := range m.models {
		desc := modelInfo[name]
		if i == m.cursor {
			b.WriteString("  " + viz.MetricValue.Render("▸ "+name) + "  " + viz.MetricLabel.Render(desc) + "\n")
		} else {
			b.WriteString("    " + viz.Subtle.Render(name) + "  " + viz.Subtle.Render(desc) + "\n")
		}
	}
	b.WriteString("\n" + viz.KeyHint.Render("  ↑↓ select   enter configure   q quit") + "\n")
	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n  " + viz.MetricValue.Render(m.selected) + "  " + viz.Subtle.Render(modelInfo[m.selected]) + "\n")
	b.WriteString(viz.Separator(40) + "\n\n")
	for i, name := range m.paramNames {
		val := fmt.Sprintf("%8.4g", m.params[name])
		if m.editing && i == m.paramCursor {
			val = fmt.Sprintf("%8s", m.editBuf+"▋")
		}
		if i == m.paramCursor {
			b.WriteString("  " + viz.MetricValue.Render("▸ "+fmt.Sprintf("%-10s", name)) + viz.MetricValue.Render(val) + "\n")
		} else {
			b.WriteString("    " + viz.Subtle.Render(fmt.Sprintf("%-10s", name)) + viz.Subtle.Render(val) + "\n")
		}
	}
	b.WriteString("\n" + viz.KeyHint.Render("  ↑↓ select  enter edit  s start  esc back") + "\n")
	return b.String()
}

func (m model) viewSim() string {
	var b strings.Builder
	status := viz.StatusRunning.Render("● running")
	if m.done {
		status = viz.StatusPaused.Render("○ done")
	}
	b.WriteString(fmt.Sprintf("\n  %s %s  step %d  t=%.4f\n\n", status, viz.MetricValue.Render(m.selected), m.stepCount, m.lastStep.t))

	if m.lastStep.x.Layout != nil {
		b.WriteString(renderState(m.selected, m.lastStep.x, m.trail))
	}

	if m.err != nil {
		b.WriteString("\n" + viz.StatusRecording.Render("error: "+m.err.Error()) + "\n")
	}

	b.WriteString("\n" + viz.KeyHint.Render("  q back to menu") + "\n")
	return b.String()
}

// RunInteractive starts the bubbletea program.
func RunInteractive() error {
	p := tea.NewProgram(NewInteractiveApp(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
