// Package viz renders a live terminal monitor for a ramping motor.
package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/ClassTech/SmoothedMotor/internal/motor"
	"github.com/ClassTech/SmoothedMotor/internal/ramp"
)

const (
	historyCapacity = 240
	frameInterval   = time.Second / 30
	barWidth        = 21
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Padding(1, 2)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model polls a ramp controller and its simulated motor at the frame rate
// and lets the keyboard nudge the target speed.
type Model struct {
	ctl     *ramp.Controller
	sim     *motor.Sim
	nudge   float64
	history []float64
	start   time.Time
}

func NewModel(ctl *ramp.Controller, sim *motor.Sim, nudge float64) Model {
	if nudge <= 0 {
		nudge = 0.1
	}
	return Model{
		ctl:     ctl,
		sim:     sim,
		nudge:   nudge,
		history: make([]float64, 0, historyCapacity),
		start:   time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		_, target := m.ctl.Speeds()
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.ctl.SetSpeed(target + m.nudge)
		case "down", "j":
			m.ctl.SetSpeed(target - m.nudge)
		case "f":
			m.ctl.SetSpeed(1.0)
		case "r":
			m.ctl.SetSpeed(-1.0)
		case " ":
			m.ctl.Stop()
		}
	case TickMsg:
		current, _ := m.ctl.Speeds()
		m.history = append(m.history, current)
		if len(m.history) > historyCapacity {
			m.history = m.history[1:]
		}
		return m, tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m Model) View() string {
	current, target := m.ctl.Speeds()

	var s strings.Builder
	s.WriteString(headerStyle.Render("SMOOTHED MOTOR") + "\n")

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history,
			asciigraph.Height(8), asciigraph.Width(60),
			asciigraph.Caption("commanded speed"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Target") + speedBar(target) + valueStyle.Render(fmt.Sprintf(" %+.2f", target)) + "\n")
	s.WriteString(labelStyle.Render("Current") + speedBar(current) + valueStyle.Render(fmt.Sprintf(" %+.2f", current)) + "\n")
	s.WriteString(labelStyle.Render("Motor") + valueStyle.Render(fmt.Sprintf("%+.2f (%d commands)", m.sim.Speed(), len(m.sim.History()))) + "\n")
	s.WriteString(labelStyle.Render("Uptime") + valueStyle.Render(fmt.Sprintf("%.1fs", time.Since(m.start).Seconds())) + "\n")

	s.WriteString(helpStyle.Render("↑↓:Nudge F:Forward R:Reverse SP:Stop Q:Quit"))
	return statsStyle.Render(s.String())
}

// speedBar renders a speed in [-1, 1] as a marker on a fixed-width track
// with zero in the middle.
func speedBar(v float64) string {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	pos := int((v + 1) / 2 * float64(barWidth-1))
	cells := make([]rune, barWidth)
	for i := range cells {
		cells[i] = '-'
	}
	cells[barWidth/2] = '|'
	cells[pos] = '●'
	return "[" + string(cells) + "]"
}

// Run drives the monitor until the user quits.
func Run(ctl *ramp.Controller, sim *motor.Sim, nudge float64) error {
	p := tea.NewProgram(NewModel(ctl, sim, nudge))
	_, err := p.Run()
	return err
}
