// Package teleop is a keyboard console for driving a robot over its HTTP API.
package teleop

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/go-sapien/pkg/body"
	"github.com/teslashibe/go-sapien/pkg/client"
	"github.com/teslashibe/go-sapien/pkg/web"
)

const (
	maxLogs      = 6
	pollInterval = 500 * time.Millisecond
	callTimeout  = 5 * time.Second
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
)

// Messages
type statusMsg struct {
	st  web.StatusResponse
	err error
}

type sentMsg struct {
	cmd body.Command
	acc web.Accepted
	err error
}

type stoppedMsg struct{ err error }

type tickMsg time.Time

// Model is the bubbletea model of the console.
type Model struct {
	ctrl     client.Controller
	target   string
	settings Settings
	keys     map[string]Binding

	status   web.StatusResponse
	haveStat bool
	lights   map[body.ActionKind]bool
	logs     []string
	width    int
	quitting bool
}

// New builds the console model for ctrl. target is only displayed.
func New(ctrl client.Controller, target string, s Settings) Model {
	keys := make(map[string]Binding)
	for _, b := range Keys() {
		keys[b.Key] = b
	}
	return Model{
		ctrl:     ctrl,
		target:   target,
		settings: s,
		keys:     keys,
		lights:   make(map[body.ActionKind]bool),
	}
}

// Run starts the console and blocks until the user quits or ctx is done.
func Run(ctx context.Context, ctrl client.Controller, target string, s Settings) error {
	_, err := tea.NewProgram(New(ctrl, target, s), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (m *Model) addLog(msg string) {
	m.logs = append(m.logs, time.Now().Format("15:04:05")+" "+msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m Model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		st, err := m.ctrl.Status(ctx)
		return statusMsg{st: st, err: err}
	}
}

func (m Model) send(cmd body.Command) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		acc, err := m.ctrl.Exec(ctx, cmd.Action, cmd.Direction, cmd.Value)
		return sentMsg{cmd: cmd, acc: acc, err: err}
	}
}

func (m Model) stop() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return stoppedMsg{err: m.ctrl.Stop(ctx)}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) yaw() float64 {
	if m.status.Sensors == nil {
		return 0
	}
	return m.status.Sensors.Yaw
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case " ":
			m.addLog("stop")
			return m, m.stop()
		}
		b, ok := m.keys[key]
		if !ok {
			return m, nil
		}
		cmd := command(b, m.settings, m.yaw(), m.lights)
		if b.Action == body.LeftHandLight || b.Action == body.RightHandLight {
			m.lights[b.Action] = cmd.Direction
		}
		return m, m.send(cmd)

	case sentMsg:
		if msg.err != nil {
			m.addLog(errStyle.Render(msg.err.Error()))
		} else {
			m.addLog(fmt.Sprintf("queued %s [%s]", msg.cmd, shortID(msg.acc.ID)))
		}
		return m, nil

	case stoppedMsg:
		if msg.err != nil {
			m.addLog(errStyle.Render(msg.err.Error()))
			return m, nil
		}
		m.lights = make(map[body.ActionKind]bool)
		return m, m.fetchStatus()

	case statusMsg:
		if msg.err != nil {
			m.haveStat = false
			m.addLog(errStyle.Render(msg.err.Error()))
			return m, nil
		}
		m.status = msg.st
		m.haveStat = true
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), tick())
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return "Teleop closed.\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Sapien Teleop"))
	sb.WriteString(statusStyle.Render("  " + m.target))
	sb.WriteString("\n\n")

	sb.WriteString(m.renderStatus())
	sb.WriteString("\n\n")
	sb.WriteString(renderKeys())
	sb.WriteString("\n")

	logs := statusStyle.Render("space stops everything, q quits")
	if len(m.logs) > 0 {
		logs = strings.Join(m.logs, "\n")
	}
	box := boxStyle
	if m.width > 4 {
		box = box.Width(m.width - 4)
	}
	sb.WriteString(box.Render(logs))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStatus() string {
	if !m.haveStat {
		return statusStyle.Render("waiting for robot...")
	}
	d := m.status.Dispatcher

	running := "idle"
	if d.Running != nil {
		running = d.Running.String()
	}
	last := "-"
	if d.Last != nil {
		last = fmt.Sprintf("%s → %s", d.Last.Command.Action, d.Last.Status)
		if d.Last.Event != "" {
			last += " (" + string(d.Last.Event) + ")"
		}
	}

	lines := []string{
		fmt.Sprintf("running: %s   queued: %d/%d   executed: %d   stops: %d",
			running, d.Queued, d.Capacity, d.Executed, d.Stops),
		"last:    " + last,
	}
	if s := m.status.Sensors; s != nil {
		lines = append(lines, fmt.Sprintf("yaw:     %.1f°   range: %.0f mm", s.Yaw, s.DistanceMM))
	}
	if len(m.status.Active) > 0 {
		lines = append(lines, "active:  "+strings.Join(m.status.Active, ", "))
	}
	return strings.Join(lines, "\n")
}

func renderKeys() string {
	var items []string
	for _, b := range Keys() {
		items = append(items, keyStyle.Render(b.Key)+" "+b.Label)
	}
	var rows []string
	for i := 0; i < len(items); i += 4 {
		end := min(i+4, len(items))
		rows = append(rows, strings.Join(items[i:end], "   "))
	}
	rows = append(rows, keyStyle.Render("space")+" stop   "+keyStyle.Render("q")+" quit")
	return strings.Join(rows, "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
