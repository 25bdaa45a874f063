package teleop

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-sapien/pkg/body"
	"github.com/teslashibe/go-sapien/pkg/sensor"
	"github.com/teslashibe/go-sapien/pkg/web"
)

type fakeRobot struct {
	mu     sync.Mutex
	sent   []body.Command
	stops  int
	status web.StatusResponse
	err    error
}

func (f *fakeRobot) Exec(_ context.Context, a body.ActionKind, dir bool, v int) (web.Accepted, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return web.Accepted{}, f.err
	}
	f.sent = append(f.sent, body.Command{Action: a, Direction: dir, Value: v})
	return web.Accepted{ID: "0123456789abcdef", Action: a.String(), Code: int(a)}, nil
}

func (f *fakeRobot) Stop(context.Context) error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	return nil
}

func (f *fakeRobot) Status(context.Context) (web.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.err
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key and runs the resulting command back through Update.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, cmd := m.Update(key(k))
	m = next.(Model)
	if cmd != nil {
		next, _ = m.Update(cmd())
		m = next.(Model)
	}
	return m
}

func TestCommand(t *testing.T) {
	s := DefaultSettings()
	keys := make(map[string]Binding)
	for _, b := range Keys() {
		keys[b.Key] = b
	}
	off := map[body.ActionKind]bool{}

	tests := []struct {
		key  string
		yaw  float64
		want body.Command
	}{
		{"w", 0, body.Command{Action: body.WalkForward, Direction: true, Value: 2}},
		{"s", 0, body.Command{Action: body.WalkBackward, Value: 2}},
		{"u", 0, body.Command{Action: body.BothUpperArms, Direction: true, Value: 10}},
		{"h", 0, body.Command{Action: body.Hip, Direction: true, Value: 10}},
		{"d", 10, body.Command{Action: body.Turn, Value: 55}},
		{"a", 10, body.Command{Action: body.Turn, Value: -35}},
		{"d", 170, body.Command{Action: body.Turn, Value: -145}},
		{"a", -160, body.Command{Action: body.Turn, Value: 155}},
		{"[", 0, body.Command{Action: body.LeftHandLight, Direction: true}},
	}
	for _, tt := range tests {
		got := command(keys[tt.key], s, tt.yaw, off)
		assert.Equal(t, tt.want, got, "key %q yaw %v", tt.key, tt.yaw)
	}
}

func TestKeys_Unique(t *testing.T) {
	seen := map[string]bool{" ": true, "q": true}
	for _, b := range Keys() {
		assert.False(t, seen[b.Key], "duplicate key %q", b.Key)
		seen[b.Key] = true
		assert.True(t, b.Action.Valid())
	}
}

func TestUpdate_SendsCommands(t *testing.T) {
	r := &fakeRobot{}
	m := New(r, "robot:8080", DefaultSettings())

	m = press(t, m, "w")
	m = press(t, m, "z") // unbound

	require.Len(t, r.sent, 1)
	assert.Equal(t, body.WalkForward, r.sent[0].Action)
	require.Len(t, m.logs, 1)
	assert.Contains(t, m.logs[0], "queued walk_forward")
	assert.Contains(t, m.logs[0], "01234567")
}

func TestUpdate_TurnUsesLastYaw(t *testing.T) {
	r := &fakeRobot{status: web.StatusResponse{Sensors: &sensor.Reading{Yaw: 90}}}
	m := New(r, "robot", DefaultSettings())

	next, _ := m.Update(m.fetchStatus()())
	m = press(t, next.(Model), "d")

	require.Len(t, r.sent, 1)
	assert.Equal(t, body.Command{Action: body.Turn, Value: 135}, r.sent[0])
}

func TestUpdate_LightToggles(t *testing.T) {
	r := &fakeRobot{}
	m := New(r, "robot", DefaultSettings())

	m = press(t, m, "]")
	m = press(t, m, "]")
	m = press(t, m, "]")

	require.Len(t, r.sent, 3)
	assert.True(t, r.sent[0].Direction)
	assert.False(t, r.sent[1].Direction)
	assert.True(t, r.sent[2].Direction)

	// Stop clears the remembered light state.
	m = press(t, m, " ")
	assert.Equal(t, 1, r.stops)
	m = press(t, m, "]")
	assert.True(t, r.sent[3].Direction)
}

func TestUpdate_Errors(t *testing.T) {
	r := &fakeRobot{err: errors.New("connection refused")}
	m := New(r, "robot", DefaultSettings())

	m = press(t, m, "x")
	require.Len(t, m.logs, 1)
	assert.Contains(t, m.logs[0], "connection refused")

	next, _ := m.Update(m.fetchStatus()())
	m = next.(Model)
	assert.False(t, m.haveStat)
	assert.Contains(t, m.View(), "waiting for robot")
}

func TestUpdate_Quit(t *testing.T) {
	m := New(&fakeRobot{}, "robot", DefaultSettings())

	next, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, "Teleop closed.\n", next.View())
}

func TestView_Status(t *testing.T) {
	running := body.Command{Action: body.Shake, Value: 3}
	r := &fakeRobot{status: web.StatusResponse{
		Dispatcher: body.Status{
			Started:  true,
			Running:  &running,
			Queued:   1,
			Capacity: 3,
			Last:     &body.Result{Command: body.Command{Action: body.Turn}, Status: "completed", Event: "turn_ended"},
		},
		Active:  []string{"hip_left"},
		Sensors: &sensor.Reading{Yaw: 12.5, DistanceMM: 800},
	}}
	m := New(r, "robot:8080", DefaultSettings())
	next, _ := m.Update(m.fetchStatus()())
	view := next.View()

	assert.Contains(t, view, "Sapien Teleop")
	assert.Contains(t, view, "robot:8080")
	assert.Contains(t, view, "shake(dir=false, value=3)")
	assert.Contains(t, view, "queued: 1/3")
	assert.Contains(t, view, "turn_ended")
	assert.Contains(t, view, "12.5")
	assert.Contains(t, view, "hip_left")
	assert.Contains(t, view, "walk forward")
}
