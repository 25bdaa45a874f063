package teleop

import (
	"github.com/teslashibe/go-sapien/pkg/body"
	"github.com/teslashibe/go-sapien/pkg/motion"
)

// Binding maps one key to a command template.
type Binding struct {
	Key       string
	Label     string
	Action    body.ActionKind
	Direction bool
	// Value is filled from Settings when zero.
	Value int
}

// Settings scales the commands the console sends.
type Settings struct {
	Pulse    int // ticks a limb key drives its joint
	Cycles   int // gait cycles per key press
	TurnStep int // degrees per turn key press
}

// DefaultSettings are tuned for short interactive moves.
func DefaultSettings() Settings {
	return Settings{Pulse: 10, Cycles: 2, TurnStep: 45}
}

// Keys returns the fixed key map in display order. Turn and light keys are
// resolved against the console state in command.
func Keys() []Binding {
	return []Binding{
		{Key: "w", Label: "walk forward", Action: body.WalkForward, Direction: true},
		{Key: "s", Label: "walk back", Action: body.WalkBackward},
		{Key: "a", Label: "turn left", Action: body.Turn},
		{Key: "d", Label: "turn right", Action: body.Turn, Direction: true},
		{Key: "x", Label: "shake", Action: body.Shake},
		{Key: "b", Label: "back and forth", Action: body.BackAndForth},
		{Key: "u", Label: "upper arms up", Action: body.BothUpperArms, Direction: true},
		{Key: "n", Label: "upper arms down", Action: body.BothUpperArms},
		{Key: "i", Label: "lower arms up", Action: body.BothLowerArms, Direction: true},
		{Key: "m", Label: "lower arms down", Action: body.BothLowerArms},
		{Key: "h", Label: "hip left", Action: body.Hip, Direction: true},
		{Key: "l", Label: "hip right", Action: body.Hip},
		{Key: "[", Label: "left light", Action: body.LeftHandLight},
		{Key: "]", Label: "right light", Action: body.RightHandLight},
	}
}

// command turns a binding into a concrete command. yaw is the last known
// heading, lights the last commanded light states.
func command(b Binding, s Settings, yaw float64, lights map[body.ActionKind]bool) body.Command {
	cmd := body.Command{Action: b.Action, Direction: b.Direction, Value: b.Value}

	switch b.Action {
	case body.Turn:
		step := float64(s.TurnStep)
		if !b.Direction {
			step = -step
		}
		cmd.Value = int(motion.Wrap(yaw + step))
		cmd.Direction = false
	case body.LeftHandLight, body.RightHandLight:
		cmd.Direction = !lights[b.Action]
	case body.WalkForward, body.WalkBackward, body.Shake, body.BackAndForth:
		if cmd.Value == 0 {
			cmd.Value = s.Cycles
		}
	default:
		if cmd.Value == 0 {
			cmd.Value = s.Pulse
		}
	}
	return cmd
}
