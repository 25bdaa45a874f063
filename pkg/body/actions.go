package body

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind selects a routine. The numeric values are the wire codes used
// by the /bodyaction endpoint and the master process.
type ActionKind int

const (
	LeftUpperArm   ActionKind = 1
	RightUpperArm  ActionKind = 2
	LeftLowerArm   ActionKind = 3
	RightLowerArm  ActionKind = 4
	LeftLeg        ActionKind = 5
	RightLeg       ActionKind = 6
	Hip            ActionKind = 7
	LeftHandLight  ActionKind = 8
	RightHandLight ActionKind = 9
	Turn           ActionKind = 10
	Shake          ActionKind = 11
	Stop           ActionKind = 12
	BackAndForth   ActionKind = 13
	WalkForward    ActionKind = 14
	WalkBackward   ActionKind = 15
	BothUpperArms  ActionKind = 16
	BothLowerArms  ActionKind = 17
)

var actionNames = map[ActionKind]string{
	LeftUpperArm:   "left_upper_arm",
	RightUpperArm:  "right_upper_arm",
	LeftLowerArm:   "left_lower_arm",
	RightLowerArm:  "right_lower_arm",
	LeftLeg:        "left_leg",
	RightLeg:       "right_leg",
	Hip:            "hip",
	LeftHandLight:  "left_hand_light",
	RightHandLight: "right_hand_light",
	Turn:           "turn",
	Shake:          "shake",
	Stop:           "stop",
	BackAndForth:   "back_and_forth",
	WalkForward:    "walk_forward",
	WalkBackward:   "walk_backward",
	BothUpperArms:  "both_upper_arms",
	BothLowerArms:  "both_lower_arms",
}

// Actions lists every action in wire-code order.
func Actions() []ActionKind {
	out := make([]ActionKind, 0, len(actionNames))
	for a := LeftUpperArm; a <= BothLowerArms; a++ {
		out = append(out, a)
	}
	return out
}

func (a ActionKind) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Valid reports whether a is a known action.
func (a ActionKind) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

// MarshalText encodes the action as its name.
func (a ActionKind) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText accepts a wire code or a name.
func (a *ActionKind) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAction accepts a wire code ("10") or a snake_case name ("turn").
// Names are matched case-insensitively and may use dashes.
func ParseAction(s string) (ActionKind, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		a := ActionKind(n)
		if !a.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrUnknownAction, n)
		}
		return a, nil
	}
	name := strings.ReplaceAll(strings.ToLower(s), "-", "_")
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Command is one motion request. Direction and Value are interpreted by the
// routine: limb up/down or forward/back and a tick count, light on/off, a
// cycle count for gaits, or the target heading in degrees for Turn.
type Command struct {
	ID        string     `json:"id"`
	Action    ActionKind `json:"action"`
	Direction bool       `json:"direction"`
	Value     int        `json:"value"`
}

func (c Command) String() string {
	return fmt.Sprintf("%s(dir=%t, value=%d)", c.Action, c.Direction, c.Value)
}
