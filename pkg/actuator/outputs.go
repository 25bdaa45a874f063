// Package actuator owns the two MCP23017 port expanders that drive the
// Robosapien body: every arm, leg and hip motor direction and both hand lights
// are single output bits on one of the chips.
//
// The Bank is the only writable handle to the hardware. The dispatcher worker
// is its single writer; Stop is allowed to call ResetAll concurrently because
// clearing outputs is idempotent.
package actuator

import "fmt"

// Output identifies one logical output bit.
type Output int

// Logical outputs. The order is only used for iteration and names.
const (
	LeftUpperArmUp Output = iota
	LeftUpperArmDown
	LeftLowerArmUp
	LeftLowerArmDown
	RightUpperArmUp
	RightUpperArmDown
	RightLowerArmUp
	RightLowerArmDown
	LeftLegForward
	LeftLegBack
	RightLegForward
	RightLegBack
	HipLeft
	HipRight
	LeftHandLight
	RightHandLight

	numOutputs
)

// Chip indexes into the bank.
const (
	Primary   = 0 // I2C 0x20, outputs on port B
	Secondary = 1 // I2C 0x21, outputs on port A
)

// pin locates an output on a chip. Bits 0..7 are port A, 8..15 port B.
type pin struct {
	chip int
	bit  uint8
}

// Wiring of the Robosapien harness.
var pins = [numOutputs]pin{
	LeftLowerArmUp:    {Primary, 8},
	LeftLowerArmDown:  {Primary, 9},
	LeftUpperArmDown:  {Primary, 10},
	LeftUpperArmUp:    {Primary, 11},
	HipRight:          {Primary, 12},
	HipLeft:           {Primary, 13},
	LeftLegForward:    {Primary, 14},
	LeftLegBack:       {Primary, 15},
	RightLegForward:   {Secondary, 0},
	RightLegBack:      {Secondary, 1},
	RightHandLight:    {Secondary, 2},
	LeftHandLight:     {Secondary, 3},
	RightUpperArmDown: {Secondary, 4},
	RightUpperArmUp:   {Secondary, 5},
	RightLowerArmDown: {Secondary, 6},
	RightLowerArmUp:   {Secondary, 7},
}

var outputNames = [numOutputs]string{
	LeftUpperArmUp:    "left_upper_arm_up",
	LeftUpperArmDown:  "left_upper_arm_down",
	LeftLowerArmUp:    "left_lower_arm_up",
	LeftLowerArmDown:  "left_lower_arm_down",
	RightUpperArmUp:   "right_upper_arm_up",
	RightUpperArmDown: "right_upper_arm_down",
	RightLowerArmUp:   "right_lower_arm_up",
	RightLowerArmDown: "right_lower_arm_down",
	LeftLegForward:    "left_leg_forward",
	LeftLegBack:       "left_leg_back",
	RightLegForward:   "right_leg_forward",
	RightLegBack:      "right_leg_back",
	HipLeft:           "hip_left",
	HipRight:          "hip_right",
	LeftHandLight:     "left_hand_light",
	RightHandLight:    "right_hand_light",
}

// String returns the snake_case output name.
func (o Output) String() string {
	if o < 0 || o >= numOutputs {
		return fmt.Sprintf("output(%d)", int(o))
	}
	return outputNames[o]
}

// Valid reports whether o is a known output.
func (o Output) Valid() bool {
	return o >= 0 && o < numOutputs
}

// Location returns the chip index and bit number of o.
func (o Output) Location() (chip int, bit uint8) {
	p := pins[o]
	return p.chip, p.bit
}

// All returns every output in declaration order.
func All() []Output {
	out := make([]Output, 0, numOutputs)
	for o := Output(0); o < numOutputs; o++ {
		out = append(out, o)
	}
	return out
}

// Legs returns the four leg direction outputs.
func Legs() []Output {
	return []Output{LeftLegForward, LeftLegBack, RightLegForward, RightLegBack}
}

// Hips returns both hip direction outputs.
func Hips() []Output {
	return []Output{HipLeft, HipRight}
}

// Locomotion returns the hip and leg outputs.
func Locomotion() []Output {
	return append(Hips(), Legs()...)
}

// Level pairs an output with the state it should be driven to.
type Level struct {
	Out Output
	On  bool
}

// On is shorthand for an asserted Level.
func On(o Output) Level { return Level{Out: o, On: true} }

// Off is shorthand for a released Level.
func Off(o Output) Level { return Level{Out: o, On: false} }
