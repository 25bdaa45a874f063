package motion

import (
	"context"

	"github.com/teslashibe/go-sapien/pkg/actuator"
)

// joint is a motor with two opposing direction outputs.
type joint struct {
	pos, neg actuator.Output
}

func (j joint) pick(positive bool) actuator.Output {
	if positive {
		return j.pos
	}
	return j.neg
}

var (
	leftUpperArm  = joint{actuator.LeftUpperArmUp, actuator.LeftUpperArmDown}
	rightUpperArm = joint{actuator.RightUpperArmUp, actuator.RightUpperArmDown}
	leftLowerArm  = joint{actuator.LeftLowerArmUp, actuator.LeftLowerArmDown}
	rightLowerArm = joint{actuator.RightLowerArmUp, actuator.RightLowerArmDown}
	leftLeg       = joint{actuator.LeftLegForward, actuator.LeftLegBack}
	rightLeg      = joint{actuator.RightLegForward, actuator.RightLegBack}
	hip           = joint{actuator.HipLeft, actuator.HipRight}
)

// hold asserts outs, waits ticks and releases outs whether or not the wait
// was cancelled. ticks <= 0 is a momentary pulse.
func (c *Controller) hold(ctx context.Context, ticks int, outs ...actuator.Output) Result {
	on := make([]actuator.Level, len(outs))
	for i, o := range outs {
		on[i] = actuator.On(o)
	}
	c.out.Apply(on...)
	r := Wait(ctx, ticks, c.timing.Tick)
	c.out.Clear(outs...)
	return r
}

// LeftUpperArm moves the left upper arm up (or down) for ticks.
func (c *Controller) LeftUpperArm(ctx context.Context, up bool, ticks int) Outcome {
	return c.hold(ctx, ticks, leftUpperArm.pick(up)).outcome()
}

// RightUpperArm moves the right upper arm up (or down) for ticks.
func (c *Controller) RightUpperArm(ctx context.Context, up bool, ticks int) Outcome {
	return c.hold(ctx, ticks, rightUpperArm.pick(up)).outcome()
}

// LeftLowerArm moves the left lower arm up (or down) for ticks.
func (c *Controller) LeftLowerArm(ctx context.Context, up bool, ticks int) Outcome {
	return c.hold(ctx, ticks, leftLowerArm.pick(up)).outcome()
}

// RightLowerArm moves the right lower arm up (or down) for ticks.
func (c *Controller) RightLowerArm(ctx context.Context, up bool, ticks int) Outcome {
	return c.hold(ctx, ticks, rightLowerArm.pick(up)).outcome()
}

// BothUpperArms moves both upper arms together.
func (c *Controller) BothUpperArms(ctx context.Context, up bool, ticks int) Outcome {
	return c.hold(ctx, ticks, leftUpperArm.pick(up), rightUpperArm.pick(up)).outcome()
}

// BothLowerArms moves both lower arms together.
func (c *Controller) BothLowerArms(ctx context.Context, up bool, ticks int) Outcome {
	return c.hold(ctx, ticks, leftLowerArm.pick(up), rightLowerArm.pick(up)).outcome()
}

// LeftLeg swings the left leg forward (or back) for ticks.
func (c *Controller) LeftLeg(ctx context.Context, forward bool, ticks int) Outcome {
	return c.hold(ctx, ticks, leftLeg.pick(forward)).outcome()
}

// RightLeg swings the right leg forward (or back) for ticks.
func (c *Controller) RightLeg(ctx context.Context, forward bool, ticks int) Outcome {
	return c.hold(ctx, ticks, rightLeg.pick(forward)).outcome()
}

// Hip tilts the hip left (or right) for ticks.
func (c *Controller) Hip(ctx context.Context, left bool, ticks int) Outcome {
	return c.hold(ctx, ticks, hip.pick(left)).outcome()
}

// LeftHandLight switches the left hand light. The duration is ignored.
func (c *Controller) LeftHandLight(_ context.Context, on bool, _ int) Outcome {
	c.out.Set(actuator.LeftHandLight, on)
	return Completed
}

// RightHandLight switches the right hand light. The duration is ignored.
func (c *Controller) RightHandLight(_ context.Context, on bool, _ int) Outcome {
	c.out.Set(actuator.RightHandLight, on)
	return Completed
}
