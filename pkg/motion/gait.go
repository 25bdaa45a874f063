package motion

import (
	"context"

	"github.com/teslashibe/go-sapien/pkg/actuator"
)

// phase drives a set of levels, optionally settles, then holds for ticks.
type phase struct {
	levels []actuator.Level
	settle bool
	ticks  int
}

// gait is one cycle of phases plus the outputs released on exit.
type gait struct {
	name    string
	cycle   []phase
	release []actuator.Output
}

var (
	hipToLeft  = []actuator.Level{actuator.On(actuator.HipLeft), actuator.Off(actuator.HipRight)}
	hipToRight = []actuator.Level{actuator.Off(actuator.HipLeft), actuator.On(actuator.HipRight)}

	// legsForward pushes both legs forward; legsBack pulls both back.
	legsForward = []actuator.Level{
		actuator.On(actuator.RightLegForward), actuator.Off(actuator.RightLegBack),
		actuator.On(actuator.LeftLegForward), actuator.Off(actuator.LeftLegBack),
	}
	legsBack = []actuator.Level{
		actuator.Off(actuator.RightLegForward), actuator.On(actuator.RightLegBack),
		actuator.Off(actuator.LeftLegForward), actuator.On(actuator.LeftLegBack),
	}

	// leftStride swings the left leg forward against the right leg.
	leftStride = []actuator.Level{
		actuator.Off(actuator.RightLegForward), actuator.On(actuator.RightLegBack),
		actuator.On(actuator.LeftLegForward), actuator.Off(actuator.LeftLegBack),
	}
	rightStride = []actuator.Level{
		actuator.On(actuator.RightLegForward), actuator.Off(actuator.RightLegBack),
		actuator.Off(actuator.LeftLegForward), actuator.On(actuator.LeftLegBack),
	}
)

var (
	shakeGait = gait{
		name: "shake",
		cycle: []phase{
			{levels: hipToLeft, ticks: 3},
			{levels: hipToRight, ticks: 3},
		},
		release: actuator.Hips(),
	}

	backAndForthGait = gait{
		name: "back_and_forth",
		cycle: []phase{
			{levels: legsForward, ticks: 6},
			{levels: legsBack, ticks: 6},
		},
		release: actuator.Legs(),
	}

	walkForwardGait = gait{
		name: "walk_forward",
		cycle: []phase{
			{levels: hipToLeft, settle: true},
			{levels: leftStride, ticks: 6},
			{levels: hipToRight, settle: true},
			{levels: rightStride, ticks: 6},
		},
		release: actuator.Locomotion(),
	}

	// Backward strides run one tick longer to compensate for the body
	// veering left when walking backwards.
	walkBackwardGait = gait{
		name: "walk_backward",
		cycle: []phase{
			{levels: hipToLeft, settle: true},
			{levels: rightStride, ticks: 7},
			{levels: hipToRight, settle: true},
			{levels: leftStride, ticks: 7},
		},
		release: actuator.Locomotion(),
	}
)

// run executes cycles of g. after, when set, is consulted at the end of each
// cycle and can end the gait early with a non-Completed outcome.
func (c *Controller) run(ctx context.Context, g gait, cycles int, after func() Outcome) Outcome {
	defer c.out.Clear(g.release...)

	for i := 0; i < cycles; i++ {
		for _, p := range g.cycle {
			c.out.Apply(p.levels...)
			if p.settle {
				Settle(c.timing.HipSettle)
			}
			if Wait(ctx, p.ticks, c.timing.Tick) == WaitCancelled {
				c.logger.Debug("gait cancelled", "gait", g.name, "cycle", i)
				return Cancelled
			}
		}
		if c.onCycle != nil {
			c.onCycle(g.name, i+1)
		}
		if after != nil {
			if o := after(); o != Completed {
				c.logger.Debug("gait ended early", "gait", g.name, "cycle", i+1, "outcome", o)
				return o
			}
		}
	}
	return Completed
}

// Shake wiggles the hip left and right for cycles.
func (c *Controller) Shake(ctx context.Context, _ bool, cycles int) Outcome {
	return c.run(ctx, shakeGait, cycles, nil)
}

// BackAndForth rocks both legs forward and back for cycles.
func (c *Controller) BackAndForth(ctx context.Context, _ bool, cycles int) Outcome {
	return c.run(ctx, backAndForthGait, cycles, nil)
}

// WalkForward walks cycles strides, stopping early when the range sensor
// reports an obstacle closer than the stop distance.
func (c *Controller) WalkForward(ctx context.Context, _ bool, cycles int) Outcome {
	return c.run(ctx, walkForwardGait, cycles, func() Outcome {
		if d := c.rng.DistanceMM(); d < c.stopMM {
			c.logger.Info("walk blocked", "distance_mm", d, "stop_mm", c.stopMM)
			return ObstacleBlocked
		}
		return Completed
	})
}

// WalkBackward walks backwards for cycles strides. There is no range gate.
func (c *Controller) WalkBackward(ctx context.Context, _ bool, cycles int) Outcome {
	return c.run(ctx, walkBackwardGait, cycles, nil)
}
