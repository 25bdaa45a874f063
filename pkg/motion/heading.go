package motion

import (
	"context"
	"math"
	"time"

	"github.com/teslashibe/go-sapien/pkg/actuator"
)

// Wrap normalises an angle in degrees into (-180, 180].
func Wrap(deg float64) float64 {
	d := math.Mod(deg+180, 360)
	if d <= 0 {
		d += 360
	}
	return d - 180
}

// TurnPhase is a state of the turn-to-heading state machine.
type TurnPhase int

const (
	Sampling TurnPhase = iota
	Evaluating
	Stepping
	Ended
	Blocked
	Error
	SensorError
	Stopped
)

func (p TurnPhase) String() string {
	switch p {
	case Sampling:
		return "sampling"
	case Evaluating:
		return "evaluating"
	case Stepping:
		return "stepping"
	case Ended:
		return "ended"
	case Blocked:
		return "blocked"
	case Error:
		return "error"
	case SensorError:
		return "sensor_error"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Terminal reports whether p ends the turn.
func (p TurnPhase) Terminal() bool {
	return p >= Ended
}

// Outcome maps a terminal phase onto a routine outcome.
func (p TurnPhase) Outcome() Outcome {
	switch p {
	case Blocked:
		return NoProgress
	case Error:
		return IterationBudgetExceeded
	case SensorError:
		return SensorDropout
	case Stopped:
		return Cancelled
	default:
		return Completed
	}
}

// TurnDirection is the side the body is committed to turning towards.
type TurnDirection int

const (
	TurnNone TurnDirection = iota
	TurnLeft
	TurnRight
)

func (d TurnDirection) String() string {
	switch d {
	case TurnLeft:
		return "left"
	case TurnRight:
		return "right"
	default:
		return "none"
	}
}

// TurnState is the per-command state of one turn. It is owned by the worker
// and only handed out as a copy.
type TurnState struct {
	DesiredHeading        float64       `json:"desired_heading"`
	CurrentYaw            float64       `json:"current_yaw"`
	HeadingDifference     float64       `json:"heading_difference"`
	LastHeadingDifference float64       `json:"last_heading_difference"`
	ErrorCount            int           `json:"error_count"`
	IterationCount        int           `json:"iteration_count"`
	Committed             TurnDirection `json:"committed"`
	Phase                 TurnPhase     `json:"phase"`
}

// footfall shifts the hip, pulls one leg back for 3 ticks, then pushes the
// other forward for 2. The hip is left asserted.
type footfall struct {
	hip       []actuator.Level
	back, fwd actuator.Output
}

// turnGait is the footfall table for one turning direction. The first step
// footfall doubles as the commit step.
type turnGait struct {
	steps       [2]footfall
	commitPause int // ticks after the commit step
	between     int // ticks between the two step footfalls
}

const (
	footfallBackTicks = 3
	footfallFwdTicks  = 2
)

var turnGaits = map[TurnDirection]turnGait{
	TurnRight: {
		steps: [2]footfall{
			{hip: hipToLeft, back: actuator.RightLegBack, fwd: actuator.LeftLegForward},
			{hip: hipToRight, back: actuator.RightLegBack, fwd: actuator.LeftLegForward},
		},
		commitPause: 2,
	},
	TurnLeft: {
		steps: [2]footfall{
			{hip: hipToRight, back: actuator.LeftLegBack, fwd: actuator.RightLegForward},
			{hip: hipToLeft, back: actuator.LeftLegBack, fwd: actuator.RightLegForward},
		},
		commitPause: 4,
		between:     1,
	},
}

// Turn steps the body towards heading (degrees, compared against the yaw
// sensor) until it is within tolerance or one of the stop conditions fires.
// The direction argument is unused; the side is chosen from the sign of the
// heading difference.
func (c *Controller) Turn(ctx context.Context, _ bool, heading int) Outcome {
	st := TurnState{DesiredHeading: Wrap(float64(heading))}

	st.Phase = c.runTurn(ctx, &st)

	c.out.Clear(actuator.Locomotion()...)
	Settle(c.timing.TurnSettle)

	c.trace(st)
	c.logger.Info("turn finished",
		"desired", st.DesiredHeading,
		"yaw", st.CurrentYaw,
		"phase", st.Phase,
		"iterations", st.IterationCount,
		"errors", st.ErrorCount)
	return st.Phase.Outcome()
}

func (c *Controller) runTurn(ctx context.Context, st *TurnState) TurnPhase {
	lim := c.turn
	prevYaw := c.yaw.Yaw()
	var prevDiff float64

	for {
		st.Phase = Sampling
		yaw, ph := c.sampleYaw(ctx, prevYaw)
		if ph != Sampling {
			return ph
		}
		prevYaw = yaw
		st.CurrentYaw = yaw

		st.Phase = Evaluating
		diff := Wrap(st.DesiredHeading - yaw)
		st.HeadingDifference = diff
		st.LastHeadingDifference = prevDiff
		if math.Abs(diff) < lim.Tolerance {
			return Ended
		}
		if st.IterationCount == 0 || withinBand(diff, prevDiff, lim.StuckBand) {
			st.ErrorCount++
		} else {
			st.ErrorCount = 0
		}
		prevDiff = diff
		c.trace(*st)

		if st.ErrorCount > lim.MaxErrors {
			return Blocked
		}
		if st.IterationCount > lim.MaxSteps {
			return Error
		}
		if ctx.Err() != nil {
			return Stopped
		}

		st.Phase = Stepping
		if !c.step(ctx, st, diff) {
			return Stopped
		}
		st.IterationCount++
	}
}

// sampleYaw waits for a yaw reading that differs from prev. It returns
// Sampling on success, SensorError once the poll budget is spent, or Stopped.
func (c *Controller) sampleYaw(ctx context.Context, prev float64) (float64, TurnPhase) {
	yaw := c.yaw.Yaw()
	for polls := 0; yaw == prev; polls++ {
		if polls > c.timing.YawPolls {
			c.logger.Warn("heading sensor stale", "yaw", yaw, "polls", polls)
			return yaw, SensorError
		}
		if Wait(ctx, 1, c.timing.YawPoll) == WaitCancelled {
			return yaw, Stopped
		}
		yaw = c.yaw.Yaw()
	}
	return yaw, Sampling
}

// withinBand reports whether |diff| lies strictly inside ±band of |prev|.
func withinBand(diff, prev, band float64) bool {
	d, p := math.Abs(diff), math.Abs(prev)
	return d < p+band && d > p-band
}

// step commits a direction when the sign of diff disagrees with the current
// one, then runs both step footfalls. It returns false if cancelled.
func (c *Controller) step(ctx context.Context, st *TurnState, diff float64) bool {
	want := st.Committed
	switch {
	case diff > 0:
		want = TurnRight
	case diff < 0:
		want = TurnLeft
	}
	if want == TurnNone {
		return true
	}

	g := turnGaits[want]
	if want != st.Committed {
		c.logger.Debug("turn direction committed", "direction", want, "diff", diff)
		st.Committed = want
		if !c.footfall(ctx, g.steps[0]) {
			return false
		}
		if Wait(ctx, g.commitPause, c.timing.Tick) == WaitCancelled {
			return false
		}
	}

	if !c.footfall(ctx, g.steps[0]) {
		return false
	}
	Settle(c.timing.Tick * time.Duration(g.between))
	return c.footfall(ctx, g.steps[1])
}

func (c *Controller) footfall(ctx context.Context, f footfall) bool {
	c.out.Apply(f.hip...)
	if c.hold(ctx, footfallBackTicks, f.back) == WaitCancelled {
		return false
	}
	return c.hold(ctx, footfallFwdTicks, f.fwd) == WaitCompleted
}

func (c *Controller) trace(st TurnState) {
	if c.onTurn != nil {
		c.onTurn(st)
	}
}
