// Package motion implements the timed actuation routines of the body:
// single-joint primitives, multi-cycle gaits and the turn-to-heading
// controller.
//
// Every routine runs on the dispatcher's worker goroutine and takes the
// per-command context as its cancellation token. Cancellation is cooperative:
// routines only observe it at tick boundaries, and they always release the
// outputs they touched before returning.
package motion

import (
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-sapien/internal/log"
	"github.com/teslashibe/go-sapien/pkg/actuator"
	"github.com/teslashibe/go-sapien/pkg/sensor"
)

// Outputs is the subset of actuator.Bank the routines write through.
type Outputs interface {
	Set(o actuator.Output, on bool)
	Apply(levels ...actuator.Level)
	Clear(outs ...actuator.Output)
}

// Timing holds every duration the routines use.
type Timing struct {
	Tick       time.Duration // cancellable wait granularity
	HipSettle  time.Duration // uncancellable pause after shifting the hip while walking
	YawPoll    time.Duration // interval between heading reads while waiting for a fresh sample
	YawPolls   int           // polls before the heading sensor is declared stale
	TurnSettle time.Duration // pause after a turn has released its outputs
}

// DefaultTiming matches the firmware constants.
func DefaultTiming() Timing {
	return Timing{
		Tick:       50 * time.Millisecond,
		HipSettle:  150 * time.Millisecond,
		YawPoll:    200 * time.Millisecond,
		YawPolls:   30,
		TurnSettle: 500 * time.Millisecond,
	}
}

// TurnLimits bounds the heading controller.
type TurnLimits struct {
	Tolerance float64 // degrees; |difference| below this ends the turn
	StuckBand float64 // degrees; |difference| moving less than this counts as no progress
	MaxErrors int     // consecutive no-progress evaluations before giving up
	MaxSteps  int     // hard cap on stepping iterations
}

// DefaultTurnLimits matches the firmware constants.
func DefaultTurnLimits() TurnLimits {
	return TurnLimits{
		Tolerance: 3,
		StuckBand: 3,
		MaxErrors: 5,
		MaxSteps:  160,
	}
}

// DefaultStopDistanceMM is the forward range below which walking aborts.
const DefaultStopDistanceMM = 350

// Outcome is the terminal result of a routine.
type Outcome int

const (
	Completed Outcome = iota
	Cancelled
	SensorDropout
	NoProgress
	IterationBudgetExceeded
	ObstacleBlocked
)

// Terminal outcomes as errors, for callers that prefer errors.Is.
var (
	ErrCancelled       = errors.New("motion: cancelled")
	ErrSensorDropout   = errors.New("motion: heading sensor stopped updating")
	ErrNoProgress      = errors.New("motion: turn is not making progress")
	ErrIterationBudget = errors.New("motion: turn step budget exceeded")
	ErrObstacleBlocked = errors.New("motion: obstacle ahead")
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case SensorDropout:
		return "sensor_dropout"
	case NoProgress:
		return "no_progress"
	case IterationBudgetExceeded:
		return "iteration_budget_exceeded"
	case ObstacleBlocked:
		return "obstacle_blocked"
	default:
		return "unknown"
	}
}

// Err returns nil for Completed and the matching sentinel otherwise.
func (o Outcome) Err() error {
	switch o {
	case Completed:
		return nil
	case Cancelled:
		return ErrCancelled
	case SensorDropout:
		return ErrSensorDropout
	case NoProgress:
		return ErrNoProgress
	case IterationBudgetExceeded:
		return ErrIterationBudget
	case ObstacleBlocked:
		return ErrObstacleBlocked
	default:
		return errors.New("motion: unknown outcome")
	}
}

// Controller runs the routines against one set of outputs and sensors.
type Controller struct {
	out    Outputs
	yaw    sensor.YawReader
	rng    sensor.RangeReader
	timing Timing
	turn   TurnLimits
	stopMM float64
	logger *slog.Logger

	onTurn  func(TurnState)
	onCycle func(routine string, cycle int)
}

// Option configures a Controller.
type Option func(*Controller)

// WithTiming overrides DefaultTiming.
func WithTiming(t Timing) Option {
	return func(c *Controller) { c.timing = t }
}

// WithTurnLimits overrides DefaultTurnLimits.
func WithTurnLimits(l TurnLimits) Option {
	return func(c *Controller) { c.turn = l }
}

// WithStopDistance overrides DefaultStopDistanceMM.
func WithStopDistance(mm float64) Option {
	return func(c *Controller) { c.stopMM = mm }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithTurnTrace registers a hook called after every heading evaluation and
// once more on the terminal transition.
func WithTurnTrace(fn func(TurnState)) Option {
	return func(c *Controller) { c.onTurn = fn }
}

// WithCycleTrace registers a hook called after each completed gait cycle.
func WithCycleTrace(fn func(routine string, cycle int)) Option {
	return func(c *Controller) { c.onCycle = fn }
}

// New creates a Controller.
func New(out Outputs, yaw sensor.YawReader, rng sensor.RangeReader, opts ...Option) *Controller {
	c := &Controller{
		out:    out,
		yaw:    yaw,
		rng:    rng,
		timing: DefaultTiming(),
		turn:   DefaultTurnLimits(),
		stopMM: DefaultStopDistanceMM,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Component("motion")
	}
	return c
}

// Timing returns the active timing.
func (c *Controller) Timing() Timing {
	return c.timing
}
