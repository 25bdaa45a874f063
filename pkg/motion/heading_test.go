package motion

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/teslashibe/go-sapien/pkg/actuator"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{90, 90},
		{180, 180},
		{-180, 180},
		{190, -170},
		{-190, 170},
		{360, 0},
		{-179, -179},
		{540, 180},
		{-721, -1},
	}
	for _, tt := range tests {
		if got := Wrap(tt.in); !approx(got, tt.want) {
			t.Errorf("Wrap(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

type turnLog struct {
	mu     sync.Mutex
	states []TurnState
}

func (l *turnLog) hook(st TurnState) {
	l.mu.Lock()
	l.states = append(l.states, st)
	l.mu.Unlock()
}

func (l *turnLog) evaluations() []TurnState {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []TurnState
	for _, st := range l.states {
		if st.Phase == Evaluating {
			out = append(out, st)
		}
	}
	return out
}

func (l *turnLog) final() TurnState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[len(l.states)-1]
}

func ramp(from, to, step float64) []float64 {
	var v []float64
	for x := from; ; x += step {
		v = append(v, x)
		if (step > 0 && x >= to) || (step < 0 && x <= to) {
			return v
		}
	}
}

func TestTurn_ReachesHeadingRight(t *testing.T) {
	f := newFixture(t)
	var log turnLog
	c := f.controller(&yawScript{vals: ramp(0, 90, 10)}, WithTurnTrace(log.hook))

	if got := c.Turn(context.Background(), false, 90); got != Completed {
		t.Fatalf("outcome = %v, want completed", got)
	}

	evals := log.evaluations()
	if len(evals) == 0 || evals[0].HeadingDifference != 80 {
		t.Fatalf("first evaluation = %+v, want difference 80", evals)
	}
	final := log.final()
	if final.Phase != Ended {
		t.Errorf("final phase = %v, want ended", final.Phase)
	}
	if final.Committed != TurnRight {
		t.Errorf("committed = %v, want right", final.Committed)
	}
	if !f.out.saw(actuator.RightLegBack) || !f.out.saw(actuator.LeftLegForward) {
		t.Error("right turn should pull the right leg back and push the left forward")
	}
	if f.out.saw(actuator.LeftLegBack) {
		t.Error("right turn should never pull the left leg back")
	}
	assertAllOff(t, f)
}

func TestTurn_ReachesHeadingLeft(t *testing.T) {
	f := newFixture(t)
	var log turnLog
	c := f.controller(&yawScript{vals: ramp(0, -30, -10)}, WithTurnTrace(log.hook))

	if got := c.Turn(context.Background(), false, -30); got != Completed {
		t.Fatalf("outcome = %v, want completed", got)
	}
	if final := log.final(); final.Committed != TurnLeft {
		t.Errorf("committed = %v, want left", final.Committed)
	}
	if !f.out.saw(actuator.LeftLegBack) || !f.out.saw(actuator.RightLegForward) {
		t.Error("left turn should pull the left leg back and push the right forward")
	}
	assertAllOff(t, f)
}

func TestTurn_WrapsAcrossSouth(t *testing.T) {
	f := newFixture(t)
	var log turnLog
	c := f.controller(&yawScript{vals: []float64{170, 175, 180, -175, -170}}, WithTurnTrace(log.hook))

	if got := c.Turn(context.Background(), false, -170); got != Completed {
		t.Fatalf("outcome = %v, want completed", got)
	}
	// The short way from 175 to -170 is to the right.
	if final := log.final(); final.Committed != TurnRight {
		t.Errorf("committed = %v, want right", final.Committed)
	}
}

func TestTurn_IterationCountIncrementsPerStep(t *testing.T) {
	f := newFixture(t)
	var log turnLog
	c := f.controller(&yawScript{vals: ramp(0, 90, 10)}, WithTurnTrace(log.hook))

	c.Turn(context.Background(), false, 90)

	for i, st := range log.evaluations() {
		if st.IterationCount != i {
			t.Errorf("evaluation %d has iteration count %d", i, st.IterationCount)
		}
	}
	if final := log.final(); final.IterationCount != 8 {
		t.Errorf("iterations = %d, want 8", final.IterationCount)
	}
}

func TestTurn_SensorDropout(t *testing.T) {
	f := newFixture(t)
	yaw := &yawScript{vals: []float64{42}}
	c := f.controller(yaw)

	got := c.Turn(context.Background(), false, 90)
	if got != SensorDropout {
		t.Fatalf("outcome = %v, want sensor dropout", got)
	}
	if !errors.Is(got.Err(), ErrSensorDropout) {
		t.Errorf("Err() = %v", got.Err())
	}
	// Initial read, first sample, then 31 polls.
	if n := yaw.Reads(); n != 33 {
		t.Errorf("yaw reads = %d, want 33", n)
	}
	if a := f.out.Asserted(); len(a) != 0 {
		t.Errorf("no footfall expected, asserted %v", a)
	}
	if f.primary.Writes() != 1 || f.secondary.Writes() != 1 {
		t.Error("expanders should only see the Begin write")
	}
}

func TestTurn_BlockedWhenNotProgressing(t *testing.T) {
	f := newFixture(t)
	var log turnLog
	c := f.controller(toggle(1, 0), WithTurnTrace(log.hook))

	if got := c.Turn(context.Background(), false, 90); got != NoProgress {
		t.Fatalf("outcome = %v, want no progress", got)
	}
	final := log.final()
	if final.Phase != Blocked {
		t.Errorf("phase = %v, want blocked", final.Phase)
	}
	if final.ErrorCount != DefaultTurnLimits().MaxErrors+1 {
		t.Errorf("error count = %d", final.ErrorCount)
	}
	if final.IterationCount != DefaultTurnLimits().MaxErrors {
		t.Errorf("iterations = %d, want %d", final.IterationCount, DefaultTurnLimits().MaxErrors)
	}
	assertAllOff(t, f)
}

func TestTurn_IterationBudget(t *testing.T) {
	f := newFixture(t)
	var log turnLog
	limits := DefaultTurnLimits()
	limits.MaxSteps = 4
	c := f.controller(toggle(10, 0), WithTurnLimits(limits), WithTurnTrace(log.hook))

	got := c.Turn(context.Background(), false, 90)
	if got != IterationBudgetExceeded {
		t.Fatalf("outcome = %v, want iteration budget exceeded", got)
	}
	final := log.final()
	if final.IterationCount != limits.MaxSteps+1 {
		t.Errorf("iterations = %d, want %d", final.IterationCount, limits.MaxSteps+1)
	}
	if final.ErrorCount != 0 {
		t.Errorf("error count = %d, want 0 for a turn that keeps moving", final.ErrorCount)
	}
	assertAllOff(t, f)
}

func TestTurn_StoppedDuringEvaluation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var log turnLog
	c := f.controller(&yawScript{vals: ramp(0, 170, 10)}, WithTurnTrace(func(st TurnState) {
		log.hook(st)
		if st.Phase == Evaluating && st.IterationCount == 2 {
			cancel()
		}
	}))

	if got := c.Turn(ctx, false, 180); got != Cancelled {
		t.Fatalf("outcome = %v, want cancelled", got)
	}
	final := log.final()
	if final.Phase != Stopped || final.IterationCount != 2 {
		t.Errorf("final = %+v, want stopped after 2 iterations", final)
	}
	assertAllOff(t, f)
}

func TestTurn_StoppedWhileSampling(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := f.controller(&yawScript{vals: []float64{5}})
	if got := c.Turn(ctx, false, 90); got != Cancelled {
		t.Errorf("outcome = %v, want cancelled", got)
	}
}

func TestTurn_CommitOncePerSign(t *testing.T) {
	f := newFixture(t)
	var commits []TurnDirection
	last := TurnNone
	// Overshoot: 0 -> 95 crosses the target, then back to 90.
	c := f.controller(&yawScript{vals: []float64{0, 50, 95, 89}}, WithTurnTrace(func(st TurnState) {
		if st.Committed != last {
			commits = append(commits, st.Committed)
			last = st.Committed
		}
	}))

	if got := c.Turn(context.Background(), false, 90); got != Completed {
		t.Fatalf("outcome = %v, want completed", got)
	}
	want := []TurnDirection{TurnRight, TurnLeft}
	if len(commits) != len(want) {
		t.Fatalf("commits = %v, want %v", commits, want)
	}
	for i := range want {
		if commits[i] != want[i] {
			t.Errorf("commit %d = %v, want %v", i, commits[i], want[i])
		}
	}
}

func TestTurnPhase_Outcome(t *testing.T) {
	tests := map[TurnPhase]Outcome{
		Ended:       Completed,
		Blocked:     NoProgress,
		Error:       IterationBudgetExceeded,
		SensorError: SensorDropout,
		Stopped:     Cancelled,
	}
	for p, want := range tests {
		if !p.Terminal() {
			t.Errorf("%v should be terminal", p)
		}
		if got := p.Outcome(); got != want {
			t.Errorf("%v.Outcome() = %v, want %v", p, got, want)
		}
	}
	for _, p := range []TurnPhase{Sampling, Evaluating, Stepping} {
		if p.Terminal() {
			t.Errorf("%v should not be terminal", p)
		}
	}
}

func TestWithinBand(t *testing.T) {
	tests := []struct {
		diff, prev float64
		want       bool
	}{
		{90, 89, true},
		{-90, 89, true},
		{90, 87, false},
		{90, 93, false},
		{10, 80, false},
	}
	for _, tt := range tests {
		if got := withinBand(tt.diff, tt.prev, 3); got != tt.want {
			t.Errorf("withinBand(%v, %v) = %v, want %v", tt.diff, tt.prev, got, tt.want)
		}
	}
}
