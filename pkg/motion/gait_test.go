package motion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-sapien/pkg/actuator"
)

type cycleLog struct {
	mu     sync.Mutex
	cycles []int
}

func (l *cycleLog) hook(_ string, n int) {
	l.mu.Lock()
	l.cycles = append(l.cycles, n)
	l.mu.Unlock()
}

func (l *cycleLog) get() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.cycles...)
}

func TestShake_RunsAllCycles(t *testing.T) {
	f := newFixture(t)
	var log cycleLog
	c := f.controller(nil, WithCycleTrace(log.hook))

	if got := c.Shake(context.Background(), false, 4); got != Completed {
		t.Fatalf("outcome = %v, want completed", got)
	}
	if n := len(log.get()); n != 4 {
		t.Errorf("cycles = %d, want 4", n)
	}
	if !f.out.saw(actuator.HipLeft) || !f.out.saw(actuator.HipRight) {
		t.Error("shake should drive both hip outputs")
	}
	assertAllOff(t, f)
}

func TestShake_CancelMidPhase(t *testing.T) {
	f := newFixture(t)
	const tick = 10 * time.Millisecond
	c := f.controller(nil, WithTiming(Timing{Tick: tick}))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(45*time.Millisecond, cancel)

	start := time.Now()
	got := c.Shake(ctx, false, 10)
	elapsed := time.Since(start)

	if got != Cancelled {
		t.Fatalf("outcome = %v, want cancelled", got)
	}
	if elapsed > 45*time.Millisecond+3*tick {
		t.Errorf("shake took %v to stop", elapsed)
	}
	if f.out.Level(actuator.HipLeft) || f.out.Level(actuator.HipRight) {
		t.Error("hip outputs should be off after cancellation")
	}
}

func TestBackAndForth_DrivesBothLegs(t *testing.T) {
	f := newFixture(t)
	c := f.controller(nil)

	if got := c.BackAndForth(context.Background(), true, 2); got != Completed {
		t.Fatalf("outcome = %v, want completed", got)
	}
	for _, o := range actuator.Legs() {
		if !f.out.saw(o) {
			t.Errorf("%v was never driven", o)
		}
	}
	if f.out.saw(actuator.HipLeft) {
		t.Error("back and forth should not touch the hip")
	}
	assertAllOff(t, f)
}

func TestWalkForward_BlockedAfterSecondCycle(t *testing.T) {
	f := newFixture(t)
	var log cycleLog
	c := f.controller(nil, WithCycleTrace(func(r string, n int) {
		log.hook(r, n)
		if n == 2 {
			f.feed.SetDistance(200)
		}
	}))

	got := c.WalkForward(context.Background(), true, 5)
	if got != ObstacleBlocked {
		t.Fatalf("outcome = %v, want obstacle blocked", got)
	}
	cycles := log.get()
	if len(cycles) != 2 {
		t.Errorf("cycles run = %v, want [1 2]", cycles)
	}
	assertAllOff(t, f)
}

func TestWalkForward_ClearPath(t *testing.T) {
	f := newFixture(t)
	f.feed.SetDistance(1200)
	c := f.controller(nil)

	if got := c.WalkForward(context.Background(), true, 3); got != Completed {
		t.Fatalf("outcome = %v, want completed", got)
	}
	assertAllOff(t, f)
}

func TestWalkForward_StopDistanceOption(t *testing.T) {
	f := newFixture(t)
	f.feed.SetDistance(500)
	c := f.controller(nil, WithStopDistance(600))

	if got := c.WalkForward(context.Background(), true, 3); got != ObstacleBlocked {
		t.Errorf("outcome = %v, want obstacle blocked", got)
	}
}

func TestWalkBackward_IgnoresRange(t *testing.T) {
	f := newFixture(t)
	f.feed.SetDistance(10)
	var log cycleLog
	c := f.controller(nil, WithCycleTrace(log.hook))

	if got := c.WalkBackward(context.Background(), false, 3); got != Completed {
		t.Fatalf("outcome = %v, want completed", got)
	}
	if n := len(log.get()); n != 3 {
		t.Errorf("cycles = %d, want 3", n)
	}
	assertAllOff(t, f)
}

func TestWalk_CancelReleasesLocomotion(t *testing.T) {
	f := newFixture(t)
	f.feed.SetDistance(1200)
	c := f.controller(nil, WithTiming(Timing{Tick: 10 * time.Millisecond}))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(35*time.Millisecond, cancel)

	if got := c.WalkForward(ctx, true, 100); got != Cancelled {
		t.Fatalf("outcome = %v, want cancelled", got)
	}
	assertAllOff(t, f)
}

func TestGaitTables_BackwardIsSlower(t *testing.T) {
	ticks := func(g gait) int {
		n := 0
		for _, p := range g.cycle {
			n += p.ticks
		}
		return n
	}
	if fw, bw := ticks(walkForwardGait), ticks(walkBackwardGait); bw != fw+2 {
		t.Errorf("backward cycle = %d ticks, forward = %d; want one extra tick per stride", bw, fw)
	}
}
