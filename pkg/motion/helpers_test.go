package motion

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-sapien/internal/log"
	"github.com/teslashibe/go-sapien/pkg/actuator"
	"github.com/teslashibe/go-sapien/pkg/sensor"
)

// recorder is a Bank that remembers every output it was asked to assert.
type recorder struct {
	*actuator.Bank
	mu       sync.Mutex
	asserted []actuator.Output
}

func (r *recorder) Set(o actuator.Output, on bool) {
	if on {
		r.note(o)
	}
	r.Bank.Set(o, on)
}

func (r *recorder) Apply(levels ...actuator.Level) {
	for _, l := range levels {
		if l.On {
			r.note(l.Out)
		}
	}
	r.Bank.Apply(levels...)
}

func (r *recorder) note(o actuator.Output) {
	r.mu.Lock()
	r.asserted = append(r.asserted, o)
	r.mu.Unlock()
}

func (r *recorder) Asserted() []actuator.Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]actuator.Output(nil), r.asserted...)
}

func (r *recorder) saw(o actuator.Output) bool {
	for _, a := range r.Asserted() {
		if a == o {
			return true
		}
	}
	return false
}

// yawScript returns its values in order and then repeats the last one.
type yawScript struct {
	mu    sync.Mutex
	vals  []float64
	next  int
	reads int
}

func (s *yawScript) Yaw() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	v := s.vals[s.next]
	if s.next < len(s.vals)-1 {
		s.next++
	}
	return v
}

func (s *yawScript) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// toggle alternates between a and b on every read.
func toggle(a, b float64) sensor.YawReader {
	var mu sync.Mutex
	flip := false
	return sensor.YawFunc(func() float64 {
		mu.Lock()
		defer mu.Unlock()
		flip = !flip
		if flip {
			return a
		}
		return b
	})
}

func fastTiming() Timing {
	return Timing{
		Tick:       time.Millisecond,
		HipSettle:  time.Millisecond,
		YawPoll:    time.Millisecond,
		YawPolls:   30,
		TurnSettle: 0,
	}
}

type fixture struct {
	out       *recorder
	primary   *actuator.Memory
	secondary *actuator.Memory
	feed      *sensor.Feed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	primary, secondary := actuator.NewMemory(), actuator.NewMemory()
	bank := actuator.NewBank(primary, secondary, actuator.WithLogger(log.Nop()))
	if err := bank.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return &fixture{
		out:       &recorder{Bank: bank},
		primary:   primary,
		secondary: secondary,
		feed:      sensor.NewFeed(),
	}
}

func (f *fixture) controller(yaw sensor.YawReader, opts ...Option) *Controller {
	if yaw == nil {
		yaw = f.feed
	}
	base := []Option{WithTiming(fastTiming()), WithLogger(log.Nop())}
	return New(f.out, yaw, f.feed, append(base, opts...)...)
}

func assertAllOff(t *testing.T, f *fixture) {
	t.Helper()
	if active := f.out.Active(); len(active) != 0 {
		t.Errorf("outputs still on: %v", active)
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
