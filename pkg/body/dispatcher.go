// Package body runs motion commands on the robot body: a bounded FIFO queue
// feeding one worker goroutine, with Stop as the only way to jump the queue.
package body

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-sapien/internal/log"
	"github.com/teslashibe/go-sapien/pkg/motion"
	"github.com/teslashibe/go-sapien/pkg/notify"
)

// Defaults for a Dispatcher.
const (
	DefaultQueueDepth = 3
	DefaultCommandGap = 250 * time.Millisecond
	DefaultStopSettle = 50 * time.Millisecond
)

// Actuators is the part of actuator.Bank the dispatcher drives directly.
type Actuators interface {
	Begin() error
	ResetAll()
}

// Routine is the common signature of every motion routine.
type Routine func(ctx context.Context, direction bool, value int) motion.Outcome

// Observer receives dispatcher lifecycle callbacks, typically for metrics.
// Calls happen on the goroutine that caused them and must not block.
type Observer interface {
	Submitted(a ActionKind)
	Finished(a ActionKind, o motion.Outcome, took time.Duration)
	Discarded(a ActionKind)
	Stopped()
	QueueDepth(n int)
}

// Result describes one finished command.
type Result struct {
	Command  Command        `json:"command"`
	Outcome  motion.Outcome `json:"-"`
	Status   string         `json:"outcome"`
	Event    notify.Event   `json:"event,omitempty"`
	Started  time.Time      `json:"started"`
	Finished time.Time      `json:"finished"`
}

// Status is a point-in-time snapshot of the dispatcher.
type Status struct {
	Started   bool     `json:"started"`
	Running   *Command `json:"running,omitempty"`
	Queued    int      `json:"queued"`
	Capacity  int      `json:"capacity"`
	Last      *Result  `json:"last,omitempty"`
	Executed  uint64   `json:"executed"`
	Discarded uint64   `json:"discarded"`
	Stops     uint64   `json:"stops"`
}

type queued struct {
	cmd   Command
	epoch uint64
}

// Dispatcher owns the queue, the worker and the per-command cancellation.
type Dispatcher struct {
	bank     Actuators
	routines map[ActionKind]Routine
	sink     notify.Sink
	observer Observer
	logger   *slog.Logger

	depth      int
	gap        time.Duration
	stopSettle time.Duration

	queue chan queued

	mu        sync.Mutex
	epoch     uint64             // bumped by Stop; older queue entries are stale
	cancelRun context.CancelFunc // cancels the running command
	running   *Command
	last      *Result
	executed  uint64
	discarded uint64
	stops     uint64
	started   bool
	closed    bool

	ctx    context.Context // worker lifetime
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueDepth overrides DefaultQueueDepth.
func WithQueueDepth(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.depth = n
		}
	}
}

// WithCommandGap sets the pause the worker takes after every command.
func WithCommandGap(gap time.Duration) Option {
	return func(d *Dispatcher) { d.gap = gap }
}

// WithStopSettle sets how long Stop waits after resetting the outputs.
func WithStopSettle(s time.Duration) Option {
	return func(d *Dispatcher) { d.stopSettle = s }
}

// WithSink sets where terminal notifications go.
func WithSink(s notify.Sink) Option {
	return func(d *Dispatcher) { d.sink = s }
}

// WithObserver registers lifecycle callbacks.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithRoutine overrides the routine for one action.
func WithRoutine(a ActionKind, r Routine) Option {
	return func(d *Dispatcher) { d.routines[a] = r }
}

// New builds a dispatcher over bank and the routines of mc. Call Begin to
// start the worker.
func New(bank Actuators, mc *motion.Controller, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		bank:       bank,
		routines:   Routines(mc),
		sink:       notify.Discard,
		depth:      DefaultQueueDepth,
		gap:        DefaultCommandGap,
		stopSettle: DefaultStopSettle,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = log.Component("body")
	}
	d.queue = make(chan queued, d.depth)
	return d
}

// Routines is the dispatch table for a motion controller. Stop has no entry;
// it never reaches the worker.
func Routines(mc *motion.Controller) map[ActionKind]Routine {
	if mc == nil {
		return map[ActionKind]Routine{}
	}
	return map[ActionKind]Routine{
		LeftUpperArm:   mc.LeftUpperArm,
		RightUpperArm:  mc.RightUpperArm,
		LeftLowerArm:   mc.LeftLowerArm,
		RightLowerArm:  mc.RightLowerArm,
		BothUpperArms:  mc.BothUpperArms,
		BothLowerArms:  mc.BothLowerArms,
		LeftLeg:        mc.LeftLeg,
		RightLeg:       mc.RightLeg,
		Hip:            mc.Hip,
		LeftHandLight:  mc.LeftHandLight,
		RightHandLight: mc.RightHandLight,
		Turn:           mc.Turn,
		Shake:          mc.Shake,
		BackAndForth:   mc.BackAndForth,
		WalkForward:    mc.WalkForward,
		WalkBackward:   mc.WalkBackward,
	}
}

// Begin configures the outputs, starts the worker with the given hints and
// returns once it is ready to take commands.
func (d *Dispatcher) Begin(ctx context.Context, hints Hints) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if d.started {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	if err := ctx.Err(); err != nil {
		d.mu.Unlock()
		return err
	}
	if err := d.bank.Begin(); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("body: begin: %w", err)
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.started = true
	d.mu.Unlock()

	ready := make(chan struct{})
	go d.worker(hints, ready)

	select {
	case <-ready:
		d.logger.Info("dispatcher ready", "queue_depth", d.depth, "core", hints.Core, "priority", hints.Priority)
		return nil
	case <-ctx.Done():
		// Roll back so Begin can be retried.
		d.cancel()
		<-d.done
		d.mu.Lock()
		d.started = false
		d.done = make(chan struct{})
		d.mu.Unlock()
		return ctx.Err()
	}
}

// Submit queues cmd, blocking while the queue is full. Stop is handled
// immediately on the caller's goroutine. The returned command carries the
// assigned ID.
func (d *Dispatcher) Submit(ctx context.Context, cmd Command) (Command, error) {
	if !cmd.Action.Valid() {
		return cmd, fmt.Errorf("%w: %d", ErrUnknownAction, int(cmd.Action))
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.Action == Stop {
		d.Stop()
		return cmd, nil
	}
	if _, ok := d.routines[cmd.Action]; !ok {
		return cmd, fmt.Errorf("%w: no routine for %s", ErrUnknownAction, cmd.Action)
	}

	d.mu.Lock()
	switch {
	case d.closed:
		d.mu.Unlock()
		return cmd, ErrClosed
	case !d.started:
		d.mu.Unlock()
		return cmd, ErrNotStarted
	}
	q := queued{cmd: cmd, epoch: d.epoch}
	workerCtx := d.ctx
	d.mu.Unlock()

	select {
	case d.queue <- q:
	case <-ctx.Done():
		return cmd, ctx.Err()
	case <-workerCtx.Done():
		return cmd, ErrClosed
	}

	if d.observer != nil {
		d.observer.Submitted(cmd.Action)
		d.observer.QueueDepth(len(d.queue))
	}
	d.logger.Debug("command queued", "id", cmd.ID, "cmd", cmd.String())
	return cmd, nil
}

// Exec queues a command without a deadline.
func (d *Dispatcher) Exec(action ActionKind, direction bool, value int) error {
	_, err := d.Submit(context.Background(), Command{Action: action, Direction: direction, Value: value})
	return err
}

// Stop discards every queued command, cancels the running one and forces
// all outputs off. Commands admitted before Stop never run, even if their
// submitter was still blocked on a full queue.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.epoch++
	d.stops++
	if d.cancelRun != nil {
		d.cancelRun()
	}
	d.mu.Unlock()

	dropped := d.drain()
	d.bank.ResetAll()

	if d.observer != nil {
		d.observer.Stopped()
		d.observer.QueueDepth(len(d.queue))
	}
	d.logger.Info("stop", "dropped", dropped)

	if d.stopSettle > 0 {
		time.Sleep(d.stopSettle)
	}
}

func (d *Dispatcher) drain() int {
	n := 0
	for {
		select {
		case q := <-d.queue:
			n++
			d.discard(q.cmd)
		default:
			return n
		}
	}
}

func (d *Dispatcher) discard(cmd Command) {
	d.mu.Lock()
	d.discarded++
	d.mu.Unlock()
	if d.observer != nil {
		d.observer.Discarded(cmd.Action)
	}
}

func (d *Dispatcher) worker(hints Hints, ready chan<- struct{}) {
	defer close(d.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := applyHints(hints); err != nil {
		d.logger.Warn("scheduling hints not applied", "err", err)
	}
	close(ready)

	for {
		select {
		case <-d.ctx.Done():
			return
		case q := <-d.queue:
			if d.observer != nil {
				d.observer.QueueDepth(len(d.queue))
			}
			if !d.run(q) {
				continue
			}
			if d.gap > 0 {
				select {
				case <-d.ctx.Done():
					return
				case <-time.After(d.gap):
				}
			}
		}
	}
}

// run executes one command. It reports false if the command was stale.
func (d *Dispatcher) run(q queued) bool {
	d.mu.Lock()
	if q.epoch != d.epoch {
		d.mu.Unlock()
		d.logger.Debug("discarding command queued before stop", "id", q.cmd.ID, "cmd", q.cmd.String())
		d.discard(q.cmd)
		return false
	}
	ctx, cancel := context.WithCancel(d.ctx)
	cmd := q.cmd
	d.cancelRun = cancel
	d.running = &cmd
	d.mu.Unlock()

	started := time.Now()
	outcome := d.routines[cmd.Action](ctx, cmd.Direction, cmd.Value)
	cancel()
	finished := time.Now()

	res := &Result{
		Command:  cmd,
		Outcome:  outcome,
		Status:   outcome.String(),
		Started:  started,
		Finished: finished,
	}
	if ev, ok := EventFor(cmd.Action, outcome); ok {
		res.Event = ev
		d.sink.Notify(notify.Notice{
			Event:     ev,
			Action:    cmd.Action.String(),
			CommandID: cmd.ID,
			At:        finished,
		})
	}

	d.mu.Lock()
	d.cancelRun = nil
	d.running = nil
	d.last = res
	d.executed++
	d.mu.Unlock()

	if d.observer != nil {
		d.observer.Finished(cmd.Action, outcome, finished.Sub(started))
	}
	d.logger.Info("command finished",
		"id", cmd.ID,
		"cmd", cmd.String(),
		"outcome", outcome.String(),
		"took", finished.Sub(started).Round(time.Millisecond))
	return true
}

// EventFor maps a terminal outcome to its notification. Only Turn and
// WalkForward notify.
func EventFor(a ActionKind, o motion.Outcome) (notify.Event, bool) {
	switch a {
	case Turn:
		switch o {
		case motion.Completed:
			return notify.TurnEnded, true
		case motion.NoProgress:
			return notify.TurnBlocked, true
		case motion.IterationBudgetExceeded:
			return notify.TurnError, true
		case motion.Cancelled:
			return notify.TurnStopped, true
		case motion.SensorDropout:
			return notify.TurnSensorError, true
		}
	case WalkForward:
		switch o {
		case motion.Completed:
			return notify.WalkingEnded, true
		case motion.ObstacleBlocked:
			return notify.WalkingBlocked, true
		case motion.Cancelled:
			return notify.WalkingStopped, true
		}
	}
	return "", false
}

// Status returns a snapshot.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := Status{
		Started:   d.started && !d.closed,
		Queued:    len(d.queue),
		Capacity:  d.depth,
		Executed:  d.executed,
		Discarded: d.discarded,
		Stops:     d.stops,
	}
	if d.running != nil {
		c := *d.running
		st.Running = &c
	}
	if d.last != nil {
		r := *d.last
		st.Last = &r
	}
	return st
}

// Close stops the worker, waits for it to exit and forces all outputs off.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	started, done := d.started, d.done
	if d.cancelRun != nil {
		d.cancelRun()
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()

	if started {
		<-done
	}
	d.drain()
	d.bank.ResetAll()
	d.logger.Info("dispatcher closed")
	return nil
}
