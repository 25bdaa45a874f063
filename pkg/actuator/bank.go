package actuator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-sapien/internal/log"
)

// Direction masks for Expander.Configure (1 = input).
const (
	portInput  uint8 = 0xFF
	portOutput uint8 = 0x00
)

// Expander is one 16-bit port expander.
// Port A maps to bits 0..7 of the bank state, port B to bits 8..15.
type Expander interface {
	// Configure sets the direction registers. A set bit is an input.
	Configure(inputsA, inputsB uint8) error
	// WriteGPIO drives both output latches.
	WriteGPIO(a, b uint8) error
}

// Option configures a Bank.
type Option func(*Bank)

// WithLogger sets the logger used for write faults.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bank) { b.logger = l }
}

// WithWriteErrorHook is called for every failed expander write.
func WithWriteErrorHook(fn func(chip int, err error)) Option {
	return func(b *Bank) { b.onWriteError = fn }
}

// Bank is the logical view of both expanders.
// It keeps a shadow of every output latch so single-bit updates never need a
// read-modify-write on the bus.
type Bank struct {
	chips        [2]Expander
	logger       *slog.Logger
	onWriteError func(chip int, err error)

	mu          sync.Mutex
	state       [2]uint16
	writeErrors uint64
}

// NewBank wraps the primary (0x20) and secondary (0x21) expanders.
func NewBank(primary, secondary Expander, opts ...Option) *Bank {
	b := &Bank{
		chips: [2]Expander{primary, secondary},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.Component("actuator")
	}
	return b
}

// Begin configures the direction registers and zeroes every output.
// Primary: port A inputs, port B outputs. Secondary: port A outputs, port B inputs.
func (b *Bank) Begin() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = [2]uint16{}
	for chip, dev := range b.chips {
		if err := dev.WriteGPIO(0, 0); err != nil {
			return fmt.Errorf("actuator: reset chip %d: %w", chip, err)
		}
	}
	if err := b.chips[Primary].Configure(portInput, portOutput); err != nil {
		return fmt.Errorf("actuator: configure primary: %w", err)
	}
	if err := b.chips[Secondary].Configure(portOutput, portInput); err != nil {
		return fmt.Errorf("actuator: configure secondary: %w", err)
	}
	return nil
}

// Set drives a single output.
func (b *Bank) Set(o Output, on bool) {
	b.Apply(Level{Out: o, On: on})
}

// Apply drives several outputs, writing each touched chip once.
// Chips whose latch did not change are not written.
func (b *Bank) Apply(levels ...Level) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.state
	for _, l := range levels {
		if !l.Out.Valid() {
			continue
		}
		p := pins[l.Out]
		if l.On {
			next[p.chip] |= 1 << p.bit
		} else {
			next[p.chip] &^= 1 << p.bit
		}
	}
	for chip := range b.chips {
		if next[chip] != b.state[chip] {
			b.state[chip] = next[chip]
			b.write(chip)
		}
	}
}

// Clear releases the given outputs.
func (b *Bank) Clear(outs ...Output) {
	levels := make([]Level, len(outs))
	for i, o := range outs {
		levels[i] = Off(o)
	}
	b.Apply(levels...)
}

// ResetAll forces every output to 0 on both chips, whatever the shadow says.
func (b *Bank) ResetAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = [2]uint16{}
	for chip := range b.chips {
		b.write(chip)
	}
}

// Level reports the last driven state of o.
func (b *Bank) Level(o Output) bool {
	if !o.Valid() {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := pins[o]
	return b.state[p.chip]&(1<<p.bit) != 0
}

// Active returns every output currently driven high.
func (b *Bank) Active() []Output {
	b.mu.Lock()
	defer b.mu.Unlock()

	var on []Output
	for o := Output(0); o < numOutputs; o++ {
		p := pins[o]
		if b.state[p.chip]&(1<<p.bit) != 0 {
			on = append(on, o)
		}
	}
	return on
}

// Snapshot returns both shadow latches.
func (b *Bank) Snapshot() [2]uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// WriteErrors returns the number of failed expander writes.
func (b *Bank) WriteErrors() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeErrors
}

// write pushes the shadow latch of chip. Caller holds mu.
func (b *Bank) write(chip int) {
	s := b.state[chip]
	if err := b.chips[chip].WriteGPIO(uint8(s), uint8(s>>8)); err != nil {
		b.writeErrors++
		if b.writeErrors%100 == 1 {
			b.logger.Error("expander write failed", "chip", chip, "state", fmt.Sprintf("%#04x", s), "error", err, "total", b.writeErrors)
		}
		if b.onWriteError != nil {
			b.onWriteError(chip, err)
		}
	}
}
