package actuator

import "sync"

// Memory is an in-process Expander. It backs --simulate mode and tests.
type Memory struct {
	mu       sync.Mutex
	dirA     uint8
	dirB     uint8
	gpioA    uint8
	gpioB    uint8
	writes   int
	failNext error
	history  []uint16
}

// NewMemory returns an expander with every pin configured as input.
func NewMemory() *Memory {
	return &Memory{dirA: portInput, dirB: portInput}
}

// Configure implements Expander.
func (m *Memory) Configure(inputsA, inputsB uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirA, m.dirB = inputsA, inputsB
	return nil
}

// WriteGPIO implements Expander.
func (m *Memory) WriteGPIO(a, b uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	m.gpioA, m.gpioB = a, b
	m.writes++
	m.history = append(m.history, uint16(a)|uint16(b)<<8)
	return nil
}

// FailNext makes the next WriteGPIO return err.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	m.failNext = err
	m.mu.Unlock()
}

// GPIO returns the last written latches.
func (m *Memory) GPIO() (a, b uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gpioA, m.gpioB
}

// Directions returns the configured direction registers.
func (m *Memory) Directions() (a, b uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirA, m.dirB
}

// Writes returns the number of successful writes.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// History returns every written 16-bit latch value in order.
func (m *Memory) History() []uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint16, len(m.history))
	copy(out, m.history)
	return out
}
