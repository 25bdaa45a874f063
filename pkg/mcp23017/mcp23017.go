// Package mcp23017 is a register-level driver for the Microchip MCP23017
// 16-bit I2C port expander, just enough to drive it as a bank of outputs.
//
// It relies on the power-on IOCON default (BANK=0, SEQOP=0) so that register
// pairs such as GPIOA/GPIOB can be written in one transaction.
package mcp23017

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Default addresses of the two expanders in the body.
const (
	AddrPrimary   uint16 = 0x20
	AddrSecondary uint16 = 0x21
)

// Registers (IOCON.BANK = 0 layout).
const (
	RegIODIRA = 0x00
	RegIODIRB = 0x01
	RegIOCON  = 0x0A
	RegGPPUA  = 0x0C
	RegGPPUB  = 0x0D
	RegGPIOA  = 0x12
	RegGPIOB  = 0x13
	RegOLATA  = 0x14
	RegOLATB  = 0x15
)

// Dev is one MCP23017 on an I2C bus.
type Dev struct {
	dev i2c.Dev
	mu  sync.Mutex
}

// New binds an expander at addr on bus.
func New(bus i2c.Bus, addr uint16) *Dev {
	return &Dev{dev: i2c.Dev{Bus: bus, Addr: addr}}
}

// Addr returns the I2C address.
func (d *Dev) Addr() uint16 {
	return d.dev.Addr
}

// Configure writes IODIRA/IODIRB. A set bit is an input.
func (d *Dev) Configure(inputsA, inputsB uint8) error {
	return d.writeRegs(RegIODIRA, inputsA, inputsB)
}

// WriteGPIO drives GPIOA and GPIOB in one transaction.
func (d *Dev) WriteGPIO(a, b uint8) error {
	return d.writeRegs(RegGPIOA, a, b)
}

// WriteRegister writes a single register.
func (d *Dev) WriteRegister(reg, value uint8) error {
	return d.writeRegs(reg, value)
}

// ReadRegister reads a single register.
func (d *Dev) ReadRegister(reg uint8) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf [1]byte
	if err := d.dev.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, fmt.Errorf("mcp23017 %#02x: read reg %#02x: %w", d.dev.Addr, reg, err)
	}
	return buf[0], nil
}

func (d *Dev) writeRegs(reg uint8, values ...uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w := make([]byte, 0, len(values)+1)
	w = append(w, reg)
	w = append(w, values...)
	if err := d.dev.Tx(w, nil); err != nil {
		return fmt.Errorf("mcp23017 %#02x: write reg %#02x: %w", d.dev.Addr, reg, err)
	}
	return nil
}

// Bus is an opened I2C bus plus the expanders on it.
type Bus struct {
	closer i2c.BusCloser
	Devs   []*Dev
}

// Open initialises periph host drivers, opens the named bus ("" = first
// available) and binds one expander per address.
func Open(busName string, addrs ...uint16) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mcp23017: host init: %w", err)
	}
	bc, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("mcp23017: open i2c bus %q: %w", busName, err)
	}

	b := &Bus{closer: bc}
	for _, addr := range addrs {
		b.Devs = append(b.Devs, New(bc, addr))
	}
	return b, nil
}

// Close releases the bus.
func (b *Bus) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}
