// Package i2chost exposes the I2C buses of a Linux host (Raspberry Pi and
// friends) as a drivers.I2C, using periph.io.
package i2chost

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// MaxSpeed is the fastest clock the devices in this repository are rated
// for.
const MaxSpeed = 400 * physic.KiloHertz

type Bus struct {
	bus    i2c.Bus
	closer io.Closer
	buf    []byte
}

// Open initializes the host drivers and opens the named I2C bus, e.g. "1" or
// "/dev/i2c-1". An empty name selects the first bus found.
func Open(name string) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2chost: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2chost: %w", err)
	}
	return &Bus{bus: b, closer: b}, nil
}

// New wraps an already opened bus. If it implements io.Closer it is closed
// by Close.
func New(b i2c.Bus) *Bus {
	c, _ := b.(io.Closer)
	return &Bus{bus: b, closer: c}
}

func (b *Bus) String() string {
	return b.bus.String()
}

// SetSpeed changes the bus clock. Not every host driver supports it.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	return b.bus.SetSpeed(f)
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	return b.bus.Tx(addr, w, r)
}

// ReadRegister writes the register address and reads len(buf) bytes in a
// single transaction with a repeated start.
func (b *Bus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	b.buf = append(b.buf[:0], reg)
	return b.bus.Tx(uint16(addr), b.buf, buf)
}

func (b *Bus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	b.buf = append(append(b.buf[:0], reg), buf...)
	return b.bus.Tx(uint16(addr), b.buf, nil)
}

// Close releases the bus. Later calls are no-ops.
func (b *Bus) Close() error {
	c := b.closer
	b.closer = nil
	if c == nil {
		return nil
	}
	return c.Close()
}
