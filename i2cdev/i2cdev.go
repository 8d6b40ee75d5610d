// Package i2cdev talks to a single device through the Linux i2c-dev
// interface (/dev/i2c-N). Load the "i2c-dev" kernel module to use it.
//
// Unlike i2chost, a Bus is bound to one slave address when it is opened.
package i2cdev

import (
	"errors"
	"fmt"

	"golang.org/x/exp/io/i2c"
)

var (
	ErrWrongAddress = errors.New("i2cdev: bus is bound to another address")
	ErrClosed       = errors.New("i2cdev: bus closed")
)

// conn is the subset of *i2c.Device used here.
type conn interface {
	Read(buf []byte) error
	ReadReg(reg byte, buf []byte) error
	Write(buf []byte) error
	WriteReg(reg byte, buf []byte) error
	Close() error
}

type Bus struct {
	addr uint8
	dev  conn
}

// Open opens dev (e.g. "/dev/i2c-1") for the device at addr.
func Open(dev string, addr uint8) (*Bus, error) {
	d, err := i2c.Open(&i2c.Devfs{Dev: dev}, int(addr))
	if err != nil {
		return nil, fmt.Errorf("i2cdev: open %s at 0x%02X: %w", dev, addr, err)
	}
	return &Bus{addr: addr, dev: d}, nil
}

func (b *Bus) check(addr uint8) error {
	if b.dev == nil {
		return ErrClosed
	}
	if addr != b.addr {
		return fmt.Errorf("%w: 0x%02X, want 0x%02X", ErrWrongAddress, addr, b.addr)
	}
	return nil
}

func (b *Bus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	if err := b.check(addr); err != nil {
		return err
	}
	return b.dev.ReadReg(reg, buf)
}

func (b *Bus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	if err := b.check(addr); err != nil {
		return err
	}
	return b.dev.WriteReg(reg, buf)
}

// Tx performs a write followed by a read. A one byte write followed by a
// read is done as a register read; anything else is two separate
// transfers without a repeated start.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("%w: 0x%02X, want 0x%02X", ErrWrongAddress, addr, b.addr)
	}
	if err := b.check(uint8(addr)); err != nil {
		return err
	}
	if len(w) == 1 && len(r) > 0 {
		return b.dev.ReadReg(w[0], r)
	}
	if len(w) > 0 {
		if err := b.dev.Write(w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		return b.dev.Read(r)
	}
	return nil
}

// Close releases the device file. Later calls are no-ops.
func (b *Bus) Close() error {
	d := b.dev
	b.dev = nil
	if d == nil {
		return nil
	}
	return d.Close()
}
