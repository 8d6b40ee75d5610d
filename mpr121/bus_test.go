package mpr121

import (
	"errors"
)

var errNack = errors.New("nack")

// busOp is one register transaction seen by fakeBus. Val is the first byte
// written; it is zero for reads.
type busOp struct {
	Write bool
	Reg   uint8
	Val   uint8
}

func rd(reg uint8) busOp { return busOp{Reg: reg} }
func wr(reg, val uint8) busOp { return busOp{Write: true, Reg: reg, Val: val} }
func ungated(reg, val uint8) []busOp {
	return []busOp{rd(ECR), wr(reg, val)}
}
func gated(reg, val, ecr uint8) []busOp {
	return []busOp{rd(ECR), wr(ECR, 0), wr(reg, val), wr(ECR, ecr)}
}

// fakeBus is a register file behind a single I2C address. With chip set it
// also mimics the soft reset of an MPR121.
type fakeBus struct {
	addr      uint8
	regs      [256]uint8
	ops       []busOp
	chip      bool
	failRead  map[uint8]error
	failWrite map[uint8]error
	closed    int
}

func newFakeBus() *fakeBus {
	return &fakeBus{addr: DefaultAddress}
}

// newFakeChip returns a bus with a running MPR121 behind it.
func newFakeChip() *fakeBus {
	b := newFakeBus()
	b.chip = true
	b.regs[ECR] = 0x8C
	return b
}

func (b *fakeBus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	if addr != b.addr {
		return errNack
	}
	if err := b.failRead[reg]; err != nil {
		return err
	}
	b.ops = append(b.ops, rd(reg))
	for i := range buf {
		buf[i] = b.regs[reg+uint8(i)]
	}
	return nil
}

func (b *fakeBus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	if addr != b.addr {
		return errNack
	}
	var val uint8
	if len(buf) > 0 {
		val = buf[0]
	}
	b.ops = append(b.ops, wr(reg, val))
	if err := b.failWrite[reg]; err != nil {
		return err
	}
	if b.chip && reg == SOFTRESET && val == softResetCommand {
		b.regs = [256]uint8{}
		b.regs[CONFIG1] = 0x10
		b.regs[CONFIG2] = 0x24
		return nil
	}
	copy(b.regs[reg:], buf)
	return nil
}

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	if len(w) == 0 {
		return nil
	}
	if len(r) > 0 {
		return b.ReadRegister(uint8(addr), w[0], r)
	}
	return b.WriteRegister(uint8(addr), w[0], w[1:])
}

func (b *fakeBus) Close() error {
	b.closed++
	return nil
}

func (b *fakeBus) writes() []busOp {
	var ops []busOp
	for _, op := range b.ops {
		if op.Write {
			ops = append(ops, op)
		}
	}
	return ops
}
