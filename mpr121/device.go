// Package mpr121 provides a driver for the MPR121 capacitive touch sensor.
//
// Datasheet: https://cdn-shop.adafruit.com/datasheets/MPR121.pdf
//
// Most registers may only be written while the chip is in stop mode (ECR
// electrode bits cleared). WriteRegister takes care of that: it saves ECR,
// stops the chip, writes the register and puts ECR back.
package mpr121

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"

	"github.com/ajanata/mpr121-drivers"
)

type Device struct {
	addr  uint8
	bus   drivers.I2C
	sleep func(time.Duration)
}

type Config struct {
	Address          uint8
	TouchThreshold   uint8
	ReleaseThreshold uint8
	ProximityMode    ProximityMode
	// AutoConfig enables the device's own charge current/time search. When
	// false (the default) the manually configured CDC/CDT values are kept.
	AutoConfig bool
	// SettleTime is how long to wait after the soft reset. Anything below
	// 10ms is raised to 10ms.
	SettleTime time.Duration
}

// Report is the touch status of every channel, as read in a single
// transaction.
type Report uint16

// ProximityMode indicates how many channels are bundled together for the proximity sensor (starting from the first channel).
type ProximityMode uint8

const (
	ProximityModeOff ProximityMode = iota
	ProximityModeTwo
	ProximityModeFour
	ProximityModeTwelve
)

const minSettleTime = 10 * time.Millisecond

type regValue struct {
	reg, val uint8
}

// Baseline tracking and filtering, applied in this order. See section 5.5
// of the datasheet and application note AN3891.
//
// The falling-case parameters slow baseline tracking down: with a plate over
// the pads the touch delta is small, and the chip's defaults let the baseline
// follow a touch as if it were drift. NCLF=100 at 100 samples/s means about a
// second of sustained change before the baseline moves.
var tuning = [...]regValue{
	{MHDF, 0x01},
	{NHDF, 0x01},
	{NCLF, 0x64},
	{FDLF, 0x02},

	{MHDR, 0x01},
	{NHDR, 0x01},
	{NCLR, 0x0E},
	{FDLR, 0x00},

	{NHDT, 0x00},
	{NCLT, 0x00},
	{FDLT, 0x00},

	{DEBOUNCE, 0x00},

	// FFI=6 samples, CDC=16uA
	{CONFIG1, 0x10},
	// CDT=1us, SFI=4 samples, ESI=1ms
	{CONFIG2, 0x40},
}

// New creates a new MPR121 driver on the provided I2C bus. The bus must
// already be configured. The datasheet says it doesn't support more than
// 400 kHz.
//
// The device takes ownership of the bus: Close releases it if it implements
// io.Closer.
func New(bus drivers.I2C) *Device {
	return &Device{
		addr:  DefaultAddress,
		bus:   bus,
		sleep: time.Sleep,
	}
}

// Attach binds the device to another bus, releasing the one it held.
func (d *Device) Attach(bus drivers.I2C) error {
	var err error
	if d.bus != nil {
		err = d.Close()
	}
	d.bus = bus
	return err
}

// Close releases the bus. It is safe to call more than once; only the first
// call reaches the bus.
func (d *Device) Close() error {
	bus := d.bus
	d.bus = nil
	if c, ok := bus.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Address returns the I2C address the device talks to.
func (d *Device) Address() uint8 {
	return d.addr
}

// SetAddress changes the I2C address without touching the chip. Configure
// sets it as well.
func (d *Device) SetAddress(addr uint8) {
	d.addr = addr
}

// Configure resets the chip and brings it into run mode with all 12
// electrodes enabled.
//
// It fails with ErrTransportOpen if nothing answers at the address and with
// ErrResetVerification if the chip did not come out of reset as expected.
// Any other bus error aborts the sequence and leaves the chip configuration
// undefined.
func (d *Device) Configure(c Config) error {
	if c.Address == 0 {
		c.Address = DefaultAddress
	}
	if c.TouchThreshold == 0 {
		c.TouchThreshold = defaultTouchThreshold
	}
	if c.ReleaseThreshold == 0 {
		c.ReleaseThreshold = defaultReleaseThreshold
	}
	if c.SettleTime < minSettleTime {
		c.SettleTime = minSettleTime
	}

	d.addr = c.Address
	if _, err := d.ReadRegister(ECR); err != nil {
		if err == ErrNotOpen {
			return err
		}
		return fmt.Errorf("%w at 0x%02X: %v", ErrTransportOpen, d.addr, err)
	}

	// resets all registers to 0x00 except CONFIG1=0x10 and CONFIG2=0x24
	err := d.WriteRegister(SOFTRESET, softResetCommand)
	if err != nil {
		return err
	}
	err = d.WriteRegister(ECR, 0)
	if err != nil {
		return err
	}
	d.sleep(c.SettleTime)

	v, err := d.ReadRegister(CONFIG2)
	if err != nil {
		return err
	}
	if v != config2ResetValue {
		return fmt.Errorf("%w: CONFIG2 is 0x%02X, want 0x%02X", ErrResetVerification, v, config2ResetValue)
	}

	err = d.SetThresholds(c.TouchThreshold, c.ReleaseThreshold)
	if err != nil {
		return err
	}

	for _, rv := range tuning {
		if err := d.WriteRegister(rv.reg, rv.val); err != nil {
			return err
		}
	}

	if c.AutoConfig {
		// FFI=6, RETRY off, BVA=0b10 to match CL in ECR, ARE and ACE on
		err = d.WriteRegister(AUTOCONFIG0, 0x0B)
		if err != nil {
			return err
		}

		// correct values for Vdd = 3.3V
		err = d.WriteRegister(UPLIMIT, 200) // ((Vdd - 0.7)/Vdd) * 256
		if err != nil {
			return err
		}
		err = d.WriteRegister(TARGETLIMIT, 180) // UPLIMIT * 0.9
		if err != nil {
			return err
		}
		err = d.WriteRegister(LOWLIMIT, 130) // UPLIMIT * 0.65
		if err != nil {
			return err
		}
	} else {
		// BVA=0b10, auto-configuration off so it doesn't overwrite CDC/CDT
		err = d.WriteRegister(AUTOCONFIG0, 0b0000_1000)
		if err != nil {
			return err
		}
	}

	// mask off invalid bits and shift into correct position
	pm := uint8((c.ProximityMode & 0b11) << 4)

	// CL=0b10 (baseline tracking on, 5 bits), selected proximity mode, all
	// 12 normal channels enabled
	return d.WriteRegister(ECR, 0b1000_0000|pm|NumElectrodes)
}

// RequiresStopMode reports whether reg can only be written while the chip is
// in stop mode. Only ECR itself and the GPIO registers are writable in run
// mode.
func RequiresStopMode(reg uint8) bool {
	return reg != ECR && (reg < GPIOCTL0 || reg > GPIOTOGGLE)
}

// ReadRegister reads a single register.
func (d *Device) ReadRegister(reg uint8) (uint8, error) {
	if d.bus == nil {
		return 0, ErrNotOpen
	}
	buf := [1]byte{}
	if err := d.bus.ReadRegister(d.addr, reg, buf[:]); err != nil {
		return 0, &BusError{Op: "read", Reg: reg, Err: err}
	}
	return buf[0], nil
}

// WriteRegister writes a single register, stopping the chip around the write
// if the register requires it. The run/stop state seen before the call is
// restored even if the write itself fails.
func (d *Device) WriteRegister(reg, val uint8) error {
	ecrBackup, err := d.ReadRegister(ECR)
	if err != nil {
		return err
	}

	// must stop to write most registers
	if !RequiresStopMode(reg) {
		return d.write(reg, val)
	}

	err = d.write(ECR, 0)
	if err != nil {
		return err
	}
	err = d.write(reg, val)
	return multierr.Append(err, d.write(ECR, ecrBackup))
}

// SetThresholds sets every channel to the specified thresholds.
//
// Threshold settings are dependent on the touch/release signal strength, system sensitivity and noise immunity requirements. In
// a typical touch detection application, threshold is typically in the range 0x04~0x10. The touch threshold is several counts larger
// than the release threshold. This is to provide hysteresis and to prevent noise and jitter. For more information, refer to the
// application note AN3892 and the MPR121 design guidelines.
func (d *Device) SetThresholds(touch, release uint8) error {
	for i := uint8(0); i < NumElectrodes; i++ {
		err := d.SetThreshold(i, touch, release)
		if err != nil {
			return err
		}
	}
	return nil
}

// SetThreshold sets the given channel to the specified thresholds.
func (d *Device) SetThreshold(channel, touch, release uint8) error {
	if channel >= NumElectrodes {
		return ErrInvalidChannel
	}
	err := d.WriteRegister(TOUCHTH_0+2*channel, touch)
	if err != nil {
		return err
	}
	return d.WriteRegister(RELEASETH_0+2*channel, release)
}

// Status reads the state of every touch sensor and returns a Report which can be used to check each channel with a
// single round-trip I2C transaction.
func (d *Device) Status() (Report, error) {
	raw, err := d.read16(TOUCHSTATUS_L)
	// bit 15 is the over-current flag, bits 13 and 14 are reserved
	return Report(raw & 0x1FFF), err
}

// Touched reports whether the channel is touched. Channel 12 is the
// proximity channel.
func (r Report) Touched(channel uint8) bool {
	return r&(1<<channel) > 0
}

// FilteredData returns the 10-bit filtered electrode data of a channel.
func (d *Device) FilteredData(channel uint8) (uint16, error) {
	if channel > proximityChannel {
		return 0, ErrInvalidChannel
	}
	raw, err := d.read16(FILTDATA_0L + 2*channel)
	return raw & 0x3FF, err
}

// BaselineData returns the baseline value of a channel. The chip only keeps
// the upper 8 of 10 bits.
func (d *Device) BaselineData(channel uint8) (uint16, error) {
	if channel > proximityChannel {
		return 0, ErrInvalidChannel
	}
	v, err := d.ReadRegister(BASELINE_0 + channel)
	return uint16(v) << 2, err
}

func (d *Device) read16(reg uint8) (uint16, error) {
	if d.bus == nil {
		return 0, ErrNotOpen
	}
	buf := [2]byte{}
	if err := d.bus.ReadRegister(d.addr, reg, buf[:]); err != nil {
		return 0, &BusError{Op: "read", Reg: reg, Err: err}
	}
	return (uint16(buf[1]) << 8) | uint16(buf[0]), nil
}

func (d *Device) write(reg, val uint8) error {
	if d.bus == nil {
		return ErrNotOpen
	}
	buf := [1]byte{val}
	if err := d.bus.WriteRegister(d.addr, reg, buf[:]); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}
