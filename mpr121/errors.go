package mpr121

import (
	"errors"
	"fmt"
)

// Errors returned by the driver.
var (
	ErrNotOpen           = errors.New("mpr121: no bus attached")
	ErrTransportOpen     = errors.New("mpr121: device not responding")
	ErrResetVerification = errors.New("mpr121: reset verification failed")
	ErrTransportIO       = errors.New("mpr121: bus transaction failed")
	ErrInvalidChannel    = errors.New("mpr121: invalid channel")
)

// BusError reports a failed register transaction. It matches ErrTransportIO
// with errors.Is and unwraps to the error returned by the bus.
type BusError struct {
	Op  string // "read" or "write"
	Reg uint8
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("mpr121: %s register 0x%02X: %v", e.Op, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

func (e *BusError) Is(target error) bool { return target == ErrTransportIO }
