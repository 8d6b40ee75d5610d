// Package drivers holds the bus interfaces shared by the device drivers in
// this repository. Each device lives in its own subpackage.
package drivers

// I2C represents an I2C bus. It is notably implemented by the machine.I2C
// type in TinyGo and by the host transports in the i2chost and i2cdev
// packages.
type I2C interface {
	ReadRegister(addr uint8, r uint8, buf []byte) error
	WriteRegister(addr uint8, r uint8, buf []byte) error
	Tx(addr uint16, w, r []byte) error
}
