package mpr121

// I2C addresses, selected by where the ADDR pin is tied.
const (
	DefaultAddress = 0x5A // ADDR to GND
	Address3Vo     = 0x5B // ADDR to VDD
	AddressSDA     = 0x5C
	AddressSCL     = 0x5D
)

// Registers. See section 5 of the datasheet.
const (
	TOUCHSTATUS_L = 0x00
	TOUCHSTATUS_H = 0x01
	FILTDATA_0L   = 0x04
	FILTDATA_0H   = 0x05
	BASELINE_0    = 0x1E

	// baseline filtering, rising
	MHDR = 0x2B
	NHDR = 0x2C
	NCLR = 0x2D
	FDLR = 0x2E
	// baseline filtering, falling
	MHDF = 0x2F
	NHDF = 0x30
	NCLF = 0x31
	FDLF = 0x32
	// baseline filtering, touched
	NHDT = 0x33
	NCLT = 0x34
	FDLT = 0x35

	TOUCHTH_0    = 0x41
	RELEASETH_0  = 0x42
	DEBOUNCE     = 0x5B
	CONFIG1      = 0x5C
	CONFIG2      = 0x5D
	ECR          = 0x5E
	CHARGECURR_0 = 0x5F
	CHARGETIME_1 = 0x6C

	// GPIO block. These, together with ECR, can be written in run mode.
	GPIOCTL0   = 0x73
	GPIOCTL1   = 0x74
	GPIODATA   = 0x75
	GPIODIR    = 0x76
	GPIOEN     = 0x77
	GPIOSET    = 0x78
	GPIOCLR    = 0x79
	GPIOTOGGLE = 0x7A

	AUTOCONFIG0 = 0x7B
	AUTOCONFIG1 = 0x7C
	UPLIMIT     = 0x7D
	LOWLIMIT    = 0x7E
	TARGETLIMIT = 0x7F

	SOFTRESET = 0x80
)

const (
	// NumElectrodes is the number of touch electrodes. The proximity
	// channel, when enabled, reports as electrode 12.
	NumElectrodes = 12

	proximityChannel = 12

	// value CONFIG2 holds right after a soft reset
	config2ResetValue = 0x24
	softResetCommand  = 0x63

	defaultTouchThreshold   = 12
	defaultReleaseThreshold = 6
)
