package mpr121

import (
	"bufio"
	"fmt"
	"io"
)

// ChargeSettings holds the per-electrode charge current (CDC, in uA) and
// charge time (CDT, encoded) currently in use by the chip. With
// auto-configuration enabled these are what the chip settled on.
type ChargeSettings struct {
	CDC [NumElectrodes]uint8
	CDT [NumElectrodes]uint8
}

// ChargeSettings reads the charge current and charge time registers.
func (d *Device) ChargeSettings() (ChargeSettings, error) {
	var s ChargeSettings
	for i := uint8(0); i < NumElectrodes; i++ {
		v, err := d.ReadRegister(CHARGECURR_0 + i)
		if err != nil {
			return s, err
		}
		s.CDC[i] = v
	}
	// two electrodes per register: even in bits [2:0], odd in bits [6:4]
	for i := uint8(0); i < NumElectrodes/2; i++ {
		v, err := d.ReadRegister(CHARGETIME_1 + i)
		if err != nil {
			return s, err
		}
		s.CDT[2*i] = v & 0b111
		s.CDT[2*i+1] = (v >> 4) & 0b111
	}
	return s, nil
}

// DumpDiagnostics writes a table of the charge current and charge time of
// every electrode to w.
func (d *Device) DumpDiagnostics(w io.Writer) error {
	s, err := d.ChargeSettings()
	if err != nil {
		return err
	}
	return s.Print(w)
}

// Print writes the settings to w as a table:
//
//	ELECTRODE: 00 01 02 03 04 05 06 07 08 09 10 11
//	           -- -- -- -- -- -- -- -- -- -- -- --
//	CDC:       16 16 16 16 16 16 16 16 16 16 16 16
//	CDT:        2  2  2  2  2  2  2  2  2  2  2  2
func (s ChargeSettings) Print(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "ELECTRODE: 00 01 02 03 04 05 06 07 08 09 10 11")
	fmt.Fprintln(bw, "           -- -- -- -- -- -- -- -- -- -- -- --")

	fmt.Fprint(bw, "CDC:       ")
	for _, v := range s.CDC {
		fmt.Fprintf(bw, "%2d ", v)
	}
	fmt.Fprintln(bw)

	fmt.Fprint(bw, "CDT:       ")
	for _, v := range s.CDT {
		fmt.Fprintf(bw, "%2d ", v)
	}
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "----------------------------------------")
	fmt.Fprintln(bw)
	return bw.Flush()
}
