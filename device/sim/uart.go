package sim

import (
	"io"
	"sync"
)

// 16550 register offsets relative to the base port.
const (
	regData       = 0 // THR/RBR, DLL when DLAB=1
	regIER        = 1 // IER, DLM when DLAB=1
	regFIFO       = 2 // FCR (write) / IIR (read)
	regLine       = 3
	regModem      = 4
	regLineStatus = 5
	regModemStat  = 6
	regScratch    = 7

	lcrDLAB = 0x80

	lsrTHRE = 0x20
	lsrTEMT = 0x40
)

// UART models the subset of a 16550 that the serial driver programs. Bytes
// written to the transmit holding register are appended to the transmit log
// and forwarded to Output (if set).
type UART struct {
	mu sync.Mutex

	// Base is the I/O port of the data register.
	Base uint16

	// Output receives every transmitted byte. Errors are ignored.
	Output io.Writer

	// BusyPolls is the number of line status reads that report the
	// transmitter as busy before it becomes ready.
	BusyPolls int

	// Stuck keeps the transmitter busy forever, as if no UART responded.
	Stuck bool

	divisorLow, divisorHigh uint8
	ier, fcr, lcr, mcr, scr uint8
	divisorWrites           int
	tx                      []byte
}

// NewUART returns a UART model at base whose transmitter is idle.
func NewUART(base uint16) *UART {
	return &UART{Base: base}
}

// PortWriteByte implements Device.
func (u *UART) PortWriteByte(port uint16, val uint8) {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch port - u.Base {
	case regData:
		if u.lcr&lcrDLAB != 0 {
			u.latchDivisorByte(val)
			return
		}
		u.tx = append(u.tx, val)
		if u.Output != nil {
			u.Output.Write([]byte{val})
		}
	case regIER:
		if u.lcr&lcrDLAB != 0 {
			u.divisorHigh = val
			return
		}
		u.ier = val
	case regFIFO:
		u.fcr = val
	case regLine:
		u.lcr = val
		if val&lcrDLAB != 0 {
			u.divisorWrites = 0
		}
	case regModem:
		u.mcr = val
	case regScratch:
		u.scr = val
	}
}

// latchDivisorByte stores a divisor byte written through the data port while
// DLAB is set. The driver sends the high byte first, then the low byte.
// A real 16550 has DLL at +0 and DLM at +1; this model follows the driver's
// protocol on purpose and takes both bytes through +0, high byte first.
func (u *UART) latchDivisorByte(val uint8) {
	if u.divisorWrites%2 == 0 {
		u.divisorHigh = val
	} else {
		u.divisorLow = val
	}
	u.divisorWrites++
}

// PortReadByte implements Device.
func (u *UART) PortReadByte(port uint16) uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch port - u.Base {
	case regData:
		if u.lcr&lcrDLAB != 0 {
			return u.divisorLow
		}
		return 0
	case regIER:
		if u.lcr&lcrDLAB != 0 {
			return u.divisorHigh
		}
		return u.ier
	case regFIFO:
		// no interrupt pending, FIFOs enabled if requested
		iir := uint8(0x01)
		if u.fcr&0x01 != 0 {
			iir |= 0xc0
		}
		return iir
	case regLine:
		return u.lcr
	case regModem:
		return u.mcr
	case regLineStatus:
		if u.Stuck {
			return 0
		}
		if u.BusyPolls > 0 {
			u.BusyPolls--
			return 0
		}
		return lsrTHRE | lsrTEMT
	case regModemStat:
		return 0
	case regScratch:
		return u.scr
	}
	return floatingBus
}

// Divisor returns the latched baud rate divisor.
func (u *UART) Divisor() uint16 {
	u.mu.Lock()
	defer u.mu.Unlock()

	return uint16(u.divisorHigh)<<8 | uint16(u.divisorLow)
}

// LineControl returns the last value written to the line control register.
func (u *UART) LineControl() uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.lcr
}

// FIFOControl returns the last value written to the FIFO control register.
func (u *UART) FIFOControl() uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.fcr
}

// ModemControl returns the last value written to the modem control register.
func (u *UART) ModemControl() uint8 {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.mcr
}

// Transmitted returns a copy of every byte sent through the transmit holding
// register.
func (u *UART) Transmitted() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]byte, len(u.tx))
	copy(out, u.tx)
	return out
}

// SetBusy makes the next n line status reads report a busy transmitter.
func (u *UART) SetBusy(n int) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.BusyPolls = n
}
