// Package serial implements a polled driver for 16550-compatible UARTs.
package serial

import (
	"io"
	"time"

	"uos/device/portio"
	"uos/kernel"
	"uos/kernel/kfmt"
	"uos/kernel/sync"
)

// Register values programmed by the driver.
const (
	// LineEnableDLAB switches the data and interrupt-enable registers to the
	// divisor latch.
	LineEnableDLAB = 0x80

	// LineConfig selects 8 data bits, no parity and 1 stop bit. Writing it
	// also clears DLAB.
	LineConfig = 0x03

	// FIFOConfig enables the FIFOs, clears both of them and selects a
	// 14-byte receive trigger level.
	FIFOConfig = 0xc7

	// ModemConfig asserts DTR and RTS.
	ModemConfig = 0x03

	// LineStatusTransmitEmpty is set in the line status register when the
	// transmit holding register can accept data.
	LineStatusTransmitEmpty = 0x20

	// DefaultDivisor runs the line at 57600 baud.
	DefaultDivisor uint16 = 2

	// ClockRate is the UART input clock divided by 16, i.e. the baud rate
	// for a divisor of 1.
	ClockRate = 115200

	// txFIFODepth is the number of bytes the transmitter can buffer.
	txFIFODepth = 16

	// bitsPerFrame counts start, data and stop bits of an 8N1 frame.
	bitsPerFrame = 10

	scratchPattern = 0x5a
)

var (
	// ErrTransmitTimeout is returned by Write when a poll limit is set and
	// the transmitter did not become ready in time.
	ErrTransmitTimeout = &kernel.Error{Module: "serial", Message: "timed out waiting for transmitter"}

	errZeroDivisor = &kernel.Error{Module: "serial", Message: "baud divisor must be non-zero"}
	errNoBus       = &kernel.Error{Module: "serial", Message: "no port I/O bus"}
)

// Config holds the line settings of a UART.
type Config struct {
	// Divisor is the baud divisor programmed by Init.
	Divisor uint16

	// PollLimit bounds the number of line status reads Write performs
	// while waiting for the transmitter. A limit of 0 waits forever.
	PollLimit uint32
}

// DefaultConfig returns the settings used when nothing else is requested.
func DefaultConfig() Config {
	return Config{Divisor: DefaultDivisor}
}

// Option customizes a UART created by NewUART.
type Option func(*UART)

// WithDivisor sets the baud divisor programmed by Init.
func WithDivisor(divisor uint16) Option {
	return func(u *UART) {
		u.divisor = divisor
	}
}

// WithPollLimit bounds the number of line status reads Write performs while
// waiting for the transmitter. A limit of 0 waits forever.
func WithPollLimit(limit uint32) Option {
	return func(u *UART) {
		u.pollLimit = limit
	}
}

// UART drives one 16550 serial line. All register programming happens with
// the UART lock held so concurrent writers cannot interleave the DLAB
// sequence.
type UART struct {
	lock sync.Spinlock

	port      Port
	bus       portio.Bus
	divisor   uint16
	pollLimit uint32

	initialized bool
}

// NewUART returns a driver for the UART at port. The hardware is not touched
// until Init or the first Write.
func NewUART(port Port, bus portio.Bus, opts ...Option) *UART {
	u := new(UART)
	u.Setup(port, bus, DefaultConfig())

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Setup points u at the UART on port and resets it to the uninitialized
// state. It does not allocate, so statically allocated UARTs can be prepared
// before the Go allocator is available.
func (u *UART) Setup(port Port, bus portio.Bus, cfg Config) {
	u.lock.Acquire()
	defer u.lock.Release()

	u.port = port
	u.bus = bus
	u.divisor = cfg.Divisor
	u.pollLimit = cfg.PollLimit
	u.initialized = false
}

// Port returns the base I/O address of the UART.
func (u *UART) Port() Port {
	return u.port
}

// Divisor returns the baud divisor that Init programs.
func (u *UART) Divisor() uint16 {
	return u.divisor
}

// BaudRate returns the line speed selected by the divisor.
func (u *UART) BaudRate() uint32 {
	if u.divisor == 0 {
		return 0
	}
	return ClockRate / uint32(u.divisor)
}

// LineTime estimates how long the line needs to shift out n bytes.
func (u *UART) LineTime(n int) time.Duration {
	baud := u.BaudRate()
	if baud == 0 || n <= 0 {
		return 0
	}
	return time.Duration(n) * bitsPerFrame * time.Second / time.Duration(baud)
}

// ConfigureBaudRate sets DLAB and latches divisor, high byte first. The line
// stays in DLAB mode until ConfigureLine runs, and the next Write runs the
// full init sequence again.
func (u *UART) ConfigureBaudRate(divisor uint16) {
	u.lock.Acquire()
	defer u.lock.Release()

	u.configureBaudRate(divisor)
}

func (u *UART) configureBaudRate(divisor uint16) {
	u.bus.PortWriteByte(u.port.lineCommandPort(), LineEnableDLAB)
	u.bus.PortWriteByte(u.port.dataPort(), uint8(divisor>>8))
	u.bus.PortWriteByte(u.port.dataPort(), uint8(divisor))
	u.divisor = divisor

	// DLAB is set; data writes would land in the divisor latch
	u.initialized = false
}

// ConfigureLine selects the 8N1 data format and clears DLAB.
func (u *UART) ConfigureLine() {
	u.lock.Acquire()
	defer u.lock.Release()

	u.bus.PortWriteByte(u.port.lineCommandPort(), LineConfig)
}

// ConfigureBuffer enables and clears the FIFOs.
func (u *UART) ConfigureBuffer() {
	u.lock.Acquire()
	defer u.lock.Release()

	u.bus.PortWriteByte(u.port.fifoCommandPort(), FIFOConfig)
}

// ConfigureModem asserts DTR and RTS.
func (u *UART) ConfigureModem() {
	u.lock.Acquire()
	defer u.lock.Release()

	u.bus.PortWriteByte(u.port.modemCommandPort(), ModemConfig)
}

// IsTransmitFIFOEmpty reads the line status register and reports whether the
// transmitter can accept data.
func (u *UART) IsTransmitFIFOEmpty() bool {
	return u.bus.PortReadByte(u.port.lineStatusPort())&LineStatusTransmitEmpty != 0
}

// Init programs the baud divisor, line format, FIFO and modem registers in
// that order. The divisor must be latched while DLAB is set and the line
// format write is what clears DLAB again.
func (u *UART) Init() {
	u.lock.Acquire()
	defer u.lock.Release()

	u.init()
}

func (u *UART) init() {
	u.configureBaudRate(u.divisor)
	u.bus.PortWriteByte(u.port.lineCommandPort(), LineConfig)
	u.bus.PortWriteByte(u.port.fifoCommandPort(), FIFOConfig)
	u.bus.PortWriteByte(u.port.modemCommandPort(), ModemConfig)
	u.initialized = true
}

// Initialized reports whether the init sequence has run.
func (u *UART) Initialized() bool {
	u.lock.Acquire()
	defer u.lock.Release()

	return u.initialized
}

// Present checks for a UART at the port by writing a pattern to the scratch
// register and reading it back. An empty port floats high.
func (u *UART) Present() bool {
	u.lock.Acquire()
	defer u.lock.Release()

	u.bus.PortWriteByte(u.port.scratchPort(), scratchPattern)
	return u.bus.PortReadByte(u.port.scratchPort()) == scratchPattern
}

// waitTransmitEmpty spins until the transmitter is ready. With no poll limit
// a missing UART blocks the caller forever.
func (u *UART) waitTransmitEmpty() *kernel.Error {
	for polls := uint32(1); !u.IsTransmitFIFOEmpty(); polls++ {
		if u.pollLimit != 0 && polls >= u.pollLimit {
			return ErrTransmitTimeout
		}
	}

	return nil
}

// Write implements io.Writer. It waits for the transmitter, runs Init if it
// has not run yet and then sends p one byte per data register write. The
// transmitter is polled again before every FIFO-sized chunk after the first.
func (u *UART) Write(p []byte) (int, error) {
	u.lock.Acquire()
	defer u.lock.Release()

	if err := u.waitTransmitEmpty(); err != nil {
		return 0, err
	}

	if !u.initialized {
		u.init()
	}

	for i, b := range p {
		if i != 0 && i%txFIFODepth == 0 {
			if err := u.waitTransmitEmpty(); err != nil {
				return i, err
			}
		}
		u.bus.PortWriteByte(u.port.dataPort(), b)
	}

	return len(p), nil
}

// DriverName returns the name of this driver.
func (u *UART) DriverName() string {
	switch u.port {
	case COM1:
		return "uart_com1"
	case COM2:
		return "uart_com2"
	default:
		return "uart"
	}
}

// DriverVersion returns the version of this driver.
func (u *UART) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit runs the init sequence and reports the line settings.
func (u *UART) DriverInit(w io.Writer) *kernel.Error {
	if u.bus == nil {
		return errNoBus
	}

	if u.divisor == 0 {
		return errZeroDivisor
	}

	u.Init()
	kfmt.Fprintf(w, "port 0x%x, %d baud 8N1\n", uint16(u.port), u.BaudRate())
	return nil
}
