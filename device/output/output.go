// Package output routes text to the console or to a serial line.
package output

import (
	"io"
	"unsafe"

	"uos/device/portio"
	"uos/device/serial"
	"uos/kernel"
	"uos/kernel/sync"
)

// Channel selects an output device. Console is a sentinel; every other value
// is the base I/O port of a UART.
type Channel uint16

// The channels available on a standard PC.
const (
	Console Channel = 0
	COM1            = Channel(serial.COM1)
	COM2            = Channel(serial.COM2)
)

// MaxUARTs is the number of distinct serial channels a dispatcher can serve.
const MaxUARTs = 4

var (
	// ErrTooManyUARTs is returned by Print and Register once MaxUARTs
	// serial channels are in use.
	ErrTooManyUARTs = &kernel.Error{Module: "output", Message: "UART table is full"}
)

// Dispatcher routes Print calls to the console writer or to the UART at the
// channel's base port. UARTs for bases that were not registered up front are
// created on first use, so an unknown base is passed to the port bus as is.
//
// A Dispatcher keeps its UART table and writers in fixed arrays; once set up
// it never allocates, so it can serve output before a memory allocator is
// available.
type Dispatcher struct {
	lock sync.Spinlock

	cons io.Writer
	bus  portio.Bus
	cfg  serial.Config

	uarts     [MaxUARTs]*serial.UART
	uartCount int

	// pool backs the UARTs the dispatcher creates itself.
	pool     [MaxUARTs]serial.UART
	poolUsed int

	writers     [MaxUARTs + 1]channelWriter
	writerCount int
}

// NewDispatcher returns a dispatcher that sends console output to cons and
// creates UARTs on bus with cfg. A nil cons discards console output.
func NewDispatcher(cons io.Writer, bus portio.Bus, cfg serial.Config) *Dispatcher {
	d := new(Dispatcher)
	d.Setup(cons, bus, cfg)
	return d
}

// Setup (re)initializes d in place, forgetting every UART and writer it held.
func (d *Dispatcher) Setup(cons io.Writer, bus portio.Bus, cfg serial.Config) {
	d.lock.Acquire()
	defer d.lock.Release()

	d.cons = cons
	d.bus = bus
	d.cfg = cfg
	d.uarts = [MaxUARTs]*serial.UART{}
	d.uartCount = 0
	d.poolUsed = 0
	d.writerCount = 0
}

// Register makes the dispatcher use u for output to u's port.
func (d *Dispatcher) Register(u *serial.UART) *kernel.Error {
	d.lock.Acquire()
	defer d.lock.Release()

	ch := Channel(u.Port())
	if slot := d.lookup(ch); slot >= 0 {
		d.uarts[slot] = u
		return nil
	}

	if d.uartCount == MaxUARTs {
		return ErrTooManyUARTs
	}

	d.uarts[d.uartCount] = u
	d.uartCount++
	return nil
}

// UART returns the UART that serves ch, creating it if needed. It returns nil
// for the Console channel and when the UART table is full.
func (d *Dispatcher) UART(ch Channel) *serial.UART {
	if ch == Console {
		return nil
	}

	d.lock.Acquire()
	defer d.lock.Release()

	if slot := d.lookup(ch); slot >= 0 {
		return d.uarts[slot]
	}

	if d.uartCount == MaxUARTs || d.poolUsed == MaxUARTs {
		return nil
	}

	u := &d.pool[d.poolUsed]
	d.poolUsed++
	u.Setup(serial.Port(ch), d.bus, d.cfg)

	d.uarts[d.uartCount] = u
	d.uartCount++
	return u
}

// lookup returns the table slot serving ch or -1. d.lock must be held.
func (d *Dispatcher) lookup(ch Channel) int {
	for i := 0; i < d.uartCount; i++ {
		if Channel(d.uarts[i].Port()) == ch {
			return i
		}
	}
	return -1
}

// Print writes p to the device selected by ch.
func (d *Dispatcher) Print(ch Channel, p []byte) (int, error) {
	if ch == Console {
		if d.cons == nil {
			return len(p), nil
		}
		return d.cons.Write(p)
	}

	u := d.UART(ch)
	if u == nil {
		return 0, ErrTooManyUARTs
	}

	return u.Write(p)
}

// Writer returns an io.Writer that prints to ch. Repeated calls for the same
// channel return the same writer.
func (d *Dispatcher) Writer(ch Channel) io.Writer {
	d.lock.Acquire()
	defer d.lock.Release()

	for i := 0; i < d.writerCount; i++ {
		if d.writers[i].ch == ch {
			return &d.writers[i]
		}
	}

	if d.writerCount == len(d.writers) {
		return &channelWriter{d: d, ch: ch}
	}

	w := &d.writers[d.writerCount]
	d.writerCount++
	w.d, w.ch = d, ch
	return w
}

type channelWriter struct {
	d  *Dispatcher
	ch Channel
}

func (w *channelWriter) Write(p []byte) (int, error) {
	return w.d.Print(w.ch, p)
}

var defaultDispatcher *Dispatcher

// SetDefault installs the dispatcher used by the package-level Print.
func SetDefault(d *Dispatcher) {
	defaultDispatcher = d
}

// Default returns the dispatcher installed by SetDefault.
func Default() *Dispatcher {
	return defaultDispatcher
}

// Print writes text to ch using the default dispatcher. Output is dropped if
// no dispatcher has been installed yet. Errors are not reported.
func Print(ch Channel, text string) {
	if defaultDispatcher == nil {
		return
	}

	// Writers never modify p, so text is passed without a copy.
	defaultDispatcher.Print(ch, unsafe.Slice(unsafe.StringData(text), len(text)))
}
