package output

import (
	"bytes"
	"testing"

	"uos/device/serial"
	"uos/device/sim"
	"uos/device/video/console"
	"uos/kernel/kfmt"
)

func newTestDispatcher() (*Dispatcher, *sim.Machine, *console.VgaTextConsole) {
	m := sim.NewMachine(console.DefaultColumns, console.DefaultRows)
	cons := console.NewVgaTextConsole(m.Columns, m.Rows, m.Framebuffer, m.Bus)
	return NewDispatcher(cons, m.Bus, serial.DefaultConfig()), m, cons
}

func TestChannels(t *testing.T) {
	if Console != 0 || COM1 != 0x3f8 || COM2 != 0x2f8 {
		t.Fatalf("unexpected channel values: %x %x %x", Console, COM1, COM2)
	}
}

func TestPrintConsole(t *testing.T) {
	d, m, cons := newTestDispatcher()
	cons.Clear()
	m.Bus.ResetTrace()

	n, err := d.Print(Console, []byte("Hello.\n\nWelcome to uOS."))
	if err != nil || n != 23 {
		t.Fatalf("expected (23, nil); got (%d, %v)", n, err)
	}

	if got := m.Row(0)[:6]; got != "Hello." {
		t.Fatalf("expected row 0 to start with %q; got %q", "Hello.", got)
	}
	if got := m.Row(2)[:15]; got != "Welcome to uOS." {
		t.Fatalf("expected row 2 to start with %q; got %q", "Welcome to uOS.", got)
	}
	if m.CRTC.Cursor() != 175 {
		t.Fatalf("expected hardware cursor at 175; got %d", m.CRTC.Cursor())
	}

	for _, tx := range m.Bus.Trace() {
		if tx.Port != 0x3d4 && tx.Port != 0x3d5 {
			t.Fatalf("console print touched unexpected port: %v", tx)
		}
	}
}

func TestPrintSerial(t *testing.T) {
	specs := []struct {
		ch   Channel
		uart func(*sim.Machine) *sim.UART
	}{
		{COM1, func(m *sim.Machine) *sim.UART { return m.COM1 }},
		{COM2, func(m *sim.Machine) *sim.UART { return m.COM2 }},
	}

	payload := []byte("uOS serial output okay.\n")
	for specIndex, spec := range specs {
		d, m, _ := newTestDispatcher()

		if n, err := d.Print(spec.ch, payload); err != nil || n != len(payload) {
			t.Errorf("[spec %d] expected (%d, nil); got (%d, %v)", specIndex, len(payload), n, err)
			continue
		}

		u := spec.uart(m)
		if got := u.Transmitted(); !bytes.Equal(got, payload) {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, payload, got)
		}

		if u.LineControl() != 0x03 || u.FIFOControl() != 0xc7 || u.ModemControl() != 0x03 || u.Divisor() != serial.DefaultDivisor {
			t.Errorf("[spec %d] expected the UART to be configured", specIndex)
		}

		if m.Char(0) != 0 {
			t.Errorf("[spec %d] serial print modified the console", specIndex)
		}
	}
}

func TestPrintUnknownChannel(t *testing.T) {
	d, m, _ := newTestDispatcher()

	// No device answers at 0x3e8; the writes still reach the bus.
	d.Print(Channel(0x3e8), []byte("x"))

	writes := m.Bus.Writes(0x3e8)
	if len(writes) == 0 || writes[len(writes)-1].Value != 'x' {
		t.Fatalf("expected 'x' to be written to port 0x3e8; got %v", writes)
	}

	if d.UART(Channel(0x3e8)) != d.UART(Channel(0x3e8)) {
		t.Fatal("expected the dispatcher to reuse the UART it created")
	}

	if d.UART(Console) != nil {
		t.Fatal("expected no UART for the console channel")
	}
}

func TestRegister(t *testing.T) {
	d, m, _ := newTestDispatcher()

	u := serial.NewUART(serial.COM2, m.Bus, serial.WithDivisor(12))
	if err := d.Register(u); err != nil {
		t.Fatal(err)
	}

	d.Print(COM2, []byte("ok"))

	if d.UART(COM2) != u {
		t.Fatal("expected the registered UART to be used")
	}
	if m.COM2.Divisor() != 12 {
		t.Fatalf("expected divisor 12; got %d", m.COM2.Divisor())
	}
}

func TestDispatcherConfig(t *testing.T) {
	m := sim.NewMachine(80, 25)
	d := NewDispatcher(nil, m.Bus, serial.Config{Divisor: 1, PollLimit: 3})

	if n, err := d.Print(Console, []byte("dropped")); n != 7 || err != nil {
		t.Fatalf("expected console output to be discarded; got (%d, %v)", n, err)
	}

	d.Print(COM1, []byte("a"))
	if m.COM1.Divisor() != 1 {
		t.Fatalf("expected divisor 1; got %d", m.COM1.Divisor())
	}

	m.COM1.Stuck = true
	if _, err := d.Print(COM1, []byte("b")); err != serial.ErrTransmitTimeout {
		t.Fatalf("expected ErrTransmitTimeout; got %v", err)
	}
}

func TestWriter(t *testing.T) {
	d, m, _ := newTestDispatcher()

	kfmt.Fprintf(d.Writer(COM1), "answer=%d\n", 42)

	if got := string(m.COM1.Transmitted()); got != "answer=42\n" {
		t.Fatalf("expected %q; got %q", "answer=42\n", got)
	}

	kfmt.Fprintf(d.Writer(Console), "%s", "on screen")
	if got := m.Row(0)[:9]; got != "on screen" {
		t.Fatalf("expected console row 0 to start with %q; got %q", "on screen", got)
	}
}

func TestUARTTableFull(t *testing.T) {
	d, m, _ := newTestDispatcher()

	for i := 0; i < MaxUARTs; i++ {
		ch := Channel(0x100 + 8*i)
		if u := d.UART(ch); u == nil || Channel(u.Port()) != ch {
			t.Fatalf("expected a UART for channel %#x", ch)
		}
	}

	m.Bus.ResetTrace()
	if n, err := d.Print(Channel(0x200), []byte("x")); n != 0 || err != ErrTooManyUARTs {
		t.Fatalf("expected (0, ErrTooManyUARTs); got (%d, %v)", n, err)
	}
	if len(m.Bus.Trace()) != 0 {
		t.Fatal("expected no port I/O when the UART table is full")
	}

	if err := d.Register(serial.NewUART(serial.COM1, m.Bus)); err != ErrTooManyUARTs {
		t.Fatalf("expected ErrTooManyUARTs; got %v", err)
	}

	// Channels that already have a UART keep working.
	if _, err := d.Print(Channel(0x100), []byte("y")); err != nil {
		t.Fatal(err)
	}

	d.Setup(nil, m.Bus, serial.DefaultConfig())
	if _, err := d.Print(COM1, []byte("z")); err != nil {
		t.Fatalf("expected Setup to empty the UART table; got %v", err)
	}
}

func TestWriterReuse(t *testing.T) {
	d, _, _ := newTestDispatcher()

	if d.Writer(COM1) != d.Writer(COM1) {
		t.Fatal("expected the same writer for repeated calls")
	}
	if d.Writer(COM1) == d.Writer(Console) {
		t.Fatal("expected distinct writers for distinct channels")
	}
}

// quietBus answers every read with a ready line status and records nothing.
type quietBus struct{}

func (quietBus) PortWriteByte(uint16, uint8) {}
func (quietBus) PortReadByte(uint16) uint8 { return 0x60 }

func TestPrintDoesNotAllocate(t *testing.T) {
	defer SetDefault(nil)

	fb := make([]uint16, console.DefaultColumns*console.DefaultRows)
	cons := console.NewVgaTextConsole(console.DefaultColumns, console.DefaultRows, fb, quietBus{})
	d := NewDispatcher(cons, quietBus{}, serial.DefaultConfig())
	SetDefault(d)

	// Create the UART and the writer up front.
	d.UART(COM1)
	w := d.Writer(COM2)
	payload := []byte("boot message\n")

	specs := []struct {
		name string
		fn   func()
	}{
		{"console", func() { d.Print(Console, payload) }},
		{"com1", func() { d.Print(COM1, payload) }},
		{"writer", func() { w.Write(payload) }},
		{"package print", func() { Print(COM1, "boot message\n") }},
	}

	for specIndex, spec := range specs {
		if allocs := testing.AllocsPerRun(10, spec.fn); allocs != 0 {
			t.Errorf("[spec %d] expected %s output not to allocate; got %v allocs", specIndex, spec.name, allocs)
		}
	}
}

func TestPackagePrint(t *testing.T) {
	defer SetDefault(nil)

	// no dispatcher installed yet
	SetDefault(nil)
	Print(Console, "lost")

	d, m, _ := newTestDispatcher()
	SetDefault(d)
	if Default() != d {
		t.Fatal("expected Default to return the installed dispatcher")
	}

	Print(Console, "Hello.")
	Print(COM1, "uOS serial output okay.\n")

	if got := m.Row(0)[:6]; got != "Hello." {
		t.Fatalf("expected %q on the console; got %q", "Hello.", got)
	}
	if got := string(m.COM1.Transmitted()); got != "uOS serial output okay.\n" {
		t.Fatalf("unexpected COM1 output %q", got)
	}
}
