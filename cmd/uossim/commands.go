package main

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/hako/durafmt"

	"uos/device/output"
	"uos/device/sim"
	"uos/kernel/hal"
)

const defaultTraceLen = 16

var (
	errNoConsole    = errors.New("no console is active")
	errNoDispatcher = errors.New("kernel output is not initialized")

	unescaper = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\\`, `\`)
)

func init() {
	Add(Cmd{
		Name: "help",
		Help: "this help",
		Fn:   helpCmd,
	})

	Add(Cmd{
		Name:    "exit, quit",
		Args:    1,
		Pattern: regexp.MustCompile(`^(exit|quit)$`),
		Help:    "close session",
		Fn:      exitCmd,
	})

	Add(Cmd{
		Name:    "print",
		Args:    2,
		Pattern: regexp.MustCompile(`^print (\S+) (.*)$`),
		Syntax:  "<console|com1|com2|0xNNN> <text>",
		Help:    "print text to a channel (\\n, \\t escapes)",
		Fn:      printCmd,
	})

	Add(Cmd{
		Name: "clear",
		Help: "clear the console",
		Fn:   clearCmd,
	})

	Add(Cmd{
		Name: "screen",
		Help: "show the console grid",
		Fn:   screenCmd,
	})

	Add(Cmd{
		Name:    "trace",
		Args:    1,
		Pattern: regexp.MustCompile(`^trace(?: (\d+))?$`),
		Syntax:  "(n)?",
		Help:    "show the last port transactions",
		Fn:      traceCmd,
	})

	Add(Cmd{
		Name:    "serial",
		Args:    1,
		Pattern: regexp.MustCompile(`^serial (com1|com2)$`),
		Syntax:  "<com1|com2>",
		Help:    "show the bytes a UART transmitted",
		Fn:      serialCmd,
	})

	Add(Cmd{
		Name:    "palette",
		Args:    2,
		Pattern: regexp.MustCompile(`^palette (\d+) #?([0-9a-fA-F]{6})$`),
		Syntax:  "<index> <rrggbb>",
		Help:    "reprogram a console palette entry",
		Fn:      paletteCmd,
	})

	Add(Cmd{
		Name: "drivers",
		Help: "list the initialized drivers",
		Fn:   driversCmd,
	})
}

func helpCmd(iface *Interface, _ []string) (string, error) {
	return iface.Help(), nil
}

func exitCmd(_ *Interface, _ []string) (string, error) {
	return "", io.EOF
}

func printCmd(iface *Interface, arg []string) (string, error) {
	d := output.Default()
	if d == nil {
		return "", errNoDispatcher
	}

	ch, ok := hal.ChannelByName(arg[0])
	if !ok {
		return "", fmt.Errorf("invalid channel %q", arg[0])
	}

	text := []byte(unescaper.Replace(arg[1]))
	n, err := d.Print(ch, text)
	if err != nil {
		return "", err
	}

	if ch == output.Console {
		cons := hal.ActiveConsole()
		if cons == nil {
			return fmt.Sprintf("%d bytes discarded", n), nil
		}
		return fmt.Sprintf("%d bytes, cursor at %d", n, cons.Cursor()), nil
	}

	u := d.UART(ch)
	return fmt.Sprintf("%d bytes to %s (port %#x) at %d baud (%s on the line)",
		n, u.Port().Name(), uint16(ch), u.BaudRate(), durafmt.Parse(u.LineTime(n)).String()), nil
}

func clearCmd(_ *Interface, _ []string) (string, error) {
	cons := hal.ActiveConsole()
	if cons == nil {
		return "", errNoConsole
	}

	cons.Clear()
	return "", nil
}

func screenCmd(iface *Interface, _ []string) (string, error) {
	cons := hal.ActiveConsole()
	if cons == nil {
		return "", errNoConsole
	}

	return renderScreen(iface.Machine, cons.Cursor()), nil
}

// renderScreen draws the grid inside a border. The cell under the cursor is
// shown as '_' when it is blank.
func renderScreen(m *sim.Machine, cursor uint32) string {
	var buf strings.Builder

	border := "+" + strings.Repeat("-", int(m.Columns)) + "+\n"
	buf.WriteString(border)
	for y := uint32(0); y < m.Rows; y++ {
		row := []byte(m.Row(y))
		if cursor/m.Columns == y && row[cursor%m.Columns] == ' ' {
			row[cursor%m.Columns] = '_'
		}

		buf.WriteByte('|')
		buf.Write(row)
		buf.WriteString("|\n")
	}
	buf.WriteString(border)

	fmt.Fprintf(&buf, "cursor %d (row %d, col %d), hardware cursor %d",
		cursor, cursor/m.Columns, cursor%m.Columns, m.CRTC.Cursor())

	return buf.String()
}

func traceCmd(iface *Interface, arg []string) (string, error) {
	n := defaultTraceLen
	if arg[0] != "" {
		var err error
		if n, err = strconv.Atoi(arg[0]); err != nil {
			return "", err
		}
	}

	trace := iface.Machine.Bus.Trace()
	if n < len(trace) {
		trace = trace[len(trace)-n:]
	}

	lines := make([]string, 0, len(trace))
	for _, tx := range trace {
		lines = append(lines, tx.String())
	}

	return strings.Join(lines, "\n"), nil
}

func serialCmd(iface *Interface, arg []string) (string, error) {
	u := iface.Machine.COM1
	if arg[0] == "com2" {
		u = iface.Machine.COM2
	}

	tx := u.Transmitted()
	return fmt.Sprintf("%d bytes, divisor %d, lcr 0x%02x fcr 0x%02x mcr 0x%02x\n%s",
		len(tx), u.Divisor(), u.LineControl(), u.FIFOControl(), u.ModemControl(),
		strconv.Quote(string(tx))), nil
}

func paletteCmd(iface *Interface, arg []string) (string, error) {
	cons := hal.ActiveConsole()
	if cons == nil {
		return "", errNoConsole
	}

	index, err := strconv.ParseUint(arg[0], 10, 8)
	if err != nil {
		return "", err
	}

	rgb, err := strconv.ParseUint(arg[1], 16, 32)
	if err != nil {
		return "", err
	}

	cons.SetPaletteColor(uint8(index), color.RGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xff})

	dac := iface.Machine.DAC.Palette[index]
	return fmt.Sprintf("dac[%d] = %d,%d,%d", index, dac[0], dac[1], dac[2]), nil
}

func driversCmd(_ *Interface, _ []string) (string, error) {
	var lines []string

	for _, drv := range hal.ActiveDrivers() {
		major, minor, patch := drv.DriverVersion()
		lines = append(lines, fmt.Sprintf("%s %d.%d.%d", drv.DriverName(), major, minor, patch))
	}

	return strings.Join(lines, "\n"), nil
}
