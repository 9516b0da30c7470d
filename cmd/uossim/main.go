// Command uossim boots the uOS output drivers against a simulated PC and
// opens a shell for driving them.
//
// Usage:
//
//	uossim [-cmdline "kfmt=console,com1"] [-com1-tty /dev/pts/N] [-com2-tty /dev/pts/M]
//
// When stdin is not a terminal the shell reads one command per line, which
// makes it scriptable.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mattn/go-tty"
	"golang.org/x/term"

	"uos/device/sim"
	"uos/device/video/console"
	"uos/kernel/hal"
	"uos/kernel/kmain"
)

const banner = "uossim: uOS output drivers on a simulated PC (type `help`)"

var (
	cmdLine = flag.String("cmdline", "", "boot command line passed to the kernel")
	columns = flag.Uint("columns", console.DefaultColumns, "text console width")
	rows    = flag.Uint("rows", console.DefaultRows, "text console height")
	com1TTY = flag.String("com1-tty", "", "mirror bytes sent by COM1 to this tty device")
	com2TTY = flag.String("com2-tty", "", "mirror bytes sent by COM2 to this tty device")
)

// attachTTY forwards everything u transmits to the tty at path. The returned
// function restores and closes the tty.
func attachTTY(u *sim.UART, path string) (func(), error) {
	t, err := tty.OpenDevice(path)
	if err != nil {
		return nil, err
	}

	restore, err := t.Raw()
	if err != nil {
		t.Close()
		return nil, err
	}

	u.Output = t.Output()

	return func() {
		restore()
		t.Close()
	}, nil
}

func platform(m *sim.Machine) hal.Platform {
	return hal.Platform{
		Bus:         m.Bus,
		Framebuffer: m.Framebuffer,
		Columns:     m.Columns,
		Rows:        m.Rows,
	}
}

func main() {
	log.SetFlags(0)
	flag.Parse()

	m := sim.NewMachine(uint32(*columns), uint32(*rows))

	for _, mirror := range []struct {
		uart *sim.UART
		path string
	}{
		{m.COM1, *com1TTY},
		{m.COM2, *com2TTY},
	} {
		if mirror.path == "" {
			continue
		}

		closeFn, err := attachTTY(mirror.uart, mirror.path)
		if err != nil {
			log.Fatalf("could not open %s, %v", mirror.path, err)
		}
		defer closeFn()
	}

	if err := kmain.Run(platform(m), *cmdLine); err != nil {
		log.Fatalf("boot failed, %s", err.String())
	}

	iface := &Interface{
		Banner:  banner,
		Machine: m,
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		if err := iface.Run(os.Stdin, os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w < int(m.Columns)+2 {
		fmt.Fprintf(os.Stderr, "warning: terminal is %d columns wide, the screen command needs %d\n", w, m.Columns+2)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		log.Fatal(err)
	}
	defer term.Restore(fd, oldState)

	iface.ReadWriter = struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	iface.VT100 = true
	iface.Start()
}
