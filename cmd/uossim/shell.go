package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/term"

	"uos/device/sim"
)

// Cmd is a shell command.
type Cmd struct {
	Name    string
	Args    int
	Pattern *regexp.Regexp
	Syntax  string
	Help    string
	Fn      func(iface *Interface, arg []string) (string, error)
}

var cmds = make(map[string]*Cmd)

// Add registers a shell command.
func Add(cmd Cmd) {
	cmds[cmd.Name] = &cmd
}

// Interface is a shell session attached to a simulated machine.
type Interface struct {
	// Banner is printed when the session starts.
	Banner string

	// Machine is the simulated hardware the kernel drivers run against.
	Machine *sim.Machine

	// ReadWriter is the session connection.
	ReadWriter io.ReadWriter

	// VT100 enables the coloured prompt.
	VT100 bool
}

// Help returns the list of registered commands.
func (iface *Interface) Help() string {
	var names []string
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	var help strings.Builder
	for _, name := range names {
		cmd := cmds[name]
		fmt.Fprintf(&help, "%-10s %-36s # %s\n", cmd.Name, cmd.Syntax, cmd.Help)
	}

	return help.String()
}

func (iface *Interface) handleLine(line string, w io.Writer) (err error) {
	var match *Cmd
	var arg []string
	var res string

	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	for _, cmd := range cmds {
		if cmd.Pattern == nil {
			if cmd.Name == line {
				match = cmd
				break
			}
		} else if m := cmd.Pattern.FindStringSubmatch(line); len(m) > 0 && (len(m)-1 == cmd.Args) {
			match = cmd
			arg = m[1:]
			break
		}
	}

	if match == nil {
		return errors.New("unknown command, type `help`")
	}

	if res, err = match.Fn(iface, arg); err != nil {
		return
	}

	if res != "" {
		fmt.Fprintln(w, res)
	}

	return
}

func (iface *Interface) readLine(t *term.Terminal, w io.Writer) error {
	s, err := t.ReadLine()

	if err == io.EOF {
		return err
	}

	if err != nil {
		log.Printf("readline error, %v", err)
		return nil
	}

	if err = iface.handleLine(s, w); err != nil {
		if err == io.EOF {
			return err
		}

		fmt.Fprintf(w, "command error, %v\n", err)
	}

	return nil
}

// Start handles commands interactively over the interface ReadWriter.
func (iface *Interface) Start() {
	var w io.Writer

	t := term.NewTerminal(iface.ReadWriter, "> ")
	w = iface.ReadWriter

	if iface.VT100 {
		t.SetPrompt(string(t.Escape.Red) + "> " + string(t.Escape.Reset))
		w = t
	}

	fmt.Fprintf(t, "\n%s\n\n", iface.Banner)
	fmt.Fprintf(t, "%s\n", iface.Help())

	for {
		if err := iface.readLine(t, w); err != nil {
			return
		}
	}
}

// Run executes one command per line of r, writing results to w. It stops at
// the end of input or at the first exit command.
func (iface *Interface) Run(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		if err := iface.handleLine(scanner.Text(), w); err != nil {
			if err == io.EOF {
				return nil
			}

			fmt.Fprintf(w, "command error, %v\n", err)
		}
	}

	return scanner.Err()
}
