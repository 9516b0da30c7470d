package kmain

import (
	"uos/device/output"
	"uos/kernel"
	"uos/kernel/cpu"
	"uos/kernel/hal"
	"uos/kernel/kfmt"
)

// Boot banners.
const (
	ConsoleBanner = "Hello.\n\nWelcome to uOS."
	SerialBanner  = "uOS serial output okay.\n"
)

var (
	// Mocked by tests.
	haltFn     = cpu.Halt
	panicFn    = kfmt.Panic
	platformFn = hal.HWPlatform
)

// Kmain is invoked by the rt0 code once the CPU runs in long mode with a
// stack and an identity-mapped low memory region. cmdLine holds the boot
// command line.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(cmdLine string) {
	if err := Run(platformFn(), cmdLine); err != nil {
		panicFn(err)
		return
	}

	haltFn()
}

// Run brings up the output devices on p, clears the console and prints the
// boot banners on the console and on COM1.
func Run(p hal.Platform, cmdLine string) *kernel.Error {
	if err := hal.Init(p, cmdLine); err != nil {
		return err
	}

	if cons := hal.ActiveConsole(); cons != nil {
		cons.Clear()
		output.Print(output.Console, ConsoleBanner)
	}

	output.Print(output.COM1, SerialBanner)
	return nil
}
