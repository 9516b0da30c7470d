// Package portio abstracts byte-granularity x86 I/O port access so drivers can
// run against real hardware or a simulated bus.
package portio

import "uos/kernel/cpu"

// Bus performs single I/O port transactions. Implementations do not buffer
// and have no way to report a failed transaction.
type Bus interface {
	// PortWriteByte writes val to port.
	PortWriteByte(port uint16, val uint8)

	// PortReadByte reads a byte from port.
	PortReadByte(port uint16) uint8
}

var (
	// mocked by tests
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte
)

// HW is the Bus backed by the CPU in/out instructions.
var HW Bus = hwBus{}

type hwBus struct{}

func (hwBus) PortWriteByte(port uint16, val uint8) { portWriteByteFn(port, val) }

func (hwBus) PortReadByte(port uint16) uint8 { return portReadByteFn(port) }
