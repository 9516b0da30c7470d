// Package sim provides a simulated x86 I/O port bus together with models of
// the devices the early drivers talk to: the VGA CRT controller cursor
// registers and 16550 UARTs. It records every port transaction so the exact
// register programming sequence a driver emits can be inspected.
package sim

import (
	"fmt"
	"sync"
)

// Direction identifies the direction of a port transaction.
type Direction uint8

// The supported transaction directions.
const (
	Out Direction = iota
	In
)

// floatingBus is the value read from a port no device responds to.
const floatingBus = 0xff

// Transaction describes a single port access.
type Transaction struct {
	Dir   Direction
	Port  uint16
	Value uint8
}

// String formats the transaction as "out 0x3f8 <- 0x55" or "in 0x3fd -> 0x20".
func (tx Transaction) String() string {
	if tx.Dir == In {
		return fmt.Sprintf("in  0x%03x -> 0x%02x", tx.Port, tx.Value)
	}
	return fmt.Sprintf("out 0x%03x <- 0x%02x", tx.Port, tx.Value)
}

// Device is implemented by simulated peripherals attached to a Bus.
type Device interface {
	PortWriteByte(port uint16, val uint8)
	PortReadByte(port uint16) uint8
}

type mapping struct {
	start, end uint16
	dev        Device
}

// Bus routes port accesses to the attached devices and records them. It
// implements portio.Bus and is safe for concurrent use.
type Bus struct {
	mu       sync.Mutex
	mappings []mapping
	trace    []Transaction
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Attach maps dev to the inclusive port range [start, end]. Later mappings
// take precedence over earlier overlapping ones.
func (b *Bus) Attach(start, end uint16, dev Device) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mappings = append(b.mappings, mapping{start: start, end: end, dev: dev})
}

func (b *Bus) lookup(port uint16) Device {
	for i := len(b.mappings) - 1; i >= 0; i-- {
		if m := b.mappings[i]; port >= m.start && port <= m.end {
			return m.dev
		}
	}
	return nil
}

// PortWriteByte implements portio.Bus. Writes to unmapped ports are recorded
// and otherwise ignored.
func (b *Bus) PortWriteByte(port uint16, val uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trace = append(b.trace, Transaction{Dir: Out, Port: port, Value: val})
	if dev := b.lookup(port); dev != nil {
		dev.PortWriteByte(port, val)
	}
}

// PortReadByte implements portio.Bus. Reads from unmapped ports return 0xff.
func (b *Bus) PortReadByte(port uint16) uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()

	val := uint8(floatingBus)
	if dev := b.lookup(port); dev != nil {
		val = dev.PortReadByte(port)
	}

	b.trace = append(b.trace, Transaction{Dir: In, Port: port, Value: val})
	return val
}

// Trace returns a copy of the recorded transactions.
func (b *Bus) Trace() []Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Transaction, len(b.trace))
	copy(out, b.trace)
	return out
}

// Writes returns the recorded Out transactions, in order, targeting any of
// the supplied ports. With no ports, every Out transaction is returned.
func (b *Bus) Writes(ports ...uint16) []Transaction {
	var out []Transaction
	for _, tx := range b.Trace() {
		if tx.Dir == Out && matchPort(tx.Port, ports) {
			out = append(out, tx)
		}
	}
	return out
}

// ResetTrace discards the recorded transactions.
func (b *Bus) ResetTrace() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trace = b.trace[:0]
}

func matchPort(port uint16, ports []uint16) bool {
	if len(ports) == 0 {
		return true
	}

	for _, p := range ports {
		if p == port {
			return true
		}
	}
	return false
}
