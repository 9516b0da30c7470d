// Package device defines the contract between the HAL and the device drivers.
package device

import (
	"io"

	"uos/kernel"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. Any diagnostic output
	// should be written to the supplied io.Writer with kfmt.Fprintf.
	DriverInit(io.Writer) *kernel.Error
}

// DetectFn is a function that scans for the presence of a particular
// piece of hardware and returns a driver for it. A nil return means the
// hardware is absent.
type DetectFn func() Driver

// DetectOrder specifies when a driver is detected relative to the others.
type DetectOrder int8

const (
	// DetectOrderEarly is used by drivers whose output is needed to
	// report the initialization of every other driver (e.g. the console).
	DetectOrderEarly DetectOrder = iota - 1

	// DetectOrderNormal is the default detection order.
	DetectOrderNormal

	// DetectOrderLast is used by drivers that depend on others.
	DetectOrderLast
)

// DriverInfo pairs a detect function with its detection order.
type DriverInfo struct {
	// Order controls when the detect function runs.
	Order DetectOrder

	// Detect scans for the hardware and returns a driver for it.
	Detect DetectFn
}

// DriverInfoList implements sort.Interface, ordering entries by DetectOrder.
type DriverInfoList []*DriverInfo

// Len returns the length of the driver info list.
func (l DriverInfoList) Len() int { return len(l) }

// Swap exchanges 2 elements in the driver info list.
func (l DriverInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less compares 2 elements of the driver info list.
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }

// SortByOrder stably sorts the list by DetectOrder in place. Unlike
// sort.Stable it needs no interface conversion, so it is safe to call before
// the memory allocator is up.
func (l DriverInfoList) SortByOrder() {
	for i := 1; i < len(l); i++ {
		for j := i; j > 0 && l.Less(j, j-1); j-- {
			l.Swap(j, j-1)
		}
	}
}
