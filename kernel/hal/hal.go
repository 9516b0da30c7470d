// Package hal detects the early output devices, wires them to the output
// dispatcher and installs the kfmt sink.
package hal

import (
	"io"

	"uos/device"
	"uos/device/output"
	"uos/device/portio"
	"uos/device/serial"
	"uos/device/video/console"
	"uos/kernel"
	"uos/kernel/kfmt"
)

// Platform describes the hardware the HAL drives.
type Platform struct {
	// Bus carries every port transaction.
	Bus portio.Bus

	// Framebuffer backs the text console grid.
	Framebuffer []uint16

	Columns, Rows uint32
}

// HWPlatform returns the platform for real hardware: the port instructions
// and the text framebuffer at its standard physical address.
func HWPlatform() Platform {
	return Platform{
		Bus:         portio.HW,
		Framebuffer: console.MapFramebuffer(console.FramebufferPhysAddr, console.DefaultColumns, console.DefaultRows),
		Columns:     console.DefaultColumns,
		Rows:        console.DefaultRows,
	}
}

// maxDrivers bounds the number of drivers the HAL detects.
const maxDrivers = 3

// managedDevices contains the devices discovered by the HAL.
type managedDevices struct {
	activeConsole *console.VgaTextConsole

	uarts     [2]*serial.UART
	uartCount int

	// activeDrivers tracks all initialized device drivers.
	activeDrivers [maxDrivers]device.Driver
	driverCount   int
}

// Init runs before the Go allocator is available, so every object it sets up
// lives in the statically allocated variables below.
var (
	devices managedDevices

	platform Platform
	cfg      Config

	vgaConsole console.VgaTextConsole
	comPorts   [2]serial.UART
	dispatcher output.Dispatcher
	sinks      sinkSet

	driverInfo     [maxDrivers]device.DriverInfo
	driverInfoList [maxDrivers]*device.DriverInfo

	prefix       prefixBuffer
	prefixWriter kfmt.PrefixWriter

	errNoOutputDevice = &kernel.Error{Module: "hal", Message: "no output device detected"}
)

// ActiveConsole returns the text console or nil if none was initialized.
func ActiveConsole() *console.VgaTextConsole {
	return devices.activeConsole
}

// ActiveDispatcher returns the dispatcher installed by Init.
func ActiveDispatcher() *output.Dispatcher {
	return &dispatcher
}

// ActiveDrivers returns the drivers that initialized successfully, in detection
// order.
func ActiveDrivers() []device.Driver {
	return devices.activeDrivers[:devices.driverCount]
}

// Init parses cmdLine, detects the console and the two standard UARTs on p,
// installs the default output dispatcher and points kfmt at the sinks the
// command line selects. Driver messages logged before the sink exists are
// replayed to it. Init does not allocate.
func Init(p Platform, cmdLine string) *kernel.Error {
	devices = managedDevices{}
	platform = p
	cfg = ParseConfig(cmdLine, kfmt.ActiveSink())

	drivers := driverList()
	drivers.SortByOrder()
	detect(drivers)

	var cons io.Writer
	if devices.activeConsole != nil {
		cons = devices.activeConsole
	}

	dispatcher.Setup(cons, p.Bus, cfg.SerialConfig())
	for i := 0; i < devices.uartCount; i++ {
		dispatcher.Register(devices.uarts[i])
	}
	output.SetDefault(&dispatcher)

	sinks.reset()
	for _, ch := range cfg.SinkList() {
		if channelActive(ch) {
			sinks.add(dispatcher.Writer(ch))
		}
	}

	if sinks.count == 0 {
		// Keep buffering rather than writing into an empty set.
		if kfmt.GetOutputSink() == io.Writer(&sinks) {
			kfmt.SetOutputSink(nil)
		}
		return errNoOutputDevice
	}

	kfmt.SetOutputSink(&sinks)
	return nil
}

// driverList returns the detect functions for the devices cfg enables.
func driverList() device.DriverInfoList {
	var count int

	add := func(order device.DetectOrder, detectFn device.DetectFn) {
		driverInfo[count] = device.DriverInfo{Order: order, Detect: detectFn}
		driverInfoList[count] = &driverInfo[count]
		count++
	}

	if cfg.ConsoleEnabled {
		add(device.DetectOrderEarly, detectConsole)
	}
	add(device.DetectOrderNormal, detectCOM1)
	add(device.DetectOrderNormal, detectCOM2)

	return device.DriverInfoList(driverInfoList[:count])
}

func detectConsole() device.Driver {
	vgaConsole.Setup(platform.Columns, platform.Rows, platform.Framebuffer, platform.Bus)
	return &vgaConsole
}

func detectCOM1() device.Driver { return detectUART(0, serial.COM1) }
func detectCOM2() device.Driver { return detectUART(1, serial.COM2) }

func detectUART(slot int, port serial.Port) device.Driver {
	u := &comPorts[slot]
	u.Setup(port, platform.Bus, cfg.SerialConfig())
	if !u.Present() {
		return nil
	}
	return u
}

// detect executes the detect function for each driver and invokes
// onDriverInit for each successfully initialized driver.
func detect(list device.DriverInfoList) {
	prefixWriter = kfmt.PrefixWriter{Sink: kfmt.ActiveSink()}

	for _, info := range list {
		drv := info.Detect()
		if drv == nil {
			continue
		}

		prefix.reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&prefix, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		prefixWriter.Prefix = prefix.bytes()

		if err := drv.DriverInit(&prefixWriter); err != nil {
			kfmt.Fprintf(&prefixWriter, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&prefixWriter, "initialized\n")
		onDriverInit(drv)
	}
}

// onDriverInit records an initialized driver. The first console found
// becomes the active console.
func onDriverInit(drv device.Driver) {
	switch drvImpl := drv.(type) {
	case *console.VgaTextConsole:
		if devices.activeConsole == nil {
			devices.activeConsole = drvImpl
		}
	case *serial.UART:
		devices.uarts[devices.uartCount] = drvImpl
		devices.uartCount++
	}

	devices.activeDrivers[devices.driverCount] = drv
	devices.driverCount++
}

func channelActive(ch output.Channel) bool {
	if ch == output.Console {
		return devices.activeConsole != nil
	}

	for i := 0; i < devices.uartCount; i++ {
		if output.Channel(devices.uarts[i].Port()) == ch {
			return true
		}
	}

	return false
}
