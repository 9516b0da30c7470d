package serial

// Port is the base I/O address of a UART. The data register lives at the
// base and the remaining registers at fixed offsets from it.
type Port uint16

// The standard PC serial lines.
const (
	COM1 Port = 0x3f8
	COM2 Port = 0x2f8
)

// Register offsets from the base port.
const (
	dataOffset         = 0
	fifoCommandOffset  = 2
	lineCommandOffset  = 3
	modemCommandOffset = 4
	lineStatusOffset   = 5
	scratchOffset      = 7
)

func (p Port) dataPort() uint16         { return uint16(p) + dataOffset }
func (p Port) fifoCommandPort() uint16  { return uint16(p) + fifoCommandOffset }
func (p Port) lineCommandPort() uint16  { return uint16(p) + lineCommandOffset }
func (p Port) modemCommandPort() uint16 { return uint16(p) + modemCommandOffset }
func (p Port) lineStatusPort() uint16   { return uint16(p) + lineStatusOffset }
func (p Port) scratchPort() uint16      { return uint16(p) + scratchOffset }

// Name returns "com1" or "com2" for the standard lines and "uart" for any
// other base.
func (p Port) Name() string {
	switch p {
	case COM1:
		return "com1"
	case COM2:
		return "com2"
	default:
		return "uart"
	}
}
