package sim

// Standard PC serial port bases.
const (
	COM1Base = 0x3f8
	COM2Base = 0x2f8
)

// Machine bundles a Bus with the devices found on a standard PC in text
// mode: an 80x25 text framebuffer, the CRT controller, the palette DAC and
// two UARTs at COM1 and COM2.
type Machine struct {
	Bus  *Bus
	CRTC *CRTC
	DAC  *DAC
	COM1 *UART
	COM2 *UART

	// Framebuffer backs the text-mode grid, one uint16 per cell.
	Framebuffer []uint16

	Columns, Rows uint32
}

// NewMachine builds a Machine with a columns x rows text framebuffer.
func NewMachine(columns, rows uint32) *Machine {
	m := &Machine{
		Bus:         NewBus(),
		CRTC:        &CRTC{},
		DAC:         &DAC{},
		COM1:        NewUART(COM1Base),
		COM2:        NewUART(COM2Base),
		Framebuffer: make([]uint16, columns*rows),
		Columns:     columns,
		Rows:        rows,
	}

	m.Bus.Attach(CRTCIndexPort, CRTCDataPort, m.CRTC)
	m.Bus.Attach(DACWriteIndexPort, DACDataPort, m.DAC)
	m.Bus.Attach(COM1Base, COM1Base+7, m.COM1)
	m.Bus.Attach(COM2Base, COM2Base+7, m.COM2)

	return m
}

// Char returns the character byte stored at cell index.
func (m *Machine) Char(index int) byte {
	return byte(m.Framebuffer[index])
}

// Attr returns the attribute byte stored at cell index.
func (m *Machine) Attr(index int) uint8 {
	return uint8(m.Framebuffer[index] >> 8)
}

// Row returns the characters of row y (0-based) with NUL cells rendered as
// spaces.
func (m *Machine) Row(y uint32) string {
	row := make([]byte, m.Columns)
	for x := uint32(0); x < m.Columns; x++ {
		ch := byte(m.Framebuffer[y*m.Columns+x])
		if ch == 0 {
			ch = ' '
		}
		row[x] = ch
	}
	return string(row)
}
