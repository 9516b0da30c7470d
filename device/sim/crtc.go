package sim

// VGA CRT controller ports and the cursor location register indices.
const (
	CRTCIndexPort = 0x3d4
	CRTCDataPort  = 0x3d5

	crtcCursorHigh = 0x0e
	crtcCursorLow  = 0x0f
)

// CRTC models the index/data register pair of the VGA CRT controller. Only
// register storage is modelled; the cursor location is derived from
// registers 0x0e and 0x0f.
type CRTC struct {
	index uint8
	regs  [256]uint8
}

// PortWriteByte implements Device.
func (c *CRTC) PortWriteByte(port uint16, val uint8) {
	switch port {
	case CRTCIndexPort:
		c.index = val
	case CRTCDataPort:
		c.regs[c.index] = val
	}
}

// PortReadByte implements Device.
func (c *CRTC) PortReadByte(port uint16) uint8 {
	switch port {
	case CRTCIndexPort:
		return c.index
	case CRTCDataPort:
		return c.regs[c.index]
	}
	return floatingBus
}

// Cursor returns the linear cursor position currently latched in the
// controller.
func (c *CRTC) Cursor() uint16 {
	return uint16(c.regs[crtcCursorHigh])<<8 | uint16(c.regs[crtcCursorLow])
}

// DAC models the VGA palette DAC write-index/data ports.
type DAC struct {
	index     uint8
	component int
	Palette   [256][3]uint8
}

// VGA DAC ports.
const (
	DACWriteIndexPort = 0x3c8
	DACDataPort       = 0x3c9
)

// PortWriteByte implements Device. Each palette entry takes three consecutive
// data writes (R, G, B) after which the index auto-increments.
func (d *DAC) PortWriteByte(port uint16, val uint8) {
	switch port {
	case DACWriteIndexPort:
		d.index, d.component = val, 0
	case DACDataPort:
		d.Palette[d.index][d.component] = val & 0x3f
		if d.component++; d.component == 3 {
			d.component = 0
			d.index++
		}
	}
}

// PortReadByte implements Device.
func (d *DAC) PortReadByte(port uint16) uint8 {
	if port == DACWriteIndexPort {
		return d.index
	}
	return floatingBus
}
