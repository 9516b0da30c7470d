// Package console implements the VGA text-mode console driver.
package console

import (
	"image/color"
	"io"

	"uos/device/portio"
	"uos/kernel"
	"uos/kernel/kfmt"
	"uos/kernel/sync"
)

// Default text-mode geometry.
const (
	DefaultColumns = 80
	DefaultRows    = 25
)

// CRT controller ports and the sub-commands that select the cursor location
// registers.
const (
	commandPort     = 0x3d4
	dataPort        = 0x3d5
	highByteCommand = 14
	lowByteCommand  = 15

	dacWriteIndexPort = 0x3c8
	dacDataPort       = 0x3c9
)

var (
	errCellOutOfRange   = &kernel.Error{Module: "vga_text_console", Message: "cell index out of range"}
	errCursorOutOfRange = &kernel.Error{Module: "vga_text_console", Message: "cursor position out of range"}
	errBadFramebuffer   = &kernel.Error{Module: "vga_text_console", Message: "framebuffer size does not match console dimensions"}
	errNoBus            = &kernel.Error{Module: "vga_text_console", Message: "no port I/O bus"}

	// ErrCellOutOfRange is returned by WriteCell and Cell for an index
	// outside the grid. Nothing is written.
	ErrCellOutOfRange = errCellOutOfRange

	// ErrCursorOutOfRange is returned by MoveCursor for a position outside
	// the grid. The cursor is left untouched.
	ErrCursorOutOfRange = errCursorOutOfRange
)

// VgaTextConsole drives an EGA-compatible text console. The grid holds
// width*height cells; the cursor is a linear cell index that always stays
// inside the grid. Output that runs past the last cell scrolls the grid up by
// one row.
//
// Text written through Write uses white on black (attribute 0x0f); cleared
// cells hold character 0 with the same attribute.
type VgaTextConsole struct {
	lock sync.Spinlock

	width  uint32
	height uint32

	fb     cellBuffer
	bus    portio.Bus
	cursor uint32

	palette   [16]color.RGBA
	defaultFg Attr
	defaultBg Attr
}

// egaPalette holds the 16 default EGA colours.
var egaPalette = [16]color.RGBA{
	{R: 0, G: 0, B: 0},       /* black */
	{R: 0, G: 0, B: 168},     /* blue */
	{R: 0, G: 168, B: 0},     /* green */
	{R: 0, G: 168, B: 168},   /* cyan */
	{R: 168, G: 0, B: 0},     /* red */
	{R: 168, G: 0, B: 168},   /* magenta */
	{R: 168, G: 84, B: 0},    /* brown */
	{R: 168, G: 168, B: 168}, /* light grey */
	{R: 84, G: 84, B: 84},    /* dark grey */
	{R: 84, G: 84, B: 252},   /* light blue */
	{R: 84, G: 252, B: 84},   /* light green */
	{R: 84, G: 252, B: 252},  /* light cyan */
	{R: 252, G: 84, B: 84},   /* light red */
	{R: 252, G: 84, B: 252},  /* light magenta */
	{R: 252, G: 252, B: 84},  /* light brown */
	{R: 252, G: 252, B: 252}, /* white */
}

// NewVgaTextConsole creates a console for a columns x rows grid backed by fb,
// programming the cursor registers through bus.
func NewVgaTextConsole(columns, rows uint32, fb []uint16, bus portio.Bus) *VgaTextConsole {
	cons := new(VgaTextConsole)
	cons.Setup(columns, rows, fb, bus)
	return cons
}

// Setup (re)initializes cons in place for a columns x rows grid backed by fb.
// It does not allocate, so the HAL can use it on a statically allocated
// console before a memory allocator exists.
func (cons *VgaTextConsole) Setup(columns, rows uint32, fb []uint16, bus portio.Bus) {
	cons.lock.Acquire()
	defer cons.lock.Release()

	cons.width = columns
	cons.height = rows
	cons.fb = cellBuffer{cells: fb}
	cons.bus = bus
	cons.cursor = 0
	cons.palette = egaPalette
	cons.defaultFg = White
	cons.defaultBg = Black
}

// Dimensions returns the console width and height in characters.
func (cons *VgaTextConsole) Dimensions() (uint32, uint32) {
	return cons.width, cons.height
}

// DefaultColors returns the colours used by Write and Clear.
func (cons *VgaTextConsole) DefaultColors() (fg, bg Attr) {
	return cons.defaultFg, cons.defaultBg
}

// Cursor returns the linear index of the next cell Write will fill.
func (cons *VgaTextConsole) Cursor() uint32 {
	cons.lock.Acquire()
	defer cons.lock.Release()

	return cons.cursor
}

// Cell returns the character and colours stored at index.
func (cons *VgaTextConsole) Cell(index uint32) (byte, Attr, Attr, *kernel.Error) {
	cons.lock.Acquire()
	ch, attr, ok := cons.fb.get(index)
	cons.lock.Release()

	if !ok {
		return 0, 0, 0, errCellOutOfRange
	}

	return ch, Attr(attr & 0x0f), Attr(attr >> 4), nil
}

// WriteCell stores ch with the fg/bg colours at cell index. Indices are in
// cells, not bytes. An index outside the grid is rejected.
func (cons *VgaTextConsole) WriteCell(index uint32, ch byte, fg, bg Attr) *kernel.Error {
	cons.lock.Acquire()
	defer cons.lock.Release()

	if !cons.fb.set(index, ch, PackAttr(fg, bg)) {
		return errCellOutOfRange
	}
	return nil
}

// MoveCursor relocates the hardware cursor to pos and records it as the
// current cursor. Positions outside the grid are rejected.
func (cons *VgaTextConsole) MoveCursor(pos uint32) *kernel.Error {
	cons.lock.Acquire()
	defer cons.lock.Release()

	return cons.moveCursor(pos)
}

// moveCursor programs the cursor location registers. The high byte pair must
// precede the low byte pair.
func (cons *VgaTextConsole) moveCursor(pos uint32) *kernel.Error {
	if pos >= cons.width*cons.height {
		return errCursorOutOfRange
	}

	cons.bus.PortWriteByte(commandPort, highByteCommand)
	cons.bus.PortWriteByte(dataPort, uint8(pos>>8))
	cons.bus.PortWriteByte(commandPort, lowByteCommand)
	cons.bus.PortWriteByte(dataPort, uint8(pos))

	cons.cursor = pos
	return nil
}

// Write implements io.Writer. Each byte is stored at the cursor using the
// default colours and the cursor advances by one cell. A '\n' writes nothing
// and moves the cursor to the first cell of the next row. When the cursor
// passes the last cell the grid scrolls up one row and the cursor moves to
// the start of the last row. The hardware cursor is updated once, after the
// whole buffer has been processed.
func (cons *VgaTextConsole) Write(p []byte) (int, error) {
	cons.lock.Acquire()
	defer cons.lock.Release()

	if !cons.validGeometry() {
		return 0, errBadFramebuffer
	}

	attr := PackAttr(cons.defaultFg, cons.defaultBg)
	lastCell := cons.width * cons.height

	for _, b := range p {
		if b == '\n' {
			cons.cursor += cons.width - (cons.cursor % cons.width)
		} else {
			cons.fb.set(cons.cursor, b, attr)
			cons.cursor++
		}

		if cons.cursor >= lastCell {
			cons.scroll(ScrollDirUp, 1)
			cons.blankRows(cons.height-1, 1)
			cons.cursor -= cons.width
		}
	}

	cons.moveCursor(cons.cursor)
	return len(p), nil
}

// Clear blanks every cell in increasing index order, then resets the cursor
// to the first cell.
func (cons *VgaTextConsole) Clear() {
	cons.lock.Acquire()
	defer cons.lock.Release()

	cons.blankRows(0, cons.height)
	cons.cursor = 0
	cons.moveCursor(0)
}

// Scroll moves the grid contents lines rows in the requested direction. The
// rows that are uncovered keep their old contents; the caller is responsible
// for clearing them. The cursor is not moved.
func (cons *VgaTextConsole) Scroll(dir ScrollDir, lines uint32) {
	cons.lock.Acquire()
	defer cons.lock.Release()

	cons.scroll(dir, lines)
}

func (cons *VgaTextConsole) scroll(dir ScrollDir, lines uint32) {
	if lines == 0 || lines >= cons.height {
		return
	}

	offset := lines * cons.width
	count := (cons.height - lines) * cons.width

	switch dir {
	case ScrollDirUp:
		cons.fb.copyCells(0, offset, count)
	case ScrollDirDown:
		cons.fb.copyCells(offset, 0, count)
	}
}

// validGeometry reports whether the grid is non-empty and fb holds exactly one
// cell per grid position.
func (cons *VgaTextConsole) validGeometry() bool {
	return cons.width != 0 && cons.height != 0 && cons.fb.len() == cons.width*cons.height
}

// blankRows fills count rows starting at row with blank cells.
func (cons *VgaTextConsole) blankRows(row, count uint32) {
	attr := PackAttr(cons.defaultFg, cons.defaultBg)
	end := (row + count) * cons.width
	for index := row * cons.width; index < end; index++ {
		cons.fb.set(index, 0, attr)
	}
}

// Palette returns a copy of the active color palette for this console.
func (cons *VgaTextConsole) Palette() [16]color.RGBA {
	return cons.palette
}

// SetPaletteColor updates the colour definition for the specified palette
// index and loads it into the VGA DAC. Indices past the last colour are
// ignored.
func (cons *VgaTextConsole) SetPaletteColor(index uint8, rgba color.RGBA) {
	if int(index) >= len(cons.palette) {
		return
	}

	cons.palette[index] = rgba

	// The DAC takes 6-bit components.
	cons.bus.PortWriteByte(dacWriteIndexPort, index)
	cons.bus.PortWriteByte(dacDataPort, rgba.R>>2)
	cons.bus.PortWriteByte(dacDataPort, rgba.G>>2)
	cons.bus.PortWriteByte(dacDataPort, rgba.B>>2)
}

// DriverName returns the name of this driver.
func (cons *VgaTextConsole) DriverName() string {
	return "vga_text_console"
}

// DriverVersion returns the version of this driver.
func (cons *VgaTextConsole) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit checks that the grid is non-empty, that the framebuffer matches
// its geometry and that a port bus is available.
func (cons *VgaTextConsole) DriverInit(w io.Writer) *kernel.Error {
	if cons.bus == nil {
		return errNoBus
	}

	if !cons.validGeometry() {
		return errBadFramebuffer
	}

	kfmt.Fprintf(w, "%dx%d text grid, %d cells\n", cons.width, cons.height, cons.fb.len())
	return nil
}
