package console

// Attr is one of the 16 EGA text-mode colours. A cell's attribute byte packs
// the background colour in the high nibble and the foreground colour in the
// low nibble.
type Attr uint8

// The EGA colour set.
const (
	Black Attr = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGrey
	DarkGrey
	LightBlue
	LightGreen
	LightCyan
	LightRed
	LightMagenta
	LightBrown
	White
)

// PackAttr returns the attribute byte for the fg/bg pair. Only the low nibble
// of each colour is used.
func PackAttr(fg, bg Attr) uint8 {
	return uint8(bg&0x0f)<<4 | uint8(fg&0x0f)
}

// ScrollDir defines a scroll direction.
type ScrollDir uint8

// The supported list of scroll directions for the console Scroll() calls.
const (
	ScrollDirUp ScrollDir = iota
	ScrollDirDown
)
