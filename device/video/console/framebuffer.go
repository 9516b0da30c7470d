package console

import "unsafe"

// FramebufferPhysAddr is the physical address of the colour text-mode
// framebuffer.
const FramebufferPhysAddr = 0xb8000

// MapFramebuffer returns a slice of columns*rows cells backed by the text
// framebuffer at physAddr. It relies on the identity mapping that is active
// during early boot.
func MapFramebuffer(physAddr uintptr, columns, rows uint32) []uint16 {
	return unsafe.Slice((*uint16)(unsafe.Pointer(physAddr)), int(columns*rows))
}

// cellBuffer wraps the framebuffer so that every access is bounds-checked.
// Each cell holds the character in the low byte and the attribute in the
// high byte.
type cellBuffer struct {
	cells []uint16
}

func (b *cellBuffer) len() uint32 {
	return uint32(len(b.cells))
}

// set stores ch/attr at index and reports whether index was in range.
func (b *cellBuffer) set(index uint32, ch byte, attr uint8) bool {
	if index >= b.len() {
		return false
	}

	b.cells[index] = uint16(attr)<<8 | uint16(ch)
	return true
}

func (b *cellBuffer) get(index uint32) (byte, uint8, bool) {
	if index >= b.len() {
		return 0, 0, false
	}

	cell := b.cells[index]
	return byte(cell), uint8(cell >> 8), true
}

// copyCells moves count cells from src to dst; the ranges may overlap.
func (b *cellBuffer) copyCells(dst, src, count uint32) {
	copy(b.cells[dst:dst+count], b.cells[src:src+count])
}
