// Package kfmt implements the kernel's formatted output. Nothing in this
// package allocates, so it is safe to call before the Go allocator exists.
package kfmt

import (
	"io"
	"unsafe"
)

// numBufSize bounds the digits (and padding) emitted for a single integer.
const numBufSize = 32

var (
	errMissingArg   = []byte("%!(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	numBuf [numBufSize]byte

	// singleByte is shared by every single-character write.
	singleByte = []byte{0}

	// earlyBuffer holds Printf output emitted before an output sink is
	// installed.
	earlyBuffer ringBuffer

	// outputSink receives the output of Printf. While it is nil, output is
	// captured by earlyBuffer.
	outputSink io.Writer
)

// SetOutputSink makes w the target of Printf and replays into it anything
// that was captured before a sink was available.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		earlyBuffer.WriteTo(w)
	}
}

// GetOutputSink returns the currently installed Printf sink.
func GetOutputSink() io.Writer {
	return outputSink
}

// activeSink resolves the Printf sink on every write.
type activeSink struct{}

func (activeSink) Write(p []byte) (int, error) {
	doWrite(outputSink, p)
	return len(p), nil
}

// ActiveSink returns a writer that targets whatever sink is installed at the
// time of each write, falling back to the early buffer. Code that logs before
// the HAL has picked an output device should hold on to this writer rather
// than the result of GetOutputSink.
func ActiveSink() io.Writer {
	return activeSink{}
}

// Printf writes formatted output to the active sink. It understands a small
// subset of the fmt verbs:
//
//	%s  string or []byte
//	%c  a single byte
//	%d  base 10 integer
//	%o  base 8 integer
//	%x  base 16 integer, lower-case
//	%t  bool
//	%%  a literal percent sign
//
// An optional decimal width may precede the verb. Strings and base-10
// integers are left-padded with spaces; base-8 and base-16 integers are
// left-padded with zeroes.
//
// Arguments are type-switched on their concrete type; io.Stringer is not
// consulted.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes to w. A nil w routes output to the
// early buffer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex int
		width    int
		ch       byte
	)

	for i := 0; i < len(format); i++ {
		if ch = format[i]; ch != '%' {
			writeByte(w, ch)
			continue
		}

		width = 0
		for i++; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		if i == len(format) {
			doWrite(w, errNoVerb)
			break
		}

		ch = format[i]
		switch ch {
		case '%':
			writeByte(w, '%')
			continue
		case 's', 'c', 'd', 'o', 'x', 't':
		default:
			doWrite(w, errNoVerb)
			continue
		}

		if argIndex >= len(args) {
			doWrite(w, errMissingArg)
			continue
		}

		arg := args[argIndex]
		argIndex++

		switch ch {
		case 's':
			fmtString(w, arg, width)
		case 'c':
			fmtChar(w, arg)
		case 'd':
			fmtInt(w, arg, 10, width)
		case 'o':
			fmtInt(w, arg, 8, width)
		case 'x':
			fmtInt(w, arg, 16, width)
		case 't':
			fmtBool(w, arg)
		}
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

func fmtBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongArgType)
	case b:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

func fmtChar(w io.Writer, v interface{}) {
	switch c := v.(type) {
	case byte:
		writeByte(w, c)
	case rune:
		if c > 0xff {
			c = '?'
		}
		writeByte(w, byte(c))
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtString writes a string or byte slice left-padded to width.
func fmtString(w io.Writer, v interface{}, width int) {
	switch s := v.(type) {
	case string:
		fmtRepeat(w, ' ', width-len(s))
		// []byte(s) would allocate.
		for i := 0; i < len(s); i++ {
			writeByte(w, s[i])
		}
	case []byte:
		fmtRepeat(w, ' ', width-len(s))
		doWrite(w, s)
	default:
		doWrite(w, errWrongArgType)
	}
}

func fmtRepeat(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

// fmtInt writes v in the requested base. All built-in integer types are
// supported.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		uval     uint64
		negative bool
		padCh    = byte('0')
	)

	switch n := v.(type) {
	case uint8:
		uval = uint64(n)
	case uint16:
		uval = uint64(n)
	case uint32:
		uval = uint64(n)
	case uint64:
		uval = n
	case uint:
		uval = uint64(n)
	case uintptr:
		uval = uint64(n)
	case int8:
		uval, negative = abs(int64(n))
	case int16:
		uval, negative = abs(int64(n))
	case int32:
		uval, negative = abs(int64(n))
	case int64:
		uval, negative = abs(n)
	case int:
		uval, negative = abs(int64(n))
	default:
		doWrite(w, errWrongArgType)
		return
	}

	if base == 10 {
		padCh = ' '
	}

	if width > numBufSize-1 {
		width = numBufSize - 1
	}

	// Digits are produced right to left.
	pos := numBufSize
	for {
		pos--
		digit := uval % base
		if digit < 10 {
			numBuf[pos] = byte(digit) + '0'
		} else {
			numBuf[pos] = byte(digit-10) + 'a'
		}

		if uval /= base; uval == 0 {
			break
		}
	}

	if negative && padCh == '0' {
		// zero padding goes between the sign and the digits
		for numBufSize-pos < width-1 {
			pos--
			numBuf[pos] = '0'
		}
		pos--
		numBuf[pos] = '-'
	} else {
		if negative {
			pos--
			numBuf[pos] = '-'
		}
		for numBufSize-pos < width {
			pos--
			numBuf[pos] = padCh
		}
	}

	doWrite(w, numBuf[pos:])
}

func abs(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

func writeByte(w io.Writer, b byte) {
	singleByte[0] = b
	doWrite(w, singleByte)
}

// doWrite hides p from escape analysis. Passing p straight to an unknown
// io.Writer makes the compiler move every Printf argument to the heap, which
// would crash the kernel before the allocator is up.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
		return
	}

	earlyBuffer.Write(p)
}

// noEscape hides a pointer from escape analysis (see runtime/stubs.go).
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
