package kfmt

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestRingBuffer(t *testing.T) {
	expStr := "Hello.\n\nWelcome to uOS."

	t.Run("read/write", func(t *testing.T) {
		var rb ringBuffer
		n, err := rb.Write([]byte(expStr))
		if err != nil {
			t.Fatal(err)
		}

		if n != len(expStr) {
			t.Fatalf("expected to write %d bytes; wrote %d", len(expStr), n)
		}

		if got := readByteByByte(&rb); got != expStr {
			t.Fatalf("expected to read %q; got %q", expStr, got)
		}
	})

	t.Run("wrap around", func(t *testing.T) {
		var rb ringBuffer
		rb.wIndex = ringBufferSize - 3
		rb.rIndex = ringBufferSize - 3

		rb.Write([]byte(expStr))

		var buf bytes.Buffer
		io.Copy(&buf, &rb)

		if got := buf.String(); got != expStr {
			t.Fatalf("expected to read %q; got %q", expStr, got)
		}
	})

	t.Run("overflow keeps newest bytes", func(t *testing.T) {
		var rb ringBuffer
		rb.Write([]byte(strings.Repeat("a", ringBufferSize)))
		rb.Write([]byte("tail"))

		var buf bytes.Buffer
		io.Copy(&buf, &rb)

		got := buf.String()
		if exp := ringBufferSize - 1; len(got) != exp {
			t.Fatalf("expected to read %d bytes; got %d", exp, len(got))
		}

		if !strings.HasSuffix(got, "tail") {
			t.Fatalf("expected buffer contents to end with the last write; got %q", got[len(got)-8:])
		}
	})
}

// chunkRecorder counts the writes it receives and keeps at most limit bytes
// of each.
type chunkRecorder struct {
	buf    bytes.Buffer
	writes int
	limit  int
}

func (w *chunkRecorder) Write(p []byte) (int, error) {
	w.writes++
	if w.limit != 0 && len(p) > w.limit {
		p = p[:w.limit]
	}
	return w.buf.Write(p)
}

func TestRingBufferWriteTo(t *testing.T) {
	expStr := "Hello.\n\nWelcome to uOS."

	t.Run("wrap around", func(t *testing.T) {
		var rb ringBuffer
		rb.wIndex = ringBufferSize - 3
		rb.rIndex = ringBufferSize - 3
		rb.Write([]byte(expStr))

		var w chunkRecorder
		n, err := rb.WriteTo(&w)
		if err != nil || n != int64(len(expStr)) {
			t.Fatalf("expected (%d, nil); got (%d, %v)", len(expStr), n, err)
		}
		if got := w.buf.String(); got != expStr {
			t.Fatalf("expected %q; got %q", expStr, got)
		}
		if w.writes != 2 {
			t.Fatalf("expected 2 writes for a wrapped buffer; got %d", w.writes)
		}
		if rb.rIndex != rb.wIndex {
			t.Fatal("expected the buffer to be drained")
		}
	})

	t.Run("partial writes", func(t *testing.T) {
		var rb ringBuffer
		rb.Write([]byte(expStr))

		w := chunkRecorder{limit: 4}
		if _, err := rb.WriteTo(&w); err != nil {
			t.Fatal(err)
		}
		if got := w.buf.String(); got != expStr {
			t.Fatalf("expected %q; got %q", expStr, got)
		}
	})

	t.Run("no allocations", func(t *testing.T) {
		var rb ringBuffer
		payload := []byte(expStr)
		allocs := testing.AllocsPerRun(10, func() {
			rb.Write(payload)
			rb.WriteTo(io.Discard)
		})
		if allocs != 0 {
			t.Fatalf("expected WriteTo not to allocate; got %v allocs", allocs)
		}
	})
}

func readByteByByte(r io.Reader) string {
	var (
		buf bytes.Buffer
		b   = make([]byte, 1)
	)

	for {
		if _, err := r.Read(b); err == io.EOF {
			break
		}
		buf.Write(b)
	}

	return buf.String()
}
