package hal

import "io"

// sinkSet fans kfmt output out to up to MaxSinks writers.
type sinkSet struct {
	writers [MaxSinks]io.Writer
	count   int
}

func (s *sinkSet) reset() {
	*s = sinkSet{}
}

// add appends w to the set. Writers past MaxSinks are dropped.
func (s *sinkSet) add(w io.Writer) {
	if s.count == len(s.writers) {
		return
	}
	s.writers[s.count] = w
	s.count++
}

// Write implements io.Writer. Every sink receives p even if an earlier one
// fails; the first error is returned.
func (s *sinkSet) Write(p []byte) (int, error) {
	var firstErr error

	for i := 0; i < s.count; i++ {
		if _, err := s.writers[i].Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return 0, firstErr
	}
	return len(p), nil
}

// prefixBufferSize fits "[hal] <driver name>(<version>): ".
const prefixBufferSize = 64

// prefixBuffer holds the driver log prefix. Output past its capacity is
// dropped.
type prefixBuffer struct {
	buf [prefixBufferSize]byte
	n   int
}

func (b *prefixBuffer) reset() { b.n = 0 }

func (b *prefixBuffer) bytes() []byte { return b.buf[:b.n] }

func (b *prefixBuffer) Write(p []byte) (int, error) {
	b.n += copy(b.buf[b.n:], p)
	return len(p), nil
}
