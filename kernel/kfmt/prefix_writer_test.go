package kfmt

import (
	"bytes"
	"errors"
	"testing"
)

func TestPrefixWriter(t *testing.T) {
	specs := []struct {
		input []string
		exp   string
	}{
		{
			[]string{""},
			"",
		},
		{
			[]string{"\n"},
			"[hal] \n",
		},
		{
			[]string{"initialized"},
			"[hal] initialized",
		},
		{
			[]string{"mapped framebuffer\n", "initialized\n"},
			"[hal] mapped framebuffer\n[hal] initialized\n",
		},
		{
			[]string{"split ", "line\nnext"},
			"[hal] split line\n[hal] next",
		},
	}

	for specIndex, spec := range specs {
		var (
			buf bytes.Buffer
			w   = PrefixWriter{Sink: &buf, Prefix: []byte("[hal] ")}
		)

		for _, in := range spec.input {
			wrote, err := w.Write([]byte(in))
			if err != nil {
				t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			}

			if wrote != len(in) {
				t.Errorf("[spec %d] expected writer to write %d bytes; wrote %d", specIndex, len(in), wrote)
			}
		}

		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected output:\n%q\ngot:\n%q", specIndex, spec.exp, got)
		}
	}
}

func TestPrefixWriterErrors(t *testing.T) {
	expErr := errors.New("write failed")
	w := PrefixWriter{
		Sink:   writerThatAlwaysErrors{expErr},
		Prefix: []byte("[hal] "),
	}

	if _, err := w.Write([]byte("line\n")); err != expErr {
		t.Fatalf("expected error: %v; got %v", expErr, err)
	}
}

type writerThatAlwaysErrors struct {
	err error
}

func (w writerThatAlwaysErrors) Write(_ []byte) (int, error) {
	return 0, w.err
}
