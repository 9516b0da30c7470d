package kfmt

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintf(t *testing.T) {
	defer func() {
		outputSink = nil
	}()

	// keeps vet from flagging the deliberately malformed format strings
	printfn := Printf

	specs := []struct {
		fn        func()
		expOutput string
	}{
		{
			func() { printfn("no args") },
			"no args",
		},
		{
			func() { printfn("%t/%t", true, false) },
			"true/false",
		},
		{
			func() { printfn("[%s] %s", "serial", []byte("ready")) },
			"[serial] ready",
		},
		{
			func() { printfn("'%6s'", "COM1") },
			"'  COM1'",
		},
		{
			func() { printfn("'%2s'", "COM1") },
			"'COM1'",
		},
		{
			func() { printfn("%c%c", byte('o'), 'k') },
			"ok",
		},
		{
			func() { printfn("port 0x%x", uint16(0x3f8)) },
			"port 0x3f8",
		},
		{
			func() { printfn("fb 0x%8x", uintptr(0xb8000)) },
			"fb 0x000b8000",
		},
		{
			func() { printfn("mode %o", uint32(0755)) },
			"mode 755",
		},
		{
			func() { printfn("cursor %d/%d", uint16(175), 2000) },
			"cursor 175/2000",
		},
		{
			func() { printfn("'%5d'", uint8(42)) },
			"'   42'",
		},
		{
			func() { printfn("'%6d'", int16(-42)) },
			"'   -42'",
		},
		{
			func() { printfn("'%6x'", int32(-0xff)) },
			"'-000ff'",
		},
		{
			func() { printfn("%d", int64(-9000)) },
			"-9000",
		},
		{
			func() { printfn("'%64x'", int(-0xbadf00d)) },
			"'-" + strings.Repeat("0", numBufSize-1-8) + "badf00d'",
		},
		{
			func() { printfn("100%%") },
			"100%",
		},
		{
			func() { printfn("extra", 1, "two") },
			"extra%!(EXTRA)%!(EXTRA)",
		},
		{
			func() { printfn("missing %d") },
			"missing %!(MISSING)",
		},
		{
			func() { printfn("bad %q verb") },
			"bad %!(NOVERB) verb",
		},
		{
			func() { printfn("dangling %12") },
			"dangling %!(NOVERB)",
		},
		{
			func() { printfn("%t %d %s %c", "x", "y", 1, 2.0) },
			"%!(WRONGTYPE) %!(WRONGTYPE) %!(WRONGTYPE) %!(WRONGTYPE)",
		},
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	for specIndex, spec := range specs {
		buf.Reset()
		spec.fn()

		if got := buf.String(); got != spec.expOutput {
			t.Errorf("[spec %d] expected to get\n%q\ngot:\n%q", specIndex, spec.expOutput, got)
		}
	}
}

func TestPrintfBeforeSinkIsSet(t *testing.T) {
	defer func() {
		outputSink = nil
	}()

	SetOutputSink(nil)
	Printf("early %s ", "boot")
	Fprintf(ActiveSink(), "output")

	if GetOutputSink() != nil {
		t.Fatal("expected no output sink to be installed")
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if exp, got := "early boot output", buf.String(); got != exp {
		t.Fatalf("expected early output to be replayed as %q; got %q", exp, got)
	}

	Printf("!")
	ActiveSink().Write([]byte("?"))
	if exp, got := "early boot output!?", buf.String(); got != exp {
		t.Fatalf("expected to get %q; got %q", exp, got)
	}
}

func TestFprintf(t *testing.T) {
	var buf bytes.Buffer

	Fprintf(&buf, "%s=%d", "serial_divisor", 2)

	if exp, got := "serial_divisor=2", buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}
}
