package kmain

import (
	"bytes"
	"strings"
	"testing"

	"uos/device/output"
	"uos/device/sim"
	"uos/kernel"
	"uos/kernel/cpu"
	"uos/kernel/hal"
	"uos/kernel/kfmt"
)

func simPlatform(m *sim.Machine) hal.Platform {
	return hal.Platform{
		Bus:         m.Bus,
		Framebuffer: m.Framebuffer,
		Columns:     m.Columns,
		Rows:        m.Rows,
	}
}

func TestKmain(t *testing.T) {
	defer func() {
		haltFn = cpu.Halt
		panicFn = kfmt.Panic
		platformFn = hal.HWPlatform
		kfmt.SetOutputSink(nil)
		output.SetDefault(nil)
	}()

	specs := []struct {
		cmdLine   string
		expHalt   bool
		expPanic  bool
		expScreen bool
	}{
		{"", true, false, true},
		{"console=off kfmt=com1", true, false, false},
		{"console=off kfmt=console", false, true, false},
	}

	for specIndex, spec := range specs {
		var (
			m         = sim.NewMachine(80, 25)
			halted    bool
			panicErr  interface{}
			comOutput bytes.Buffer
		)

		m.COM1.Output = &comOutput
		kfmt.SetOutputSink(&bytes.Buffer{})
		haltFn = func() { halted = true }
		panicFn = func(e interface{}) { panicErr = e }
		platformFn = func() hal.Platform { return simPlatform(m) }

		Kmain(spec.cmdLine)

		if halted != spec.expHalt {
			t.Errorf("[spec %d] expected halted=%t; got %t", specIndex, spec.expHalt, halted)
		}

		if (panicErr != nil) != spec.expPanic {
			t.Errorf("[spec %d] expected panic=%t; got %v", specIndex, spec.expPanic, panicErr)
		}
		if spec.expPanic {
			if err, ok := panicErr.(*kernel.Error); !ok || err.Module != "hal" {
				t.Errorf("[spec %d] expected a hal error; got %v", specIndex, panicErr)
			}
			continue
		}

		if !strings.HasSuffix(comOutput.String(), SerialBanner) {
			t.Errorf("[spec %d] expected COM1 output to end with the serial banner; got %q", specIndex, comOutput.String())
		}

		if got := m.Row(0)[:6] == "Hello."; got != spec.expScreen {
			t.Errorf("[spec %d] expected console banner=%t; row 0: %q", specIndex, spec.expScreen, m.Row(0))
		}
	}
}

func TestRunBannerLayout(t *testing.T) {
	defer func() {
		kfmt.SetOutputSink(nil)
		output.SetDefault(nil)
	}()

	m := sim.NewMachine(80, 25)
	kfmt.SetOutputSink(&bytes.Buffer{})

	if err := Run(simPlatform(m), ""); err != nil {
		t.Fatal(err)
	}

	if got := m.Row(0); got != "Hello."+strings.Repeat(" ", 74) {
		t.Fatalf("unexpected row 0: %q", got)
	}
	if got := m.Row(1); got != strings.Repeat(" ", 80) {
		t.Fatalf("unexpected row 1: %q", got)
	}
	if got := m.Row(2); got != "Welcome to uOS."+strings.Repeat(" ", 65) {
		t.Fatalf("unexpected row 2: %q", got)
	}
	for i := 0; i < 6; i++ {
		if m.Attr(i) != 0x0f {
			t.Fatalf("expected cell %d to be white on black; got 0x%x", i, m.Attr(i))
		}
	}
	if m.CRTC.Cursor() != 175 {
		t.Fatalf("expected hardware cursor at 175; got %d", m.CRTC.Cursor())
	}

	// The serial banner follows the init sequence on COM1.
	writes := m.Bus.Writes(0x3f8, 0x3fa, 0x3fb, 0x3fc)
	var payload []byte
	for _, tx := range writes[6:] {
		if tx.Port != 0x3f8 {
			t.Fatalf("unexpected register write after init: %v", tx)
		}
		payload = append(payload, tx.Value)
	}
	if string(payload) != SerialBanner {
		t.Fatalf("expected COM1 payload %q; got %q", SerialBanner, payload)
	}
}
