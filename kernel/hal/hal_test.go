package hal

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/seonWKim/blog-os/device"
	"github.com/seonWKim/blog-os/device/tty"
	"github.com/seonWKim/blog-os/device/uart"
	"github.com/seonWKim/blog-os/device/video/console"
	"github.com/seonWKim/blog-os/kernel"
	"github.com/seonWKim/blog-os/kernel/hal/multiboot"
	"github.com/seonWKim/blog-os/kernel/kfmt"
)

func resetHAL(t *testing.T) {
	origProbeLists := probeLists
	devices = managedDevices{}

	// drain output left behind by other tests
	kfmt.SetOutputSink(io.Discard)
	kfmt.SetOutputSink(nil)

	t.Cleanup(func() {
		probeLists = origProbeLists
		cmdLineValueFn = multiboot.CmdLineValue
		devices = managedDevices{}
		kfmt.SetOutputSink(nil)
		kfmt.SetPanicSinks(nil, nil)
	})
}

func TestDetectHardware(t *testing.T) {
	resetHAL(t)

	cons := newMockConsole(80, 25)
	vt := tty.NewVT()
	errBroken := &kernel.Error{Module: "test", Message: "boom"}

	probeLists = [][]device.ProbeFn{
		{
			func() device.Driver { return nil },
			func() device.Driver { return cons },
		},
		{
			func() device.Driver { return vt },
			func() device.Driver { return tty.NewVT() },
		},
		{
			func() device.Driver { return &brokenDriver{err: errBroken} },
		},
	}
	cmdLineValueFn = func(string) ([]byte, bool) { return nil, false }

	DetectHardware()

	if got := ActiveConsole(); got != cons {
		t.Fatalf("expected active console to be the mock console; got %v", got)
	}

	if got := ActiveTTY(); got != vt {
		t.Fatalf("expected active TTY to be the first detected VT; got %v", got)
	}

	if got := len(ActiveDrivers()); got != 3 {
		t.Fatalf("expected 3 active drivers; got %d", got)
	}

	if got := kfmt.OutputSink(); got != vt {
		t.Fatal("expected the active TTY to become the Printf output sink")
	}

	if got := DiagnosticChannel(); got != kfmt.Output {
		t.Fatal("expected diagnostic channel to fall back to the Printf output when no serial port is present")
	}

	if got := panicDisplaySink(); got != vt {
		t.Fatal("expected the attached TTY to receive panic reports")
	}

	expLines := []string{
		"[hal] mock_console(1.2.3): initialized",
		"[hal] vt(0.1.0): initialized",
		"[hal] vt(0.1.0): initialized",
		"[hal] broken(0.0.1): init failed: boom",
	}

	for specIndex, exp := range expLines {
		if got := cons.line(uint32(specIndex + 1)); got != exp {
			t.Errorf("[spec %d] expected console line %d to be %q; got %q", specIndex, specIndex+1, exp, got)
		}
	}
}

func TestDetectHardwareTTYBeforeConsole(t *testing.T) {
	resetHAL(t)

	cons := newMockConsole(80, 25)
	vt := tty.NewVT()

	probeLists = [][]device.ProbeFn{
		{func() device.Driver { return vt }},
		{func() device.Driver { return cons }},
	}
	cmdLineValueFn = func(string) ([]byte, bool) { return nil, false }

	DetectHardware()

	if got := kfmt.OutputSink(); got != vt {
		t.Fatal("expected the TTY to be linked once a console is detected")
	}

	if got := cons.line(1); got != "[hal] vt(0.1.0): initialized" {
		t.Fatalf("expected early output to be replayed on the console; got %q", got)
	}
}

func TestDetectHardwareWithoutConsole(t *testing.T) {
	resetHAL(t)

	vt := tty.NewVT()
	probeLists = [][]device.ProbeFn{
		{func() device.Driver { return vt }},
	}
	cmdLineValueFn = func(string) ([]byte, bool) { return nil, false }

	DetectHardware()

	if got := len(ActiveDrivers()); got != 1 {
		t.Fatalf("expected 1 active driver; got %d", got)
	}

	if got := ActiveTTY(); got != nil {
		t.Fatalf("expected no active TTY without a console; got %v", got)
	}

	if got := kfmt.OutputSink(); got != nil {
		t.Fatalf("expected the Printf output sink to remain unset; got %v", got)
	}

	if got := panicDisplaySink(); got != nil {
		t.Fatalf("expected panic reports to fall back to the Printf sink; got %v", got)
	}

	port := uart.NewPort(0x2f8)
	onDriverInit(port)

	if got := panicDisplaySink(); got != port {
		t.Fatalf("expected panic reports to go to the serial port; got %v", got)
	}
}

func TestDiagnosticChannel(t *testing.T) {
	resetHAL(t)

	if got := DiagnosticChannel(); got != kfmt.Output {
		t.Fatal("expected diagnostic channel to fall back to the Printf output")
	}

	port := uart.NewPort(0x2f8)
	onDriverInit(port)
	onDriverInit(uart.NewPort(0x3e8))

	if got := DiagnosticChannel(); got != port {
		t.Fatalf("expected diagnostic channel to be the first detected serial port; got %v", got)
	}
}

func TestSerialConsoleMirroring(t *testing.T) {
	t.Run("no serial port", func(t *testing.T) {
		resetHAL(t)

		probeLists = nil
		cmdLineValueFn = func(key string) ([]byte, bool) {
			return []byte("serial"), key == "console"
		}

		var buf bytes.Buffer
		kfmt.SetOutputSink(&buf)
		DetectHardware()

		if got := kfmt.OutputSink(); got != &buf {
			t.Fatal("expected output sink to be left untouched without a serial port")
		}
	})

	t.Run("mirror writer", func(t *testing.T) {
		var display, diag bytes.Buffer
		w := &mirrorWriter{primary: &display, secondary: &diag}

		kfmt.Fprintf(w, "Hello World!\n")

		if display.String() != "Hello World!\n" || diag.String() != "Hello World!\n" {
			t.Fatalf("expected output on both sinks; got %q and %q", display.String(), diag.String())
		}
	})
}

func TestPrefixBuffer(t *testing.T) {
	var b prefixBuffer

	kfmt.Fprintf(&b, "[hal] %s(%d.%d.%d): ", "vga_text_console", 0, 0, 1)
	if exp, got := "[hal] vga_text_console(0.0.1): ", string(b.Bytes()); got != exp {
		t.Fatalf("expected %q; got %q", exp, got)
	}

	b.Reset()
	b.Write([]byte(strings.Repeat("x", 100)))
	if got := len(b.Bytes()); got != len(b.data) {
		t.Fatalf("expected overflowing writes to be truncated to %d bytes; got %d", len(b.data), got)
	}
}

type brokenDriver struct {
	err *kernel.Error
}

func (d *brokenDriver) DriverName() string                      { return "broken" }
func (d *brokenDriver) DriverVersion() (uint16, uint16, uint16) { return 0, 0, 1 }
func (d *brokenDriver) DriverInit(_ io.Writer) *kernel.Error    { return d.err }

type mockConsole struct {
	width, height uint32
	chars         []byte
	colors        []console.ColorCode
}

func newMockConsole(w, h uint32) *mockConsole {
	cons := &mockConsole{
		width:  w,
		height: h,
		chars:  make([]byte, w*h),
		colors: make([]console.ColorCode, w*h),
	}
	cons.Fill(1, 1, w, h, cons.DefaultColor())
	return cons
}

// line returns row y with trailing blanks removed.
func (cons *mockConsole) line(y uint32) string {
	row := cons.chars[(y-1)*cons.width : y*cons.width]
	return strings.TrimRight(string(row), " ")
}

func (cons *mockConsole) Dimensions() (uint32, uint32) { return cons.width, cons.height }

func (cons *mockConsole) DefaultColor() console.ColorCode {
	return console.NewColorCode(console.LightGray, console.Black)
}

func (cons *mockConsole) Fill(x, y, width, height uint32, color console.ColorCode) {
	for cy := y; cy < y+height && cy <= cons.height; cy++ {
		for cx := x; cx < x+width && cx <= cons.width; cx++ {
			offset := (cy-1)*cons.width + (cx - 1)
			cons.chars[offset] = ' '
			cons.colors[offset] = color
		}
	}
}

func (cons *mockConsole) Scroll(dir console.ScrollDir, lines uint32) {
	if dir == console.ScrollDirUp {
		copy(cons.chars, cons.chars[lines*cons.width:])
		copy(cons.colors, cons.colors[lines*cons.width:])
	}
}

func (cons *mockConsole) Write(ch byte, color console.ColorCode, x, y uint32) {
	offset := (y-1)*cons.width + (x - 1)
	cons.chars[offset] = ch
	cons.colors[offset] = color
}

func (cons *mockConsole) Read(x, y uint32) (byte, console.ColorCode) {
	offset := (y-1)*cons.width + (x - 1)
	return cons.chars[offset], cons.colors[offset]
}

func (cons *mockConsole) DriverName() string                      { return "mock_console" }
func (cons *mockConsole) DriverVersion() (uint16, uint16, uint16) { return 1, 2, 3 }
func (cons *mockConsole) DriverInit(_ io.Writer) *kernel.Error    { return nil }
