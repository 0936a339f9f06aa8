package tty

import (
	"io"

	"github.com/seonWKim/blog-os/device/video/console"
	"github.com/seonWKim/blog-os/kernel"
	"github.com/seonWKim/blog-os/kernel/sync"
)

// PlaceholderGlyph is printed in place of any byte that the text mode
// character set cannot display.
const PlaceholderGlyph = 0xfe

// VT implements a terminal on top of a text console. Printable ASCII bytes
// (0x20 to 0x7e) are written at the cursor position, '\n' moves the cursor
// to the start of the next line and any other byte is rendered as
// PlaceholderGlyph.
//
// Lines wrap when the cursor passes the last column. The wrap is deferred
// until the next byte arrives so that filling the very last cell of the
// console does not scroll it; the following printable byte (or newline)
// scrolls the console up by exactly one line and clears the last line using
// the active color.
type VT struct {
	lock sync.Spinlock
	cons console.Device

	width  uint32
	height uint32

	cursorX uint32
	cursorY uint32

	// wrapPending is set after a write to the last column.
	wrapPending bool

	color console.ColorCode
}

// NewVT creates a new virtual terminal device.
func NewVT() *VT {
	return &VT{
		cursorX: 1,
		cursorY: 1,
	}
}

// AttachTo connects a TTY to a console instance and resets the cursor to
// the top-left corner.
func (t *VT) AttachTo(cons console.Device) {
	if cons == nil {
		return
	}

	t.lock.Acquire()
	defer t.lock.Release()

	t.cons = cons
	t.width, t.height = cons.Dimensions()
	t.color = cons.DefaultColor()
	t.cursorX, t.cursorY = 1, 1
	t.wrapPending = false
}

// Color returns the color code applied by Write.
func (t *VT) Color() console.ColorCode {
	return t.color
}

// SetColor sets the color code applied by Write.
func (t *VT) SetColor(color console.ColorCode) {
	t.lock.Acquire()
	t.color = color
	t.lock.Release()
}

// CursorPosition returns the current cursor position.
func (t *VT) CursorPosition() (uint32, uint32) {
	return t.cursorX, t.cursorY
}

// SetCursorPosition sets the current cursor position to (x,y).
func (t *VT) SetCursorPosition(x, y uint32) {
	if t.cons == nil {
		return
	}

	t.lock.Acquire()
	defer t.lock.Release()

	if x < 1 {
		x = 1
	} else if x > t.width {
		x = t.width
	}

	if y < 1 {
		y = 1
	} else if y > t.height {
		y = t.height
	}

	t.cursorX, t.cursorY = x, y
	t.wrapPending = false
}

// Clear blanks the console using the active color and moves the cursor to
// the top-left corner.
func (t *VT) Clear() {
	if t.cons == nil {
		return
	}

	t.lock.Acquire()
	defer t.lock.Release()

	t.cons.Fill(1, 1, t.width, t.height, t.color)
	t.cursorX, t.cursorY = 1, 1
	t.wrapPending = false
}

// Write implements io.Writer using the active color.
func (t *VT) Write(data []byte) (int, error) {
	if t.cons == nil {
		return 0, io.ErrClosedPipe
	}

	t.lock.Acquire()
	defer t.lock.Release()

	for _, b := range data {
		t.writeByte(b, t.color)
	}

	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (t *VT) WriteByte(b byte) error {
	if t.cons == nil {
		return io.ErrClosedPipe
	}

	t.lock.Acquire()
	t.writeByte(b, t.color)
	t.lock.Release()

	return nil
}

// WriteText writes s using the supplied color code without changing the
// active color.
func (t *VT) WriteText(s string, color console.ColorCode) (int, error) {
	if t.cons == nil {
		return 0, io.ErrClosedPipe
	}

	t.lock.Acquire()
	defer t.lock.Release()

	for i := 0; i < len(s); i++ {
		t.writeByte(s[i], color)
	}

	return len(s), nil
}

func (t *VT) writeByte(b byte, color console.ColorCode) {
	if b == '\n' {
		t.lf(color)
		return
	}

	if b < 0x20 || b > 0x7e {
		b = PlaceholderGlyph
	}

	if t.wrapPending {
		t.lf(color)
	}

	t.cons.Write(b, color, t.cursorX, t.cursorY)
	if t.cursorX < t.width {
		t.cursorX++
	} else {
		t.wrapPending = true
	}
}

// lf moves the cursor to the start of the next line, scrolling the console
// contents up and clearing the last line with color if the cursor is
// already on the last line.
func (t *VT) lf(color console.ColorCode) {
	t.cursorX = 1
	t.wrapPending = false

	if t.cursorY < t.height {
		t.cursorY++
		return
	}

	t.cons.Scroll(console.ScrollDirUp, 1)
	t.cons.Fill(1, t.height, t.width, 1, color)
}

// DriverName returns the name of this driver.
func (t *VT) DriverName() string {
	return "vt"
}

// DriverVersion returns the version of this driver.
func (t *VT) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit initializes this driver.
func (t *VT) DriverInit(_ io.Writer) *kernel.Error { return nil }
