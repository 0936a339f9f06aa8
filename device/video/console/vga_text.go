package console

import (
	"io"

	"github.com/seonWKim/blog-os/kernel"
	"github.com/seonWKim/blog-os/kernel/cpu"
	"github.com/seonWKim/blog-os/kernel/kfmt"
	"github.com/seonWKim/blog-os/kernel/mmio"
)

const (
	// DefaultFramebufferAddr is the physical address of the VGA text
	// mode framebuffer.
	DefaultFramebufferAddr uintptr = 0xb8000

	// DefaultColumns and DefaultRows describe VGA mode 0x3.
	DefaultColumns uint32 = 80
	DefaultRows    uint32 = 25

	// CRT controller registers used for toggling the hardware cursor.
	crtcIndexPort      = 0x3d4
	crtcDataPort       = 0x3d5
	crtcCursorStartReg = 0x0a
	crtcCursorDisable  = 1 << 5
)

var (
	// These functions are mocked by tests and are automatically inlined by
	// the compiler.
	portWriteByteFn = cpu.PortWriteByte
	store16Fn       = mmio.Store16
	load16Fn        = mmio.Load16
)

// VgaTextConsole implements an EGA-compatible text console using VGA mode
// 0x3.
//
// Each character in the console framebuffer is represented using two bytes,
// a byte for the character ASCII code and a byte that encodes the foreground
// and background colors (4 bits for each). The framebuffer is scanned out
// by the display controller so every access goes through the mmio package
// instead of plain memory loads and stores.
//
// The default settings for the console are:
//   - light gray text on black background.
//   - space as the clear character
type VgaTextConsole struct {
	width  uint32
	height uint32

	fbAddr uintptr

	defaultColor ColorCode
	clearChar    uint16
}

// NewVgaTextConsole creates an new vga text console with its
// framebuffer located at fbAddr.
func NewVgaTextConsole(columns, rows uint32, fbAddr uintptr) *VgaTextConsole {
	return &VgaTextConsole{
		width:        columns,
		height:       rows,
		fbAddr:       fbAddr,
		clearChar:    uint16(' '),
		defaultColor: NewColorCode(LightGray, Black),
	}
}

// Dimensions returns the console width and height in characters.
func (cons *VgaTextConsole) Dimensions() (uint32, uint32) {
	return cons.width, cons.height
}

// DefaultColor returns the color code used for clearing the console.
func (cons *VgaTextConsole) DefaultColor() ColorCode {
	return cons.defaultColor
}

// cellAddr returns the address of the 0-based cell index.
func (cons *VgaTextConsole) cellAddr(index uint32) uintptr {
	return cons.fbAddr + uintptr(index)<<1
}

// Fill sets the contents of the specified rectangular region to blank cells
// with the requested color. Both x and y coordinates are 1-based. The region
// is clipped to the console dimensions.
func (cons *VgaTextConsole) Fill(x, y, width, height uint32, color ColorCode) {
	var (
		clr                  = uint16(color)<<8 | cons.clearChar
		rowOffset, colOffset uint32
	)

	// clip rectangle
	if x == 0 {
		x = 1
	} else if x >= cons.width {
		x = cons.width
	}

	if y == 0 {
		y = 1
	} else if y >= cons.height {
		y = cons.height
	}

	if x+width-1 > cons.width {
		width = cons.width - x + 1
	}

	if y+height-1 > cons.height {
		height = cons.height - y + 1
	}

	rowOffset = ((y - 1) * cons.width) + (x - 1)
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			store16Fn(cons.cellAddr(colOffset), clr)
		}
	}
}

// Scroll the console contents to the specified direction. The caller
// is responsible for updating (e.g. clear or replace) the contents of
// the region that was scrolled.
func (cons *VgaTextConsole) Scroll(dir ScrollDir, lines uint32) {
	if lines == 0 || lines > cons.height {
		return
	}

	var i uint32
	offset := lines * cons.width

	switch dir {
	case ScrollDirUp:
		for ; i < (cons.height-lines)*cons.width; i++ {
			store16Fn(cons.cellAddr(i), load16Fn(cons.cellAddr(i+offset)))
		}
	case ScrollDirDown:
		for i = cons.height*cons.width - 1; i >= offset; i-- {
			store16Fn(cons.cellAddr(i), load16Fn(cons.cellAddr(i-offset)))
		}
	}
}

// Write a char to the specified location. Writes to coordinates outside the
// console are ignored. Both x and y coordinates are 1-based.
func (cons *VgaTextConsole) Write(ch byte, color ColorCode, x, y uint32) {
	if x < 1 || x > cons.width || y < 1 || y > cons.height {
		return
	}

	store16Fn(cons.cellAddr((y-1)*cons.width+(x-1)), uint16(color)<<8|uint16(ch))
}

// Read returns the char and color code stored at the specified location.
// Reading outside the console returns a blank cell with the default color.
func (cons *VgaTextConsole) Read(x, y uint32) (byte, ColorCode) {
	if x < 1 || x > cons.width || y < 1 || y > cons.height {
		return byte(cons.clearChar), cons.defaultColor
	}

	cell := load16Fn(cons.cellAddr((y-1)*cons.width + (x - 1)))
	return byte(cell), ColorCode(cell >> 8)
}

// DriverName returns the name of this driver.
func (cons *VgaTextConsole) DriverName() string {
	return "vga_text_console"
}

// DriverVersion returns the version of this driver.
func (cons *VgaTextConsole) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit initializes this driver. It hides the blinking hardware cursor
// and clears the framebuffer.
func (cons *VgaTextConsole) DriverInit(w io.Writer) *kernel.Error {
	portWriteByteFn(crtcIndexPort, crtcCursorStartReg)
	portWriteByteFn(crtcDataPort, crtcCursorDisable)

	cons.Fill(1, 1, cons.width, cons.height, cons.defaultColor)

	kfmt.Fprintf(w, "%dx%d text mode, framebuffer at 0x%x\n", cons.width, cons.height, cons.fbAddr)
	return nil
}
