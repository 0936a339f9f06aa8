package console

// ScrollDir defines a scroll direction.
type ScrollDir uint8

// The supported list of scroll directions for the console Scroll() calls.
const (
	ScrollDirUp ScrollDir = iota
	ScrollDirDown
)

// The Device interface is implemented by objects that can function as system
// consoles.
type Device interface {
	// Dimensions returns the width and height of the console in
	// characters.
	Dimensions() (uint32, uint32)

	// DefaultColor returns the color code used for clearing the console.
	DefaultColor() ColorCode

	// Fill sets the contents of the specified rectangular region to blank
	// cells using the requested color. Both x and y coordinates are
	// 1-based (top-left corner has coordinates 1,1).
	Fill(x, y, width, height uint32, color ColorCode)

	// Scroll the console contents to the specified direction. The caller
	// is responsible for updating (e.g. clear or replace) the contents of
	// the region that was scrolled.
	Scroll(dir ScrollDir, lines uint32)

	// Write a char to the specified location. Both x and y coordinates are
	// 1-based (top-left corner has coordinates 1,1).
	Write(ch byte, color ColorCode, x, y uint32)

	// Read returns the char and color stored at the specified location.
	Read(x, y uint32) (byte, ColorCode)
}
