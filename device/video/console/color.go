package console

// Color is one of the 16 colors supported by EGA-compatible text consoles.
type Color uint8

// The standard EGA palette.
const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	Pink
	Yellow
	White
)

// ColorCode packs a foreground color in its low nibble and a background color
// in its high nibble. It is the attribute byte stored next to each character
// in the framebuffer.
type ColorCode uint8

// NewColorCode returns the ColorCode for the given fg/bg pair.
func NewColorCode(fg, bg Color) ColorCode {
	return ColorCode((uint8(bg)&0xF)<<4 | uint8(fg)&0xF)
}

// Foreground returns the foreground color.
func (c ColorCode) Foreground() Color {
	return Color(c & 0xF)
}

// Background returns the background color.
func (c ColorCode) Background() Color {
	return Color(c >> 4)
}
