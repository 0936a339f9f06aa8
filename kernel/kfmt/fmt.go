// Package kfmt implements the formatted output facilities that the kernel
// can use before (and without) a memory allocator. It also hosts the kernel
// panic policy.
package kfmt

import (
	"io"
	"unsafe"

	"github.com/seonWKim/blog-os/kernel"
)

// numBufSize defines the buffer size for formatting numbers. It also caps
// the padding that can be requested for numeric verbs.
const numBufSize = 32

var (
	errMissingArg = []byte("%!(MISSING)")
	errBadType    = []byte("%!(BADTYPE)")
	errNoVerb     = []byte("%!(NOVERB)")
	errExtraArg   = []byte("%!(EXTRA)")
	trueValue     = []byte("true")
	falseValue    = []byte("false")
	digits        = "0123456789abcdef"

	numBuf  [numBufSize]byte
	oneByte [1]byte

	// earlyBuffer captures Printf output that is emitted before an output
	// sink has been set.
	earlyBuffer ringBuffer

	// outputSink is where Printf sends its output. If nil, output is
	// redirected to earlyBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and flushes
// any output accumulated in the early buffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		earlyBuffer.WriteTo(w)
	}
}

// OutputSink returns the current target for calls to Printf.
func OutputSink() io.Writer {
	return outputSink
}

// outputWriter forwards writes to the output sink that is active at the time
// of each write.
type outputWriter struct{}

func (outputWriter) Write(p []byte) (int, error) {
	doWrite(outputSink, p)
	return len(p), nil
}

// Output is an io.Writer that follows SetOutputSink. Writes issued before a
// sink is set end up in the early buffer.
var Output io.Writer = outputWriter{}

// Printf provides a minimal Printf implementation that can be used before
// the Go runtime has been properly initialized. It does not allocate memory.
//
// The following verbs are supported:
//	%s  string, []byte or error
//	%d  integer in base 10, left-padded with spaces
//	%x  integer in base 16 (lower-case), left-padded with zeroes
//	%o  integer in base 8, left-padded with zeroes
//	%c  a single byte
//	%t  "true" or "false"
//	%%  a literal percent sign
//
// A decimal width may precede the verb. Strings and base-10 integers are
// padded with spaces, base-8 and base-16 integers with zeroes.
//
// Pointers (%p) are not supported as printing them requires reflect which
// in turn requires the allocator.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex int
		width    int
		verb     byte
	)

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			writeByte(w, format[i])
			continue
		}

		width = 0
		for i++; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		if i == len(format) {
			doWrite(w, errNoVerb)
			break
		}

		switch verb = format[i]; verb {
		case '%':
			writeByte(w, '%')
			continue
		case 'd', 'x', 'o', 's', 'c', 't':
		default:
			doWrite(w, errNoVerb)
			continue
		}

		if argIndex >= len(args) {
			doWrite(w, errMissingArg)
			continue
		}

		arg := args[argIndex]
		argIndex++

		switch verb {
		case 'd':
			fmtInt(w, arg, 10, width)
		case 'x':
			fmtInt(w, arg, 16, width)
		case 'o':
			fmtInt(w, arg, 8, width)
		case 's':
			fmtString(w, arg, width)
		case 'c':
			fmtChar(w, arg)
		case 't':
			fmtBool(w, arg)
		}
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

func fmtBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errBadType)
	case b:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

func fmtChar(w io.Writer, v interface{}) {
	switch ch := v.(type) {
	case byte:
		writeByte(w, ch)
	case rune:
		if ch > 0xff {
			ch = '?'
		}
		writeByte(w, byte(ch))
	default:
		doWrite(w, errBadType)
	}
}

// fmtString prints a string, byte slice or error value, left-padding it with
// spaces up to width.
func fmtString(w io.Writer, v interface{}, width int) {
	var str string

	switch val := v.(type) {
	case string:
		str = val
	case []byte:
		writeRepeat(w, ' ', width-len(val))
		doWrite(w, val)
		return
	case *kernel.Error:
		if val == nil {
			str = "<nil>"
		} else {
			str = val.Message
		}
	case error:
		str = val.Error()
	default:
		doWrite(w, errBadType)
		return
	}

	writeRepeat(w, ' ', width-len(str))

	// Slicing the string into a []byte would allocate; emit it one byte at
	// a time instead.
	for i := 0; i < len(str); i++ {
		writeByte(w, str[i])
	}
}

// fmtInt prints v in the requested base. All built-in integer types are
// supported. Negative values get a leading '-' which, for zero-padded
// output, precedes the padding.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		uval uint64
		neg  bool
	)

	switch val := v.(type) {
	case uint8:
		uval = uint64(val)
	case uint16:
		uval = uint64(val)
	case uint32:
		uval = uint64(val)
	case uint64:
		uval = val
	case uint:
		uval = uint64(val)
	case uintptr:
		uval = uint64(val)
	case int8:
		neg, uval = val < 0, absInt(int64(val))
	case int16:
		neg, uval = val < 0, absInt(int64(val))
	case int32:
		neg, uval = val < 0, absInt(int64(val))
	case int64:
		neg, uval = val < 0, absInt(val)
	case int:
		neg, uval = val < 0, absInt(int64(val))
	default:
		doWrite(w, errBadType)
		return
	}

	pos := numBufSize
	for {
		pos--
		numBuf[pos] = digits[uval%base]
		uval /= base
		if uval == 0 || pos == 0 {
			break
		}
	}

	if width > numBufSize {
		width = numBufSize
	}

	padLen := width - (numBufSize - pos)
	if neg {
		padLen--
	}

	if base == 10 {
		writeRepeat(w, ' ', padLen)
		if neg {
			writeByte(w, '-')
		}
	} else {
		if neg {
			writeByte(w, '-')
		}
		writeRepeat(w, '0', padLen)
	}

	doWrite(w, numBuf[pos:])
}

func absInt(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

func writeRepeat(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

func writeByte(w io.Writer, ch byte) {
	oneByte[0] = ch
	doWrite(w, oneByte[:])
}

// doWrite hides p from the compiler's escape analysis. Without this, the
// compiler cannot prove that p does not escape through the yet unknown
// io.Writer and moves it to the heap, which crashes the kernel when no
// allocator is available.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
	} else {
		earlyBuffer.Write(p)
	}
}

// noEscape hides a pointer from escape analysis. This function is copied over
// from runtime/stubs.go
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
