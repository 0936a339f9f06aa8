package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line.
type PrefixWriter struct {
	// A writer where all writes get sent to.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	midLine bool
}

// Write writes len(p) bytes from p to the underlying data stream. The prefix
// is emitted lazily, right before the first byte of each line, so a trailing
// newline does not produce a dangling prefix. The injected prefix is not
// included in the number of written bytes.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written int

	for len(p) > 0 {
		if !w.midLine {
			if _, err := w.Sink.Write(w.Prefix); err != nil {
				return written, err
			}
			w.midLine = true
		}

		chunkLen := len(p)
		for i, b := range p {
			if b == '\n' {
				chunkLen = i + 1
				w.midLine = false
				break
			}
		}

		n, err := w.Sink.Write(p[:chunkLen])
		written += n
		if err != nil {
			return written, err
		}

		p = p[chunkLen:]
	}

	return written, nil
}
