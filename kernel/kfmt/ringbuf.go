package kfmt

import "io"

// ringBufferSize is large enough to hold a full 80x25 text screen. It must
// always be a power of 2.
const ringBufferSize = 2048

// ringBuffer keeps the most recent ringBufferSize-1 bytes written to it. Once
// full, new writes overwrite the oldest data.
type ringBuffer struct {
	buffer         [ringBufferSize]byte
	rIndex, wIndex int
}

// Write writes len(p) bytes from p to the ringBuffer.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) & (ringBufferSize - 1)
		if rb.wIndex == rb.rIndex {
			// drop the oldest byte
			rb.rIndex = (rb.rIndex + 1) & (ringBufferSize - 1)
		}
	}

	return len(p), nil
}

// Read reads up to len(p) bytes into p. It returns io.EOF once the buffer is
// drained.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.rIndex == rb.wIndex {
		return 0, io.EOF
	}

	var n int
	for ; n < len(p) && rb.rIndex != rb.wIndex; n++ {
		p[n] = rb.buffer[rb.rIndex]
		rb.rIndex = (rb.rIndex + 1) & (ringBufferSize - 1)
	}

	return n, nil
}

// WriteTo implements io.WriterTo. It drains the buffer into w using at most
// two writes so that no intermediate copy is needed.
func (rb *ringBuffer) WriteTo(w io.Writer) (int64, error) {
	var n int64
	if w == nil {
		return 0, nil
	}

	for rb.rIndex != rb.wIndex {
		end := rb.wIndex
		if end < rb.rIndex {
			end = ringBufferSize
		}

		doWrite(w, rb.buffer[rb.rIndex:end])
		n += int64(end - rb.rIndex)
		rb.rIndex = end & (ringBufferSize - 1)
	}

	return n, nil
}

// Len returns the number of unread bytes.
func (rb *ringBuffer) Len() int {
	return (rb.wIndex - rb.rIndex) & (ringBufferSize - 1)
}
