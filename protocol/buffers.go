package protocol

// SliceSource implements ByteSource over a fixed byte slice.
// Polls past the end report no byte; WaitForReadable only counts.
type SliceSource struct {
	data  []byte
	Polls int
	Waits int
}

// NewSliceSource creates a new SliceSource
func NewSliceSource(data []byte) *SliceSource {
	return &SliceSource{data: data}
}

func (s *SliceSource) TryReadByte() (byte, bool) {
	s.Polls++
	if len(s.data) == 0 {
		return 0, false
	}
	b := s.data[0]
	s.data = s.data[1:]
	return b, true
}

func (s *SliceSource) WaitForReadable() {
	s.Waits++
}

// Available returns the number of unread bytes
func (s *SliceSource) Available() int {
	return len(s.data)
}

// FrameBuffer is a fixed-size transmit buffer holding one frame
type FrameBuffer struct {
	buf [MaxTxBufferSize]byte
	pos int
}

// Output appends data, returning false if it does not fit.
// Nothing is written on failure.
func (f *FrameBuffer) Output(data ...byte) bool {
	if f.pos+len(data) > len(f.buf) {
		return false
	}
	f.pos += copy(f.buf[f.pos:], data)
	return true
}

// Len returns the number of bytes written
func (f *FrameBuffer) Len() int {
	return f.pos
}

// DataSince returns data from a specific position to current
func (f *FrameBuffer) DataSince(pos int) []byte {
	if pos > f.pos {
		return nil
	}
	return f.buf[pos:f.pos]
}

// Bytes returns the accumulated frame
func (f *FrameBuffer) Bytes() []byte {
	return f.buf[:f.pos]
}

// Reset clears the buffer
func (f *FrameBuffer) Reset() {
	f.pos = 0
}

// FifoBuffer is a circular byte queue used by links to hold received
// bytes until the receiver polls them.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity.
// One slot stays unused to tell full from empty.
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends data to the FIFO buffer, returning how much fit
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		nextWrite := (f.write + 1) % f.size
		if nextWrite == f.read {
			// Buffer full
			break
		}
		f.buf[f.write] = b
		f.write = nextWrite
		written++
	}
	return written
}

// PopByte removes and returns the oldest byte
func (f *FifoBuffer) PopByte() (byte, bool) {
	if f.read == f.write {
		return 0, false
	}
	b := f.buf[f.read]
	f.read = (f.read + 1) % f.size
	return b, true
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return f.size - f.Available() - 1
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read == f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
