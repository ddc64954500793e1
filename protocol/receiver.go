package protocol

import "fmt"

// RxState is the position of the receiver inside a frame
type RxState uint8

const (
	WaitLength  RxState = iota // discarding preamble bytes
	WaitCommand                // length seen
	WaitData                   // accumulating payload
	WaitCrcHi
	WaitCrcLo
	Done
)

func (s RxState) String() string {
	switch s {
	case WaitLength:
		return "wait_length"
	case WaitCommand:
		return "wait_command"
	case WaitData:
		return "wait_data"
	case WaitCrcHi:
		return "wait_crc_hi"
	case WaitCrcLo:
		return "wait_crc_lo"
	case Done:
		return "done"
	}
	return "invalid"
}

// Receiver reduces a byte stream into one Frame.
//
// A preamble byte is only skipped while waiting for the length; inside a
// frame it is ordinary data. The receiver never writes past the data
// buffer: a length that implies more than MaxDataSize data bytes fails
// with ErrOverflow when the first excess byte arrives.
type Receiver struct {
	state RxState
	index int
	frame Frame
}

// Reset prepares the receiver for a new frame
func (r *Receiver) Reset() {
	*r = Receiver{}
}

// State returns the current receive state
func (r *Receiver) State() RxState {
	return r.state
}

// Frame returns the frame being assembled. It is complete once Push
// reported done.
func (r *Receiver) Frame() *Frame {
	return &r.frame
}

// Push feeds one byte. It reports true once the CRC low byte has been
// consumed.
func (r *Receiver) Push(b byte) (bool, error) {
	switch r.state {
	case WaitLength:
		if b != Preamble {
			r.frame.Length = b
			r.state = WaitCommand
		}
	case WaitCommand:
		r.frame.Command = Command(b)
		if r.frame.Length > HeaderSize {
			r.state = WaitData
		} else {
			r.state = WaitCrcHi
		}
	case WaitData:
		if r.index >= MaxDataSize {
			return false, fmt.Errorf("%w: length %d declares more than %d data bytes",
				ErrOverflow, r.frame.Length, MaxDataSize)
		}
		r.frame.Data[r.index] = b
		r.index++
		if r.index >= int(r.frame.Length)-HeaderSize {
			r.state = WaitCrcHi
		}
	case WaitCrcHi:
		r.frame.CRC = uint16(b) << 8
		r.state = WaitCrcLo
	case WaitCrcLo:
		r.frame.CRC |= uint16(b)
		r.state = Done
		return true, nil
	case Done:
		return true, nil
	}
	return false, nil
}

// ReadByte polls src for one byte, giving up after timeout polls. Every
// unsuccessful poll costs one tick spent in WaitForReadable.
func ReadByte(src ByteSource, timeout uint32) (byte, error) {
	for ticks := timeout; ticks > 0; ticks-- {
		if b, ok := src.TryReadByte(); ok {
			return b, nil
		}
		src.WaitForReadable()
	}
	return 0, ErrTimeout
}

// Receive reads one frame from src. Each byte gets its own budget of
// timeout ticks. The frame is returned unvalidated; see Validate.
func Receive(src ByteSource, timeout uint32) (*Frame, error) {
	var r Receiver
	for {
		b, err := ReadByte(src, timeout)
		if err != nil {
			return nil, fmt.Errorf("%w (state %s)", err, r.state)
		}
		done, err := r.Push(b)
		if err != nil {
			return nil, err
		}
		if done {
			frame := r.frame
			return &frame, nil
		}
	}
}
