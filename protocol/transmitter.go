package protocol

import "fmt"

// Transmitter serializes frames and hands them to a SlotSender.
// It keeps no buffer between calls.
type Transmitter struct {
	Out      SlotSender
	CRC      CRCFunc
	Observer Observer
}

// NewTransmitter creates a Transmitter using the default CRC
func NewTransmitter(out SlotSender) *Transmitter {
	return &Transmitter{Out: out}
}

// Send encodes cmd and payload into one frame and delivers it in a single
// SendSlot call. Any failure is reported as ErrTxFailed.
func (t *Transmitter) Send(cmd Command, payload []byte) error {
	var fb FrameBuffer
	if err := EncodeFrame(&fb, cmd, payload, t.CRC); err != nil {
		return fmt.Errorf("%w: %w", ErrTxFailed, err)
	}

	if err := t.Out.SendSlot(fb.Bytes()); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTxFailed, cmd, err)
	}

	if t.Observer != nil {
		t.Observer.FrameSent(cmd, fb.Len())
	}
	return nil
}

// SendStatus sends an ack/fail frame carrying a single outcome code
func (t *Transmitter) SendStatus(cmd Command, code Code) error {
	return t.Send(cmd, []byte{code.Byte()})
}
