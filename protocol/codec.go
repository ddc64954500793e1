package protocol

import "fmt"

// EncodeFrame writes one complete frame for command and payload into dst:
// preamble, length, command, payload and the big-endian CRC over
// [length .. last payload byte]. On error dst is left untouched.
func EncodeFrame(dst *FrameBuffer, cmd Command, payload []byte, crc CRCFunc) error {
	size := FrameOverhead + len(payload)
	if size > MaxTxBufferSize-dst.Len() {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, size, MaxTxBufferSize)
	}

	dst.Output(Preamble)
	cursor := dst.Len()
	dst.Output(uint8(HeaderSize+len(payload)), uint8(cmd))
	dst.Output(payload...)

	sum := crcOrDefault(crc)(dst.DataSince(cursor))
	dst.Output(uint8((sum&0xFF00)>>8), uint8(sum&0xFF))
	return nil
}

// Encode returns the wire bytes of one frame
func Encode(cmd Command, payload []byte, crc CRCFunc) ([]byte, error) {
	var fb FrameBuffer
	if err := EncodeFrame(&fb, cmd, payload, crc); err != nil {
		return nil, err
	}
	out := make([]byte, fb.Len())
	copy(out, fb.Bytes())
	return out, nil
}

// Validate checks a received frame's CRC against the recomputed value
func Validate(f *Frame, crc CRCFunc) error {
	if f.Length < HeaderSize {
		return fmt.Errorf("%w: length %d below header size", ErrMalformed, f.Length)
	}
	if actual := crcOrDefault(crc)(f.covered()); actual != f.CRC {
		return fmt.Errorf("%w: crc 0x%04X, computed 0x%04X", ErrMalformed, f.CRC, actual)
	}
	return nil
}

// Decode parses and validates a single frame from a byte slice.
// Leading preamble bytes are skipped; trailing bytes are ignored.
func Decode(data []byte, crc CRCFunc) (*Frame, error) {
	frame, err := Receive(NewSliceSource(data), 1)
	if err != nil {
		return nil, err
	}
	if err := Validate(frame, crc); err != nil {
		return nil, err
	}
	return frame, nil
}
