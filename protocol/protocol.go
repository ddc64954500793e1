// Package protocol implements the RSCP (Roller Shutter Control Panel)
// framing protocol used between a master CPU and a slave peripheral.
//
// Wire layout of one frame:
//
//	[0xAA][length][command][data: length-2 bytes][crc_hi][crc_lo]
//
// length counts itself, the command byte and the data bytes. The CRC is
// computed over the same range and sent big-endian. The preamble is a
// synchronization marker only.
package protocol

// Version represents the RSCP implementation version
const Version = "0.1.0"

// Protocol constants
const (
	Preamble = 0xAA // Synchronization byte preceding every frame

	MaxTxBufferSize = 64 // Maximum frame size on the wire
	MaxDataSize     = 26 // Receive-side data capacity (32 byte I2C buffer minus overhead)

	HeaderSize  = 2 // length + command
	CRCSize     = 2
	PreambleLen = 1

	// Bytes a frame occupies on the wire besides its data
	FrameOverhead = PreambleLen + HeaderSize + CRCSize

	// ProtocolVersion is reported in the CPU query reply
	ProtocolVersion = 0x01
	// SWVersion is reported in the CPU query reply
	SWVersion = 0x01

	// FrameRecordSize is the size of the frame record (length, command,
	// data, crc) and is advertised as the maximum packet length.
	FrameRecordSize = HeaderSize + MaxDataSize + CRCSize
)

// Frame is one decoded RSCP message. It lives for a single transaction.
type Frame struct {
	Length  uint8
	Command Command
	Data    [MaxDataSize]byte
	CRC     uint16
}

// DataLen returns the number of data bytes declared by Length,
// clamped to the data buffer.
func (f *Frame) DataLen() int {
	if f.Length <= HeaderSize {
		return 0
	}
	n := int(f.Length) - HeaderSize
	if n > MaxDataSize {
		n = MaxDataSize
	}
	return n
}

// Payload returns the data bytes of the frame
func (f *Frame) Payload() []byte {
	return f.Data[:f.DataLen()]
}

// covered returns the byte range protected by the CRC:
// length, command and data, truncated to Length bytes.
func (f *Frame) covered() []byte {
	var buf [HeaderSize + MaxDataSize]byte
	buf[0] = f.Length
	buf[1] = uint8(f.Command)
	copy(buf[HeaderSize:], f.Data[:])

	n := int(f.Length)
	if n > len(buf) {
		n = len(buf)
	}
	return buf[:n]
}
