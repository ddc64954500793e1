package protocol

import (
	"encoding/binary"
	"fmt"
)

// Payload record sizes in bytes
const (
	ShutterActionSize   = 3
	ShutterPositionSize = 2
	SwitchRelaySize     = 1
	SwitchButtonSize    = 1
	BuzzerActionSize    = 9
	CPUQueryReplySize   = 8
)

// Shutter actions
const (
	ShutterStop  = 0x01
	ShutterUp    = 0x02
	ShutterDown  = 0x03
	ShutterOpen  = 0x04
	ShutterClose = 0x05
)

// Switch relay and button states
const (
	SwitchOff = 0x01
	SwitchOn  = 0x02
)

// Buzzer actions
const (
	BuzzerOn  = 0x01
	BuzzerOff = 0x02
)

// CPU types reported in the CPU query reply
const (
	CPUTypeATmega328P8MHz = 0x01
	CPUTypeESP32WROOM02D  = 0x02
)

// Multi-byte record fields use the byte order of the reference MCU.
var recordOrder = binary.LittleEndian

func shortRecord(name string, want, got int) error {
	return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrMalformed, name, want, got)
}

// ShutterAction is the argument of CmdSetShutterAction.
//
//	[0] shutter  [1] action  [2] retries
type ShutterAction struct {
	Shutter uint8
	Action  uint8
	Retries uint8
}

func (r ShutterAction) MarshalBinary() ([]byte, error) {
	return []byte{r.Shutter, r.Action, r.Retries}, nil
}

func (r *ShutterAction) UnmarshalBinary(b []byte) error {
	if len(b) < ShutterActionSize {
		return shortRecord("shutter action", ShutterActionSize, len(b))
	}
	r.Shutter, r.Action, r.Retries = b[0], b[1], b[2]
	return nil
}

// ShutterPosition is the argument of CmdSetShutterPosition and the reply
// of CmdGetShutterPosition. Position is a percentage.
//
//	[0] shutter  [1] position
type ShutterPosition struct {
	Shutter  uint8
	Position uint8
}

func (r ShutterPosition) MarshalBinary() ([]byte, error) {
	return []byte{r.Shutter, r.Position}, nil
}

func (r *ShutterPosition) UnmarshalBinary(b []byte) error {
	if len(b) < ShutterPositionSize {
		return shortRecord("shutter position", ShutterPositionSize, len(b))
	}
	r.Shutter, r.Position = b[0], b[1]
	return nil
}

// SwitchRelay is the argument of CmdSetSwitchRelay and the reply of
// CmdGetSwitchRelay.
type SwitchRelay struct {
	Status uint8
}

func (r SwitchRelay) MarshalBinary() ([]byte, error) {
	return []byte{r.Status}, nil
}

func (r *SwitchRelay) UnmarshalBinary(b []byte) error {
	if len(b) < SwitchRelaySize {
		return shortRecord("switch relay", SwitchRelaySize, len(b))
	}
	r.Status = b[0]
	return nil
}

// SwitchButton is the reply of CmdGetSwitchButton
type SwitchButton struct {
	Status uint8
}

func (r SwitchButton) MarshalBinary() ([]byte, error) {
	return []byte{r.Status}, nil
}

func (r *SwitchButton) UnmarshalBinary(b []byte) error {
	if len(b) < SwitchButtonSize {
		return shortRecord("switch button", SwitchButtonSize, len(b))
	}
	r.Status = b[0]
	return nil
}

// BuzzerAction is the argument of CmdSetBuzzerAction.
//
//	[0] action  [1:5] volume  [5:9] duration in ms
type BuzzerAction struct {
	Action     uint8
	Volume     uint32
	DurationMS uint32
}

func (r BuzzerAction) MarshalBinary() ([]byte, error) {
	b := make([]byte, BuzzerActionSize)
	b[0] = r.Action
	recordOrder.PutUint32(b[1:5], r.Volume)
	recordOrder.PutUint32(b[5:9], r.DurationMS)
	return b, nil
}

func (r *BuzzerAction) UnmarshalBinary(b []byte) error {
	if len(b) < BuzzerActionSize {
		return shortRecord("buzzer action", BuzzerActionSize, len(b))
	}
	r.Action = b[0]
	r.Volume = recordOrder.Uint32(b[1:5])
	r.DurationMS = recordOrder.Uint32(b[5:9])
	return nil
}

// CPUQueryReply is the reply of CmdCPUQuery.
//
//	[0:2] flags  [2] crc type  [3] protocol version  [4] cpu type
//	[5] sw version  [6:8] packet max length
type CPUQueryReply struct {
	Flags           uint16
	CRCType         uint8
	ProtocolVersion uint8
	CPUType         uint8
	SWVersion       uint8
	PacketMaxLen    uint16
}

// DefaultCPUQueryReply returns the identity reported by a slave of the
// given CPU type.
func DefaultCPUQueryReply(cpuType uint8) CPUQueryReply {
	return CPUQueryReply{
		Flags:           0,
		CRCType:         CRCTypeModbus16,
		ProtocolVersion: ProtocolVersion,
		CPUType:         cpuType,
		SWVersion:       SWVersion,
		PacketMaxLen:    FrameRecordSize,
	}
}

func (r CPUQueryReply) MarshalBinary() ([]byte, error) {
	b := make([]byte, CPUQueryReplySize)
	recordOrder.PutUint16(b[0:2], r.Flags)
	b[2] = r.CRCType
	b[3] = r.ProtocolVersion
	b[4] = r.CPUType
	b[5] = r.SWVersion
	recordOrder.PutUint16(b[6:8], r.PacketMaxLen)
	return b, nil
}

func (r *CPUQueryReply) UnmarshalBinary(b []byte) error {
	if len(b) < CPUQueryReplySize {
		return shortRecord("cpu query reply", CPUQueryReplySize, len(b))
	}
	r.Flags = recordOrder.Uint16(b[0:2])
	r.CRCType = b[2]
	r.ProtocolVersion = b[3]
	r.CPUType = b[4]
	r.SWVersion = b[5]
	r.PacketMaxLen = recordOrder.Uint16(b[6:8])
	return nil
}
