package protocol

import "github.com/sigurn/crc16"

// CRCFunc computes the integrity checksum of a byte range.
// The algorithm is chosen by the link owner; both peers must agree.
type CRCFunc func(data []byte) uint16

// CRC types reported in the CPU query reply
const (
	CRCTypeModbus16 = 0x01
)

var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// ModbusCRC16 calculates the CRC-16/MODBUS checksum
// (poly 0x8005 reflected, init 0xFFFF)
func ModbusCRC16(data []byte) uint16 {
	return crc16.Checksum(data, modbusTable)
}

func crcOrDefault(fn CRCFunc) CRCFunc {
	if fn == nil {
		return ModbusCRC16
	}
	return fn
}
