// Package i2c is the master side of RSCP on an I2C bus.
//
// The bus is anything implementing drivers.I2C from tinygo.org/x/drivers,
// so the same link runs on a TinyGo board (machine.I2C) and on a host
// with a bus adapter.
package i2c

import (
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"rscp/protocol"
)

// DefaultAddress is the 7-bit address of a roller shutter panel
const DefaultAddress = 0x10

// replySlot is the longest frame a slave can answer with
const replySlot = protocol.FrameOverhead + protocol.MaxDataSize

// Link performs RSCP master transfers with one slave address.
//
// SendSlot is an I2C write. ReserveReceiveSlot is an I2C read of the
// whole reply slot; the bytes it returns are then handed to the receiver
// one at a time.
type Link struct {
	bus    drivers.I2C
	addr   uint16
	tick   time.Duration
	settle time.Duration

	mu sync.Mutex
	rx *protocol.FifoBuffer
}

// Option configures a Link
type Option func(*Link)

// WithTick sets the WaitForReadable interval
func WithTick(d time.Duration) Option {
	return func(l *Link) { l.tick = d }
}

// WithSettle delays the reply read so the slave can prepare its answer
func WithSettle(d time.Duration) Option {
	return func(l *Link) { l.settle = d }
}

// NewLink creates a link to the slave at addr
func NewLink(bus drivers.I2C, addr uint16, opts ...Option) *Link {
	l := &Link{
		bus:  bus,
		addr: addr,
		tick: time.Millisecond,
		rx:   protocol.NewFifoBuffer(protocol.MaxTxBufferSize + 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Address returns the slave address
func (l *Link) Address() uint16 {
	return l.addr
}

// SendSlot writes frame to the slave in one transfer
func (l *Link) SendSlot(frame []byte) error {
	if err := l.bus.Tx(l.addr, frame, nil); err != nil {
		return fmt.Errorf("i2c write to 0x%02x: %w", l.addr, err)
	}
	return nil
}

// ReserveReceiveSlot reads at least a full data slot from the slave, so a
// reply shorter than the caller expected still ends up in the buffer. The
// filler after the frame is never reached by the receiver. Anything left
// from an earlier reply is dropped first.
func (l *Link) ReserveReceiveSlot(n int) error {
	if n <= 0 || n > protocol.MaxTxBufferSize {
		return fmt.Errorf("i2c read of %d bytes out of range", n)
	}
	if l.settle > 0 {
		time.Sleep(l.settle)
	}

	buf := make([]byte, max(n, replySlot))
	if err := l.bus.Tx(l.addr, nil, buf); err != nil {
		return fmt.Errorf("i2c read from 0x%02x: %w", l.addr, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.rx.Reset()
	l.rx.Write(buf)
	return nil
}

// TryReadByte pops the next byte of the last read
func (l *Link) TryReadByte() (byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rx.PopByte()
}

// WaitForReadable sleeps one tick. Bytes only arrive through
// ReserveReceiveSlot, so there is nothing to wake up for.
func (l *Link) WaitForReadable() {
	time.Sleep(l.tick)
}

var _ protocol.MasterLink = (*Link)(nil)
