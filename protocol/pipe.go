package protocol

import (
	"errors"
	"sync"
	"time"
)

// DefaultPipeTick is the duration of one tick on a pipe end
const DefaultPipeTick = time.Millisecond

var errPipeClosed = errors.New("pipe closed")

// PipeEnd is one side of an in-memory link. Bytes sent on one end become
// readable on the other. Both ends satisfy MasterLink.
type PipeEnd struct {
	mu     sync.Mutex
	rx     *FifoBuffer
	notify chan struct{}
	peer   *PipeEnd
	closed bool

	// Tick is the longest WaitForReadable blocks
	Tick time.Duration
}

// NewPipe returns two connected pipe ends
func NewPipe() (*PipeEnd, *PipeEnd) {
	a := newPipeEnd()
	b := newPipeEnd()
	a.peer, b.peer = b, a
	return a, b
}

func newPipeEnd() *PipeEnd {
	return &PipeEnd{
		rx:     NewFifoBuffer(4 * MaxTxBufferSize),
		notify: make(chan struct{}, 1),
		Tick:   DefaultPipeTick,
	}
}

// TryReadByte pops the next received byte
func (p *PipeEnd) TryReadByte() (byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rx.PopByte()
}

// WaitForReadable blocks until data arrives or one tick passes
func (p *PipeEnd) WaitForReadable() {
	timer := time.NewTimer(p.Tick)
	defer timer.Stop()
	select {
	case <-p.notify:
	case <-timer.C:
	}
}

// SendSlot delivers frame to the peer. It fails when the peer's receive
// queue cannot take the whole frame.
func (p *PipeEnd) SendSlot(frame []byte) error {
	if p.isClosed() {
		return errPipeClosed
	}
	peer := p.peer
	peer.mu.Lock()
	if peer.closed {
		peer.mu.Unlock()
		return errPipeClosed
	}
	if peer.rx.Free() < len(frame) {
		peer.mu.Unlock()
		return errors.New("pipe: peer receive queue full")
	}
	peer.rx.Write(frame)
	peer.mu.Unlock()

	select {
	case peer.notify <- struct{}{}:
	default:
	}
	return nil
}

// ReserveReceiveSlot checks that n bytes fit the receive queue
func (p *PipeEnd) ReserveReceiveSlot(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPipeClosed
	}
	if n > p.rx.Free() {
		return errors.New("pipe: receive queue too small")
	}
	return nil
}

// Discard drops every byte received and not yet read
func (p *PipeEnd) Discard() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.rx.Available()
	p.rx.Reset()
	return n
}

// Close marks this end closed; sends in either direction fail afterwards
func (p *PipeEnd) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *PipeEnd) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var _ MasterLink = (*PipeEnd)(nil)
