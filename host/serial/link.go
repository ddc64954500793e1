package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rscp/protocol"
)

// rxQueueSize holds several frames so a slow consumer does not lose bytes
const rxQueueSize = 8 * protocol.MaxTxBufferSize

// ErrClosed is returned by operations on a closed Link
var ErrClosed = errors.New("serial: link closed")

// Link adapts a Port to protocol.MasterLink. A background goroutine
// reads the port into a FIFO which the receiver polls byte by byte.
type Link struct {
	port Port
	tick time.Duration
	log  zerolog.Logger

	mu sync.Mutex
	rx *protocol.FifoBuffer

	writeMu sync.Mutex

	notify    chan struct{}
	stopChan  chan struct{}
	doneChan  chan struct{}
	closeOnce sync.Once
}

// LinkOption configures a Link
type LinkOption func(*Link)

// WithTick sets how long WaitForReadable blocks at most
func WithTick(d time.Duration) LinkOption {
	return func(l *Link) { l.tick = d }
}

// WithLogger sets the logger for read errors and dropped input
func WithLogger(log zerolog.Logger) LinkOption {
	return func(l *Link) { l.log = log }
}

// NewLink starts reading from port
func NewLink(port Port, opts ...LinkOption) *Link {
	l := &Link{
		port:     port,
		tick:     time.Millisecond,
		log:      zerolog.Nop(),
		rx:       protocol.NewFifoBuffer(rxQueueSize),
		notify:   make(chan struct{}, 1),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.readLoop()

	return l
}

func (l *Link) readLoop() {
	defer close(l.doneChan)

	buffer := make([]byte, protocol.MaxTxBufferSize)

	for {
		select {
		case <-l.stopChan:
			return
		default:
		}

		n, err := l.port.Read(buffer)
		if n > 0 {
			l.mu.Lock()
			written := l.rx.Write(buffer[:n])
			l.mu.Unlock()

			if written < n {
				l.log.Warn().Int("dropped", n-written).Msg("receive queue full")
			}
			select {
			case l.notify <- struct{}{}:
			default:
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// tarm/serial reports an expired read timeout as EOF
				if l.stopped() {
					return
				}
				continue
			}
			if l.stopped() {
				return
			}
			l.log.Debug().Err(err).Msg("serial read failed")
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (l *Link) stopped() bool {
	select {
	case <-l.stopChan:
		return true
	default:
		return false
	}
}

// TryReadByte pops the next received byte
func (l *Link) TryReadByte() (byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rx.PopByte()
}

// WaitForReadable blocks until the reader delivers data or one tick passes
func (l *Link) WaitForReadable() {
	timer := time.NewTimer(l.tick)
	defer timer.Stop()
	select {
	case <-l.notify:
	case <-timer.C:
	case <-l.stopChan:
	}
}

// SendSlot writes frame with a single Write call
func (l *Link) SendSlot(frame []byte) error {
	if l.stopped() {
		return ErrClosed
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	n, err := l.port.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(frame))
	}
	return nil
}

// ReserveReceiveSlot checks that a reply of n bytes fits the receive queue
func (l *Link) ReserveReceiveSlot(n int) error {
	if l.stopped() {
		return ErrClosed
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if free := l.rx.Free(); n > free {
		return fmt.Errorf("serial: reply slot of %d bytes, %d free", n, free)
	}
	return nil
}

// Discard drops everything received so far. Callers use it to resync
// after a failed transaction.
func (l *Link) Discard() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.rx.Available()
	l.rx.Reset()
	return n
}

// Close stops the reader and closes the port
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.stopChan)
		// closing the port unblocks a pending Read
		err = l.port.Close()
		<-l.doneChan
	})
	return err
}

var _ protocol.MasterLink = (*Link)(nil)
