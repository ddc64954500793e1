package serial

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rscp/core"
	"rscp/host/master"
	"rscp/protocol"
)

// fakePort feeds queued chunks to Read and records writes
type fakePort struct {
	mu       sync.Mutex
	written  bytes.Buffer
	shortBy  int
	chunks   chan []byte
	closed   chan struct{}
	closeErr error
	once     sync.Once
}

func newFakePort() *fakePort {
	return &fakePort{
		chunks: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case chunk := <-p.chunks:
		return copy(b, chunk), nil
	case <-p.closed:
		return 0, io.EOF
	case <-time.After(5 * time.Millisecond):
		return 0, io.EOF
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(b) - p.shortBy
	p.written.Write(b[:n])
	return n, nil
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return p.closeErr
}

func (p *fakePort) Flush() error { return nil }

func (p *fakePort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written.Bytes()...)
}

func TestLinkReceivesFrame(t *testing.T) {
	port := newFakePort()
	link := NewLink(port)
	defer link.Close()

	wire, err := protocol.Encode(protocol.CmdGetSwitchRelay, []byte{protocol.SwitchOn}, nil)
	require.NoError(t, err)
	// split across reads like a UART would
	port.chunks <- wire[:3]
	port.chunks <- wire[3:]

	frame, err := protocol.Receive(link, 500)
	require.NoError(t, err)
	require.NoError(t, protocol.Validate(frame, nil))
	require.Equal(t, []byte{protocol.SwitchOn}, frame.Payload())
}

func TestLinkSendSlot(t *testing.T) {
	port := newFakePort()
	link := NewLink(port)
	defer link.Close()

	require.NoError(t, link.SendSlot([]byte{0xAA, 0x02, 0x03, 0x12, 0x34}))
	require.Equal(t, []byte{0xAA, 0x02, 0x03, 0x12, 0x34}, port.Written())

	port.shortBy = 1
	err := link.SendSlot([]byte{0xAA, 0x02, 0x03, 0x12, 0x34})
	require.ErrorContains(t, err, "incomplete write")
}

func TestLinkReserveReceiveSlot(t *testing.T) {
	link := NewLink(newFakePort())
	defer link.Close()

	require.NoError(t, link.ReserveReceiveSlot(protocol.MaxTxBufferSize))
	require.Error(t, link.ReserveReceiveSlot(rxQueueSize+1))
}

func TestLinkDiscard(t *testing.T) {
	port := newFakePort()
	link := NewLink(port)
	defer link.Close()

	port.chunks <- []byte{1, 2, 3}
	require.Eventually(t, func() bool {
		link.mu.Lock()
		defer link.mu.Unlock()
		return link.rx.Available() == 3
	}, time.Second, time.Millisecond)

	require.Equal(t, 3, link.Discard())
	_, ok := link.TryReadByte()
	require.False(t, ok)
}

func TestLinkClose(t *testing.T) {
	link := NewLink(newFakePort())
	require.NoError(t, link.Close())
	require.NoError(t, link.Close())

	require.ErrorIs(t, link.SendSlot([]byte{1}), ErrClosed)
	require.ErrorIs(t, link.ReserveReceiveSlot(1), ErrClosed)
}

// crossPort joins two fake ports back to back like a null-modem cable
func crossPort() (*fakePort, *fakePort, func()) {
	a, b := newFakePort(), newFakePort()
	stop := make(chan struct{})
	pump := func(from, to *fakePort) {
		sent := 0
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
			}
			out := from.Written()
			if len(out) > sent {
				to.chunks <- out[sent:]
				sent = len(out)
			}
		}
	}
	go pump(a, b)
	go pump(b, a)
	return a, b, func() { close(stop) }
}

func TestMasterSlaveOverSerial(t *testing.T) {
	masterPort, slavePort, stop := crossPort()
	defer stop()

	masterLink := NewLink(masterPort)
	defer masterLink.Close()
	slaveLink := NewLink(slavePort)
	defer slaveLink.Close()

	slave := core.NewSlave(slaveLink, core.NewSimDevice(2))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = slave.Run(ctx, 10)
	}()
	defer func() {
		cancel()
		<-done
	}()

	m := master.New(masterLink)
	cpu, err := m.QueryCPU(1000)
	require.NoError(t, err)
	require.Equal(t, uint16(protocol.FrameRecordSize), cpu.PacketMaxLen)

	code, err := m.SetShutterAction(protocol.ShutterAction{Shutter: 1, Action: protocol.ShutterClose}, 1000)
	require.NoError(t, err)
	require.Equal(t, protocol.CodeOK, code)
}
