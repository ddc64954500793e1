package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPipeCarriesFrames(t *testing.T) {
	a, b := NewPipe()
	tx := NewTransmitter(a)

	require.NoError(t, tx.Send(CmdSetShutterPosition, []byte{1, 80}))

	frame, err := Receive(b, 10)
	require.NoError(t, err)
	require.NoError(t, Validate(frame, nil))
	require.Equal(t, CmdSetShutterPosition, frame.Command)
	require.Equal(t, []byte{1, 80}, frame.Payload())

	_, ok := b.TryReadByte()
	require.False(t, ok)
}

func TestPipeWaitForReadableIsBounded(t *testing.T) {
	a, _ := NewPipe()
	a.Tick = 5 * time.Millisecond

	start := time.Now()
	_, err := Receive(a, 3)
	require.ErrorIs(t, err, ErrTimeout)
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestPipeReserveAndClose(t *testing.T) {
	a, b := NewPipe()

	require.NoError(t, a.ReserveReceiveSlot(MaxTxBufferSize))
	require.Error(t, a.ReserveReceiveSlot(10*MaxTxBufferSize))

	require.NoError(t, b.Close())
	err := NewTransmitter(a).Send(CmdCPUQuery, nil)
	require.ErrorIs(t, err, ErrTxFailed)
}

func TestPipeDiscard(t *testing.T) {
	a, b := NewPipe()
	require.NoError(t, a.SendSlot([]byte{1, 2, 3}))

	require.Equal(t, 3, b.Discard())
	_, ok := b.TryReadByte()
	require.False(t, ok)
	require.Zero(t, b.Discard())
}

type failingSender struct{ calls int }

func (f *failingSender) SendSlot([]byte) error {
	f.calls++
	return errPipeClosed
}

func TestTransmitterFailures(t *testing.T) {
	out := &failingSender{}
	tx := NewTransmitter(out)

	err := tx.Send(CmdSetSwitchRelay, []byte{SwitchOn})
	require.ErrorIs(t, err, ErrTxFailed)
	require.ErrorIs(t, err, errPipeClosed)
	require.Equal(t, 1, out.calls, "no retry")

	err = tx.Send(CmdSetSwitchRelay, make([]byte, MaxTxBufferSize))
	require.ErrorIs(t, err, ErrTxFailed)
	require.ErrorIs(t, err, ErrFrameTooLarge)
	require.Equal(t, 1, out.calls, "oversized frames never reach the link")
}

func TestTransmitterSendStatus(t *testing.T) {
	a, b := NewPipe()
	tx := NewTransmitter(a)

	require.NoError(t, tx.SendStatus(Command(0x42), CodeNotSupported))

	frame, err := Receive(b, 10)
	require.NoError(t, err)
	require.NoError(t, Validate(frame, nil))
	require.Equal(t, Command(0x42), frame.Command)
	require.Equal(t, []byte{0xFC}, frame.Payload())
}
