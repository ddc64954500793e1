package master

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"rscp/core"
	"rscp/protocol"
)

const testTimeout = 200

// scriptedLink answers every sent frame with a canned reply
type scriptedLink struct {
	sent       [][]byte
	reply      []byte
	rx         []byte
	reserved   []int
	reserveErr error
	sendErr    error
	polls      int
}

func (l *scriptedLink) SendSlot(frame []byte) error {
	if l.sendErr != nil {
		return l.sendErr
	}
	l.sent = append(l.sent, append([]byte(nil), frame...))
	l.rx = append(l.rx, l.reply...)
	return nil
}

func (l *scriptedLink) ReserveReceiveSlot(n int) error {
	l.reserved = append(l.reserved, n)
	return l.reserveErr
}

func (l *scriptedLink) TryReadByte() (byte, bool) {
	l.polls++
	if len(l.rx) == 0 {
		return 0, false
	}
	b := l.rx[0]
	l.rx = l.rx[1:]
	return b, true
}

func (l *scriptedLink) WaitForReadable() {}

// bufferedLink also drops pending input on request
type bufferedLink struct {
	scriptedLink
	discarded int
}

func (l *bufferedLink) Discard() int {
	n := len(l.rx)
	l.discarded += n
	l.rx = nil
	return n
}

func encode(t *testing.T, cmd protocol.Command, payload []byte) []byte {
	t.Helper()
	wire, err := protocol.Encode(cmd, payload, nil)
	require.NoError(t, err)
	return wire
}

// startSlave runs a simulated slave on the far end of a pipe
func startSlave(t *testing.T, dev core.Device) *Master {
	t.Helper()
	masterEnd, slaveEnd := protocol.NewPipe()
	slave := core.NewSlave(slaveEnd, dev)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = slave.Run(ctx, 5)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return New(masterEnd)
}

func TestRequestDataCPUQuery(t *testing.T) {
	m := startSlave(t, core.NewSimDevice(1))

	reply, err := m.RequestData(protocol.CmdCPUQuery, 7, testTimeout)
	require.NoError(t, err)
	// flags=0, crcType=1, protocolVersion=1, cpuType=1, swVersion=1, packetMaxLen=30
	require.Equal(t, []byte{0x00, 0x00, 0x01, 0x01, 0x01, 0x01, 30}, reply)

	cpu, err := m.QueryCPU(testTimeout)
	require.NoError(t, err)
	require.Equal(t, protocol.DefaultCPUQueryReply(protocol.CPUTypeATmega328P8MHz), cpu)
}

func TestTypedHelpersAgainstSimulator(t *testing.T) {
	dev := core.NewSimDevice(4)
	m := startSlave(t, dev)

	code, err := m.SetShutterPosition(protocol.ShutterPosition{Shutter: 3, Position: 20}, testTimeout)
	require.NoError(t, err)
	require.Equal(t, protocol.CodeOK, code)

	pos, err := m.GetShutterPosition(testTimeout)
	require.NoError(t, err)
	require.Equal(t, protocol.ShutterPosition{Shutter: 3, Position: 20}, pos)

	code, err = m.SetShutterAction(protocol.ShutterAction{Shutter: 9, Action: protocol.ShutterUp}, testTimeout)
	require.NoError(t, err, "device rejection is an outcome, not an error")
	require.Equal(t, protocol.CodeNOK, code)

	code, err = m.SetSwitchRelay(protocol.SwitchRelay{Status: protocol.SwitchOn}, testTimeout)
	require.NoError(t, err)
	require.Equal(t, protocol.CodeOK, code)

	relay, err := m.GetSwitchRelay(testTimeout)
	require.NoError(t, err)
	require.Equal(t, uint8(protocol.SwitchOn), relay.Status)

	dev.PressButton(true)
	button, err := m.GetSwitchButton(testTimeout)
	require.NoError(t, err)
	require.Equal(t, uint8(protocol.SwitchOn), button.Status)

	code, err = m.SetBuzzerAction(protocol.BuzzerAction{Action: protocol.BuzzerOn, Volume: 3, DurationMS: 100}, testTimeout)
	require.NoError(t, err)
	require.Equal(t, protocol.CodeOK, code)
	require.Equal(t, uint32(3), dev.Buzzer().Volume)
}

func TestRequestDataSendsEmptyRequest(t *testing.T) {
	link := &scriptedLink{reply: encode(t, protocol.CmdGetSwitchRelay, []byte{protocol.SwitchOff})}
	m := New(link)

	reply, err := m.RequestData(protocol.CmdGetSwitchRelay, 1, testTimeout)
	require.NoError(t, err)
	require.Equal(t, []byte{protocol.SwitchOff}, reply)

	require.Len(t, link.sent, 1)
	require.Equal(t, encode(t, protocol.CmdGetSwitchRelay, nil), link.sent[0])
	require.Equal(t, []int{protocol.FrameOverhead + 1}, link.reserved)
}

func TestSendActionReturnsSlaveCode(t *testing.T) {
	link := &scriptedLink{reply: encode(t, protocol.CmdSetSwitchRelay, []byte{protocol.CodeNotSupported.Byte()})}
	m := New(link)

	code, err := m.SendAction(protocol.CmdSetSwitchRelay, []byte{protocol.SwitchOn}, testTimeout)
	require.NoError(t, err)
	require.Equal(t, protocol.CodeNotSupported, code)

	require.Equal(t, encode(t, protocol.CmdSetSwitchRelay, []byte{protocol.SwitchOn}), link.sent[0])
	require.Equal(t, []int{protocol.FrameOverhead + 1}, link.reserved)
}

func TestMismatchedReply(t *testing.T) {
	link := &scriptedLink{reply: encode(t, protocol.CmdGetSwitchRelay, []byte{0})}
	m := New(link)

	_, err := m.SendAction(protocol.CmdSetSwitchRelay, []byte{protocol.SwitchOn}, testTimeout)
	require.ErrorIs(t, err, protocol.ErrInvalidAnswer)

	_, err = m.RequestData(protocol.CmdGetSwitchButton, 1, testTimeout)
	require.ErrorIs(t, err, protocol.ErrInvalidAnswer)
}

func TestMalformedReply(t *testing.T) {
	wire := encode(t, protocol.CmdGetShutterPosition, []byte{1, 50})
	wire[3] ^= 0x10
	m := New(&scriptedLink{reply: wire})

	_, err := m.RequestData(protocol.CmdGetShutterPosition, 2, testTimeout)
	require.ErrorIs(t, err, protocol.ErrMalformed)
}

func TestShortReply(t *testing.T) {
	m := New(&scriptedLink{reply: encode(t, protocol.CmdCPUQuery, []byte{0, 0, 1})})
	_, err := m.RequestData(protocol.CmdCPUQuery, 7, testTimeout)
	require.ErrorIs(t, err, protocol.ErrMalformed)

	m = New(&scriptedLink{reply: encode(t, protocol.CmdSetSwitchRelay, nil)})
	_, err = m.SendAction(protocol.CmdSetSwitchRelay, []byte{protocol.SwitchOn}, testTimeout)
	require.ErrorIs(t, err, protocol.ErrMalformed)
}

func TestReplyTimeout(t *testing.T) {
	link := &scriptedLink{}
	m := New(link)

	_, err := m.RequestData(protocol.CmdGetSwitchRelay, 1, 25)
	require.ErrorIs(t, err, protocol.ErrTimeout)
	require.Equal(t, 25, link.polls)
}

func TestReplyOverflow(t *testing.T) {
	reply := append([]byte{protocol.Preamble, 40, byte(protocol.CmdCPUQuery)}, make([]byte, 40)...)
	m := New(&scriptedLink{reply: reply})

	_, err := m.RequestData(protocol.CmdCPUQuery, 7, testTimeout)
	require.ErrorIs(t, err, protocol.ErrOverflow)
}

func TestReserveFailure(t *testing.T) {
	link := &scriptedLink{
		reply:      encode(t, protocol.CmdGetSwitchRelay, []byte{1}),
		reserveErr: errors.New("bus busy"),
	}
	m := New(link)

	_, err := m.RequestData(protocol.CmdGetSwitchRelay, 1, testTimeout)
	require.ErrorIs(t, err, protocol.ErrRequestFailed)
	require.Zero(t, link.polls, "no receive without a slot")
}

func TestRequestDataRejectsOversizedReply(t *testing.T) {
	link := &scriptedLink{}
	m := New(link)

	_, err := m.RequestData(protocol.CmdCPUQuery, protocol.MaxDataSize+1, testTimeout)
	require.ErrorIs(t, err, protocol.ErrRequestFailed)
	require.Empty(t, link.sent)
}

func TestSendFailure(t *testing.T) {
	link := &scriptedLink{sendErr: errors.New("nack")}
	m := New(link)

	_, err := m.SendAction(protocol.CmdSetBuzzerAction, []byte{1}, testTimeout)
	require.ErrorIs(t, err, protocol.ErrTxFailed)
	require.Empty(t, link.reserved)
}

func TestFailureDiscardsLeftoverInput(t *testing.T) {
	stale := encode(t, protocol.CmdGetSwitchRelay, []byte{protocol.SwitchOn})
	link := &bufferedLink{}
	link.reply = append(encode(t, protocol.CmdGetShutterPosition, []byte{1, 50}), stale...)
	m := New(link)

	_, err := m.RequestData(protocol.CmdGetSwitchRelay, 1, testTimeout)
	require.ErrorIs(t, err, protocol.ErrInvalidAnswer)
	require.Equal(t, len(stale), link.discarded)
	require.Empty(t, link.rx)

	// the next request sees only its own reply
	link.reply = encode(t, protocol.CmdGetSwitchRelay, []byte{protocol.SwitchOff})
	reply, err := m.RequestData(protocol.CmdGetSwitchRelay, 1, testTimeout)
	require.NoError(t, err)
	require.Equal(t, []byte{protocol.SwitchOff}, reply)
}

func TestSuccessKeepsInput(t *testing.T) {
	link := &bufferedLink{}
	link.reply = encode(t, protocol.CmdGetSwitchRelay, []byte{protocol.SwitchOn})
	m := New(link)

	_, err := m.RequestData(protocol.CmdGetSwitchRelay, 1, testTimeout)
	require.NoError(t, err)
	require.Zero(t, link.discarded)
}

type countingObserver struct {
	sent, received, failed int
	lastErr                error
}

func (o *countingObserver) FrameSent(protocol.Command, int)     { o.sent++ }
func (o *countingObserver) FrameReceived(protocol.Command, int) { o.received++ }
func (o *countingObserver) TransactionFailed(_ protocol.Command, err error) {
	o.failed++
	o.lastErr = err
}

func TestObserverNotified(t *testing.T) {
	obs := &countingObserver{}
	link := &scriptedLink{reply: encode(t, protocol.CmdGetSwitchRelay, []byte{1})}
	m := New(link, WithObserver(obs))

	_, err := m.RequestData(protocol.CmdGetSwitchRelay, 1, testTimeout)
	require.NoError(t, err)
	require.Equal(t, 1, obs.sent)
	require.Equal(t, 1, obs.received)

	_, err = m.RequestData(protocol.CmdGetSwitchButton, 1, testTimeout)
	require.ErrorIs(t, err, protocol.ErrInvalidAnswer)
	require.Equal(t, 1, obs.failed)
	require.ErrorIs(t, obs.lastErr, protocol.ErrInvalidAnswer)
}
