// Package master implements the RSCP master role: blocking
// request/response transactions against a single slave.
//
// A Master is not safe for concurrent use. The protocol allows one
// transaction in flight per link, so callers serialize their requests.
package master

import (
	"fmt"

	"github.com/rs/zerolog"

	"rscp/protocol"
)

// Master issues transactions over a MasterLink
type Master struct {
	link     protocol.MasterLink
	tx       *protocol.Transmitter
	crc      protocol.CRCFunc
	observer protocol.Observer
	log      zerolog.Logger
}

// Option configures a Master
type Option func(*Master)

// WithCRC replaces the default CRC-16/MODBUS function
func WithCRC(fn protocol.CRCFunc) Option {
	return func(m *Master) { m.crc = fn }
}

// WithObserver reports traffic to o
func WithObserver(o protocol.Observer) Option {
	return func(m *Master) { m.observer = o }
}

// WithLogger sets the logger used for transaction tracing
func WithLogger(l zerolog.Logger) Option {
	return func(m *Master) { m.log = l }
}

// New creates a Master on link
func New(link protocol.MasterLink, opts ...Option) *Master {
	m := &Master{
		link:     link,
		crc:      protocol.ModbusCRC16,
		observer: protocol.NopObserver,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.tx = &protocol.Transmitter{Out: link, CRC: m.crc, Observer: m.observer}
	return m
}

// RequestData sends a request without payload for cmd and returns the
// first replyLen bytes of the reply's payload.
func (m *Master) RequestData(cmd protocol.Command, replyLen int, timeout uint32) ([]byte, error) {
	if replyLen < 0 || replyLen > protocol.MaxDataSize {
		return nil, m.fail(cmd, fmt.Errorf("%w: reply length %d exceeds %d",
			protocol.ErrRequestFailed, replyLen, protocol.MaxDataSize))
	}

	frame, err := m.transact(cmd, nil, replyLen, timeout)
	if err != nil {
		return nil, err
	}

	payload := frame.Payload()
	if len(payload) < replyLen {
		return nil, m.fail(cmd, fmt.Errorf("%w: %s reply has %d bytes, expected %d",
			protocol.ErrMalformed, cmd, len(payload), replyLen))
	}

	reply := make([]byte, replyLen)
	copy(reply, payload)
	return reply, nil
}

// SendAction sends cmd with payload and returns the outcome code the
// slave put in its one-byte reply. The error reports transport and
// framing failures only.
func (m *Master) SendAction(cmd protocol.Command, payload []byte, timeout uint32) (protocol.Code, error) {
	frame, err := m.transact(cmd, payload, 1, timeout)
	if err != nil {
		return protocol.CodeFail, err
	}

	if frame.DataLen() < 1 {
		return protocol.CodeFail, m.fail(cmd, fmt.Errorf("%w: %s reply has no outcome byte",
			protocol.ErrMalformed, cmd))
	}

	code := protocol.CodeFromByte(frame.Data[0])
	m.log.Debug().Stringer("cmd", cmd).Stringer("code", code).Msg("action acknowledged")
	return code, nil
}

// transact runs one request/reply round trip and returns the validated
// reply frame.
func (m *Master) transact(cmd protocol.Command, payload []byte, replyLen int, timeout uint32) (*protocol.Frame, error) {
	m.log.Debug().Stringer("cmd", cmd).Int("len", len(payload)).Msg("sending request")

	if err := m.tx.Send(cmd, payload); err != nil {
		return nil, m.fail(cmd, err)
	}

	slot := protocol.FrameOverhead + replyLen
	if err := m.link.ReserveReceiveSlot(slot); err != nil {
		return nil, m.fail(cmd, fmt.Errorf("%w: %d bytes: %w", protocol.ErrRequestFailed, slot, err))
	}

	frame, err := protocol.Receive(m.link, timeout)
	if err != nil {
		return nil, m.fail(cmd, err)
	}

	if err := protocol.Validate(frame, m.crc); err != nil {
		return nil, m.fail(cmd, err)
	}
	m.observer.FrameReceived(frame.Command, protocol.FrameOverhead+frame.DataLen())

	if frame.Command != cmd {
		return nil, m.fail(cmd, fmt.Errorf("%w: sent %s, reply %s",
			protocol.ErrInvalidAnswer, cmd, frame.Command))
	}
	return frame, nil
}

// fail reports err and drops whatever is left of the reply, so a late or
// partial answer is not taken for the reply to the next request.
func (m *Master) fail(cmd protocol.Command, err error) error {
	m.observer.TransactionFailed(cmd, err)
	m.log.Warn().Err(err).Stringer("cmd", cmd).Msg("transaction failed")

	if d, ok := m.link.(protocol.Discarder); ok {
		if n := d.Discard(); n > 0 {
			m.log.Debug().Int("bytes", n).Msg("discarded stale input")
		}
	}
	return err
}
