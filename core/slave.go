// Package core implements the RSCP slave role: the peripheral side that
// receives one request at a time, dispatches it to a Device and answers
// with exactly one frame.
package core

import (
	"context"
	"encoding"
	"errors"

	"github.com/rs/zerolog"

	"rscp/protocol"
)

// Slave answers master requests on a Link
type Slave struct {
	link     protocol.Link
	tx       *protocol.Transmitter
	device   Device
	identity protocol.CPUQueryReply
	crc      protocol.CRCFunc
	observer protocol.Observer
	log      zerolog.Logger
}

// Option configures a Slave
type Option func(*Slave)

// WithCRC replaces the default CRC-16/MODBUS function
func WithCRC(fn protocol.CRCFunc) Option {
	return func(s *Slave) { s.crc = fn }
}

// WithIdentity sets the reply to CPU queries
func WithIdentity(id protocol.CPUQueryReply) Option {
	return func(s *Slave) { s.identity = id }
}

// WithObserver reports traffic to o
func WithObserver(o protocol.Observer) Option {
	return func(s *Slave) { s.observer = o }
}

// WithLogger sets the logger used for dispatch tracing
func WithLogger(l zerolog.Logger) Option {
	return func(s *Slave) { s.log = l }
}

// NewSlave creates a slave serving device on link
func NewSlave(link protocol.Link, device Device, opts ...Option) *Slave {
	s := &Slave{
		link:     link,
		device:   device,
		identity: protocol.DefaultCPUQueryReply(protocol.CPUTypeATmega328P8MHz),
		crc:      protocol.ModbusCRC16,
		observer: protocol.NopObserver,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tx = &protocol.Transmitter{Out: link, CRC: s.crc, Observer: s.observer}
	return s
}

// HandleOnce receives one request and answers it.
//
// Receive failures (timeout, overflow) and CRC failures are returned
// without sending anything. Every frame that passes validation gets
// exactly one reply; the returned error is then the transmit result.
func (s *Slave) HandleOnce(timeout uint32) error {
	frame, err := protocol.Receive(s.link, timeout)
	if err != nil {
		return err
	}

	if err := protocol.Validate(frame, s.crc); err != nil {
		s.observer.TransactionFailed(frame.Command, err)
		return err
	}
	s.observer.FrameReceived(frame.Command, protocol.FrameOverhead+frame.DataLen())

	entry, ok := protocol.Lookup(frame.Command)
	if !ok {
		s.log.Debug().Stringer("cmd", frame.Command).Msg("unsupported command")
		s.observer.TransactionFailed(frame.Command, protocol.ErrNotSupported)
		return s.tx.SendStatus(frame.Command, protocol.CodeNotSupported)
	}
	return handlers[entry.Command](s, frame.Payload())
}

type handler func(s *Slave, payload []byte) error

// handlers has one entry per catalog command. Queries ignore the payload
// and answer with a record; sets answer with a status code.
var handlers = map[protocol.Command]handler{
	protocol.CmdCPUQuery: func(s *Slave, _ []byte) error {
		return s.reply(protocol.CmdCPUQuery, s.identity)
	},
	protocol.CmdGetShutterPosition: func(s *Slave, _ []byte) error {
		return s.reply(protocol.CmdGetShutterPosition, s.device.ShutterPosition())
	},
	protocol.CmdGetSwitchRelay: func(s *Slave, _ []byte) error {
		return s.reply(protocol.CmdGetSwitchRelay, s.device.SwitchRelay())
	},
	protocol.CmdGetSwitchButton: func(s *Slave, _ []byte) error {
		return s.reply(protocol.CmdGetSwitchButton, s.device.SwitchButton())
	},
	protocol.CmdSetShutterAction: func(s *Slave, payload []byte) error {
		var arg protocol.ShutterAction
		return s.apply(protocol.CmdSetShutterAction, &arg, payload, func() protocol.Code {
			return s.device.SetShutterAction(arg)
		})
	},
	protocol.CmdSetShutterPosition: func(s *Slave, payload []byte) error {
		var arg protocol.ShutterPosition
		return s.apply(protocol.CmdSetShutterPosition, &arg, payload, func() protocol.Code {
			return s.device.SetShutterPosition(arg)
		})
	},
	protocol.CmdSetSwitchRelay: func(s *Slave, payload []byte) error {
		var arg protocol.SwitchRelay
		return s.apply(protocol.CmdSetSwitchRelay, &arg, payload, func() protocol.Code {
			return s.device.SetSwitchRelay(arg)
		})
	},
	protocol.CmdSetBuzzerAction: func(s *Slave, payload []byte) error {
		var arg protocol.BuzzerAction
		return s.apply(protocol.CmdSetBuzzerAction, &arg, payload, func() protocol.Code {
			return s.device.SetBuzzerAction(arg)
		})
	},
}

// reply answers a query command with rec
func (s *Slave) reply(cmd protocol.Command, rec encoding.BinaryMarshaler) error {
	payload, err := rec.MarshalBinary()
	if err != nil {
		s.log.Error().Err(err).Stringer("cmd", cmd).Msg("record not encodable")
		return s.tx.SendStatus(cmd, protocol.CodeOf(err))
	}
	s.log.Debug().Stringer("cmd", cmd).Hex("payload", payload).Msg("query answered")
	return s.tx.Send(cmd, payload)
}

// apply decodes a set command's argument record into arg, runs the device
// call and answers with its code. A payload too short for the record is
// answered with CodeNOK.
func (s *Slave) apply(cmd protocol.Command, arg encoding.BinaryUnmarshaler, payload []byte, call func() protocol.Code) error {
	code := protocol.CodeNOK
	if err := arg.UnmarshalBinary(payload); err != nil {
		s.log.Warn().Err(err).Stringer("cmd", cmd).Msg("bad argument record")
	} else {
		code = call()
	}
	s.log.Debug().Stringer("cmd", cmd).Stringer("code", code).Msg("action applied")
	return s.tx.SendStatus(cmd, code)
}

// Run calls HandleOnce until ctx is done. Receive timeouts mean the link
// was idle and are not reported; other errors are logged and the loop
// goes on.
func (s *Slave) Run(ctx context.Context, timeout uint32) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := s.HandleOnce(timeout)
		switch {
		case err == nil, errors.Is(err, protocol.ErrTimeout):
		case errors.Is(err, protocol.ErrTxFailed):
			s.log.Error().Err(err).Msg("reply not delivered")
		default:
			s.log.Warn().Err(err).Msg("request dropped")
		}
	}
}
