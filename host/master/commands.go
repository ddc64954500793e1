package master

import "rscp/protocol"

// QueryCPU asks the slave for its CPU type and protocol version
func (m *Master) QueryCPU(timeout uint32) (protocol.CPUQueryReply, error) {
	var reply protocol.CPUQueryReply
	data, err := m.RequestData(protocol.CmdCPUQuery, protocol.CPUQueryReplySize, timeout)
	if err != nil {
		return reply, err
	}
	err = reply.UnmarshalBinary(data)
	return reply, err
}

// GetShutterPosition reads the position the slave reports for its shutter
func (m *Master) GetShutterPosition(timeout uint32) (protocol.ShutterPosition, error) {
	var reply protocol.ShutterPosition
	data, err := m.RequestData(protocol.CmdGetShutterPosition, protocol.ShutterPositionSize, timeout)
	if err != nil {
		return reply, err
	}
	err = reply.UnmarshalBinary(data)
	return reply, err
}

// GetSwitchRelay reads the relay state
func (m *Master) GetSwitchRelay(timeout uint32) (protocol.SwitchRelay, error) {
	var reply protocol.SwitchRelay
	data, err := m.RequestData(protocol.CmdGetSwitchRelay, protocol.SwitchRelaySize, timeout)
	if err != nil {
		return reply, err
	}
	err = reply.UnmarshalBinary(data)
	return reply, err
}

// GetSwitchButton reads the button state
func (m *Master) GetSwitchButton(timeout uint32) (protocol.SwitchButton, error) {
	var reply protocol.SwitchButton
	data, err := m.RequestData(protocol.CmdGetSwitchButton, protocol.SwitchButtonSize, timeout)
	if err != nil {
		return reply, err
	}
	err = reply.UnmarshalBinary(data)
	return reply, err
}

// SetShutterAction moves a shutter
func (m *Master) SetShutterAction(arg protocol.ShutterAction, timeout uint32) (protocol.Code, error) {
	return m.sendRecord(protocol.CmdSetShutterAction, arg, timeout)
}

// SetShutterPosition drives a shutter to a position
func (m *Master) SetShutterPosition(arg protocol.ShutterPosition, timeout uint32) (protocol.Code, error) {
	return m.sendRecord(protocol.CmdSetShutterPosition, arg, timeout)
}

// SetSwitchRelay switches the relay
func (m *Master) SetSwitchRelay(arg protocol.SwitchRelay, timeout uint32) (protocol.Code, error) {
	return m.sendRecord(protocol.CmdSetSwitchRelay, arg, timeout)
}

// SetBuzzerAction sounds or silences the buzzer
func (m *Master) SetBuzzerAction(arg protocol.BuzzerAction, timeout uint32) (protocol.Code, error) {
	return m.sendRecord(protocol.CmdSetBuzzerAction, arg, timeout)
}

type record interface {
	MarshalBinary() ([]byte, error)
}

func (m *Master) sendRecord(cmd protocol.Command, arg record, timeout uint32) (protocol.Code, error) {
	payload, err := arg.MarshalBinary()
	if err != nil {
		return protocol.CodeFail, err
	}
	return m.SendAction(cmd, payload, timeout)
}
