package protocol

import "strconv"

// Command is an RSCP opcode. Requests and their replies share the same value.
type Command uint8

// Command catalog
const (
	CmdFail               Command = 0x01 // Reserved: command failed
	CmdNOK                Command = 0x02 // Reserved: command not handled or parameter error
	CmdCPUQuery           Command = 0x03 // Query CPU type and protocol version
	CmdSetShutterAction   Command = 0x04
	CmdSetShutterPosition Command = 0x05
	CmdGetShutterPosition Command = 0x06
	CmdSetSwitchRelay     Command = 0x07
	CmdGetSwitchRelay     Command = 0x08
	CmdSetBuzzerAction    Command = 0x09
	CmdGetSwitchButton    Command = 0x0A
)

// Kind tells how the slave answers a command
type Kind uint8

const (
	// KindQuery commands are answered with a data reply
	KindQuery Kind = iota + 1
	// KindSet commands carry an argument record and are answered with an outcome code
	KindSet
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindSet:
		return "set"
	}
	return "unknown"
}

// Entry describes one catalog command
type Entry struct {
	Command  Command
	Name     string
	Kind     Kind
	ArgLen   int // request payload size
	ReplyLen int // reply payload size
}

var catalog = [...]Entry{
	{CmdCPUQuery, "cpu_query", KindQuery, 0, CPUQueryReplySize},
	{CmdSetShutterAction, "set_shutter_action", KindSet, ShutterActionSize, 1},
	{CmdSetShutterPosition, "set_shutter_position", KindSet, ShutterPositionSize, 1},
	{CmdGetShutterPosition, "get_shutter_position", KindQuery, 0, ShutterPositionSize},
	{CmdSetSwitchRelay, "set_switch_relay", KindSet, SwitchRelaySize, 1},
	{CmdGetSwitchRelay, "get_switch_relay", KindQuery, 0, SwitchRelaySize},
	{CmdSetBuzzerAction, "set_buzzer_action", KindSet, BuzzerActionSize, 1},
	{CmdGetSwitchButton, "get_switch_button", KindQuery, 0, SwitchButtonSize},
}

// Lookup returns the catalog entry for a command. The catalog is closed:
// reserved opcodes and anything unlisted report false.
func Lookup(cmd Command) (Entry, bool) {
	for _, e := range catalog {
		if e.Command == cmd {
			return e, true
		}
	}
	return Entry{}, false
}

// Catalog returns a copy of all dispatchable commands in opcode order
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog[:])
	return out
}

func (c Command) String() string {
	if e, ok := Lookup(c); ok {
		return e.Name
	}
	switch c {
	case CmdFail:
		return "fail"
	case CmdNOK:
		return "nok"
	}
	return "cmd(0x" + strconv.FormatUint(uint64(c), 16) + ")"
}
