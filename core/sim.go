package core

import (
	"sync"

	"rscp/protocol"
)

// SimDevice is an in-memory roller shutter panel: a set of shutters,
// one relay, one button and a buzzer. It is used by the slave simulator
// and by tests.
type SimDevice struct {
	mu        sync.Mutex
	positions []uint8
	current   uint8 // shutter reported by ShutterPosition
	relay     uint8
	button    uint8
	buzzer    protocol.BuzzerAction
	actions   []protocol.ShutterAction
}

// NewSimDevice creates a device with the given number of shutters, all
// fully open, relay and button off.
func NewSimDevice(shutters int) *SimDevice {
	if shutters < 1 {
		shutters = 1
	}
	return &SimDevice{
		positions: make([]uint8, shutters),
		relay:     protocol.SwitchOff,
		button:    protocol.SwitchOff,
		buzzer:    protocol.BuzzerAction{Action: protocol.BuzzerOff},
	}
}

func (d *SimDevice) validShutter(id uint8) bool {
	return int(id) < len(d.positions)
}

// ShutterPosition reports the last shutter addressed by a set command
func (d *SimDevice) ShutterPosition() protocol.ShutterPosition {
	d.mu.Lock()
	defer d.mu.Unlock()
	return protocol.ShutterPosition{Shutter: d.current, Position: d.positions[d.current]}
}

func (d *SimDevice) SwitchRelay() protocol.SwitchRelay {
	d.mu.Lock()
	defer d.mu.Unlock()
	return protocol.SwitchRelay{Status: d.relay}
}

func (d *SimDevice) SwitchButton() protocol.SwitchButton {
	d.mu.Lock()
	defer d.mu.Unlock()
	return protocol.SwitchButton{Status: d.button}
}

// SetShutterAction moves a shutter. Up/Open drive it to 0 %, Down/Close
// to 100 %, Stop leaves it where it is.
func (d *SimDevice) SetShutterAction(arg protocol.ShutterAction) protocol.Code {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.validShutter(arg.Shutter) {
		return protocol.CodeNOK
	}
	switch arg.Action {
	case protocol.ShutterStop:
	case protocol.ShutterUp, protocol.ShutterOpen:
		d.positions[arg.Shutter] = 0
	case protocol.ShutterDown, protocol.ShutterClose:
		d.positions[arg.Shutter] = 100
	default:
		return protocol.CodeNOK
	}
	d.current = arg.Shutter
	d.actions = append(d.actions, arg)
	return protocol.CodeOK
}

func (d *SimDevice) SetShutterPosition(arg protocol.ShutterPosition) protocol.Code {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.validShutter(arg.Shutter) || arg.Position > 100 {
		return protocol.CodeNOK
	}
	d.positions[arg.Shutter] = arg.Position
	d.current = arg.Shutter
	return protocol.CodeOK
}

func (d *SimDevice) SetSwitchRelay(arg protocol.SwitchRelay) protocol.Code {
	d.mu.Lock()
	defer d.mu.Unlock()

	if arg.Status != protocol.SwitchOn && arg.Status != protocol.SwitchOff {
		return protocol.CodeNOK
	}
	d.relay = arg.Status
	return protocol.CodeOK
}

func (d *SimDevice) SetBuzzerAction(arg protocol.BuzzerAction) protocol.Code {
	d.mu.Lock()
	defer d.mu.Unlock()

	if arg.Action != protocol.BuzzerOn && arg.Action != protocol.BuzzerOff {
		return protocol.CodeNOK
	}
	d.buzzer = arg
	return protocol.CodeOK
}

// PressButton sets the button state reported to the master
func (d *SimDevice) PressButton(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if on {
		d.button = protocol.SwitchOn
	} else {
		d.button = protocol.SwitchOff
	}
}

// Buzzer returns the last buzzer command
func (d *SimDevice) Buzzer() protocol.BuzzerAction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buzzer
}

// Actions returns the shutter actions applied so far
func (d *SimDevice) Actions() []protocol.ShutterAction {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]protocol.ShutterAction, len(d.actions))
	copy(out, d.actions)
	return out
}

var _ Device = (*SimDevice)(nil)
