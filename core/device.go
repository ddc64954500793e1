package core

import "rscp/protocol"

// Device is the peripheral behind a slave. Query methods fill a reply
// record; set methods apply an argument record and return the outcome
// code that goes back to the master.
type Device interface {
	ShutterPosition() protocol.ShutterPosition
	SwitchRelay() protocol.SwitchRelay
	SwitchButton() protocol.SwitchButton

	SetShutterAction(arg protocol.ShutterAction) protocol.Code
	SetShutterPosition(arg protocol.ShutterPosition) protocol.Code
	SetSwitchRelay(arg protocol.SwitchRelay) protocol.Code
	SetBuzzerAction(arg protocol.BuzzerAction) protocol.Code
}
