package core

import (
	"testing"

	"rscp/protocol"
)

func TestSimDeviceShutters(t *testing.T) {
	dev := NewSimDevice(3)

	if code := dev.SetShutterAction(protocol.ShutterAction{Shutter: 1, Action: protocol.ShutterDown}); code != protocol.CodeOK {
		t.Fatalf("Expected OK, got %v", code)
	}
	if pos := dev.ShutterPosition(); pos.Shutter != 1 || pos.Position != 100 {
		t.Errorf("Expected shutter 1 at 100, got %+v", pos)
	}

	dev.SetShutterAction(protocol.ShutterAction{Shutter: 1, Action: protocol.ShutterStop})
	if pos := dev.ShutterPosition(); pos.Position != 100 {
		t.Errorf("Stop must not move the shutter, got %+v", pos)
	}

	dev.SetShutterAction(protocol.ShutterAction{Shutter: 1, Action: protocol.ShutterOpen})
	if pos := dev.ShutterPosition(); pos.Position != 0 {
		t.Errorf("Expected open shutter at 0, got %+v", pos)
	}

	if len(dev.Actions()) != 3 {
		t.Errorf("Expected 3 recorded actions, got %d", len(dev.Actions()))
	}
}

func TestSimDeviceRejectsBadArguments(t *testing.T) {
	dev := NewSimDevice(2)

	cases := []struct {
		name string
		code protocol.Code
	}{
		{"unknown shutter", dev.SetShutterAction(protocol.ShutterAction{Shutter: 2, Action: protocol.ShutterUp})},
		{"unknown action", dev.SetShutterAction(protocol.ShutterAction{Shutter: 0, Action: 0x09})},
		{"position over 100", dev.SetShutterPosition(protocol.ShutterPosition{Shutter: 0, Position: 101})},
		{"relay state", dev.SetSwitchRelay(protocol.SwitchRelay{Status: 0})},
		{"buzzer action", dev.SetBuzzerAction(protocol.BuzzerAction{Action: 7})},
	}

	for _, tc := range cases {
		if tc.code != protocol.CodeNOK {
			t.Errorf("%s: expected NOK, got %v", tc.name, tc.code)
		}
	}

	if dev.SwitchRelay().Status != protocol.SwitchOff {
		t.Error("Rejected relay command changed the relay")
	}
	if len(dev.Actions()) != 0 {
		t.Error("Rejected shutter actions were recorded")
	}
}

func TestSimDeviceButton(t *testing.T) {
	dev := NewSimDevice(0)

	if dev.SwitchButton().Status != protocol.SwitchOff {
		t.Error("Button should start off")
	}
	dev.PressButton(true)
	if dev.SwitchButton().Status != protocol.SwitchOn {
		t.Error("Button should be on after press")
	}
}
