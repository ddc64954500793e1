//go:build rp2040 || rp2350

// Command rp2040 runs an RSCP master on a Raspberry Pi Pico. It talks to
// one panel on I2C0 and toggles the panel's relay each time its button
// is pressed.
package main

import (
	"errors"
	"machine"
	"time"

	"rscp/host/i2c"
	"rscp/host/master"
	"rscp/protocol"
)

const (
	busFrequency = 100 * machine.KHz

	// byte budget in link ticks of one millisecond
	replyTimeout = 50

	pollInterval = 100 * time.Millisecond
	retryDelay   = time.Second
)

func main() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	// I2C0 - default pins: SDA=GP4, SCL=GP5
	bus := machine.I2C0
	err := bus.Configure(machine.I2CConfig{
		Frequency: busFrequency,
		SDA:       machine.GP4,
		SCL:       machine.GP5,
	})
	if err != nil {
		println("i2c configure failed:", err.Error())
		return
	}

	link := i2c.NewLink(bus, i2c.DefaultAddress, i2c.WithSettle(2*time.Millisecond))
	m := master.New(link)

	identify(m)
	led.High()

	pressed := false
	relayOn := false
	for {
		time.Sleep(pollInterval)

		button, err := m.GetSwitchButton(replyTimeout)
		if err != nil {
			println("button poll failed:", err.Error())
			led.Low()
			identify(m)
			led.High()
			continue
		}

		down := button.Status == protocol.SwitchOn
		if down && !pressed {
			relayOn = !relayOn
			if err := setRelay(m, relayOn); err != nil {
				println("relay:", err.Error())
				relayOn = !relayOn
			}
		}
		pressed = down
	}
}

// identify blocks until the panel answers a CPU query with our protocol
func identify(m *master.Master) {
	for {
		id, err := m.QueryCPU(replyTimeout)
		switch {
		case err != nil:
			println("cpu query failed:", err.Error())
		case id.ProtocolVersion != protocol.ProtocolVersion:
			println("panel protocol version", id.ProtocolVersion, "unsupported")
		default:
			println("panel online, sw version", id.SWVersion, "cpu type", id.CPUType)
			return
		}
		time.Sleep(retryDelay)
	}
}

func setRelay(m *master.Master, on bool) error {
	status := uint8(protocol.SwitchOff)
	if on {
		status = protocol.SwitchOn
	}
	code, err := m.SetSwitchRelay(protocol.SwitchRelay{Status: status}, replyTimeout)
	if err != nil {
		return err
	}
	if err := code.Err(); err != nil {
		return err
	}
	if code != protocol.CodeOK {
		return errors.New("panel answered " + code.String())
	}
	return nil
}
