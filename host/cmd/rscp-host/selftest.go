package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rscp/protocol"
)

func newSelftestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Run every catalog command against a simulated panel",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.pipe = true
			return a.open(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.selftest()
		},
	}
}

type check struct {
	name string
	run  func() error
}

func (a *app) selftest() error {
	m := a.mcu.Master()
	timeout := a.mcu.Timeout()
	shutters := a.cfg.Device.Shutters

	expectCode := func(want protocol.Code) func(protocol.Code, error) error {
		return func(code protocol.Code, err error) error {
			if err != nil {
				return err
			}
			if code != want {
				return fmt.Errorf("got %s, want %s", code, want)
			}
			return nil
		}
	}
	ok, nok := expectCode(protocol.CodeOK), expectCode(protocol.CodeNOK)

	checks := []check{
		{"cpu query", func() error {
			_, err := a.mcu.Identify()
			return err
		}},
		{"shutter position", func() error {
			last := uint8(shutters - 1)
			if err := ok(m.SetShutterPosition(protocol.ShutterPosition{Shutter: last, Position: 42}, timeout)); err != nil {
				return err
			}
			pos, err := m.GetShutterPosition(timeout)
			if err != nil {
				return err
			}
			if pos.Shutter != last || pos.Position != 42 {
				return fmt.Errorf("read back %+v", pos)
			}
			return nil
		}},
		{"shutter action", func() error {
			if err := ok(m.SetShutterAction(protocol.ShutterAction{Action: protocol.ShutterClose}, timeout)); err != nil {
				return err
			}
			pos, err := m.GetShutterPosition(timeout)
			if err != nil {
				return err
			}
			if pos.Position != 100 {
				return fmt.Errorf("closed shutter at %d%%", pos.Position)
			}
			return nil
		}},
		{"unknown shutter rejected", func() error {
			return nok(m.SetShutterAction(protocol.ShutterAction{Shutter: uint8(shutters), Action: protocol.ShutterUp}, timeout))
		}},
		{"relay", func() error {
			if err := ok(m.SetSwitchRelay(protocol.SwitchRelay{Status: protocol.SwitchOn}, timeout)); err != nil {
				return err
			}
			relay, err := m.GetSwitchRelay(timeout)
			if err != nil {
				return err
			}
			if relay.Status != protocol.SwitchOn {
				return fmt.Errorf("relay reads %s", switchName(relay.Status))
			}
			return nil
		}},
		{"button", func() error {
			a.mcu.Sim().PressButton(true)
			defer a.mcu.Sim().PressButton(false)
			button, err := m.GetSwitchButton(timeout)
			if err != nil {
				return err
			}
			if button.Status != protocol.SwitchOn {
				return fmt.Errorf("button reads %s", switchName(button.Status))
			}
			return nil
		}},
		{"buzzer", func() error {
			return ok(m.SetBuzzerAction(protocol.BuzzerAction{Action: protocol.BuzzerOn, Volume: 10, DurationMS: 50}, timeout))
		}},
		{"unsupported command", func() error {
			return expectCode(protocol.CodeNotSupported)(m.SendAction(0x42, nil, timeout))
		}},
		{"reply length limit", func() error {
			_, err := m.RequestData(protocol.CmdCPUQuery, protocol.MaxDataSize+1, timeout)
			if !errors.Is(err, protocol.ErrRequestFailed) {
				return fmt.Errorf("got %v, want %v", err, protocol.ErrRequestFailed)
			}
			return nil
		}},
	}

	failed := 0
	for _, c := range checks {
		if err := c.run(); err != nil {
			failed++
			fmt.Fprintf(a.out, "FAIL %-26s %v\n", c.name, err)
			continue
		}
		fmt.Fprintf(a.out, "PASS %s\n", c.name)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	fmt.Fprintf(a.out, "all %d checks passed\n", len(checks))
	return nil
}
