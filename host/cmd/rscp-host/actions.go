package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rscp/protocol"
)

var shutterActions = map[string]uint8{
	"stop":  protocol.ShutterStop,
	"up":    protocol.ShutterUp,
	"down":  protocol.ShutterDown,
	"open":  protocol.ShutterOpen,
	"close": protocol.ShutterClose,
}

func parseUint8(raw, name string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint8(v), nil
}

func parseSwitch(raw string) (uint8, error) {
	switch strings.ToLower(raw) {
	case "on":
		return protocol.SwitchOn, nil
	case "off":
		return protocol.SwitchOff, nil
	}
	return 0, fmt.Errorf("invalid state %q (want on or off)", raw)
}

func switchName(status uint8) string {
	switch status {
	case protocol.SwitchOn:
		return "on"
	case protocol.SwitchOff:
		return "off"
	}
	return fmt.Sprintf("unknown (0x%02x)", status)
}

// outcome prints the panel's answer; anything but OK is an error
func (a *app) outcome(cmd protocol.Command, code protocol.Code, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	fmt.Fprintf(a.out, "%s: %s\n", cmd, code)
	if err := code.Err(); err != nil {
		return fmt.Errorf("%s: panel answered: %w", cmd, err)
	}
	if code != protocol.CodeOK {
		return fmt.Errorf("%s: panel answered %s", cmd, code)
	}
	return nil
}

func (a *app) cpu() error {
	if _, err := a.mcu.Identify(); err != nil {
		return err
	}
	a.mcu.PrintIdentity(a.out)
	return nil
}

// shutterAction expects: <shutter> <stop|up|down|open|close> [retries]
func (a *app) shutterAction(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: shutter action <shutter> <stop|up|down|open|close> [retries]")
	}
	id, err := parseUint8(args[0], "shutter")
	if err != nil {
		return err
	}
	action, ok := shutterActions[strings.ToLower(args[1])]
	if !ok {
		return fmt.Errorf("invalid shutter action %q", args[1])
	}
	var retries uint8
	if len(args) == 3 {
		if retries, err = parseUint8(args[2], "retries"); err != nil {
			return err
		}
	}

	arg := protocol.ShutterAction{Shutter: id, Action: action, Retries: retries}
	code, err := a.mcu.Master().SetShutterAction(arg, a.mcu.Timeout())
	return a.outcome(protocol.CmdSetShutterAction, code, err)
}

// shutterPosition expects: <shutter> <percent>
func (a *app) shutterPosition(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: shutter position <shutter> <percent>")
	}
	id, err := parseUint8(args[0], "shutter")
	if err != nil {
		return err
	}
	pos, err := parseUint8(args[1], "position")
	if err != nil {
		return err
	}

	arg := protocol.ShutterPosition{Shutter: id, Position: pos}
	code, err := a.mcu.Master().SetShutterPosition(arg, a.mcu.Timeout())
	return a.outcome(protocol.CmdSetShutterPosition, code, err)
}

func (a *app) shutterGet() error {
	pos, err := a.mcu.Master().GetShutterPosition(a.mcu.Timeout())
	if err != nil {
		return fmt.Errorf("%s: %w", protocol.CmdGetShutterPosition, err)
	}
	fmt.Fprintf(a.out, "shutter %d at %d%%\n", pos.Shutter, pos.Position)
	return nil
}

func (a *app) relayGet() error {
	relay, err := a.mcu.Master().GetSwitchRelay(a.mcu.Timeout())
	if err != nil {
		return fmt.Errorf("%s: %w", protocol.CmdGetSwitchRelay, err)
	}
	fmt.Fprintf(a.out, "relay %s\n", switchName(relay.Status))
	return nil
}

func (a *app) relaySet(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: relay set <on|off>")
	}
	status, err := parseSwitch(args[0])
	if err != nil {
		return err
	}
	code, err := a.mcu.Master().SetSwitchRelay(protocol.SwitchRelay{Status: status}, a.mcu.Timeout())
	return a.outcome(protocol.CmdSetSwitchRelay, code, err)
}

func (a *app) button() error {
	button, err := a.mcu.Master().GetSwitchButton(a.mcu.Timeout())
	if err != nil {
		return fmt.Errorf("%s: %w", protocol.CmdGetSwitchButton, err)
	}
	fmt.Fprintf(a.out, "button %s\n", switchName(button.Status))
	return nil
}

// buzzer expects: <on|off> [volume] [duration_ms]
func (a *app) buzzer(args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return fmt.Errorf("usage: buzzer <on|off> [volume] [duration_ms]")
	}

	arg := protocol.BuzzerAction{Action: protocol.BuzzerOff}
	switch strings.ToLower(args[0]) {
	case "on":
		arg.Action = protocol.BuzzerOn
	case "off":
	default:
		return fmt.Errorf("invalid buzzer action %q (want on or off)", args[0])
	}
	if len(args) > 1 {
		v, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid volume %q", args[1])
		}
		arg.Volume = uint32(v)
	}
	if len(args) > 2 {
		v, err := strconv.ParseUint(args[2], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid duration %q", args[2])
		}
		arg.DurationMS = uint32(v)
	}

	code, err := a.mcu.Master().SetBuzzerAction(arg, a.mcu.Timeout())
	return a.outcome(protocol.CmdSetBuzzerAction, code, err)
}

func newCPUCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cpu",
		Short: "Query CPU type and protocol version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cpu()
		},
	}
}

func newShutterCmd(a *app) *cobra.Command {
	shutter := &cobra.Command{
		Use:   "shutter",
		Short: "Move shutters and read their position",
	}
	shutter.AddCommand(
		&cobra.Command{
			Use:   "action <shutter> <stop|up|down|open|close> [retries]",
			Short: "Run a shutter action",
			Args:  cobra.RangeArgs(2, 3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.shutterAction(args)
			},
		},
		&cobra.Command{
			Use:   "position <shutter> <percent>",
			Short: "Drive a shutter to a position",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.shutterPosition(args)
			},
		},
		&cobra.Command{
			Use:   "get",
			Short: "Read the shutter position",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.shutterGet()
			},
		},
	)
	return shutter
}

func newRelayCmd(a *app) *cobra.Command {
	relay := &cobra.Command{
		Use:   "relay",
		Short: "Read or switch the relay",
	}
	relay.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Read the relay state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.relayGet()
			},
		},
		&cobra.Command{
			Use:   "set <on|off>",
			Short: "Switch the relay",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.relaySet(args)
			},
		},
	)
	return relay
}

func newButtonCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "button",
		Short: "Read the button state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.button()
		},
	}
}

func newBuzzerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "buzzer <on|off> [volume] [duration_ms]",
		Short: "Sound or silence the buzzer",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.buzzer(args)
		},
	}
}
