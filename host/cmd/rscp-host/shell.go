package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive command loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.shell()
		},
	}
}

func (a *app) shell() error {
	fmt.Fprintln(a.out, "Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(a.in)

	for {
		fmt.Fprint(a.out, "> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if parts[0] == "quit" || parts[0] == "exit" || parts[0] == "q" {
			fmt.Fprintln(a.out, "Goodbye!")
			return nil
		}
		if err := a.dispatch(parts); err != nil {
			fmt.Fprintf(a.out, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// dispatch runs one shell line
func (a *app) dispatch(parts []string) error {
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "help", "?":
		a.printHelp()
		return nil

	case "cpu":
		return a.cpu()

	case "shutter":
		if len(args) == 0 {
			return fmt.Errorf("usage: shutter <action|position|get> ...")
		}
		switch args[0] {
		case "action":
			return a.shutterAction(args[1:])
		case "position":
			return a.shutterPosition(args[1:])
		case "get":
			return a.shutterGet()
		}
		return fmt.Errorf("unknown shutter command %q", args[0])

	case "relay":
		if len(args) == 0 || args[0] == "get" {
			return a.relayGet()
		}
		if args[0] == "set" {
			return a.relaySet(args[1:])
		}
		return fmt.Errorf("unknown relay command %q", args[0])

	case "button":
		return a.button()

	case "buzzer":
		return a.buzzer(args)

	case "press", "release":
		sim := a.mcu.Sim()
		if sim == nil {
			return fmt.Errorf("%s needs a simulated panel (--pipe)", cmd)
		}
		pressed := cmd == "press"
		sim.PressButton(pressed)
		if pressed {
			fmt.Fprintln(a.out, "button pressed")
		} else {
			fmt.Fprintln(a.out, "button released")
		}
		return nil
	}

	return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
}

func (a *app) printHelp() {
	fmt.Fprintln(a.out, "\nAvailable commands:")
	fmt.Fprintln(a.out, "  help                                   - Show this help message")
	fmt.Fprintln(a.out, "  cpu                                    - Query CPU type and protocol version")
	fmt.Fprintln(a.out, "  shutter action <id> <action> [retries] - stop, up, down, open or close a shutter")
	fmt.Fprintln(a.out, "  shutter position <id> <percent>        - Drive a shutter to a position")
	fmt.Fprintln(a.out, "  shutter get                            - Read the shutter position")
	fmt.Fprintln(a.out, "  relay [get] | relay set <on|off>       - Read or switch the relay")
	fmt.Fprintln(a.out, "  button                                 - Read the button state")
	fmt.Fprintln(a.out, "  buzzer <on|off> [volume] [duration_ms] - Sound or silence the buzzer")
	fmt.Fprintln(a.out, "  press | release                        - Operate the simulated button (--pipe)")
	fmt.Fprintln(a.out, "  quit/exit/q                            - Exit the program")
	fmt.Fprintln(a.out)
}
