// Package mcu manages the host's connection to one roller shutter panel.
package mcu

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"rscp/config"
	"rscp/core"
	"rscp/host/master"
	"rscp/host/serial"
	"rscp/protocol"
)

// MCU represents a connection to a panel microcontroller
type MCU struct {
	cfg      *config.Config
	log      zerolog.Logger
	observer protocol.Observer

	// Transport layer
	link   protocol.MasterLink
	closer io.Closer
	master *master.Master

	// In-process panel behind a pipe link
	sim       *core.SimDevice
	stopSim   context.CancelFunc
	simDone   chan struct{}
	connected bool

	identity *protocol.CPUQueryReply
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU(cfg *config.Config, log zerolog.Logger, observer protocol.Observer) *MCU {
	if observer == nil {
		observer = protocol.NopObserver
	}
	return &MCU{
		cfg:      cfg,
		log:      log,
		observer: observer,
	}
}

// Connect opens the configured link. A pipe link starts a simulated
// panel on the other end.
func (m *MCU) Connect() error {
	if m.connected {
		return nil
	}

	switch m.cfg.Link.Kind {
	case config.LinkSerial:
		sc := serial.DefaultConfig(m.cfg.Link.Device)
		sc.Baud = m.cfg.Link.Baud
		sc.ReadTimeout = m.cfg.Link.ReadTimeoutMS
		sc.Tick = m.cfg.Link.Tick

		link, err := serial.Dial(sc, serial.WithLogger(m.log))
		if err != nil {
			return fmt.Errorf("failed to open serial port: %w", err)
		}
		m.link, m.closer = link, link

	case config.LinkPipe:
		m.connectSim()

	default:
		return fmt.Errorf("unsupported link kind %q", m.cfg.Link.Kind)
	}

	m.master = master.New(m.link,
		master.WithObserver(m.observer),
		master.WithLogger(m.log.With().Str("role", "master").Logger()))
	m.connected = true

	m.log.Info().Str("link", m.cfg.Link.Kind).Str("device", m.cfg.Link.Device).Msg("connected")
	return nil
}

func (m *MCU) connectSim() {
	hostEnd, panelEnd := protocol.NewPipe()
	hostEnd.Tick = m.cfg.Link.Tick
	panelEnd.Tick = m.cfg.Link.Tick

	m.sim = core.NewSimDevice(m.cfg.Device.Shutters)
	slave := core.NewSlave(panelEnd, m.sim,
		core.WithIdentity(m.cfg.Identity()),
		core.WithLogger(m.log.With().Str("role", "slave").Logger()))

	ctx, cancel := context.WithCancel(context.Background())
	m.stopSim = cancel
	m.simDone = make(chan struct{})
	go func() {
		defer close(m.simDone)
		_ = slave.Run(ctx, m.cfg.Protocol.TimeoutTicks)
	}()

	m.link, m.closer = hostEnd, hostEnd
}

// Close closes the connection to the MCU
func (m *MCU) Close() error {
	if !m.connected {
		return nil
	}
	m.connected = false

	if m.stopSim != nil {
		m.stopSim()
		<-m.simDone
		m.stopSim = nil
	}
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}

// Identify queries the panel and checks that it speaks our protocol
func (m *MCU) Identify() (protocol.CPUQueryReply, error) {
	if !m.connected {
		return protocol.CPUQueryReply{}, fmt.Errorf("not connected to MCU")
	}

	id, err := m.master.QueryCPU(m.Timeout())
	if err != nil {
		return id, fmt.Errorf("cpu query: %w", err)
	}
	if id.ProtocolVersion != protocol.ProtocolVersion {
		return id, fmt.Errorf("panel speaks protocol version %d, want %d",
			id.ProtocolVersion, protocol.ProtocolVersion)
	}
	if id.CRCType != protocol.CRCTypeModbus16 {
		return id, fmt.Errorf("panel uses crc type %d, want %d", id.CRCType, protocol.CRCTypeModbus16)
	}

	m.identity = &id
	return id, nil
}

// Master returns the transaction layer, nil before Connect
func (m *MCU) Master() *master.Master {
	return m.master
}

// Timeout is the per-byte receive budget for transactions
func (m *MCU) Timeout() uint32 {
	return m.cfg.Protocol.TimeoutTicks
}

// Sim returns the simulated panel of a pipe link, nil otherwise
func (m *MCU) Sim() *core.SimDevice {
	return m.sim
}

func (m *MCU) IsConnected() bool {
	return m.connected
}

// PrintIdentity writes the last identity and the command catalog to w
func (m *MCU) PrintIdentity(w io.Writer) {
	if m.identity == nil {
		fmt.Fprintln(w, "No identity loaded")
		return
	}

	id := m.identity
	fmt.Fprintln(w, "=== Panel ===")
	fmt.Fprintf(w, "CPU type:         %s\n", CPUTypeName(id.CPUType))
	fmt.Fprintf(w, "Software version: %d\n", id.SWVersion)
	fmt.Fprintf(w, "Protocol version: %d\n", id.ProtocolVersion)
	fmt.Fprintf(w, "CRC type:         %d\n", id.CRCType)
	fmt.Fprintf(w, "Max packet:       %d bytes\n", id.PacketMaxLen)
	fmt.Fprintf(w, "Flags:            0x%04x\n", id.Flags)

	catalog := protocol.Catalog()
	fmt.Fprintf(w, "\nCommands (%d):\n", len(catalog))
	for _, e := range catalog {
		fmt.Fprintf(w, "  [0x%02x] %-22s %s\n", uint8(e.Command), e.Name, e.Kind)
	}
}

// CPUTypeName names a CPU type code
func CPUTypeName(t uint8) string {
	switch t {
	case protocol.CPUTypeATmega328P8MHz:
		return "ATmega328P @ 8 MHz"
	case protocol.CPUTypeESP32WROOM02D:
		return "ESP32-WROOM-02D"
	}
	return fmt.Sprintf("unknown (0x%02x)", t)
}
