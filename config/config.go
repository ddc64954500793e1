// Package config loads the TOML file shared by rscp-host and rscp-slave.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"rscp/protocol"
)

// Role selects which side of the protocol a process plays
type Role string

const (
	RoleMaster Role = "master"
	RoleSlave  Role = "slave"
)

// Link kinds
const (
	LinkSerial = "serial"
	LinkPipe   = "pipe"
)

// Config is the whole configuration file. An empty Role fits either
// binary; see RequireRole.
type Config struct {
	Role     Role           `toml:"role"`
	Link     LinkConfig     `toml:"link"`
	Protocol ProtocolConfig `toml:"protocol"`
	Device   DeviceConfig   `toml:"device"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// LinkConfig describes the transport
type LinkConfig struct {
	Kind          string        `toml:"kind"`
	Device        string        `toml:"device"`
	Baud          int           `toml:"baud"`
	ReadTimeoutMS int           `toml:"read_timeout_ms"`
	TickRaw       string        `toml:"tick"`
	Tick          time.Duration `toml:"-"`
}

// ProtocolConfig holds the receive budgets
type ProtocolConfig struct {
	// TimeoutTicks is the per-byte receive budget
	TimeoutTicks uint32 `toml:"timeout_ticks"`
}

// DeviceConfig is the identity and size of a simulated panel
type DeviceConfig struct {
	CPUType   uint8 `toml:"cpu_type"`
	SWVersion uint8 `toml:"sw_version"`
	Shutters  int   `toml:"shutters"`
}

type LogConfig struct {
	Level   string `toml:"level"`
	NoColor bool   `toml:"no_color"`
	JSON    bool   `toml:"json"`
}

type MetricsConfig struct {
	// Listen is the address for the Prometheus handler; empty disables it
	Listen string `toml:"listen"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and validates a configuration file
func Load(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return finish(&cfg, meta)
}

// Parse decodes configuration from TOML text
func Parse(data string) (*Config, error) {
	var cfg Config
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finish(&cfg, meta)
}

func finish(cfg *Config, meta toml.MetaData) (*Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	if meta.IsDefined("link", "tick") {
		d, err := time.ParseDuration(strings.TrimSpace(cfg.Link.TickRaw))
		if err != nil {
			return nil, fmt.Errorf("parse link.tick: %w", err)
		}
		cfg.Link.Tick = d
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.Link.Kind == "" {
		cfg.Link.Kind = LinkSerial
	}
	if cfg.Link.Baud == 0 {
		cfg.Link.Baud = 115200
	}
	if cfg.Link.ReadTimeoutMS == 0 {
		cfg.Link.ReadTimeoutMS = 50
	}
	if cfg.Link.Tick == 0 {
		cfg.Link.Tick = time.Millisecond
	}

	if cfg.Protocol.TimeoutTicks == 0 {
		cfg.Protocol.TimeoutTicks = 100
	}

	if cfg.Device.CPUType == 0 {
		cfg.Device.CPUType = protocol.CPUTypeATmega328P8MHz
	}
	if cfg.Device.SWVersion == 0 {
		cfg.Device.SWVersion = protocol.SWVersion
	}
	if cfg.Device.Shutters == 0 {
		cfg.Device.Shutters = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	switch c.Role {
	case "", RoleMaster, RoleSlave:
	default:
		return fmt.Errorf("invalid role %q (want master or slave)", c.Role)
	}

	switch c.Link.Kind {
	case LinkSerial:
		if strings.TrimSpace(c.Link.Device) == "" {
			return fmt.Errorf("link.device is required for a serial link")
		}
	case LinkPipe:
	default:
		return fmt.Errorf("invalid link.kind %q (want serial or pipe)", c.Link.Kind)
	}

	if c.Link.Baud < 0 || c.Link.ReadTimeoutMS < 0 || c.Link.Tick < 0 {
		return fmt.Errorf("link settings must not be negative")
	}
	if c.Device.Shutters < 1 || c.Device.Shutters > 255 {
		return fmt.Errorf("device.shutters %d out of range 1..255", c.Device.Shutters)
	}
	return nil
}

// RequireRole claims the configuration for a process playing r. A file
// written for the other side is rejected.
func (c *Config) RequireRole(r Role) error {
	if c.Role != "" && c.Role != r {
		return fmt.Errorf("config is for role %q, this program plays %q", c.Role, r)
	}
	c.Role = r
	return nil
}

// Identity is the CPU query reply a slave with this configuration sends
func (c *Config) Identity() protocol.CPUQueryReply {
	id := protocol.DefaultCPUQueryReply(c.Device.CPUType)
	id.SWVersion = c.Device.SWVersion
	return id
}
