// rscp-slave simulates a roller shutter panel on a serial port so masters
// can be tested without hardware.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rscp/config"
	"rscp/core"
	"rscp/host/serial"
	"rscp/logging"
	"rscp/metrics"
	"rscp/protocol"
)

type options struct {
	configPath    string
	device        string
	baud          int
	shutters      int
	cpuType       uint8
	timeout       uint32
	logLevel      string
	metricsListen string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "rscp-slave",
		Short:         "Simulated roller shutter panel",
		Version:       protocol.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "TOML configuration file")
	flags.StringVarP(&opts.device, "device", "d", "", "serial device path")
	flags.IntVar(&opts.baud, "baud", 0, "serial baud rate")
	flags.IntVar(&opts.shutters, "shutters", 0, "number of simulated shutters")
	flags.Uint8Var(&opts.cpuType, "cpu-type", 0, "CPU type reported to CPU queries")
	flags.Uint32Var(&opts.timeout, "timeout", 0, "per-byte receive budget in ticks")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, off)")
	flags.StringVar(&opts.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	return cmd
}

func loadConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Link.Device = opts.device
	}
	if flags.Changed("baud") {
		cfg.Link.Baud = opts.baud
	}
	if flags.Changed("shutters") {
		cfg.Device.Shutters = opts.shutters
	}
	if flags.Changed("cpu-type") {
		cfg.Device.CPUType = opts.cpuType
	}
	if flags.Changed("timeout") {
		cfg.Protocol.TimeoutTicks = opts.timeout
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("metrics-listen") {
		cfg.Metrics.Listen = opts.metricsListen
	}

	if err := cfg.RequireRole(config.RoleSlave); err != nil {
		return nil, err
	}
	if cfg.Link.Kind != config.LinkSerial {
		return nil, fmt.Errorf("rscp-slave needs a serial link, got %q", cfg.Link.Kind)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logging.Configure(logging.Config{
		Level:   cfg.Log.Level,
		NoColor: cfg.Log.NoColor,
		JSON:    cfg.Log.JSON,
	})

	collector := metrics.NewCollector()
	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		if err := collector.Register(reg); err != nil {
			return err
		}
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, reg); err != nil {
				log.Error().Err(err).Str("addr", cfg.Metrics.Listen).Msg("metrics server failed")
			}
		}()
	}

	sc := serial.DefaultConfig(cfg.Link.Device)
	sc.Baud = cfg.Link.Baud
	sc.ReadTimeout = cfg.Link.ReadTimeoutMS
	sc.Tick = cfg.Link.Tick
	link, err := serial.Dial(sc, serial.WithLogger(log))
	if err != nil {
		return err
	}
	defer link.Close()

	log.Info().
		Str("device", cfg.Link.Device).
		Int("baud", cfg.Link.Baud).
		Int("shutters", cfg.Device.Shutters).
		Msg("panel simulator ready")

	return serve(ctx, cfg, link, core.NewSimDevice(cfg.Device.Shutters), log, collector)
}

// serve answers requests on link until ctx is cancelled
func serve(ctx context.Context, cfg *config.Config, link protocol.Link, dev core.Device, log zerolog.Logger, obs protocol.Observer) error {
	slave := core.NewSlave(link, dev,
		core.WithIdentity(cfg.Identity()),
		core.WithObserver(obs),
		core.WithLogger(log))

	err := slave.Run(ctx, cfg.Protocol.TimeoutTicks)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("shutting down")
		return nil
	}
	return err
}
