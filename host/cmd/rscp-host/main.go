package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rscp/config"
	"rscp/host/mcu"
	"rscp/logging"
	"rscp/metrics"
	"rscp/protocol"
)

// app holds the flags and the open connection shared by all subcommands
type app struct {
	configPath    string
	device        string
	baud          int
	pipe          bool
	timeout       uint32
	logLevel      string
	metricsListen string

	in  io.Reader
	out io.Writer

	cfg         *config.Config
	log         zerolog.Logger
	mcu         *mcu.MCU
	stopMetrics context.CancelFunc
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{in: in, out: out, log: zerolog.Nop()}
}

func main() {
	a := newApp(os.Stdin, os.Stdout)
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "rscp-host",
		Short:         "Control a roller shutter panel over RSCP",
		Long:          "rscp-host is the master side of the Roller Shutter Control Panel Protocol.",
		Version:       protocol.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.out)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "TOML configuration file")
	flags.StringVarP(&a.device, "device", "d", "", "serial device path")
	flags.IntVar(&a.baud, "baud", 0, "serial baud rate")
	flags.BoolVar(&a.pipe, "pipe", false, "talk to an in-process simulated panel")
	flags.Uint32Var(&a.timeout, "timeout", 0, "per-byte receive budget in ticks")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, off)")
	flags.StringVar(&a.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		newCPUCmd(a),
		newShutterCmd(a),
		newRelayCmd(a),
		newButtonCmd(a),
		newBuzzerCmd(a),
		newShellCmd(a),
		newSelftestCmd(a),
	)
	return root
}

// open loads the configuration, applies flag overrides and connects
func (a *app) open(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Link.Kind = config.LinkSerial
		cfg.Link.Device = a.device
	}
	if flags.Changed("baud") {
		cfg.Link.Baud = a.baud
	}
	if a.pipe {
		cfg.Link.Kind = config.LinkPipe
	}
	if flags.Changed("timeout") {
		cfg.Protocol.TimeoutTicks = a.timeout
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("metrics-listen") {
		cfg.Metrics.Listen = a.metricsListen
	}
	if err := cfg.RequireRole(config.RoleMaster); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.log = logging.Configure(logging.Config{
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
		ctx, cancel := context.WithCancel(context.Background())
		a.stopMetrics = cancel
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, reg); err != nil {
				a.log.Error().Err(err).Str("addr", cfg.Metrics.Listen).Msg("metrics server failed")
			}
		}()
	}

	a.mcu = mcu.NewMCU(cfg, a.log, collector)
	if err := a.mcu.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (a *app) close() {
	if a.mcu != nil {
		if err := a.mcu.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close failed")
		}
		a.mcu = nil
	}
	if a.stopMetrics != nil {
		a.stopMetrics()
		a.stopMetrics = nil
	}
}
