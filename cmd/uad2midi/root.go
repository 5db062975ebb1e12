package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leandrodaf/uad2midi/internal/config"
	internalconsole "github.com/leandrodaf/uad2midi/internal/console"
	"github.com/leandrodaf/uad2midi/internal/logger"
	"github.com/leandrodaf/uad2midi/internal/metrics"
	"github.com/leandrodaf/uad2midi/sdk/console"
	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"github.com/leandrodaf/uad2midi/sdk/midi"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const shutdownTimeout = 5 * time.Second

// app carries what PersistentPreRunE resolved for the sub-commands.
type app struct {
	configPath string
	rules      []string

	v   *viper.Viper
	cfg *config.Config
	log *logger.ZapLogger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "uad2midi",
		Short: "Bridge UAD console value changes to MIDI messages",
		Long: `uad2midi connects to the UAD console (default localhost:4710), subscribes
to the paths named by the configured rules and sends a MIDI message or a
console command whenever a rule matches a value change.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBridge(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Configuration file (yaml, json, toml or properties)")
	flags.String("host", "", "Console host name")
	flags.Int("port", 0, "Console TCP port")
	flags.String("dialect", "", "Rule dialect: absolute or scoped")
	flags.String("device", "", "MIDI output device name")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log encoding: json or console")
	flags.String("log-file", "", "Write logs to this file instead of stderr")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9100")
	flags.StringArrayVar(&a.rules, "rule", nil, "Additional JSON rule; may be repeated")

	bindFlags(a.v, flags, map[string]string{
		"host":         config.KeyHostname,
		"port":         config.KeyPort,
		"dialect":      config.KeyDialect,
		"device":       config.KeyDeviceName,
		"log-level":    config.KeyLogLevel,
		"log-format":   config.KeyLogFormat,
		"log-file":     config.KeyLogFile,
		"metrics-addr": config.KeyMetricsAddress,
	})

	root.AddCommand(newDevicesCmd(a), newConfigCmd(a))
	return root
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

// setup reads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.ReadFile(a.v, a.configPath); err != nil {
		return err
	}
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	cfg.Subscription = append(cfg.Subscription, a.rules...)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := contracts.ParseLogLevel(cfg.Log.Level)
	a.log = logger.NewZapLoggerWithFormat(logger.Format(cfg.Log.Format))
	a.log.SetLevel(level)
	if cfg.Log.File != "" {
		if err := a.log.SetDestination(contracts.FileLog, cfg.Log.File); err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
	}
	return nil
}

// metricsSource is implemented by console clients that expose collectors.
type metricsSource interface {
	Metrics() *internalconsole.Metrics
}

func (a *app) runBridge(ctx context.Context) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() { _ = a.log.Sync() }()

	if len(a.cfg.Subscription) == 0 {
		a.log.Warn("No subscriptions configured; nothing will be forwarded")
	}

	sink, err := midi.NewMIDIClient(a.cfg.MIDIOptions(a.log, true)...)
	if err != nil {
		a.log.Fatal("Could not open MIDI output device",
			a.log.Field().String("device", a.cfg.MIDI.DeviceName),
			a.log.Field().Error("error", err))
	}

	client, err := console.NewConsoleClient(sink, a.cfg.ConsoleOptions(a.log)...)
	if err != nil {
		return multierr.Append(err, sink.Stop())
	}

	var server *metrics.Server
	if a.cfg.Metrics.Address != "" {
		reg := metrics.NewRegistry()
		if src, ok := client.(metricsSource); ok {
			if err := src.Metrics().Register(reg); err != nil {
				return multierr.Append(err, sink.Stop())
			}
		}
		server = metrics.NewServer(a.cfg.Metrics.Address, reg, a.log)
		if err := server.Start(); err != nil {
			return multierr.Append(fmt.Errorf("starting metrics server: %w", err), sink.Stop())
		}
	}

	runErr := client.Run(ctx)
	a.log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = multierr.Combine(runErr, client.Stop(), sink.Stop())
	if server != nil {
		err = multierr.Append(err, server.Stop(shutdownCtx))
	}
	if err != nil {
		a.log.Error("Shutdown finished with errors", a.log.Field().Error("error", err))
	}
	return err
}
