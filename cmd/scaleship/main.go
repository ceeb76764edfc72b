package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/cpro-iot/scaleship/internal/cliconfig"
	"github.com/cpro-iot/scaleship/pkg/log"
	"github.com/cpro-iot/scaleship/pkg/publish"
	"github.com/cpro-iot/scaleship/pkg/scaleship"
	"github.com/cpro-iot/scaleship/plugins/configwatcher"
)

const helpDescription = `
Poll a weighing terminal over TCP and log every reading.

Highlights:
  - Sends <RM1> on a fixed interval and decodes the 63 or 64 byte answer.
  - Reconnects on a fresh socket after any I/O or framing fault.
  - Optionally publishes readings as JSON to an MQTT or NATS broker.
  - Configure via file, env (SCALESHIP_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  scaleship 192.0.2.10
  scaleship 192.0.2.10 --port 1234 --interval 2500 --protocol v63
  scaleship --config $HOME/.scaleship/config.toml --mqtt tcp://broker:1883
  scaleship 192.0.2.10 --broker nats://broker:4222 --metrics-addr :9100
`)

const (
	brokerConnectTimeout = 30 * time.Second
	metricsShutdown      = 5 * time.Second
)

// errConfigChanged ends the run group when the config file changes and
// exit_on_config_change is set.
var errConfigChanged = errors.New("config file changed")

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var (
		cfgPath         string
		terminatorBytes int
	)

	logger := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "scaleship [host]",
		Short:   "Poll a weighing terminal over TCP and log every reading",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			if changed["mqtt"] {
				changed["broker"] = true
			}
			if changed["terminator-bytes"] {
				cfg.TerminatorBytes = &terminatorBytes
			}
			if len(args) == 1 {
				cfg.Host = args[0]
				changed["host"] = true
			}

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return configFault("load config", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return configFault("file config", err)
				}
			}

			// Environment overrides the file; flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return configFault("env config", err)
			}

			if err := cfg.Validate(); err != nil {
				return configFault("validate", err)
			}

			zl, err := cliconfig.NewLogger(cfg)
			if err != nil {
				return configFault("log level", err)
			}
			logger = zl
			logger.Info().
				Str("host", cfg.Host).
				Int("port", cfg.Port).
				Dur("interval", cfg.Interval).
				Str("protocol", cfg.Protocol).
				Str("broker", cfg.Broker).
				Str("metrics_addr", cfg.MetricsAddr).
				Msg("configuration")

			return runAgent(cfg, cfgFile, log.NewZerologAdapterWithLogger(logger))
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.scaleship/config.toml)")
	root.Flags().StringVar(&cfg.Host, "host", cfg.Host, "scale host name or address (or first argument)")
	root.Flags().IntVar(&cfg.Port, "port", cfg.Port, "scale TCP port")

	root.Flags().Var(cliconfig.NewIntervalValue(&cfg.Interval), "interval", "poll interval (duration or milliseconds)")
	root.Flags().DurationVar(&cfg.IOTimeout, "io-timeout", cfg.IOTimeout, "deadline for each write and read")
	root.Flags().DurationVar(&cfg.ReconnectBackoff, "reconnect-backoff", cfg.ReconnectBackoff, "wait between connect attempts")
	root.Flags().IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "give up after this many reconnect retries in a row (0 = never)")

	root.Flags().StringVar(&cfg.Protocol, "protocol", cfg.Protocol, "frame layout (v64 or v63)")
	root.Flags().IntVar(&terminatorBytes, "terminator-bytes", 2, "bytes drained after each frame (0 if the scale sends none)")

	root.Flags().StringVar(&cfg.Broker, "broker", cfg.Broker, "publish readings to this broker (tcp://, mqtt://, ssl://, ws://, nats://)")
	root.Flags().StringVar(&cfg.Broker, "mqtt", cfg.Broker, "alias for --broker")
	root.Flags().StringVar(&cfg.Topic, "topic", cfg.Topic, "publish topic (default: host:port)")

	root.Flags().StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level (trace, debug, info, warn, error)")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	root.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "log a warning when the config file changes")
	root.Flags().BoolVar(&cfg.ExitOnConfigChange, "exit-on-config-change", cfg.ExitOnConfigChange, "exit cleanly when the config file changes")

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("scaleship")
		os.Exit(1)
	}
}

func configFault(op string, err error) error {
	return &scaleship.Fault{Kind: scaleship.ConfigFault, Op: op, Err: err}
}

// runAgent wires the agent, the optional broker and metrics endpoint, the
// config watcher and the signal handler into one run group.
func runAgent(cfg cliconfig.Config, cfgFile string, logger log.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []scaleship.Option{
		scaleship.WithLogger(logger),
		scaleship.WithMetrics(reg),
	}

	if cfg.Broker != "" {
		ctx, cancel := context.WithTimeout(context.Background(), brokerConnectTimeout)
		pub, err := publish.Open(ctx, cfg.Broker, publish.Options{Logger: logger})
		cancel()
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, scaleship.WithPublisher(pub))
	}

	changed := make(chan struct{}, 1)
	if (cfg.WatchConfig || cfg.ExitOnConfigChange) && cliconfig.FileExists(cfgFile) {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
			Path: cfgFile,
			OnChange: func(path string) {
				logger.Warn("config file changed; restart to apply", log.String("path", path))
				select {
				case changed <- struct{}{}:
				default:
				}
			},
		}))
	}

	agent, err := scaleship.New(cfg.Library(), opts...)
	if err != nil {
		return err
	}

	var g run.Group
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			if err := agent.Start(context.Background()); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
			case <-agent.Done():
			}
			return agent.Stop()
		}, func(error) {
			cancel()
		})
	}
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Add(func() error {
			logger.Info("serving metrics", log.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), metricsShutdown)
			defer cancel()
			_ = srv.Shutdown(ctx)
		})
	}
	if cfg.ExitOnConfigChange {
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			select {
			case <-changed:
				return errConfigChanged
			case <-ctx.Done():
				return nil
			}
		}, func(error) {
			cancel()
		})
	}
	g.Add(run.SignalHandler(context.Background(), os.Interrupt, syscall.SIGTERM))

	err = g.Run()
	var sigErr run.SignalError
	switch {
	case errors.As(err, &sigErr):
		logger.Info("received signal, stopped", log.String("signal", sigErr.Signal.String()))
		return nil
	case errors.Is(err, errConfigChanged):
		logger.Info("exiting after config change")
		return nil
	}
	return err
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
