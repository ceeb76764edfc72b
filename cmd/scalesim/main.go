package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/oklog/run"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cpro-iot/scaleship/internal/simulator"
	"github.com/cpro-iot/scaleship/pkg/frame"
	"github.com/cpro-iot/scaleship/pkg/log"
)

var exampleUsage = strings.TrimSpace(`
  scalesim --listen :1234
  scalesim --listen 127.0.0.1:1234 --protocol v63 --short-every 5 --silent-every 7
`)

func main() {
	var (
		addr        string
		protoName   string
		termLen     int
		shortEvery  uint64
		silentEvery uint64
		logLevel    string
	)

	root := &cobra.Command{
		Use:     "scalesim",
		Short:   "Simulate a scale terminal answering poll commands over TCP",
		Example: exampleUsage,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			logger := log.NewZerologAdapterWithLogger(log.NewConsoleLogger(os.Stderr, level))

			proto, err := frame.ProtocolByName(protoName)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("terminator-bytes") {
				proto = proto.WithTerminatorLen(termLen)
			}

			srv := simulator.New(simulator.Config{
				Addr:        addr,
				Protocol:    proto,
				ShortEvery:  shortEvery,
				SilentEvery: silentEvery,
				Logger:      logger,
			})
			if err := srv.Listen(); err != nil {
				return err
			}

			var g run.Group
			ctx, cancel := context.WithCancel(context.Background())
			g.Add(func() error {
				return srv.Serve(ctx)
			}, func(error) {
				cancel()
			})
			g.Add(run.SignalHandler(context.Background(), os.Interrupt, syscall.SIGTERM))

			err = g.Run()
			if _, ok := err.(run.SignalError); ok {
				logger.Info("received signal, stopping", log.Int64("requests", int64(srv.Requests())))
				return nil
			}
			return err
		},
	}

	root.Flags().StringVar(&addr, "listen", ":1234", "listen address")
	root.Flags().StringVar(&protoName, "protocol", frame.V64.Name, "frame layout (v64 or v63)")
	root.Flags().IntVar(&termLen, "terminator-bytes", 2, "CR LF bytes sent after each frame")
	root.Flags().Uint64Var(&shortEvery, "short-every", 0, "send half a frame and hang up on every n-th request")
	root.Flags().Uint64Var(&silentEvery, "silent-every", 0, "leave every n-th request unanswered")
	root.Flags().StringVar(&logLevel, "log", "info", "log level")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
