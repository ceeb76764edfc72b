// Package log provides the logging abstraction used by scaleship components.
//
// Components depend on the small [Logger] interface rather than on a concrete
// logging library. A zerolog backed implementation and a no-op implementation
// for tests are provided.
//
// # Usage
//
//	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	logger := log.NewZerologAdapterWithLogger(zl)
//	logger.Info("connected", log.String("target", "10.0.0.5:1234"))
//
// Use the no-op logger in tests:
//
//	logger := log.NewNoopLogger()
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package log
