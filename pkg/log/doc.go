// Package log provides the logging abstraction used by queueship components.
//
// This package defines a Logger interface that can be implemented by
// any logging library. A zerolog adapter and a no-op logger are provided.
//
// # Usage
//
// Use the zerolog adapter:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//
// Or the no-op logger for tests and silent embedding:
//
//	logger := log.NewNoopLogger()
//
// Components derive child loggers carrying fixed fields with With:
//
//	cycleLog := logger.With(log.String("component", "scheduler"))
package log
