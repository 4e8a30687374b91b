// Package log provides the structured logger used across tzgate.
//
// Loggers are passed explicitly or carried in a context; there is no package
// level logger. Three implementations exist:
//
//   - ZapLogger: production logger (console, logfmt or json output)
//   - NoopLogger: discards everything, returned by FromContext when the context has no logger
//   - SpanLogger: wraps another logger and mirrors entries onto an OpenTelemetry span
//
// Basic usage:
//
//	logger := log.NewZapLogger(log.Config{Format: "logfmt", Level: log.LevelInfo})
//	logger = logger.WithName("tzrpc").WithKV("node", nodeURL)
//	logger.Info("big map lookup", "key", exprKey)
//
// Context usage:
//
//	ctx, span := tracer.Start(ctx, "balance")
//	defer span.End()
//	ctx = log.SetContextLogger(ctx, logger) // wrapped in a SpanLogger
//	log.FromContext(ctx).Warn("entry not found, using zero")
//
// Config is read from the environment (LOG_FORMAT, LOG_LEVEL, LOG_OUTPUT),
// usually under the TZGATE_ prefix.
package log
