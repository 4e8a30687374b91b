package log

// Logger is a structured, leveled logger.
// keysAndValues are alternating keys and values (e.g., "address", addr, "kind", kind).
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// Fatal logs and terminates the process for production implementations.
	Fatal(msg string, keysAndValues ...any)

	// WithKV returns a logger that adds the pair to every future entry.
	WithKV(key string, value any) Logger
	// GetAllKV returns the pairs accumulated through WithKV.
	GetAllKV() []any
	// WithName returns a logger for a named component; names nest with dots.
	WithName(name string) Logger
	Name() string
	// AddCallerSkip returns a logger that reports the caller n frames further up.
	AddCallerSkip(skip int) Logger
}

// Level is the severity of a log entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// SpanEventRecorder records log entries onto a trace span.
type SpanEventRecorder interface {
	TraceID() string
	SpanID() string
	RecordEvent(name string, keysAndValues ...any)
	RecordError(name string, keysAndValues ...any)
}
