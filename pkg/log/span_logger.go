package log

var _ Logger = &SpanLogger{}

// SpanLogger forwards entries to a wrapped logger, tagged with trace and span
// ids, and records them on a span. Error and Fatal entries mark the span failed.
type SpanLogger struct {
	lg  Logger
	ser SpanEventRecorder
}

func NewSpanLogger(lg Logger, ser SpanEventRecorder) Logger {
	return &SpanLogger{
		lg:  lg.AddCallerSkip(1),
		ser: ser,
	}
}

func (sl *SpanLogger) Debug(msg string, keysAndValues ...any) {
	sl.ser.RecordEvent(msg, sl.eventKV(LevelDebug, keysAndValues)...)
	sl.lg.Debug(msg, sl.traceKV(keysAndValues)...)
}

func (sl *SpanLogger) Info(msg string, keysAndValues ...any) {
	sl.ser.RecordEvent(msg, sl.eventKV(LevelInfo, keysAndValues)...)
	sl.lg.Info(msg, sl.traceKV(keysAndValues)...)
}

func (sl *SpanLogger) Warn(msg string, keysAndValues ...any) {
	sl.ser.RecordEvent(msg, sl.eventKV(LevelWarn, keysAndValues)...)
	sl.lg.Warn(msg, sl.traceKV(keysAndValues)...)
}

func (sl *SpanLogger) Error(msg string, keysAndValues ...any) {
	sl.ser.RecordError(msg, sl.eventKV(LevelError, keysAndValues)...)
	sl.lg.Error(msg, sl.traceKV(keysAndValues)...)
}

func (sl *SpanLogger) Fatal(msg string, keysAndValues ...any) {
	sl.ser.RecordError(msg, sl.eventKV(LevelFatal, keysAndValues)...)
	sl.lg.Fatal(msg, sl.traceKV(keysAndValues)...)
}

func (sl *SpanLogger) WithKV(key string, value any) Logger {
	return &SpanLogger{lg: sl.lg.WithKV(key, value), ser: sl.ser}
}

func (sl *SpanLogger) GetAllKV() []any { return sl.lg.GetAllKV() }

func (sl *SpanLogger) WithName(name string) Logger {
	return &SpanLogger{lg: sl.lg.WithName(name), ser: sl.ser}
}

func (sl *SpanLogger) Name() string { return sl.lg.Name() }

func (sl *SpanLogger) AddCallerSkip(skip int) Logger {
	return &SpanLogger{lg: sl.lg.AddCallerSkip(skip), ser: sl.ser}
}

// traceKV prepends the trace and span ids to the entry fields.
func (sl *SpanLogger) traceKV(keysAndValues []any) []any {
	kv := make([]any, 0, len(keysAndValues)+4)
	kv = append(kv, "traceId", sl.ser.TraceID(), "spanId", sl.ser.SpanID())
	return append(kv, keysAndValues...)
}

// eventKV builds span event attributes: level, component, accumulated pairs, entry fields.
func (sl *SpanLogger) eventKV(level Level, keysAndValues []any) []any {
	kv := []any{"level", string(level), "component", sl.lg.Name()}
	kv = append(kv, sl.lg.GetAllKV()...)
	return append(kv, keysAndValues...)
}
