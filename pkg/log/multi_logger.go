package log

// MultiLogger fans each event out to several loggers, typically a
// SlogAdapter for the console next to a FileLogger capture.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger builds a MultiLogger over the given loggers. The
// slice is copied; later mutation of the argument has no effect.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	sinks := make([]Logger, len(loggers))
	copy(sinks, loggers)
	return &MultiLogger{sinks: sinks}
}

// Log forwards the event to every sink in order.
func (m *MultiLogger) Log(event Event) {
	for _, sink := range m.sinks {
		sink.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
