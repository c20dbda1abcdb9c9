package log

// Logger receives protocol events as the bus traffic happens. Senders,
// controllers and subscribers call Log inline, so implementations must
// be safe for concurrent use and should return quickly.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards every event. The zero value is usable; it is the
// default protocol logger throughout the library.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
