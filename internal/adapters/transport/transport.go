package transport

// Transport is an event source feeding the moderator
type Transport interface {
	// Start starts accepting events
	Start() error

	// Stop stops accepting events
	Stop() error

	// Done is closed once the transport stopped on its own or after Stop
	Done() <-chan struct{}
}
