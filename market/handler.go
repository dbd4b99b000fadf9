package market

import "context"

// TickHandler receives what a TickSource reads.
type TickHandler interface {
	// Connected is called once the source is ready to deliver ticks.
	Connected()
	Tick(Tick)
	// Malformed reports a record that could not be decoded. The source keeps reading.
	Malformed(err error)
}

// TickSource delivers ticks until the stream ends, fails or ctx is done.
// A returned nil error means the stream ended cleanly.
type TickSource interface {
	Stream(ctx context.Context, h TickHandler) error
}
