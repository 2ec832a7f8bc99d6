package broker

import (
	"io"
	"maps"
	"time"
)

// CallParams is the parameter union for outbound calls: either a finite
// in-memory payload or a streaming one, never both. The zero value is an
// empty finite payload.
type CallParams struct {
	data   Payload
	stream io.Reader
}

// Data wraps a finite payload.
func Data(data Payload) CallParams {
	return CallParams{data: data}
}

// Stream wraps a streaming payload. The reader is handed to the broker by
// reference; it is never copied, since copying would consume it.
func Stream(r io.Reader) CallParams {
	return CallParams{stream: r}
}

// ParamsOf classifies an arbitrary value. A value is streaming exactly when
// it implements io.Reader; a Payload (or nil) is finite as-is; anything else
// becomes a finite payload under the "data" key.
func ParamsOf(value any) CallParams {
	switch v := value.(type) {
	case CallParams:
		return v
	case io.Reader:
		return Stream(v)
	case nil:
		return Data(nil)
	case Payload:
		return Data(v)
	default:
		return Data(Payload{"data": v})
	}
}

// IsStream reports whether the params carry a streaming payload.
func (p CallParams) IsStream() bool {
	return p.stream != nil
}

// Reader returns the streaming payload, or nil for finite params.
func (p CallParams) Reader() io.Reader {
	return p.stream
}

// Payload returns the finite payload, or nil for streaming params.
func (p CallParams) Payload() Payload {
	return p.data
}

// Clone returns params safe to hand to the broker: the finite payload is
// shallow-copied so the broker can never mutate the caller's map, while a
// streaming payload passes through untouched.
func (p CallParams) Clone() CallParams {
	if p.stream != nil {
		return p
	}
	return CallParams{data: maps.Clone(p.data)}
}

// CallOptions carries per-call settings. They pass through to the broker
// unchanged; a backend that does not understand a field ignores it.
type CallOptions struct {
	// Timeout bounds the call. Zero falls back to the configured request
	// timeout.
	Timeout time.Duration

	// Meta is forwarded alongside the call parameters.
	Meta map[string]any
}

// Clone normalizes an optional options pointer into a value the facade can
// hand to the broker: nil becomes the empty options set, and Meta is
// shallow-copied so the caller's map stays untouched.
func (o *CallOptions) Clone() CallOptions {
	if o == nil {
		return CallOptions{}
	}
	cloned := *o
	cloned.Meta = maps.Clone(o.Meta)
	return cloned
}
