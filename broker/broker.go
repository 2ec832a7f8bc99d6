// Package broker defines the contract between mfuses and the communication
// substrate it wraps. Each backend (moleculer, channel) lives in its own
// sub-package and registers itself with the broker registry under the
// transporter schemes it understands.
package broker

import (
	"context"
	"time"

	"github.com/mobifiliallp/mfuses/internal/runtime/logging"
)

// Payload is a finite, in-memory parameter or event body.
type Payload = map[string]any

// Config exposes the resolved settings broker backends need. It is an
// interface so backends do not depend on the full configuration package.
type Config interface {
	GetNamespace() string
	GetTransporter() string
	GetRegistryStrategy() string
	GetRequestTimeout() time.Duration
	GetLogLevel() string
}

// Broker is the communication substrate providing request/response calls,
// event emission, and broadcast primitives. Implementations own service
// discovery, delivery guarantees, and retry behaviour; mfuses adds none of
// its own.
type Broker interface {
	// Start brings the broker online. It must be called exactly once, before
	// any Call, Emit, or Broadcast.
	Start(ctx context.Context) error

	// Stop drains and shuts the broker down. Teardown timing is the host
	// application's responsibility.
	Stop(ctx context.Context) error

	// Call performs a request/response invocation of the named action and
	// blocks until a result, an error, or context cancellation.
	Call(ctx context.Context, action string, params CallParams, opts CallOptions) (any, error)

	// Emit delivers the event to at least one listener per matching group.
	Emit(ctx context.Context, event string, payload Payload, groups []string) error

	// Broadcast delivers the event to every matching listener.
	Broadcast(ctx context.Context, event string, payload Payload, groups []string) error
}

// CallResult carries the outcome of one asynchronous call. Exactly one of
// Data and Err is meaningful.
type CallResult struct {
	Data any
	Err  error
}

// ActionHandler processes one inbound call on brokers that host local
// actions.
type ActionHandler func(ctx context.Context, params CallParams) (any, error)

// EventHandler processes one inbound event.
type EventHandler func(ctx context.Context, event string, payload Payload)

// ActionRegistrar is implemented by brokers that can host local action
// handlers. Discover it with a type assertion on the Broker.
type ActionRegistrar interface {
	RegisterAction(name string, handler ActionHandler) error
}

// EventSubscriber is implemented by brokers that accept local event
// subscriptions. A group names a set of listeners that share emit deliveries;
// broadcasts reach every listener in every group.
type EventSubscriber interface {
	Subscribe(event, group string, handler EventHandler) error
}

// Builder is the function signature for creating a broker from resolved
// configuration. Each backend package provides one and registers it.
type Builder func(ctx context.Context, cfg Config, log logging.ServiceLogger) (Broker, error)
