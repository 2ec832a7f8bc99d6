package runtime

import (
	"context"

	brokerpkg "github.com/mobifiliallp/mfuses/broker"
	errspkg "github.com/mobifiliallp/mfuses/internal/runtime/errors"
	loggingpkg "github.com/mobifiliallp/mfuses/internal/runtime/logging"
)

// Handle is the process-lifetime facade over the started broker. It is
// created once by the Service and shared by reference; every operation
// normalizes its own parameter copies, so concurrent use needs no locking.
type Handle struct {
	broker  brokerpkg.Broker
	logger  loggingpkg.ServiceLogger
	metrics *facadeMetrics
}

// Call invokes the named action and returns immediately with a future for
// the result. Finite parameters are shallow-copied so the broker can never
// mutate the caller's object; a streaming payload is forwarded by reference,
// never cloned. A failure is logged with the action name and still delivered
// through the returned channel, so the caller always sees the original
// error.
func (h *Handle) Call(ctx context.Context, action string, params any, opts *brokerpkg.CallOptions) <-chan brokerpkg.CallResult {
	result := make(chan brokerpkg.CallResult, 1)

	if action == "" {
		h.logger.Error("call rejected", errspkg.ErrActionRequired, nil)
		result <- brokerpkg.CallResult{Err: errspkg.ErrActionRequired}
		return result
	}

	normalized := brokerpkg.ParamsOf(params).Clone()
	options := opts.Clone()

	go func() {
		data, err := h.broker.Call(ctx, action, normalized, options)
		if err != nil {
			h.logger.Error("call failed", err, loggingpkg.LogFields{"action": action})
		} else {
			h.logger.Trace("call completed", loggingpkg.LogFields{"action": action})
		}
		h.metrics.observe("call", err)
		result <- brokerpkg.CallResult{Data: data, Err: err}
	}()

	return result
}

// Emit delivers the event to at least one listener per matching group. The
// payload is deliberately kept out of the log entry.
func (h *Handle) Emit(ctx context.Context, event string, payload brokerpkg.Payload, groups ...string) error {
	h.logger.Trace("emitting event", loggingpkg.LogFields{"event": event, "groups": groups})
	err := h.broker.Emit(ctx, event, payload, groups)
	h.metrics.observe("emit", err)
	return err
}

// Broadcast delivers the event to every matching listener.
func (h *Handle) Broadcast(ctx context.Context, event string, payload brokerpkg.Payload, groups ...string) error {
	h.logger.Trace("broadcasting event", loggingpkg.LogFields{"event": event, "groups": groups})
	err := h.broker.Broadcast(ctx, event, payload, groups)
	h.metrics.observe("broadcast", err)
	return err
}

// Broker exposes the underlying broker for advanced consumers. Most code
// should stay on the facade operations.
func (h *Handle) Broker() brokerpkg.Broker {
	return h.broker
}
