// Package gateway defines the optional HTTP gateway contract. A gateway is a
// capability plugged in explicitly: importing an implementation registers it,
// and absence is simply a nil Default() rather than a load failure.
package gateway

import (
	"context"
	"sync"

	"github.com/mobifiliallp/mfuses/broker"
	"github.com/mobifiliallp/mfuses/internal/runtime/logging"
)

// Settings configures an attached gateway module.
type Settings struct {
	// Port the gateway listens on.
	Port int
	// Path is the URL prefix under which broker actions are exposed.
	Path string
}

// Caller is the slice of the broker handle a gateway needs: it can drive
// calls, emits, and broadcasts but cannot touch the broker lifecycle.
type Caller interface {
	Call(ctx context.Context, action string, params any, opts *broker.CallOptions) <-chan broker.CallResult
	Emit(ctx context.Context, event string, payload broker.Payload, groups ...string) error
	Broadcast(ctx context.Context, event string, payload broker.Payload, groups ...string) error
}

// Module is an attachable gateway implementation.
type Module interface {
	// Name identifies the module in logs.
	Name() string

	// Attach binds the module to the handle and starts serving with the
	// given settings. A returned error is treated as non-fatal by the
	// lifecycle manager: the broker keeps running without the gateway.
	Attach(ctx context.Context, caller Caller, settings Settings, log logging.ServiceLogger) error

	// Shutdown stops serving. Safe to call on a module that never attached.
	Shutdown(ctx context.Context) error
}

var (
	mu  sync.RWMutex
	def Module
)

// Register installs mod as the default gateway module. Implementations call
// this from init so a blank import is enough to make the gateway available.
func Register(mod Module) {
	mu.Lock()
	defer mu.Unlock()
	def = mod
}

// Default returns the registered gateway module, or nil when none is
// available.
func Default() Module {
	mu.RLock()
	defer mu.RUnlock()
	return def
}
