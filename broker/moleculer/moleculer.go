// Package moleculer adapts the moleculer-go service broker to the mfuses
// broker contract. It registers itself for the "tcp", "nats", and "amqp"
// transporter schemes; everything past the descriptor mapping (discovery,
// load balancing, delivery guarantees) is owned by the moleculer library.
package moleculer

import (
	"context"
	"fmt"
	"strings"
	"time"

	moleculergo "github.com/moleculer-go/moleculer"
	molebroker "github.com/moleculer-go/moleculer/broker"

	"github.com/mobifiliallp/mfuses/broker"
	errspkg "github.com/mobifiliallp/mfuses/internal/runtime/errors"
	loggingpkg "github.com/mobifiliallp/mfuses/internal/runtime/logging"
)

// Schemes lists the transporter schemes this backend registers under.
var Schemes = []string{"tcp", "nats", "amqp"}

func init() {
	for _, scheme := range Schemes {
		broker.Register(scheme, Build)
	}
}

// Factory allows overriding the service broker creation for testing.
var Factory = func(cfg *moleculergo.Config) *molebroker.ServiceBroker {
	return molebroker.New(cfg)
}

// Build creates a moleculer-backed broker from the resolved configuration.
func Build(ctx context.Context, cfg broker.Config, log loggingpkg.ServiceLogger) (broker.Broker, error) {
	if cfg == nil {
		return nil, errspkg.ErrConfigRequired
	}
	mcfg := &moleculergo.Config{
		Namespace:      cfg.GetNamespace(),
		Transporter:    descriptorFor(cfg.GetTransporter()),
		LogLevel:       strings.ToLower(cfg.GetLogLevel()),
		RequestTimeout: cfg.GetRequestTimeout(),
	}
	if log == nil {
		log = loggingpkg.Nop()
	}
	return &Broker{
		bkr:     Factory(mcfg),
		log:     log,
		timeout: cfg.GetRequestTimeout(),
	}, nil
}

// descriptorFor normalizes the configured transporter into the descriptor
// moleculer expects: URL descriptors pass through unchanged, the plain "tcp"
// scheme maps to moleculer's TCP transporter name.
func descriptorFor(transporter string) string {
	if strings.Contains(transporter, "://") {
		return transporter
	}
	return strings.ToUpper(transporter)
}

// Broker wraps a running moleculer service broker.
type Broker struct {
	bkr     *molebroker.ServiceBroker
	log     loggingpkg.ServiceLogger
	timeout time.Duration
}

// ServiceBroker returns the underlying moleculer broker root object for
// advanced consumers that need to publish services or reach APIs this
// wrapper does not surface.
func (b *Broker) ServiceBroker() *molebroker.ServiceBroker {
	return b.bkr
}

// Publish registers moleculer service definitions on the underlying broker.
// Must be called before Start.
func (b *Broker) Publish(services ...interface{}) {
	b.bkr.Publish(services...)
}

func (b *Broker) Start(ctx context.Context) error {
	b.bkr.Start()
	return nil
}

func (b *Broker) Stop(ctx context.Context) error {
	b.bkr.Stop()
	return nil
}

// Call delegates to the moleculer request/response primitive. A streaming
// payload is handed over by reference; the configured request timeout applies
// when the options carry none.
func (b *Broker) Call(ctx context.Context, action string, params broker.CallParams, opts broker.CallOptions) (any, error) {
	if action == "" {
		return nil, errspkg.ErrActionRequired
	}
	if !b.bkr.IsStarted() {
		return nil, errspkg.ErrBrokerNotStarted
	}

	var data interface{}
	if params.IsStream() {
		data = params.Reader()
	} else {
		data = params.Payload()
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = b.timeout
	}
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case result := <-b.bkr.Call(action, data):
		if result.IsError() {
			return nil, result.Error()
		}
		return result.Value(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-expired:
		return nil, fmt.Errorf("mfuses: call %q timed out after %s", action, timeout)
	}
}

// Emit delegates to the moleculer balanced-event primitive. An explicit
// groups list narrows delivery to those listener groups; an empty list means
// every group the registry knows about.
func (b *Broker) Emit(ctx context.Context, event string, payload broker.Payload, groups []string) error {
	if event == "" {
		return errspkg.ErrEventRequired
	}
	if !b.bkr.IsStarted() {
		return errspkg.ErrBrokerNotStarted
	}
	b.bkr.Emit(event, payload, groups...)
	return nil
}

// Broadcast delegates to the moleculer broadcast primitive, with the same
// group filtering as Emit.
func (b *Broker) Broadcast(ctx context.Context, event string, payload broker.Payload, groups []string) error {
	if event == "" {
		return errspkg.ErrEventRequired
	}
	if !b.bkr.IsStarted() {
		return errspkg.ErrBrokerNotStarted
	}
	b.bkr.Broadcast(event, payload, groups...)
	return nil
}
