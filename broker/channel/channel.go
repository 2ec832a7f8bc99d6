// Package channel provides an in-process broker backed by Watermill's Go
// channel pub/sub. It exists so the whole stack runs without an external
// transporter, which makes it the natural backend for tests and local
// development.
package channel

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"

	"github.com/mobifiliallp/mfuses/broker"
	errspkg "github.com/mobifiliallp/mfuses/internal/runtime/errors"
	idspkg "github.com/mobifiliallp/mfuses/internal/runtime/ids"
	loggingpkg "github.com/mobifiliallp/mfuses/internal/runtime/logging"
)

// TransportName is the scheme this backend registers under. "local" is kept
// as an accepted alias.
const TransportName = "channel"

const (
	metaMode   = "mfuses_mode"
	metaAction = "mfuses_action"
	metaEvent  = "mfuses_event"
	metaGroup  = "mfuses_group"

	modeEmit      = "emit"
	modeBroadcast = "broadcast"
)

func init() {
	broker.Register(TransportName, Build)
	broker.Register("local", Build)
}

// Factory allows overriding the pub/sub creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(cfg, logger)
}

// Build creates a new in-process broker.
func Build(ctx context.Context, cfg broker.Config, log loggingpkg.ServiceLogger) (broker.Broker, error) {
	return New(cfg, log), nil
}

// Broker is the in-process implementation of broker.Broker. It additionally
// implements broker.ActionRegistrar and broker.EventSubscriber so local
// handlers can be attached.
type Broker struct {
	bus       *gochannel.GoChannel
	log       loggingpkg.ServiceLogger
	namespace string
	timeout   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	stopped bool
	actions map[string]broker.ActionHandler
	groups  map[string]map[string]*groupSubscription
	pending map[string]*pendingCall
}

type pendingCall struct {
	params broker.CallParams
	result chan broker.CallResult
}

// groupSubscription fans one gochannel subscription out to the local members
// of a listener group.
type groupSubscription struct {
	mu       sync.Mutex
	handlers []broker.EventHandler
	next     int
}

func (g *groupSubscription) add(handler broker.EventHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers = append(g.handlers, handler)
}

// pick returns every member for broadcasts and the next member in
// round-robin order for emits.
func (g *groupSubscription) pick(mode string) []broker.EventHandler {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.handlers) == 0 {
		return nil
	}
	if mode == modeBroadcast {
		return slices.Clone(g.handlers)
	}
	handler := g.handlers[g.next%len(g.handlers)]
	g.next++
	return []broker.EventHandler{handler}
}

// New builds an in-process broker from the resolved configuration.
func New(cfg broker.Config, log loggingpkg.ServiceLogger) *Broker {
	if log == nil {
		log = loggingpkg.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		bus:       Factory(gochannel.Config{}, loggingpkg.NewWatermillAdapter(log)),
		log:       log,
		namespace: cfg.GetNamespace(),
		timeout:   cfg.GetRequestTimeout(),
		ctx:       ctx,
		cancel:    cancel,
		actions:   make(map[string]broker.ActionHandler),
		groups:    make(map[string]map[string]*groupSubscription),
		pending:   make(map[string]*pendingCall),
	}
}

func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return errspkg.ErrBrokerStopped
	}
	b.started = true
	b.log.Info("in-process broker started", loggingpkg.LogFields{"namespace": b.namespace})
	return nil
}

func (b *Broker) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
	b.cancel()
	return b.bus.Close()
}

func (b *Broker) ensureStarted() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return errspkg.ErrBrokerStopped
	}
	if !b.started {
		return errspkg.ErrBrokerNotStarted
	}
	return nil
}

// RegisterAction attaches a local handler for the named action. Registration
// is allowed before Start; calls are not.
func (b *Broker) RegisterAction(name string, handler broker.ActionHandler) error {
	if name == "" {
		return errspkg.ErrActionRequired
	}
	if handler == nil {
		return errspkg.ErrHandlerRequired
	}

	b.mu.Lock()
	if _, exists := b.actions[name]; exists {
		b.mu.Unlock()
		return fmt.Errorf("mfuses: action %q is already registered", name)
	}
	b.actions[name] = handler
	b.mu.Unlock()

	messages, err := b.bus.Subscribe(b.ctx, b.actionTopic(name))
	if err != nil {
		b.mu.Lock()
		delete(b.actions, name)
		b.mu.Unlock()
		return err
	}
	go b.serveAction(name, handler, messages)
	return nil
}

func (b *Broker) serveAction(name string, handler broker.ActionHandler, messages <-chan *message.Message) {
	for msg := range messages {
		b.mu.Lock()
		call := b.pending[msg.UUID]
		b.mu.Unlock()
		msg.Ack()

		if call == nil {
			// Caller already gave up (timeout or cancellation).
			b.log.Debug("dropping call without a pending entry", loggingpkg.LogFields{
				"action": name,
				"uuid":   msg.UUID,
			})
			continue
		}

		go func(call *pendingCall) {
			data, err := handler(b.ctx, call.params)
			call.result <- broker.CallResult{Data: data, Err: err}
		}(call)
	}
}

func (b *Broker) Call(ctx context.Context, action string, params broker.CallParams, opts broker.CallOptions) (any, error) {
	if action == "" {
		return nil, errspkg.ErrActionRequired
	}
	if err := b.ensureStarted(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	_, known := b.actions[action]
	b.mu.Unlock()
	if !known {
		return nil, fmt.Errorf("mfuses: action %q is not registered", action)
	}

	// The message is only a dispatch ticket: the params ride in the pending
	// entry so streaming payloads never get serialized or copied.
	id := idspkg.CorrelationID()
	call := &pendingCall{params: params, result: make(chan broker.CallResult, 1)}
	b.mu.Lock()
	b.pending[id] = call
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	msg := message.NewMessage(id, nil)
	msg.SetContext(ctx)
	msg.Metadata.Set(metaAction, action)
	if err := b.bus.Publish(b.actionTopic(action), msg); err != nil {
		return nil, fmt.Errorf("mfuses: dispatch call %q: %w", action, err)
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
	case result := <-call.result:
		return result.Data, result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-expired:
		return nil, fmt.Errorf("mfuses: call %q timed out after %s", action, timeout)
	}
}

// Subscribe attaches a handler as a member of the named listener group.
func (b *Broker) Subscribe(event, group string, handler broker.EventHandler) error {
	if event == "" {
		return errspkg.ErrEventRequired
	}
	if group == "" {
		return errspkg.ErrGroupRequired
	}
	if handler == nil {
		return errspkg.ErrHandlerRequired
	}

	b.mu.Lock()
	byGroup := b.groups[event]
	if byGroup == nil {
		byGroup = make(map[string]*groupSubscription)
		b.groups[event] = byGroup
	}
	sub := byGroup[group]
	created := sub == nil
	if created {
		sub = &groupSubscription{}
		byGroup[group] = sub
	}
	sub.add(handler)
	b.mu.Unlock()

	if created {
		messages, err := b.bus.Subscribe(b.ctx, b.eventTopic(event, group))
		if err != nil {
			return err
		}
		go b.serveEvents(event, sub, messages)
	}
	return nil
}

func (b *Broker) serveEvents(event string, sub *groupSubscription, messages <-chan *message.Message) {
	for msg := range messages {
		var payload broker.Payload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				b.log.Error("failed to decode event payload", err, loggingpkg.LogFields{"event": event})
				msg.Ack()
				continue
			}
		}
		mode := msg.Metadata.Get(metaMode)
		ctx := msg.Context()
		for _, handler := range sub.pick(mode) {
			handler(ctx, event, payload)
		}
		msg.Ack()
	}
}

func (b *Broker) Emit(ctx context.Context, event string, payload broker.Payload, groups []string) error {
	return b.publishEvent(ctx, modeEmit, event, payload, groups)
}

func (b *Broker) Broadcast(ctx context.Context, event string, payload broker.Payload, groups []string) error {
	return b.publishEvent(ctx, modeBroadcast, event, payload, groups)
}

func (b *Broker) publishEvent(ctx context.Context, mode, event string, payload broker.Payload, groups []string) error {
	if event == "" {
		return errspkg.ErrEventRequired
	}
	if err := b.ensureStarted(); err != nil {
		return err
	}

	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("mfuses: encode event %q payload: %w", event, err)
		}
		body = encoded
	}

	targets := groups
	if len(targets) == 0 {
		targets = b.subscribedGroups(event)
	}
	for _, group := range targets {
		msg := message.NewMessage(idspkg.CorrelationID(), body)
		msg.SetContext(ctx)
		msg.Metadata.Set(metaMode, mode)
		msg.Metadata.Set(metaEvent, event)
		msg.Metadata.Set(metaGroup, group)
		if err := b.bus.Publish(b.eventTopic(event, group), msg); err != nil {
			return fmt.Errorf("mfuses: publish event %q to group %q: %w", event, group, err)
		}
	}
	return nil
}

// subscribedGroups snapshots the groups with at least one member, in stable
// order. Used when the caller names no groups.
func (b *Broker) subscribedGroups(event string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	byGroup := b.groups[event]
	groups := make([]string, 0, len(byGroup))
	for group := range byGroup {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups
}

func (b *Broker) actionTopic(action string) string {
	return fmt.Sprintf("%s.action.%s", b.namespace, action)
}

func (b *Broker) eventTopic(event, group string) string {
	return fmt.Sprintf("%s.event.%s.%s", b.namespace, event, group)
}
