package runtime

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brokerpkg "github.com/mobifiliallp/mfuses/broker"
	errspkg "github.com/mobifiliallp/mfuses/internal/runtime/errors"
	loggingpkg "github.com/mobifiliallp/mfuses/internal/runtime/logging"
)

// fakeBroker records the last operation it received and replies with canned
// results.
type fakeBroker struct {
	callResult any
	callErr    error

	lastAction string
	lastParams brokerpkg.CallParams
	lastOpts   brokerpkg.CallOptions

	lastEvent     string
	lastPayload   brokerpkg.Payload
	lastGroups    []string
	lastOperation string

	startErr error
	stopped  bool
}

func (f *fakeBroker) Start(ctx context.Context) error { return f.startErr }
func (f *fakeBroker) Stop(ctx context.Context) error  { f.stopped = true; return nil }

func (f *fakeBroker) Call(ctx context.Context, action string, params brokerpkg.CallParams, opts brokerpkg.CallOptions) (any, error) {
	f.lastAction = action
	f.lastParams = params
	f.lastOpts = opts
	return f.callResult, f.callErr
}

func (f *fakeBroker) Emit(ctx context.Context, event string, payload brokerpkg.Payload, groups []string) error {
	f.lastOperation = "emit"
	f.lastEvent = event
	f.lastPayload = payload
	f.lastGroups = groups
	return nil
}

func (f *fakeBroker) Broadcast(ctx context.Context, event string, payload brokerpkg.Payload, groups []string) error {
	f.lastOperation = "broadcast"
	f.lastEvent = event
	f.lastPayload = payload
	f.lastGroups = groups
	return nil
}

func newTestHandle(bkr brokerpkg.Broker) *Handle {
	return &Handle{broker: bkr, logger: loggingpkg.Nop()}
}

func awaitResult(t *testing.T, ch <-chan brokerpkg.CallResult) brokerpkg.CallResult {
	t.Helper()
	select {
	case result := <-ch:
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for call result")
		return brokerpkg.CallResult{}
	}
}

func TestHandleCallDeliversResult(t *testing.T) {
	bkr := &fakeBroker{callResult: map[string]any{"sum": 3}}
	handle := newTestHandle(bkr)

	result := awaitResult(t, handle.Call(context.Background(), "math.add", brokerpkg.Payload{"a": 1}, nil))

	require.NoError(t, result.Err)
	assert.Equal(t, map[string]any{"sum": 3}, result.Data)
	assert.Equal(t, "math.add", bkr.lastAction)
}

func TestHandleCallCopiesFiniteParams(t *testing.T) {
	bkr := &fakeBroker{}
	handle := newTestHandle(bkr)

	params := brokerpkg.Payload{"name": "original"}
	awaitResult(t, handle.Call(context.Background(), "users.create", params, nil))

	require.False(t, bkr.lastParams.IsStream())
	forwarded := bkr.lastParams.Payload()
	assert.Equal(t, "original", forwarded["name"])

	// The broker saw a distinct copy, so mutating it never reaches the
	// caller's object.
	forwarded["name"] = "mutated"
	assert.Equal(t, "original", params["name"])
}

func TestHandleCallForwardsStreamByReference(t *testing.T) {
	bkr := &fakeBroker{}
	handle := newTestHandle(bkr)

	stream := strings.NewReader("payload bytes")
	awaitResult(t, handle.Call(context.Background(), "files.upload", stream, nil))

	require.True(t, bkr.lastParams.IsStream())
	assert.Same(t, stream, bkr.lastParams.Reader())
}

func TestHandleCallCopiesOptions(t *testing.T) {
	bkr := &fakeBroker{}
	handle := newTestHandle(bkr)

	opts := &brokerpkg.CallOptions{Timeout: time.Second, Meta: map[string]any{"tenant": "acme"}}
	awaitResult(t, handle.Call(context.Background(), "orders.list", nil, opts))

	assert.Equal(t, time.Second, bkr.lastOpts.Timeout)
	bkr.lastOpts.Meta["tenant"] = "other"
	assert.Equal(t, "acme", opts.Meta["tenant"])
}

func TestHandleCallDeliversFailure(t *testing.T) {
	wantErr := errors.New("action exploded")
	bkr := &fakeBroker{callErr: wantErr}
	handle := newTestHandle(bkr)

	result := awaitResult(t, handle.Call(context.Background(), "boom.now", nil, nil))

	assert.ErrorIs(t, result.Err, wantErr)
	assert.Nil(t, result.Data)
}

func TestHandleCallRejectsEmptyAction(t *testing.T) {
	bkr := &fakeBroker{}
	handle := newTestHandle(bkr)

	result := awaitResult(t, handle.Call(context.Background(), "", nil, nil))

	assert.ErrorIs(t, result.Err, errspkg.ErrActionRequired)
	assert.Empty(t, bkr.lastAction)
}

func TestHandleEmitForwardsGroups(t *testing.T) {
	bkr := &fakeBroker{}
	handle := newTestHandle(bkr)

	err := handle.Emit(context.Background(), "user.created", brokerpkg.Payload{"id": "u1"}, "mailer", "audit")

	require.NoError(t, err)
	assert.Equal(t, "emit", bkr.lastOperation)
	assert.Equal(t, "user.created", bkr.lastEvent)
	assert.Equal(t, []string{"mailer", "audit"}, bkr.lastGroups)
}

func TestHandleBroadcastWithoutGroups(t *testing.T) {
	bkr := &fakeBroker{}
	handle := newTestHandle(bkr)

	err := handle.Broadcast(context.Background(), "cache.flush", nil)

	require.NoError(t, err)
	assert.Equal(t, "broadcast", bkr.lastOperation)
	assert.Empty(t, bkr.lastGroups)
}
