package mfuses_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobifiliallp/mfuses"
	_ "github.com/mobifiliallp/mfuses/broker/channel"
)

// Full round trip through the exported surface: resolve a map-backed store,
// start the in-process broker, register an action and a subscriber, and
// drive traffic through the Handle facade.
func TestEndToEndOverChannelBroker(t *testing.T) {
	store := mfuses.MapStore{
		"mfuses": map[string]any{
			"config": map[string]any{
				"namespace":   "e2e",
				"transporter": "channel",
			},
		},
	}

	svc, err := mfuses.NewServiceFromStore(context.Background(), store, mfuses.ServiceDependencies{})
	require.NoError(t, err)

	registrar, ok := svc.Broker().(mfuses.ActionRegistrar)
	require.True(t, ok, "channel broker must accept local actions")
	require.NoError(t, registrar.RegisterAction("math.double", func(ctx context.Context, params mfuses.CallParams) (any, error) {
		n, _ := params.Payload()["n"].(float64)
		return mfuses.Payload{"result": n * 2}, nil
	}))

	var (
		mu   sync.Mutex
		seen []mfuses.Payload
	)
	subscriber, ok := svc.Broker().(mfuses.EventSubscriber)
	require.True(t, ok, "channel broker must accept local subscriptions")
	require.NoError(t, subscriber.Subscribe("math.computed", "audit", func(ctx context.Context, event string, payload mfuses.Payload) {
		mu.Lock()
		seen = append(seen, payload)
		mu.Unlock()
	}))

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop(context.Background())

	handle := svc.Handle()

	result := <-handle.Call(context.Background(), "math.double", mfuses.Payload{"n": float64(21)}, nil)
	require.NoError(t, result.Err)
	data, ok := result.Data.(mfuses.Payload)
	require.True(t, ok)
	assert.Equal(t, float64(42), data["result"])

	require.NoError(t, handle.Emit(context.Background(), "math.computed", mfuses.Payload{"result": float64(42)}))

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("subscriber never saw the emitted event")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, float64(42), seen[0]["result"])
}

func TestResolveDefaultsThroughRootSurface(t *testing.T) {
	conf, err := mfuses.Resolve(mfuses.MapStore{}, mfuses.NopLogger())
	require.NoError(t, err)

	assert.Equal(t, mfuses.DefaultNamespace, conf.Namespace)
	assert.Equal(t, mfuses.DefaultTransporter, conf.Transporter)
	assert.Equal(t, mfuses.DefaultRequestTimeout, conf.RequestTimeout)
	assert.False(t, conf.EnableWebAPI)
}
