package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobifiliallp/mfuses/broker"
	"github.com/mobifiliallp/mfuses/gateway"
)

// fakeCaller records facade invocations and plays back canned results.
type fakeCaller struct {
	mu         sync.Mutex
	callAction string
	callParams any
	result     broker.CallResult

	emitted     []string
	broadcasted []string
	groups      []string
	eventErr    error
}

func (f *fakeCaller) Call(ctx context.Context, action string, params any, opts *broker.CallOptions) <-chan broker.CallResult {
	f.mu.Lock()
	f.callAction = action
	f.callParams = params
	f.mu.Unlock()
	out := make(chan broker.CallResult, 1)
	out <- f.result
	return out
}

func (f *fakeCaller) Emit(ctx context.Context, event string, payload broker.Payload, groups ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, event)
	f.groups = groups
	return f.eventErr
}

func (f *fakeCaller) Broadcast(ctx context.Context, event string, payload broker.Payload, groups ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasted = append(f.broadcasted, event)
	f.groups = groups
	return f.eventErr
}

func newTestServer(t *testing.T, caller gateway.Caller) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New().Handler(caller, gateway.Settings{Path: "/srvapi"}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(http.MethodPost, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCallEndpoint(t *testing.T) {
	caller := &fakeCaller{result: broker.CallResult{Data: map[string]any{"sum": 5}}}
	srv := newTestServer(t, caller)

	resp := postJSON(t, srv.URL+"/srvapi/call/math.add", map[string]any{"a": 2, "b": 3})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]any{"sum": float64(5)}, body["data"])
	assert.Equal(t, "math.add", caller.callAction)

	params, ok := caller.callParams.(broker.Payload)
	require.True(t, ok, "decoded body should arrive as a payload map")
	assert.Equal(t, float64(2), params["a"])
}

func TestCallEndpointSurfacesBrokerError(t *testing.T) {
	caller := &fakeCaller{result: broker.CallResult{Err: errors.New("service unreachable")}}
	srv := newTestServer(t, caller)

	resp := postJSON(t, srv.URL+"/srvapi/call/math.add", nil)

	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "service unreachable")
}

func TestCallEndpointRejectsBadJSON(t *testing.T) {
	srv := newTestServer(t, &fakeCaller{})

	resp, err := http.Post(srv.URL+"/srvapi/call/math.add", "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCallEndpointRequiresPost(t *testing.T) {
	srv := newTestServer(t, &fakeCaller{})

	resp, err := http.Get(srv.URL + "/srvapi/call/math.add")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCallEndpointMissingAction(t *testing.T) {
	srv := newTestServer(t, &fakeCaller{})

	resp := postJSON(t, srv.URL+"/srvapi/call/", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEmitEndpoint(t *testing.T) {
	caller := &fakeCaller{}
	srv := newTestServer(t, caller)

	resp := postJSON(t, srv.URL+"/srvapi/emit/user.created?group=mailer&group=audit", map[string]any{"id": "u1"})

	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []string{"user.created"}, caller.emitted)
	assert.Equal(t, []string{"mailer", "audit"}, caller.groups)
}

func TestBroadcastEndpoint(t *testing.T) {
	caller := &fakeCaller{}
	srv := newTestServer(t, caller)

	resp := postJSON(t, srv.URL+"/srvapi/broadcast/cache.flush", nil)

	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []string{"cache.flush"}, caller.broadcasted)
}

func TestDefaultGatewayRegistered(t *testing.T) {
	require.NotNil(t, gateway.Default())
	assert.Equal(t, "httpapi", gateway.Default().Name())
}

func TestShutdownWithoutAttach(t *testing.T) {
	assert.NoError(t, New().Shutdown(context.Background()))
}
