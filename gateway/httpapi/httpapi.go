// Package httpapi is the bundled gateway module: it exposes the broker's
// call, emit, and broadcast primitives over a small JSON-over-HTTP surface.
// Importing the package registers it as the default gateway.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mobifiliallp/mfuses/broker"
	"github.com/mobifiliallp/mfuses/gateway"
	"github.com/mobifiliallp/mfuses/internal/runtime/logging"
)

func init() {
	gateway.Register(New())
}

// New returns an unattached gateway module.
func New() *Module {
	return &Module{}
}

// Module serves broker actions over HTTP. One module serves at most one
// attachment.
type Module struct {
	mu  sync.Mutex
	srv *http.Server
	log logging.ServiceLogger
}

func (m *Module) Name() string { return "httpapi" }

// Attach starts the HTTP listener. The listen error is returned synchronously
// so the lifecycle manager can treat a busy port as a contained, non-fatal
// failure.
func (m *Module) Attach(ctx context.Context, caller gateway.Caller, settings gateway.Settings, log logging.ServiceLogger) error {
	if caller == nil {
		return errors.New("mfuses: gateway requires a caller")
	}
	if log == nil {
		log = logging.Nop()
	}

	port := settings.Port
	if port <= 0 {
		port = 8080
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           m.Handler(caller, settings),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("mfuses: gateway listen on %s: %w", srv.Addr, err)
	}

	m.mu.Lock()
	m.srv = srv
	m.log = log
	m.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("gateway server stopped", err, logging.LogFields{"address": srv.Addr})
		}
	}()

	log.Info("gateway serving broker actions", logging.LogFields{
		"address": srv.Addr,
		"path":    pathPrefix(settings),
	})
	return nil
}

// Handler returns the HTTP handler serving the gateway routes. It is used by
// Attach and can also be mounted into an existing server.
func (m *Module) Handler(caller gateway.Caller, settings gateway.Settings) http.Handler {
	path := pathPrefix(settings)
	mux := http.NewServeMux()
	mux.Handle(path+"/call/", m.callHandler(caller, path+"/call/"))
	mux.Handle(path+"/emit/", m.eventHandler(caller, path+"/emit/", false))
	mux.Handle(path+"/broadcast/", m.eventHandler(caller, path+"/broadcast/", true))
	return mux
}

func pathPrefix(settings gateway.Settings) string {
	path := strings.TrimSuffix(settings.Path, "/")
	if path == "" {
		path = "/srvapi"
	}
	return path
}

// Shutdown stops the HTTP listener.
func (m *Module) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	srv := m.srv
	m.srv = nil
	m.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (m *Module) callHandler(caller gateway.Caller, prefix string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		action := strings.TrimPrefix(r.URL.Path, prefix)
		if action == "" {
			http.Error(w, "missing action name", http.StatusNotFound)
			return
		}

		payload, err := decodeBody(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}

		result := <-caller.Call(r.Context(), action, payload, nil)
		if result.Err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": result.Err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": result.Data})
	})
}

func (m *Module) eventHandler(caller gateway.Caller, prefix string, broadcast bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		event := strings.TrimPrefix(r.URL.Path, prefix)
		if event == "" {
			http.Error(w, "missing event name", http.StatusNotFound)
			return
		}

		payload, err := decodeBody(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		groups := r.URL.Query()["group"]

		if broadcast {
			err = caller.Broadcast(r.Context(), event, payload, groups...)
		} else {
			err = caller.Emit(r.Context(), event, payload, groups...)
		}
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
}

func decodeBody(r *http.Request) (broker.Payload, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, nil
	}
	var payload broker.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return payload, nil
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
