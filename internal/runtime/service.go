package runtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	brokerpkg "github.com/mobifiliallp/mfuses/broker"
	gatewaypkg "github.com/mobifiliallp/mfuses/gateway"
	configpkg "github.com/mobifiliallp/mfuses/internal/runtime/config"
	errspkg "github.com/mobifiliallp/mfuses/internal/runtime/errors"
	loggingpkg "github.com/mobifiliallp/mfuses/internal/runtime/logging"
)

// ServiceDependencies holds the optional collaborators a Service can use.
// Leave fields nil to get the registry-backed defaults.
type ServiceDependencies struct {
	// BrokerFactory overrides the default broker registry lookup.
	BrokerFactory brokerpkg.Builder

	// Gateway overrides the registered default gateway module. Only consulted
	// when the resolved record enables the web API.
	Gateway gatewaypkg.Module

	// MetricsRegisterer receives the facade counters when metrics are
	// enabled. Defaults to the global Prometheus registerer.
	MetricsRegisterer prometheus.Registerer
}

// Service owns the broker lifecycle: it constructs the broker from the
// resolved configuration record, starts it, and optionally attaches the
// gateway module. The broker handle it hands out is a singleton for the
// process; it is never replaced after Start.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	broker  brokerpkg.Broker
	handle  *Handle
	gateway gatewaypkg.Module

	httpServersMu sync.Mutex
	httpServers   map[int]*http.ServeMux
}

// NewService constructs a Service for the supplied configuration record. It
// panics when construction fails; use TryNewService to handle the error.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	s, err := TryNewService(conf, log, ctx, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService constructs a Service for the supplied configuration record.
// The record must be fully resolved: construction reads it but never fills
// gaps.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("mfuses: invalid configuration: %w", err)
	}

	log.Info("creating broker service", loggingpkg.LogFields{
		"namespace":   conf.Namespace,
		"transporter": brokerpkg.SchemeOf(conf.Transporter),
		"config":      conf.String(),
	})

	factory := deps.BrokerFactory
	var (
		bkr brokerpkg.Broker
		err error
	)
	if factory != nil {
		bkr, err = factory(ctx, conf, log)
	} else {
		bkr, err = brokerpkg.Build(ctx, conf, log)
	}
	if err != nil {
		return nil, fmt.Errorf("mfuses: build broker: %w", err)
	}
	if bkr == nil {
		return nil, errspkg.ErrBrokerRequired
	}

	s := &Service{
		Conf:    conf,
		Logger:  log,
		broker:  bkr,
		gateway: deps.Gateway,
	}

	var metrics *facadeMetrics
	if conf.Metrics.Enabled {
		registerer := deps.MetricsRegisterer
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		metrics = newFacadeMetrics(registerer)
		if conf.Metrics.Port > 0 {
			s.RegisterHTTPHandler(conf.Metrics.Port, "/metrics", promhttp.Handler())
		}
	}

	s.handle = &Handle{broker: bkr, logger: log, metrics: metrics}
	return s, nil
}

// Start brings the broker online, then attaches the gateway when enabled.
// Gateway attachment failure is contained: it is logged and the broker keeps
// running without the HTTP surface.
func (s *Service) Start(ctx context.Context) error {
	if err := s.broker.Start(ctx); err != nil {
		return fmt.Errorf("mfuses: start broker: %w", err)
	}
	s.attachGateway(ctx)
	s.startHTTPServers()
	return nil
}

// Stop shuts the broker down. Calling it is the host application's choice at
// process shutdown; the facade never stops the broker on its own.
func (s *Service) Stop(ctx context.Context) error {
	if s.gateway != nil {
		if err := s.gateway.Shutdown(ctx); err != nil {
			s.Logger.Error("gateway shutdown failed", err, nil)
		}
	}
	return s.broker.Stop(ctx)
}

// Handle returns the process-lifetime facade over the started broker.
func (s *Service) Handle() *Handle {
	return s.handle
}

// Broker exposes the underlying broker for advanced consumers.
func (s *Service) Broker() brokerpkg.Broker {
	return s.broker
}

func (s *Service) attachGateway(ctx context.Context) {
	if !s.Conf.EnableWebAPI {
		return
	}

	module := s.gateway
	if module == nil {
		module = gatewaypkg.Default()
	}
	if module == nil {
		s.Logger.Error("web API is enabled but no gateway module is available",
			errspkg.ErrGatewayUnavailable, loggingpkg.LogFields{
				"hint": `add a blank import of github.com/mobifiliallp/mfuses/gateway/httpapi or inject a gateway module`,
			})
		return
	}

	settings := gatewaypkg.Settings{
		Port: s.Conf.WebAPI.Port,
		Path: s.Conf.WebAPI.Path,
	}
	if err := module.Attach(ctx, s.handle, settings, s.Logger); err != nil {
		s.Logger.Error("failed to attach gateway module", err, loggingpkg.LogFields{
			"gateway": module.Name(),
			"port":    settings.Port,
		})
		return
	}

	s.gateway = module
	s.Logger.Info("gateway module attached", loggingpkg.LogFields{
		"gateway": module.Name(),
		"port":    settings.Port,
		"path":    settings.Path,
	})
}

// RegisterHTTPHandler mounts a handler on the auxiliary HTTP server for the
// given port. Servers are started by Start.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		addr := fmt.Sprintf(":%d", port)
		s.Logger.Info("starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				s.Logger.Error("HTTP server stopped", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}
