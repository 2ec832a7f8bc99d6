package mfuses

import (
	brokerpkg "github.com/mobifiliallp/mfuses/broker"
	gatewaypkg "github.com/mobifiliallp/mfuses/gateway"
	runtimepkg "github.com/mobifiliallp/mfuses/internal/runtime"
	configpkg "github.com/mobifiliallp/mfuses/internal/runtime/config"
	errspkg "github.com/mobifiliallp/mfuses/internal/runtime/errors"
	idspkg "github.com/mobifiliallp/mfuses/internal/runtime/ids"
	loggingpkg "github.com/mobifiliallp/mfuses/internal/runtime/logging"
)

type (
	Config         = configpkg.Config
	RegistryConfig = configpkg.RegistryConfig
	LoggerConfig   = configpkg.LoggerConfig
	WebAPIConfig   = configpkg.WebAPIConfig
	MetricsConfig  = configpkg.MetricsConfig

	ConfigStore = configpkg.Store
	MapStore    = configpkg.MapStore

	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Handle              = runtimepkg.Handle

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger
	LogSettings   = loggingpkg.Settings

	Broker        = brokerpkg.Broker
	BrokerConfig  = brokerpkg.Config
	BrokerBuilder = brokerpkg.Builder
	Payload       = brokerpkg.Payload
	CallParams    = brokerpkg.CallParams
	CallOptions   = brokerpkg.CallOptions
	CallResult    = brokerpkg.CallResult
	ActionHandler = brokerpkg.ActionHandler
	EventHandler  = brokerpkg.EventHandler

	// Broker capabilities discovered via type assertion
	ActionRegistrar = brokerpkg.ActionRegistrar
	EventSubscriber = brokerpkg.EventSubscriber

	GatewayModule   = gatewaypkg.Module
	GatewaySettings = gatewaypkg.Settings
	GatewayCaller   = gatewaypkg.Caller
)

var (
	NewService          = runtimepkg.NewService
	TryNewService       = runtimepkg.TryNewService
	NewServiceFromStore = runtimepkg.NewServiceFromStore

	Resolve        = configpkg.Resolve
	FromViper      = configpkg.FromViper
	MergeConfig    = configpkg.Merge
	ValidateConfig = configpkg.ValidateConfig

	NewBaseLogger           = loggingpkg.NewBaseLogger
	NewZerologServiceLogger = loggingpkg.NewZerologServiceLogger
	NewSlogServiceLogger    = loggingpkg.NewSlogServiceLogger
	NewBrokerLoggerFactory  = loggingpkg.NewBrokerLoggerFactory
	NopLogger               = loggingpkg.Nop
	NewWatermillAdapter     = loggingpkg.NewWatermillAdapter

	Data     = brokerpkg.Data
	Stream   = brokerpkg.Stream
	ParamsOf = brokerpkg.ParamsOf

	RegisterBroker = brokerpkg.Register
	BuildBroker    = brokerpkg.Build
	SchemeOf       = brokerpkg.SchemeOf

	RegisterGateway = gatewaypkg.Register
	DefaultGateway  = gatewaypkg.Default

	CorrelationID = idspkg.CorrelationID
)

// Sentinel errors surfaced by the facade and lifecycle operations.
var (
	ErrConfigRequired     = errspkg.ErrConfigRequired
	ErrLoggerRequired     = errspkg.ErrLoggerRequired
	ErrBrokerRequired     = errspkg.ErrBrokerRequired
	ErrActionRequired     = errspkg.ErrActionRequired
	ErrEventRequired      = errspkg.ErrEventRequired
	ErrHandlerRequired    = errspkg.ErrHandlerRequired
	ErrGroupRequired      = errspkg.ErrGroupRequired
	ErrGatewayUnavailable = errspkg.ErrGatewayUnavailable
	ErrBrokerNotStarted   = errspkg.ErrBrokerNotStarted
	ErrBrokerStopped      = errspkg.ErrBrokerStopped
)

// Defaults applied by Resolve before any override source is merged in.
const (
	DefaultNamespace        = configpkg.DefaultNamespace
	DefaultTransporter      = configpkg.DefaultTransporter
	DefaultRegistryStrategy = configpkg.DefaultRegistryStrategy
	DefaultLogLevel         = configpkg.DefaultLogLevel
	DefaultWebAPIPort       = configpkg.DefaultWebAPIPort
	DefaultWebAPIPath       = configpkg.DefaultWebAPIPath
	DefaultRequestTimeout   = configpkg.DefaultRequestTimeout
)
