package errors

import sterrors "errors"

var (
	ErrConfigRequired     = sterrors.New("mfuses: configuration record is required")
	ErrLoggerRequired     = sterrors.New("mfuses: logger is required")
	ErrBrokerRequired     = sterrors.New("mfuses: broker is required")
	ErrActionRequired     = sterrors.New("mfuses: action name is required")
	ErrEventRequired      = sterrors.New("mfuses: event name is required")
	ErrHandlerRequired    = sterrors.New("mfuses: handler function is required")
	ErrGroupRequired      = sterrors.New("mfuses: subscription group is required")
	ErrGatewayUnavailable = sterrors.New("mfuses: no gateway module is registered")
	ErrBrokerNotStarted   = sterrors.New("mfuses: broker has not been started")
	ErrBrokerStopped      = sterrors.New("mfuses: broker has been stopped")
)
