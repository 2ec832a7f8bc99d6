// Package mfuses is a thin configuration and lifecycle layer over a
// microservice broker. It reads layered configuration through a small Store
// abstraction (Viper-backed or plain maps), merges overrides onto the
// built-in defaults, builds the broker for the configured transporter, and
// hands out a single Handle facade for calls, emits, and broadcasts.
//
// Configuration lives under one of three roots, consulted in order:
// mfuses (current), usMoleculer and mol-service (deprecated, still honored
// with a warning). The resolved record fills every gap with a default, so a
// completely empty store still yields a working in-process setup; see
// Resolve for the exact merge rules.
//
// # Brokers
//
// Broker backends self-register by transporter scheme:
//   - channel: in-memory broker on Watermill go-channels for tests and
//     single-process deployments
//   - tcp, nats, amqp: the moleculer broker, interoperable with other
//     moleculer nodes on the same transport
//
// Blank-import the backend package you want; the scheme of the configured
// transporter ("TCP", "nats://host:4222") picks the builder.
//
// # Gateway
//
// An optional HTTP gateway exposes call, emit, and broadcast endpoints under
// the configured path. It is a capability module: blank-import
// gateway/httpapi (or inject your own via ServiceDependencies.Gateway) and
// set enableWebApi in the configuration. A gateway that fails to attach is
// logged and skipped; the broker keeps running without it.
//
// A minimal setup therefore involves pointing NewServiceFromStore at a Viper
// instance, calling Start, and using Service.Handle for traffic; see
// examples/simple for a copy/paste quick start.
package mfuses
