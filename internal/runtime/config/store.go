package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Store is the read-only hierarchical key-value source the resolver queries.
// Keys are dotted paths ("mfuses.config.namespace"). Lookups are
// case-insensitive, matching the behaviour of the viper-backed store.
type Store interface {
	// Has reports whether a value exists at the key path.
	Has(key string) bool
	// Get returns the value at the key path, or nil when absent.
	Get(key string) any
	// Sub returns the nested mapping rooted at the key path, or nil when the
	// path is absent or does not hold a mapping.
	Sub(key string) map[string]any
}

// FromViper adapts a viper instance to the Store interface. The host
// application is expected to have populated it from files and environment
// variables before resolution runs.
func FromViper(v *viper.Viper) Store {
	return &viperStore{v: v}
}

type viperStore struct {
	v *viper.Viper
}

func (s *viperStore) Has(key string) bool {
	return s.v.IsSet(key)
}

func (s *viperStore) Get(key string) any {
	return s.v.Get(key)
}

func (s *viperStore) Sub(key string) map[string]any {
	sub := s.v.Sub(key)
	if sub == nil {
		return nil
	}
	return sub.AllSettings()
}

// MapStore is an in-memory Store backed by nested map[string]any values. It
// exists for tests and for embedding hosts that assemble configuration
// programmatically.
type MapStore map[string]any

func (m MapStore) Has(key string) bool {
	_, ok := m.lookup(key)
	return ok
}

func (m MapStore) Get(key string) any {
	value, _ := m.lookup(key)
	return value
}

func (m MapStore) Sub(key string) map[string]any {
	value, ok := m.lookup(key)
	if !ok {
		return nil
	}
	nested, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return cloneMap(nested)
}

func (m MapStore) lookup(key string) (any, bool) {
	var current any = map[string]any(m)
	for _, part := range strings.Split(key, ".") {
		nested, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok := lookupFold(nested, part)
		if !ok {
			return nil, false
		}
		current = value
	}
	return current, true
}

func lookupFold(m map[string]any, key string) (any, bool) {
	if value, ok := m[key]; ok {
		return value, true
	}
	for k, value := range m {
		if strings.EqualFold(k, key) {
			return value, true
		}
	}
	return nil, false
}
