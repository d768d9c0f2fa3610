package broker

import (
	"sort"
	"strings"
	"sync"

	"broker-gateway/internal/config"
	"broker-gateway/internal/errors"
)

// Factory produces a driver instance from configuration.
type Factory func(cfg *config.Config) (Driver, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register adds a driver factory under a broker name. Broker modules call
// this from init, so adding a broker requires no change to the gateway.
// Registering an existing name fails with DuplicateBrokerError and leaves the
// first registration active.
func Register(name string, factory Factory) error {
	key := strings.ToLower(name)

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := factories[key]; exists {
		return &errors.DuplicateBrokerError{Broker: key}
	}
	factories[key] = factory
	return nil
}

// MustRegister is Register for init-time use; a duplicate name is a
// programming error and panics.
func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// Create constructs a driver for the named broker. An unregistered name
// fails with UnknownBrokerError before any authentication is attempted.
func Create(name string, cfg *config.Config) (Driver, error) {
	key := strings.ToLower(name)

	registryMu.RLock()
	factory, ok := factories[key]
	registryMu.RUnlock()

	if !ok {
		return nil, &errors.UnknownBrokerError{Broker: key, Registered: Names()}
	}
	return factory(cfg)
}

// Names returns the registered broker names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
