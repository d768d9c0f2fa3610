// Package symbols converts between canonical symbols and broker-native ones.
//
// The canonical form is "<EXCHANGE>:<TRADINGSYMBOL>", always uppercase, with no
// broker-specific suffixes (e.g. "NSE:SBIN"). Each broker supplies a
// bidirectional mapping table. Tables are loaded once per process and treated
// as read-only after the first lookup.
package symbols

import (
	"strings"
	"sync"

	"broker-gateway/internal/errors"
	"broker-gateway/internal/models"
)

// Registry holds per-broker bidirectional symbol mapping tables.
type Registry struct {
	mu         sync.RWMutex
	toBroker   map[string]map[string]string // broker -> canonical -> native
	toCanon    map[string]map[string]string // broker -> native -> canonical
	frozen     bool
}

// NewRegistry creates an empty symbol registry.
func NewRegistry() *Registry {
	return &Registry{
		toBroker: make(map[string]map[string]string),
		toCanon:  make(map[string]map[string]string),
	}
}

// Load installs mapping entries for a broker. Keys are canonical symbols,
// values are the broker-native representation. Loading after the registry has
// been frozen is rejected; entries merge with any earlier load for the broker.
func (r *Registry) Load(broker string, canonicalToNative map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.Wrap(errors.ErrConfigInvalid, "symbol registry is frozen")
	}

	broker = strings.ToLower(broker)
	fwd, ok := r.toBroker[broker]
	if !ok {
		fwd = make(map[string]string, len(canonicalToNative))
		r.toBroker[broker] = fwd
	}
	rev, ok := r.toCanon[broker]
	if !ok {
		rev = make(map[string]string, len(canonicalToNative))
		r.toCanon[broker] = rev
	}
	for canonical, native := range canonicalToNative {
		canonical = Normalize(canonical)
		fwd[canonical] = native
		rev[native] = canonical
	}
	return nil
}

// Freeze marks the registry read-only. Lookups freeze implicitly, so calling
// this is only needed to fail fast on late Load calls.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// ToBroker resolves a canonical symbol to the broker-native form. It performs
// no network call and fails with UnknownSymbolError when the symbol has no
// entry for the broker: a guessed symbol must never reach a trading API.
func (r *Registry) ToBroker(broker, canonical string) (string, error) {
	broker = strings.ToLower(broker)
	canonical = Normalize(canonical)

	r.mu.Lock()
	r.frozen = true
	native, ok := r.toBroker[broker][canonical]
	r.mu.Unlock()

	if !ok {
		return "", errors.NewUnknownSymbolError(broker, canonical)
	}
	return native, nil
}

// ToCanonical resolves a broker-native symbol back to the canonical form.
// Same failure contract as ToBroker.
func (r *Registry) ToCanonical(broker, native string) (string, error) {
	broker = strings.ToLower(broker)

	r.mu.Lock()
	r.frozen = true
	canonical, ok := r.toCanon[broker][native]
	r.mu.Unlock()

	if !ok {
		return "", errors.NewUnknownSymbolError(broker, native)
	}
	return canonical, nil
}

// Brokers returns the brokers with loaded tables.
func (r *Registry) Brokers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.toBroker))
	for b := range r.toBroker {
		out = append(out, b)
	}
	return out
}

// Normalize rewrites a symbol into the canonical form: uppercase, prefixed
// with NSE when no exchange is given, broker suffixes stripped.
func Normalize(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	exchange := string(models.NSE)
	if i := strings.IndexByte(symbol, ':'); i >= 0 {
		exchange = strings.ToUpper(strings.TrimSpace(symbol[:i]))
		symbol = strings.TrimSpace(symbol[i+1:])
	}
	symbol = strings.ToUpper(symbol)
	symbol = strings.TrimSuffix(symbol, "-EQ")
	symbol = strings.TrimSuffix(symbol, "-INDEX")
	return exchange + ":" + symbol
}

// Split returns the exchange and trading-symbol parts of a canonical symbol.
func Split(canonical string) (models.Exchange, string) {
	if i := strings.IndexByte(canonical, ':'); i >= 0 {
		return models.Exchange(canonical[:i]), canonical[i+1:]
	}
	return models.NSE, canonical
}

// Join builds a canonical symbol from its parts.
func Join(exchange models.Exchange, tradingSymbol string) string {
	return string(exchange) + ":" + strings.ToUpper(tradingSymbol)
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry that broker modules load their
// tables into at startup.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}
