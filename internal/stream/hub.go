// Package stream fans a single live-quote subscription out to multiple
// in-process consumers.
package stream

import (
	"context"
	"sync"
	"time"

	"broker-gateway/internal/broker"
	"broker-gateway/internal/models"
)

// HubConfig holds configuration for the quote hub.
type HubConfig struct {
	// SubscriberBuffer is the channel depth for each subscriber.
	SubscriberBuffer int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{SubscriberBuffer: 100}
}

// Hub distributes quotes from one gateway subscription to any number of
// per-symbol subscribers. The broker connection stays single; strategies
// that want the same symbol each get their own channel.
type Hub struct {
	config HubConfig
	source *broker.Subscription

	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	started     bool
	stopped     bool
	done        chan struct{}

	metricsMu      sync.RWMutex
	quotesReceived uint64
	quotesDropped  uint64
}

type subscriber struct {
	ch        chan models.Quote
	createdAt time.Time
}

// NewHub creates a hub fed by the given subscription.
func NewHub(source *broker.Subscription) *Hub {
	return NewHubWithConfig(source, DefaultHubConfig())
}

// NewHubWithConfig creates a hub with custom configuration.
func NewHubWithConfig(source *broker.Subscription, config HubConfig) *Hub {
	if config.SubscriberBuffer <= 0 {
		config.SubscriberBuffer = DefaultHubConfig().SubscriberBuffer
	}
	return &Hub{
		config:      config,
		source:      source,
		subscribers: make(map[string][]*subscriber),
		done:        make(chan struct{}),
	}
}

// Start begins draining the source subscription and broadcasting quotes.
// It is a no-op when already running or after Stop: the source is closed by
// Stop, so a stopped hub cannot be restarted.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	if h.started || h.stopped {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				h.Stop()
				return
			case <-h.done:
				return
			case q, ok := <-h.source.Quotes():
				if !ok {
					h.Stop()
					return
				}
				h.metricsMu.Lock()
				h.quotesReceived++
				h.metricsMu.Unlock()
				h.broadcast(q)
			}
		}
	}()
}

// Stop closes all subscriber channels and the source subscription. Safe to
// call more than once.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	h.stopped = true
	h.started = false
	close(h.done)

	for symbol, subs := range h.subscribers {
		for _, sub := range subs {
			close(sub.ch)
		}
		delete(h.subscribers, symbol)
	}

	_ = h.source.Close()
}

// Subscribe returns a channel that receives quotes for one canonical symbol.
// The channel is closed when the hub stops; subscribing to an already stopped
// hub yields a closed channel.
func (h *Hub) Subscribe(symbol string) <-chan models.Quote {
	sub := &subscriber{
		ch:        make(chan models.Quote, h.config.SubscriberBuffer),
		createdAt: time.Now(),
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch
	}
	h.subscribers[symbol] = append(h.subscribers[symbol], sub)
	h.mu.Unlock()

	return sub.ch
}

// Unsubscribe removes one subscriber channel for a symbol and closes it.
func (h *Hub) Unsubscribe(symbol string, ch <-chan models.Quote) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[symbol]
	for i, sub := range subs {
		if sub.ch == ch {
			close(sub.ch)
			h.subscribers[symbol] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subscribers[symbol]) == 0 {
		delete(h.subscribers, symbol)
	}
}

// broadcast delivers a quote to every subscriber of its symbol without
// blocking; a full subscriber loses the quote.
func (h *Hub) broadcast(q models.Quote) {
	h.mu.RLock()
	subs := h.subscribers[q.Symbol]
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- q:
		default:
			h.metricsMu.Lock()
			h.quotesDropped++
			h.metricsMu.Unlock()
		}
	}
}

// SubscriberCount returns the number of subscribers for a symbol.
func (h *Hub) SubscriberCount(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[symbol])
}

// Symbols returns all symbols with active subscribers.
func (h *Hub) Symbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.subscribers))
	for symbol := range h.subscribers {
		out = append(out, symbol)
	}
	return out
}

// Metrics reports delivery counters.
func (h *Hub) Metrics() HubMetrics {
	h.metricsMu.RLock()
	defer h.metricsMu.RUnlock()
	return HubMetrics{
		QuotesReceived: h.quotesReceived,
		QuotesDropped:  h.quotesDropped,
	}
}

// HubMetrics contains hub delivery counters.
type HubMetrics struct {
	QuotesReceived uint64
	QuotesDropped  uint64
}

// Running reports whether the hub is draining its source.
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started
}
