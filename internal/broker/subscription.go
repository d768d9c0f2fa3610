package broker

import (
	"sync"

	"broker-gateway/internal/models"
)

// defaultStreamBuffer is the per-subscription channel depth. A slow consumer
// drops the oldest pending quote rather than blocking the socket reader.
const defaultStreamBuffer = 100

// Subscription is a live-quote stream. Quotes arrive on Quotes() until the
// subscription is closed; restarting means re-subscribing. Close is explicit
// and idempotent: a second call is a no-op and triggers no duplicate
// unsubscribe on the broker transport.
type Subscription struct {
	quotes chan models.Quote
	done   chan struct{}

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	stop      func() error
	closeErr  error
}

// NewSubscription creates a subscription whose Close invokes stop exactly
// once. Drivers publish converted ticks into it; consumers range over
// Quotes().
func NewSubscription(buffer int, stop func() error) *Subscription {
	if buffer <= 0 {
		buffer = defaultStreamBuffer
	}
	return &Subscription{
		quotes: make(chan models.Quote, buffer),
		done:   make(chan struct{}),
		stop:   stop,
	}
}

// Quotes returns the quote channel. It is closed when the subscription ends.
func (s *Subscription) Quotes() <-chan models.Quote {
	return s.quotes
}

// Done is closed when the subscription has been cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close cancels the subscription, closing the underlying connection. Calling
// it more than once is a no-op returning the first result.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.stop != nil {
			s.closeErr = s.stop()
		}
		s.mu.Lock()
		s.closed = true
		close(s.quotes)
		s.mu.Unlock()
	})
	return s.closeErr
}

// Publish delivers a quote to the consumer. When the buffer is full the
// oldest pending quote is dropped so the transport reader never stalls.
// Publishing after Close is a silent no-op.
func (s *Subscription) Publish(q models.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.quotes <- q:
		return
	default:
	}
	// Buffer full: evict one, then retry without blocking.
	select {
	case <-s.quotes:
	default:
	}
	select {
	case s.quotes <- q:
	default:
	}
}
