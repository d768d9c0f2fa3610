package broker

import (
	"errors"
	"sync"
	"testing"

	"broker-gateway/internal/models"
)

func TestSubscriptionDeliversInOrder(t *testing.T) {
	sub := NewSubscription(10, nil)
	defer sub.Close()

	for i := 1; i <= 3; i++ {
		sub.Publish(models.Quote{LastPrice: float64(i)})
	}
	for i := 1; i <= 3; i++ {
		q := <-sub.Quotes()
		if q.LastPrice != float64(i) {
			t.Errorf("quote %d has price %v", i, q.LastPrice)
		}
	}
}

func TestSubscriptionDropsOldestWhenFull(t *testing.T) {
	sub := NewSubscription(2, nil)
	defer sub.Close()

	sub.Publish(models.Quote{LastPrice: 1})
	sub.Publish(models.Quote{LastPrice: 2})
	sub.Publish(models.Quote{LastPrice: 3}) // evicts 1

	if q := <-sub.Quotes(); q.LastPrice != 2 {
		t.Errorf("first delivered price = %v, want 2", q.LastPrice)
	}
	if q := <-sub.Quotes(); q.LastPrice != 3 {
		t.Errorf("second delivered price = %v, want 3", q.LastPrice)
	}
}

func TestSubscriptionCloseStopsExactlyOnce(t *testing.T) {
	stops := 0
	stopErr := errors.New("transport close failed")
	sub := NewSubscription(1, func() error {
		stops++
		return stopErr
	})

	if err := sub.Close(); err != stopErr {
		t.Errorf("first Close = %v, want stop error", err)
	}
	if err := sub.Close(); err != stopErr {
		t.Errorf("second Close = %v, want first result again", err)
	}
	if stops != 1 {
		t.Errorf("stop invoked %d times, want 1", stops)
	}

	select {
	case <-sub.Done():
	default:
		t.Error("Done not closed after Close")
	}
}

func TestSubscriptionPublishAfterCloseIsNoop(t *testing.T) {
	sub := NewSubscription(1, nil)
	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Must neither panic nor deliver.
	sub.Publish(models.Quote{LastPrice: 99})
	if q, ok := <-sub.Quotes(); ok {
		t.Errorf("received %v on closed subscription", q)
	}
}

func TestSubscriptionConcurrentPublishAndClose(t *testing.T) {
	sub := NewSubscription(4, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sub.Publish(models.Quote{LastPrice: float64(j)})
			}
		}()
	}

	go func() {
		for range sub.Quotes() {
		}
	}()

	sub.Close()
	wg.Wait()
}
