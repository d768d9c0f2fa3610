package broker

import (
	"context"
	"fmt"
	"time"

	kitemodels "github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"broker-gateway/internal/errors"
	"broker-gateway/internal/models"
)

// StreamQuotes opens a Kite WebSocket session for the given broker-native
// symbols and delivers converted quotes on the returned subscription. The
// connection is established before returning; cancelling the context or
// closing the subscription tears the socket down.
func (z *ZerodhaDriver) StreamQuotes(ctx context.Context, syms []string) (*Subscription, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	tokens := make([]uint32, 0, len(syms))
	tokenSymbols := make(map[uint32]string, len(syms))
	for _, native := range syms {
		inst, err := z.instrumentFor(ctx, native)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, inst.Token)
		tokenSymbols[inst.Token] = native
	}

	z.sessionMu.Lock()
	ticker := kiteticker.New(z.cfg.APIKey, z.accessToken)
	z.sessionMu.Unlock()

	sub := NewSubscription(defaultStreamBuffer, func() error {
		ticker.Close()
		return nil
	})

	connected := make(chan struct{})
	firstConnect := true

	ticker.OnConnect(func() {
		// Reconnects re-subscribe silently; only the first connect signals.
		if err := ticker.Subscribe(tokens); err != nil {
			return
		}
		_ = ticker.SetMode(kiteticker.ModeFull, tokens)
		if firstConnect {
			firstConnect = false
			close(connected)
		}
	})

	ticker.OnTick(func(tick kitemodels.Tick) {
		native, ok := tokenSymbols[tick.InstrumentToken]
		if !ok {
			return
		}
		sub.Publish(convertKiteTick(native, tick))
	})

	ticker.OnError(func(err error) {})

	go ticker.Serve()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.Done():
		}
	}()

	select {
	case <-connected:
		return sub, nil
	case <-ctx.Done():
		sub.Close()
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		sub.Close()
		return nil, errors.Wrap(errors.ErrConnectionFailed,
			fmt.Sprintf("zerodha ticker did not connect for %d symbols", len(syms)))
	}
}

func convertKiteTick(native string, tick kitemodels.Tick) models.Quote {
	q := models.Quote{
		Symbol:    native,
		LastPrice: tick.LastPrice,
		Open:      tick.OHLC.Open,
		High:      tick.OHLC.High,
		Low:       tick.OHLC.Low,
		Close:     tick.OHLC.Close,
		Volume:    int64(tick.VolumeTraded),
		Change:    tick.NetChange,
		Timestamp: tick.Timestamp.Time,
	}
	if len(tick.Depth.Buy) > 0 {
		q.Bid = tick.Depth.Buy[0].Price
	}
	if len(tick.Depth.Sell) > 0 {
		q.Ask = tick.Depth.Sell[0].Price
	}
	if tick.OHLC.Close > 0 {
		q.ChangePercent = tick.NetChange / tick.OHLC.Close * 100
	}
	return q
}
