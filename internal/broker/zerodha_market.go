package broker

import (
	"context"

	"broker-gateway/internal/errors"
	"broker-gateway/internal/models"
)

// kiteIntervals maps gateway interval names to Kite API interval names.
var kiteIntervals = map[string]string{
	"1m":  "minute",
	"3m":  "3minute",
	"5m":  "5minute",
	"10m": "10minute",
	"15m": "15minute",
	"30m": "30minute",
	"1h":  "60minute",
	"1d":  "day",
}

// GetQuote fetches a snapshot for one broker-native symbol.
func (z *ZerodhaDriver) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	quotes, err := z.GetQuotes(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	q, ok := quotes[symbol]
	if !ok {
		return nil, errors.NewUnknownSymbolError(zerodhaName, symbol)
	}
	return q, nil
}

// GetQuotes fetches snapshots for several symbols in one API call. The
// result map is keyed by the broker-native symbol.
func (z *ZerodhaDriver) GetQuotes(ctx context.Context, syms []string) (map[string]*models.Quote, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	kiteQuotes, err := z.client.GetQuote(syms...)
	if err != nil {
		return nil, errors.NewBrokerError(zerodhaName, "quote", "failed to get quotes", err)
	}

	result := make(map[string]*models.Quote, len(kiteQuotes))
	for native, kq := range kiteQuotes {
		q := &models.Quote{
			Symbol:    native,
			LastPrice: kq.LastPrice,
			Open:      kq.OHLC.Open,
			High:      kq.OHLC.High,
			Low:       kq.OHLC.Low,
			Close:     kq.OHLC.Close,
			Volume:    int64(kq.Volume),
			Change:    kq.NetChange,
			Timestamp: kq.Timestamp.Time,
		}
		if len(kq.Depth.Buy) > 0 {
			q.Bid = kq.Depth.Buy[0].Price
		}
		if len(kq.Depth.Sell) > 0 {
			q.Ask = kq.Depth.Sell[0].Price
		}
		if kq.OHLC.Close > 0 {
			q.ChangePercent = kq.NetChange / kq.OHLC.Close * 100
		}
		result[native] = q
	}
	return result, nil
}

// GetHistorical fetches candles, splitting long ranges into the windows the
// Kite API accepts per interval class.
func (z *ZerodhaDriver) GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	interval, ok := kiteIntervals[req.Interval]
	if !ok {
		interval = req.Interval
	}

	inst, err := z.instrumentFor(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	var candles []models.Candle
	for _, window := range chunkRanges(interval, req.From, req.To) {
		data, err := z.client.GetHistoricalData(int(inst.Token), interval, window[0], window[1], false, req.OI)
		if err != nil {
			return nil, errors.NewBrokerError(zerodhaName, "historical", "failed to get historical data", err)
		}
		for _, d := range data {
			candles = append(candles, models.Candle{
				Timestamp: d.Date.Time,
				Open:      d.Open,
				High:      d.High,
				Low:       d.Low,
				Close:     d.Close,
				Volume:    int64(d.Volume),
				OI:        int64(d.OI),
			})
		}
	}
	return candles, nil
}
