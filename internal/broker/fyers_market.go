package broker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"broker-gateway/internal/errors"
	"broker-gateway/internal/models"
)

// fyersResolutions maps gateway interval names to Fyers resolution codes.
var fyersResolutions = map[string]string{
	"1m":  "1",
	"3m":  "3",
	"5m":  "5",
	"10m": "10",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"1d":  "D",
}

type fyersQuotePayload struct {
	LP        float64 `json:"lp"`
	Open      float64 `json:"open_price"`
	High      float64 `json:"high_price"`
	Low       float64 `json:"low_price"`
	PrevClose float64 `json:"prev_close_price"`
	Volume    int64   `json:"volume"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Change    float64 `json:"ch"`
	ChangePct float64 `json:"chp"`
	TT        int64   `json:"tt"` // epoch seconds
}

func (p fyersQuotePayload) toQuote(native string) *models.Quote {
	return &models.Quote{
		Symbol:        native,
		LastPrice:     p.LP,
		Bid:           p.Bid,
		Ask:           p.Ask,
		Open:          p.Open,
		High:          p.High,
		Low:           p.Low,
		Close:         p.PrevClose,
		Volume:        p.Volume,
		Change:        p.Change,
		ChangePercent: p.ChangePct,
		Timestamp:     time.Unix(p.TT, 0),
	}
}

// GetQuote fetches a snapshot for one broker-native symbol.
func (f *FyersDriver) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	quotes, err := f.GetQuotes(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	q, ok := quotes[symbol]
	if !ok {
		return nil, errors.NewUnknownSymbolError(fyersName, symbol)
	}
	return q, nil
}

// GetQuotes fetches snapshots for several symbols in one API call. The
// result map is keyed by the broker-native symbol (e.g. "NSE:SBIN-EQ").
func (f *FyersDriver) GetQuotes(ctx context.Context, syms []string) (map[string]*models.Quote, error) {
	if !f.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	var resp struct {
		fyersEnvelope
		D []struct {
			N string            `json:"n"`
			S string            `json:"s"`
			V fyersQuotePayload `json:"v"`
		} `json:"d"`
	}
	path := "/data/quotes?symbols=" + url.QueryEscape(strings.Join(syms, ","))
	if err := f.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	result := make(map[string]*models.Quote, len(resp.D))
	for _, item := range resp.D {
		if item.S == "error" {
			continue
		}
		result[item.N] = item.V.toQuote(item.N)
	}
	return result, nil
}

// GetHistorical fetches candles, splitting long ranges into the windows the
// history API accepts per interval class. Candles come back as positional
// arrays [epoch, open, high, low, close, volume].
func (f *FyersDriver) GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error) {
	if !f.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	resolution, ok := fyersResolutions[req.Interval]
	if !ok {
		resolution = req.Interval
	}

	var candles []models.Candle
	for _, window := range chunkRanges(resolution, req.From, req.To) {
		q := url.Values{
			"symbol":      {req.Symbol},
			"resolution":  {resolution},
			"date_format": {"0"},
			"range_from":  {fmt.Sprintf("%d", window[0].Unix())},
			"range_to":    {fmt.Sprintf("%d", window[1].Unix())},
			"cont_flag":   {"1"},
		}

		var resp struct {
			fyersEnvelope
			Candles [][]float64 `json:"candles"`
		}
		if err := f.call(ctx, http.MethodGet, "/data/history?"+q.Encode(), nil, &resp); err != nil {
			return nil, err
		}
		if err := resp.err(); err != nil {
			return nil, err
		}

		for _, c := range resp.Candles {
			if len(c) < 5 {
				continue
			}
			candle := models.Candle{
				Timestamp: time.Unix(int64(c[0]), 0),
				Open:      c[1],
				High:      c[2],
				Low:       c[3],
				Close:     c[4],
			}
			if len(c) > 5 {
				candle.Volume = int64(c[5])
			}
			candles = append(candles, candle)
		}
	}
	return candles, nil
}
