// Package broker provides the driver contract, driver registry and the
// gateway facade that strategies call.
package broker

import (
	"context"
	"time"

	"broker-gateway/internal/models"
)

// Driver is the capability contract every broker integration must satisfy.
// Symbol-bearing arguments arrive in the broker-native form; the gateway
// handles canonical-symbol translation on both sides of the call.
type Driver interface {
	// Identity
	Name() string
	Capabilities() Capabilities

	// Authentication
	Authenticate(ctx context.Context) error
	CompleteLogin(ctx context.Context, requestToken string) error
	Logout(ctx context.Context) error
	IsAuthenticated() bool

	// Account
	GetFunds(ctx context.Context) (*models.FundsSnapshot, error)
	GetMargins(ctx context.Context, segment models.MarginSegment) (*models.SegmentMargin, error)
	GetPositions(ctx context.Context) ([]models.Position, error)

	// Market data
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error)
	GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error)

	// Orders
	PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResponse, error)
	ModifyOrder(ctx context.Context, orderID string, changes *models.OrderChanges) (*models.OrderResponse, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrders(ctx context.Context) ([]models.Order, error)
	GetTrades(ctx context.Context) ([]models.Trade, error)

	// Streaming
	StreamQuotes(ctx context.Context, symbols []string) (*Subscription, error)
}

// Capabilities advertises which operations a driver backs. Calls to an
// unadvertised operation fail with UnsupportedOperationError before any
// transport work happens.
type Capabilities struct {
	Funds      bool
	Margins    bool
	Positions  bool
	Quotes     bool
	Historical bool
	Orders     bool
	Orderbook  bool
	Tradebook  bool
	Streaming  bool
}

// HistoricalRequest describes a historical-data query in broker-native terms.
type HistoricalRequest struct {
	Symbol   string
	Interval string // "1m", "5m", "1d", ...
	From     time.Time
	To       time.Time
	OI       bool
}

// maxChunkDays returns the largest date span a single historical request may
// cover for the interval class: daily bars allow 366 days, second bars 30,
// minute bars 100.
func maxChunkDays(interval string) int {
	switch interval {
	case "day", "1d", "D", "1D":
		return 366
	case "5S", "10S", "15S", "30S", "45S":
		return 30
	default:
		return 100
	}
}

// chunkRanges splits [from, to] into API-sized windows for the interval.
// Drivers use this so a long backfill becomes several sequential calls.
func chunkRanges(interval string, from, to time.Time) [][2]time.Time {
	maxDays := maxChunkDays(interval)
	var out [][2]time.Time
	for start := from; !start.After(to); {
		end := start.AddDate(0, 0, maxDays-1)
		if end.After(to) {
			end = to
		}
		out = append(out, [2]time.Time{start, end})
		start = end.AddDate(0, 0, 1)
	}
	return out
}
