package broker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"broker-gateway/internal/config"
	"broker-gateway/internal/errors"
	"broker-gateway/internal/logging"
	"broker-gateway/internal/models"
	"broker-gateway/internal/symbols"
)

// Gateway is the single entry point strategies use. It resolves a driver by
// broker name, translates canonical symbols to the broker-native form on the
// way in and back on the way out, and otherwise forwards calls one-to-one.
//
// The gateway adds no retry, caching or rate-limiting of its own and performs
// no error translation beyond wrapping symbol-normalization failures: every
// broker-originated failure propagates unchanged so callers can inspect the
// broker-specific detail.
type Gateway struct {
	driver  Driver
	broker  string
	symbols *symbols.Registry
	log     zerolog.Logger
}

// GatewayOption configures gateway construction.
type GatewayOption func(*Gateway)

// WithSymbolRegistry overrides the process-default symbol registry.
func WithSymbolRegistry(reg *symbols.Registry) GatewayOption {
	return func(g *Gateway) { g.symbols = reg }
}

// WithLogger sets the gateway logger.
func WithLogger(logger zerolog.Logger) GatewayOption {
	return func(g *Gateway) { g.log = logger }
}

// FromName resolves the broker via the registry, constructs its driver, and
// authenticates eagerly or lazily per configuration. An unregistered name
// fails with UnknownBrokerError before any authentication attempt.
func FromName(ctx context.Context, name string, cfg *config.Config, opts ...GatewayOption) (*Gateway, error) {
	driver, err := Create(name, cfg)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		driver:  driver,
		broker:  driver.Name(),
		symbols: symbols.Default(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = logging.WithBroker(g.log, g.broker)

	if cfg.EagerAuth() {
		if err := driver.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// NewGateway wraps an already-constructed driver. Used by tests and by
// callers that manage driver lifecycle themselves.
func NewGateway(driver Driver, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		driver:  driver,
		broker:  driver.Name(),
		symbols: symbols.Default(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Broker returns the active broker name.
func (g *Gateway) Broker() string { return g.broker }

// Driver returns the underlying driver.
func (g *Gateway) Driver() Driver { return g.driver }

// Capabilities reports the driver's advertised capability set.
func (g *Gateway) Capabilities() Capabilities { return g.driver.Capabilities() }

// Authenticate runs the driver's login flow.
func (g *Gateway) Authenticate(ctx context.Context) error {
	return g.driver.Authenticate(ctx)
}

// CompleteLogin finishes a manual login flow with the exchanged token.
func (g *Gateway) CompleteLogin(ctx context.Context, requestToken string) error {
	return g.driver.CompleteLogin(ctx, requestToken)
}

// Logout invalidates the driver session.
func (g *Gateway) Logout(ctx context.Context) error {
	return g.driver.Logout(ctx)
}

// IsAuthenticated reports whether the driver session is live.
func (g *Gateway) IsAuthenticated() bool {
	return g.driver.IsAuthenticated()
}

// GetFunds returns margin and cash as reported verbatim by the broker.
func (g *Gateway) GetFunds(ctx context.Context) (*models.FundsSnapshot, error) {
	return g.driver.GetFunds(ctx)
}

// GetMargins returns segment margins. A MarginUnavailableError from the
// driver passes through untouched; this layer never substitutes an estimate.
func (g *Gateway) GetMargins(ctx context.Context, segment models.MarginSegment) (*models.SegmentMargin, error) {
	return g.driver.GetMargins(ctx, segment)
}

// GetPositions returns open positions with symbols normalized to canonical.
func (g *Gateway) GetPositions(ctx context.Context) ([]models.Position, error) {
	positions, err := g.driver.GetPositions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		canonical, err := g.toCanonical(symbols.Join(positions[i].Exchange, positions[i].Symbol))
		if err != nil {
			return nil, err
		}
		_, positions[i].Symbol = symbols.Split(canonical)
	}
	return positions, nil
}

// GetQuote fetches a quote for a canonical symbol. The broker call uses the
// native form; the returned quote carries the canonical symbol again.
func (g *Gateway) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	canonical := symbols.Normalize(symbol)
	native, err := g.toBroker(canonical)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	quote, err := g.driver.GetQuote(ctx, native)
	logging.LogAPICall(g.log, g.broker, "get_quote", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	quote.Symbol = canonical
	return quote, nil
}

// GetQuotes is the batch form of GetQuote. The result is keyed by canonical
// symbol.
func (g *Gateway) GetQuotes(ctx context.Context, syms []string) (map[string]*models.Quote, error) {
	nativeToCanonical := make(map[string]string, len(syms))
	natives := make([]string, 0, len(syms))
	for _, s := range syms {
		canonical := symbols.Normalize(s)
		native, err := g.toBroker(canonical)
		if err != nil {
			return nil, err
		}
		nativeToCanonical[native] = canonical
		natives = append(natives, native)
	}

	quotes, err := g.driver.GetQuotes(ctx, natives)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*models.Quote, len(quotes))
	for native, q := range quotes {
		canonical, ok := nativeToCanonical[native]
		if !ok {
			canonical, err = g.toCanonical(native)
			if err != nil {
				return nil, err
			}
		}
		q.Symbol = canonical
		out[canonical] = q
	}
	return out, nil
}

// GetHistorical fetches historical candles for a canonical symbol.
func (g *Gateway) GetHistorical(ctx context.Context, symbol string, req HistoricalRequest) ([]models.Candle, error) {
	native, err := g.toBroker(symbols.Normalize(symbol))
	if err != nil {
		return nil, err
	}
	req.Symbol = native
	return g.driver.GetHistorical(ctx, req)
}

// PlaceOrder validates the request, rewrites its symbol to the broker-native
// form, and forwards it. The response echoes the caller's canonical request.
func (g *Gateway) PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	canonical := symbols.Join(req.Exchange, req.Symbol)
	native, err := g.toBroker(canonical)
	if err != nil {
		return nil, err
	}

	nativeReq := *req
	nativeReq.Symbol = native

	start := time.Now()
	resp, err := g.driver.PlaceOrder(ctx, &nativeReq)
	logging.LogAPICall(g.log, g.broker, "place_order", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	resp.Request = req
	logging.LogOrder(g.log, resp.OrderID, canonical, string(req.Transaction), resp.Status)
	return resp, nil
}

// ModifyOrder forwards an order modification.
func (g *Gateway) ModifyOrder(ctx context.Context, orderID string, changes *models.OrderChanges) (*models.OrderResponse, error) {
	return g.driver.ModifyOrder(ctx, orderID, changes)
}

// CancelOrder forwards an order cancellation.
func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	return g.driver.CancelOrder(ctx, orderID)
}

// GetOrders returns the day's orderbook with canonical symbols.
func (g *Gateway) GetOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := g.driver.GetOrders(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		canonical, err := g.toCanonical(symbols.Join(orders[i].Exchange, orders[i].Symbol))
		if err != nil {
			return nil, err
		}
		_, orders[i].Symbol = symbols.Split(canonical)
	}
	return orders, nil
}

// GetTrades returns the day's tradebook with canonical symbols.
func (g *Gateway) GetTrades(ctx context.Context) ([]models.Trade, error) {
	trades, err := g.driver.GetTrades(ctx)
	if err != nil {
		return nil, err
	}
	for i := range trades {
		canonical, err := g.toCanonical(symbols.Join(trades[i].Exchange, trades[i].Symbol))
		if err != nil {
			return nil, err
		}
		_, trades[i].Symbol = symbols.Split(canonical)
	}
	return trades, nil
}

// StreamQuotes opens a live-quote subscription for canonical symbols. Quotes
// are re-mapped to canonical symbols before delivery. One subscription per
// caller; the gateway never multiplexes strategies over one stream.
func (g *Gateway) StreamQuotes(ctx context.Context, syms []string) (*Subscription, error) {
	nativeToCanonical := make(map[string]string, len(syms))
	natives := make([]string, 0, len(syms))
	for _, s := range syms {
		canonical := symbols.Normalize(s)
		native, err := g.toBroker(canonical)
		if err != nil {
			return nil, err
		}
		nativeToCanonical[native] = canonical
		natives = append(natives, native)
	}

	inner, err := g.driver.StreamQuotes(ctx, natives)
	if err != nil {
		return nil, err
	}

	outer := NewSubscription(defaultStreamBuffer, inner.Close)
	go func() {
		defer outer.Close()
		for q := range inner.Quotes() {
			if canonical, ok := nativeToCanonical[q.Symbol]; ok {
				q.Symbol = canonical
			}
			outer.Publish(q)
		}
	}()
	return outer, nil
}

// toBroker wraps symbol resolution failures with gateway context; this is
// the only error translation the facade performs.
func (g *Gateway) toBroker(canonical string) (string, error) {
	native, err := g.symbols.ToBroker(g.broker, canonical)
	if err != nil {
		return "", errors.Wrapf(err, "gateway %s", g.broker)
	}
	return native, nil
}

func (g *Gateway) toCanonical(native string) (string, error) {
	canonical, err := g.symbols.ToCanonical(g.broker, native)
	if err != nil {
		return "", errors.Wrapf(err, "gateway %s", g.broker)
	}
	return canonical, nil
}
