package broker

import (
	"context"

	"broker-gateway/internal/errors"
	"broker-gateway/internal/models"
)

// Unsupported is a Driver base whose every capability fails with
// UnsupportedOperationError naming the capability and the broker. Partial
// integrations embed it and override only what their broker API backs;
// "not yet available" is a declared contract, not a bug.
type Unsupported struct {
	Broker string
}

func (u Unsupported) unsupported(capability string) error {
	return errors.NewUnsupportedOperationError(capability, u.Broker)
}

// Name returns the broker name.
func (u Unsupported) Name() string { return u.Broker }

// Capabilities reports nothing supported.
func (u Unsupported) Capabilities() Capabilities { return Capabilities{} }

func (u Unsupported) Authenticate(ctx context.Context) error {
	return u.unsupported("authenticate")
}

func (u Unsupported) CompleteLogin(ctx context.Context, requestToken string) error {
	return u.unsupported("complete_login")
}

func (u Unsupported) Logout(ctx context.Context) error {
	return u.unsupported("logout")
}

func (u Unsupported) IsAuthenticated() bool { return false }

func (u Unsupported) GetFunds(ctx context.Context) (*models.FundsSnapshot, error) {
	return nil, u.unsupported("get_funds")
}

func (u Unsupported) GetMargins(ctx context.Context, segment models.MarginSegment) (*models.SegmentMargin, error) {
	return nil, u.unsupported("get_margins")
}

func (u Unsupported) GetPositions(ctx context.Context) ([]models.Position, error) {
	return nil, u.unsupported("get_positions")
}

func (u Unsupported) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return nil, u.unsupported("get_quote")
}

func (u Unsupported) GetQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error) {
	return nil, u.unsupported("get_quotes")
}

func (u Unsupported) GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error) {
	return nil, u.unsupported("get_historical")
}

func (u Unsupported) PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResponse, error) {
	return nil, u.unsupported("place_order")
}

func (u Unsupported) ModifyOrder(ctx context.Context, orderID string, changes *models.OrderChanges) (*models.OrderResponse, error) {
	return nil, u.unsupported("modify_order")
}

func (u Unsupported) CancelOrder(ctx context.Context, orderID string) error {
	return u.unsupported("cancel_order")
}

func (u Unsupported) GetOrders(ctx context.Context) ([]models.Order, error) {
	return nil, u.unsupported("get_orders")
}

func (u Unsupported) GetTrades(ctx context.Context) ([]models.Trade, error) {
	return nil, u.unsupported("get_trades")
}

func (u Unsupported) StreamQuotes(ctx context.Context, symbols []string) (*Subscription, error) {
	return nil, u.unsupported("stream_quotes")
}

var _ Driver = Unsupported{}
