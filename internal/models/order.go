package models

import (
	"fmt"
	"time"
)

// OrderRequest is an immutable order specification in canonical terms.
// Construct with NewOrderRequest so price fields are checked against the
// order type before anything reaches a broker.
type OrderRequest struct {
	Symbol       string // canonical trading symbol, e.g. "SBIN"
	Exchange     Exchange
	Quantity     int
	OrderType    OrderType
	Transaction  TransactionType
	Product      ProductType
	Price        float64 // required for LIMIT and STOP_LIMIT
	TriggerPrice float64 // required for STOP and STOP_LIMIT
	Validity     Validity
	Tag          string
}

// NewOrderRequest validates and returns an order request.
func NewOrderRequest(symbol string, exchange Exchange, qty int, orderType OrderType,
	txn TransactionType, product ProductType, opts ...OrderOption) (*OrderRequest, error) {
	req := &OrderRequest{
		Symbol:      symbol,
		Exchange:    exchange,
		Quantity:    qty,
		OrderType:   orderType,
		Transaction: txn,
		Product:     product,
		Validity:    ValidityDay,
	}
	for _, opt := range opts {
		opt(req)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// OrderOption configures optional OrderRequest fields.
type OrderOption func(*OrderRequest)

// WithPrice sets the limit price.
func WithPrice(price float64) OrderOption {
	return func(r *OrderRequest) { r.Price = price }
}

// WithTriggerPrice sets the trigger price.
func WithTriggerPrice(trigger float64) OrderOption {
	return func(r *OrderRequest) { r.TriggerPrice = trigger }
}

// WithValidity sets the order validity.
func WithValidity(v Validity) OrderOption {
	return func(r *OrderRequest) { r.Validity = v }
}

// WithTag attaches a broker order tag.
func WithTag(tag string) OrderOption {
	return func(r *OrderRequest) { r.Tag = tag }
}

// Validate checks the internal consistency of the request. Price fields must
// be populated consistently with the order type.
func (r *OrderRequest) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("order request: symbol is required")
	}
	if !r.Exchange.Valid() {
		return fmt.Errorf("order request: unknown exchange %q", r.Exchange)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("order request: quantity must be positive, got %d", r.Quantity)
	}
	if r.Transaction != TransactionBuy && r.Transaction != TransactionSell {
		return fmt.Errorf("order request: unknown transaction type %q", r.Transaction)
	}
	switch r.OrderType {
	case OrderTypeMarket:
		if r.Price != 0 {
			return fmt.Errorf("order request: market order must not carry a price")
		}
	case OrderTypeLimit:
		if r.Price <= 0 {
			return fmt.Errorf("order request: limit order requires a positive price")
		}
	case OrderTypeStop:
		if r.TriggerPrice <= 0 {
			return fmt.Errorf("order request: stop order requires a positive trigger price")
		}
	case OrderTypeStopLimit:
		if r.Price <= 0 || r.TriggerPrice <= 0 {
			return fmt.Errorf("order request: stop-limit order requires positive price and trigger price")
		}
	default:
		return fmt.Errorf("order request: unknown order type %q", r.OrderType)
	}
	switch r.Product {
	case ProductCNC, ProductMIS, ProductNRML:
	default:
		return fmt.Errorf("order request: unknown product type %q", r.Product)
	}
	if r.Validity != "" && r.Validity != ValidityDay && r.Validity != ValidityIOC {
		return fmt.Errorf("order request: unknown validity %q", r.Validity)
	}
	return nil
}

// OrderResponse is the result of a successful placement. It is created only
// by a driver after the broker confirms, never fabricated by the gateway.
type OrderResponse struct {
	OrderID string
	Status  string
	Message string
	Request *OrderRequest
}

// OrderChanges describes modifications to a pending order. Nil fields are
// left untouched on the broker.
type OrderChanges struct {
	Quantity     *int
	Price        *float64
	TriggerPrice *float64
	OrderType    *OrderType
	Validity     *Validity
}

// Empty reports whether no change is requested.
func (c *OrderChanges) Empty() bool {
	return c == nil || (c.Quantity == nil && c.Price == nil && c.TriggerPrice == nil &&
		c.OrderType == nil && c.Validity == nil)
}

// Order represents an order as reported by the broker's orderbook.
type Order struct {
	ID           string
	Symbol       string
	Exchange     Exchange
	Transaction  TransactionType
	OrderType    OrderType
	Product      ProductType
	Quantity     int
	Price        float64
	TriggerPrice float64
	Validity     Validity
	Tag          string
	Status       string
	FilledQty    int
	AveragePrice float64
	PlacedAt     time.Time
}

// Trade represents an executed trade from the broker's tradebook.
type Trade struct {
	ID          string
	OrderID     string
	Symbol      string
	Exchange    Exchange
	Transaction TransactionType
	Product     ProductType
	Quantity    int
	Price       float64
	ExecutedAt  time.Time
}
