// Package models provides the broker-agnostic domain model shared by all drivers.
package models

import (
	"time"
)

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
	NFO Exchange = "NFO" // NSE F&O
	BFO Exchange = "BFO" // BSE F&O
	CDS Exchange = "CDS" // Currency
	MCX Exchange = "MCX" // Commodity
)

// Valid reports whether the exchange is one of the known variants.
func (e Exchange) Valid() bool {
	switch e {
	case NSE, BSE, NFO, BFO, CDS, MCX:
		return true
	}
	return false
}

// TransactionType represents the side of an order.
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// OrderType represents the type of an order.
// STOP is a stop-market order (SL-M on Zerodha), STOP_LIMIT a stop-limit (SL).
type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStop      OrderType = "STOP"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

// ProductType represents the broker-defined settlement category.
type ProductType string

const (
	ProductCNC  ProductType = "CNC"  // Delivery
	ProductMIS  ProductType = "MIS"  // Intraday
	ProductNRML ProductType = "NRML" // Carry-forward
)

// Validity represents order validity.
type Validity string

const (
	ValidityDay Validity = "DAY"
	ValidityIOC Validity = "IOC"
)

// MarginSegment identifies a margin segment on the broker.
type MarginSegment string

const (
	SegmentEquity    MarginSegment = "equity"
	SegmentCommodity MarginSegment = "commodity"
)

// Quote is a point-in-time snapshot for a symbol. It is short-lived and
// never cached by the gateway.
type Quote struct {
	Symbol        string
	Exchange      Exchange
	LastPrice     float64
	Bid           float64
	Ask           float64
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        int64
	Change        float64
	ChangePercent float64
	Timestamp     time.Time
}

// Position represents an open trading position.
type Position struct {
	Symbol       string
	Exchange     Exchange
	Product      ProductType
	Quantity     int
	AveragePrice float64
	LastPrice    float64
	PnL          float64
	Multiplier   int // F&O lot multiplier, 1 for equity
}

// FundsSnapshot reports margin and cash exactly as the broker returned it.
// Values are never estimated or derived locally.
type FundsSnapshot struct {
	AvailableCash   float64
	UsedMargin      float64
	TotalEquity     float64
	CollateralValue float64
}

// SegmentMargin is the broker-reported margin for one segment.
type SegmentMargin struct {
	Segment   MarginSegment
	Available float64
	Used      float64
	Net       float64
}

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	OI        int64
}

// Tick represents a real-time market data event from a streaming connection.
type Tick struct {
	Symbol       string
	LastPrice    float64
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       int64
	BidPrice     float64
	AskPrice     float64
	BuyQuantity  int64
	SellQuantity int64
	Timestamp    time.Time
}

// Instrument represents a tradeable instrument from a broker's master contract.
type Instrument struct {
	Token     uint32
	Symbol    string
	Name      string
	Exchange  Exchange
	Segment   string
	LotSize   int
	TickSize  float64
	Expiry    time.Time
	Strike    float64
	InstrType string // EQ, FUT, CE, PE
}
