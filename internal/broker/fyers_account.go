package broker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"broker-gateway/internal/errors"
	"broker-gateway/internal/models"
)

// Fund-limit row IDs in the Fyers funds response.
const (
	fyersFundTotalBalance = 1
	fyersFundUtilized     = 2
	fyersFundAvailable    = 10
	fyersFundCollateral   = 5
)

type fyersFundRow struct {
	ID              int     `json:"id"`
	Title           string  `json:"title"`
	EquityAmount    float64 `json:"equityAmount"`
	CommodityAmount float64 `json:"commodityAmount"`
}

func (f *FyersDriver) fundLimits(ctx context.Context) (map[int]fyersFundRow, error) {
	if !f.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	var resp struct {
		fyersEnvelope
		FundLimit []fyersFundRow `json:"fund_limit"`
	}
	if err := f.call(ctx, http.MethodGet, "/funds", nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	rows := make(map[int]fyersFundRow, len(resp.FundLimit))
	for _, row := range resp.FundLimit {
		rows[row.ID] = row
	}
	return rows, nil
}

// GetFunds returns the equity-segment funds as Fyers reports them.
func (f *FyersDriver) GetFunds(ctx context.Context) (*models.FundsSnapshot, error) {
	rows, err := f.fundLimits(ctx)
	if err != nil {
		return nil, err
	}
	return &models.FundsSnapshot{
		AvailableCash:   rows[fyersFundAvailable].EquityAmount,
		UsedMargin:      rows[fyersFundUtilized].EquityAmount,
		TotalEquity:     rows[fyersFundTotalBalance].EquityAmount,
		CollateralValue: rows[fyersFundCollateral].EquityAmount,
	}, nil
}

// GetMargins returns one segment's margins from the funds endpoint. Fyers
// reports zeroed commodity columns for accounts without the segment; those
// fail as unavailable rather than being passed off as real numbers.
func (f *FyersDriver) GetMargins(ctx context.Context, segment models.MarginSegment) (*models.SegmentMargin, error) {
	rows, err := f.fundLimits(ctx)
	if err != nil {
		return nil, err
	}

	pick := func(row fyersFundRow) float64 {
		if segment == models.SegmentCommodity {
			return row.CommodityAmount
		}
		return row.EquityAmount
	}

	switch segment {
	case models.SegmentEquity, models.SegmentCommodity:
	default:
		return nil, errors.NewMarginUnavailableError(fyersName, fmt.Sprintf("unknown segment %q", segment))
	}

	m := &models.SegmentMargin{
		Segment:   segment,
		Available: pick(rows[fyersFundAvailable]),
		Used:      pick(rows[fyersFundUtilized]),
		Net:       pick(rows[fyersFundTotalBalance]),
	}
	if segment == models.SegmentCommodity && m.Available == 0 && m.Used == 0 && m.Net == 0 {
		return nil, errors.NewMarginUnavailableError(fyersName, "commodity segment not enabled for account")
	}
	return m, nil
}

// GetPositions fetches the net positions book.
func (f *FyersDriver) GetPositions(ctx context.Context) ([]models.Position, error) {
	if !f.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	var resp struct {
		fyersEnvelope
		NetPositions []struct {
			Symbol      string  `json:"symbol"`
			NetQty      int     `json:"netQty"`
			AvgPrice    float64 `json:"avgPrice"`
			LTP         float64 `json:"ltp"`
			PL          float64 `json:"pl"`
			ProductType string  `json:"productType"`
		} `json:"netPositions"`
	}
	if err := f.call(ctx, http.MethodGet, "/positions", nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	positions := make([]models.Position, 0, len(resp.NetPositions))
	for _, p := range resp.NetPositions {
		if p.NetQty == 0 {
			continue
		}
		exchange, symbol := splitFyersSymbol(p.Symbol)
		product, ok := fyersProductsReverse[p.ProductType]
		if !ok {
			product = models.ProductCNC
		}
		positions = append(positions, models.Position{
			Symbol:       symbol,
			Exchange:     exchange,
			Product:      product,
			Quantity:     p.NetQty,
			AveragePrice: p.AvgPrice,
			LastPrice:    p.LTP,
			PnL:          p.PL,
			Multiplier:   1,
		})
	}
	return positions, nil
}

// PlaceOrder submits an order. The request symbol arrives broker-native
// (e.g. "NSE:SBIN-EQ").
func (f *FyersDriver) PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResponse, error) {
	if !f.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	orderType, err := fyersOrderType(req.OrderType)
	if err != nil {
		return nil, err
	}
	side, ok := fyersSides[req.Transaction]
	if !ok {
		return nil, errors.Wrapf(errors.ErrConfigInvalid, "no fyers mapping for side %q", req.Transaction)
	}
	product, ok := fyersProducts[req.Product]
	if !ok {
		return nil, errors.Wrapf(errors.ErrConfigInvalid, "no fyers mapping for product %q", req.Product)
	}
	validity := string(req.Validity)
	if validity == "" {
		validity = string(models.ValidityDay)
	}

	payload := map[string]interface{}{
		"symbol":       req.Symbol,
		"qty":          req.Quantity,
		"type":         orderType,
		"side":         side,
		"productType":  product,
		"limitPrice":   req.Price,
		"stopPrice":    req.TriggerPrice,
		"validity":     validity,
		"disclosedQty": 0,
		"offlineOrder": false,
		"orderTag":     req.Tag,
	}

	var resp struct {
		fyersEnvelope
		ID string `json:"id"`
	}
	if err := f.call(ctx, http.MethodPost, "/orders/sync", payload, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	return &models.OrderResponse{OrderID: resp.ID, Status: "PLACED"}, nil
}

// ModifyOrder applies changes to a pending order.
func (f *FyersDriver) ModifyOrder(ctx context.Context, orderID string, changes *models.OrderChanges) (*models.OrderResponse, error) {
	if !f.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}
	if changes.Empty() {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "modify order: no changes given")
	}

	payload := map[string]interface{}{"id": orderID}
	if changes.Quantity != nil {
		payload["qty"] = *changes.Quantity
	}
	if changes.Price != nil {
		payload["limitPrice"] = *changes.Price
	}
	if changes.TriggerPrice != nil {
		payload["stopPrice"] = *changes.TriggerPrice
	}
	if changes.OrderType != nil {
		orderType, err := fyersOrderType(*changes.OrderType)
		if err != nil {
			return nil, err
		}
		payload["type"] = orderType
	}

	var resp struct {
		fyersEnvelope
		ID string `json:"id"`
	}
	if err := f.call(ctx, http.MethodPatch, "/orders/sync", payload, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return &models.OrderResponse{OrderID: orderID, Status: "MODIFIED"}, nil
}

// CancelOrder cancels a pending order.
func (f *FyersDriver) CancelOrder(ctx context.Context, orderID string) error {
	if !f.IsAuthenticated() {
		return errors.ErrNotAuthenticated
	}

	var resp fyersEnvelope
	if err := f.call(ctx, http.MethodDelete, "/orders/sync", map[string]string{"id": orderID}, &resp); err != nil {
		return err
	}
	return resp.err()
}

// fyersOrderStatuses maps numeric order states to readable statuses.
var fyersOrderStatuses = map[int]string{
	1: "CANCELLED",
	2: "COMPLETE",
	4: "TRANSIT",
	5: "REJECTED",
	6: "PENDING",
}

const fyersTimeLayout = "02-Jan-2006 15:04:05"

// GetOrders fetches the day's orderbook.
func (f *FyersDriver) GetOrders(ctx context.Context) ([]models.Order, error) {
	if !f.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	var resp struct {
		fyersEnvelope
		OrderBook []struct {
			ID            string  `json:"id"`
			Symbol        string  `json:"symbol"`
			Qty           int     `json:"qty"`
			FilledQty     int     `json:"filledQty"`
			LimitPrice    float64 `json:"limitPrice"`
			StopPrice     float64 `json:"stopPrice"`
			TradedPrice   float64 `json:"tradedPrice"`
			Type          int     `json:"type"`
			Side          int     `json:"side"`
			ProductType   string  `json:"productType"`
			Status        int     `json:"status"`
			OrderValidity string  `json:"orderValidity"`
			OrderDateTime string  `json:"orderDateTime"`
			OrderTag      string  `json:"orderTag"`
		} `json:"orderBook"`
	}
	if err := f.call(ctx, http.MethodGet, "/orders", nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(resp.OrderBook))
	for _, o := range resp.OrderBook {
		exchange, symbol := splitFyersSymbol(o.Symbol)
		orderType, ok := fyersOrderTypesReverse[o.Type]
		if !ok {
			orderType = models.OrderTypeMarket
		}
		status, ok := fyersOrderStatuses[o.Status]
		if !ok {
			status = fmt.Sprintf("UNKNOWN_%d", o.Status)
		}
		placedAt, _ := time.Parse(fyersTimeLayout, o.OrderDateTime)

		orders = append(orders, models.Order{
			ID:           o.ID,
			Symbol:       symbol,
			Exchange:     exchange,
			Transaction:  fyersSide(o.Side),
			OrderType:    orderType,
			Product:      fyersProductsReverse[o.ProductType],
			Quantity:     o.Qty,
			Price:        o.LimitPrice,
			TriggerPrice: o.StopPrice,
			Validity:     models.Validity(o.OrderValidity),
			Tag:          o.OrderTag,
			Status:       status,
			FilledQty:    o.FilledQty,
			AveragePrice: o.TradedPrice,
			PlacedAt:     placedAt,
		})
	}
	return orders, nil
}

// GetTrades fetches the day's tradebook.
func (f *FyersDriver) GetTrades(ctx context.Context) ([]models.Trade, error) {
	if !f.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	var resp struct {
		fyersEnvelope
		TradeBook []struct {
			ID            string  `json:"id"`
			OrderNumber   string  `json:"orderNumber"`
			Symbol        string  `json:"symbol"`
			TradePrice    float64 `json:"tradePrice"`
			TradedQty     int     `json:"tradedQty"`
			Side          int     `json:"transactionType"`
			ProductType   string  `json:"productType"`
			OrderDateTime string  `json:"orderDateTime"`
		} `json:"tradeBook"`
	}
	if err := f.call(ctx, http.MethodGet, "/tradebook", nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	trades := make([]models.Trade, 0, len(resp.TradeBook))
	for _, t := range resp.TradeBook {
		exchange, symbol := splitFyersSymbol(t.Symbol)
		executedAt, _ := time.Parse(fyersTimeLayout, t.OrderDateTime)
		trades = append(trades, models.Trade{
			ID:          t.ID,
			OrderID:     t.OrderNumber,
			Symbol:      symbol,
			Exchange:    exchange,
			Transaction: fyersSide(t.Side),
			Product:     fyersProductsReverse[t.ProductType],
			Quantity:    t.TradedQty,
			Price:       t.TradePrice,
			ExecutedAt:  executedAt,
		})
	}
	return trades, nil
}

func fyersSide(side int) models.TransactionType {
	if side < 0 {
		return models.TransactionSell
	}
	return models.TransactionBuy
}

// splitFyersSymbol splits "NSE:SBIN-EQ" into its exchange and native symbol.
func splitFyersSymbol(full string) (models.Exchange, string) {
	parts := strings.SplitN(full, ":", 2)
	if len(parts) != 2 {
		return models.NSE, full
	}
	return models.Exchange(parts[0]), parts[1]
}
