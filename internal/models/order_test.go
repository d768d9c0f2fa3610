package models

import (
	"strings"
	"testing"
)

func TestOrderRequestValidate(t *testing.T) {
	base := OrderRequest{
		Symbol:      "SBIN",
		Exchange:    NSE,
		Quantity:    10,
		OrderType:   OrderTypeMarket,
		Transaction: TransactionBuy,
		Product:     ProductCNC,
	}

	tests := []struct {
		name    string
		mutate  func(*OrderRequest)
		wantErr string
	}{
		{"valid market", func(r *OrderRequest) {}, ""},
		{"market with price", func(r *OrderRequest) { r.Price = 100 }, "must not carry a price"},
		{"limit without price", func(r *OrderRequest) { r.OrderType = OrderTypeLimit }, "requires a positive price"},
		{"limit with price", func(r *OrderRequest) {
			r.OrderType = OrderTypeLimit
			r.Price = 800.5
		}, ""},
		{"stop without trigger", func(r *OrderRequest) { r.OrderType = OrderTypeStop }, "trigger price"},
		{"stop-limit needs both", func(r *OrderRequest) {
			r.OrderType = OrderTypeStopLimit
			r.Price = 800
		}, "positive price and trigger"},
		{"stop-limit complete", func(r *OrderRequest) {
			r.OrderType = OrderTypeStopLimit
			r.Price = 800
			r.TriggerPrice = 795
		}, ""},
		{"missing symbol", func(r *OrderRequest) { r.Symbol = "" }, "symbol is required"},
		{"bad exchange", func(r *OrderRequest) { r.Exchange = "NASDAQ" }, "unknown exchange"},
		{"zero quantity", func(r *OrderRequest) { r.Quantity = 0 }, "quantity must be positive"},
		{"negative quantity", func(r *OrderRequest) { r.Quantity = -5 }, "quantity must be positive"},
		{"bad transaction", func(r *OrderRequest) { r.Transaction = "HOLD" }, "unknown transaction"},
		{"bad order type", func(r *OrderRequest) { r.OrderType = "TRAILING" }, "unknown order type"},
		{"bad product", func(r *OrderRequest) { r.Product = "BO" }, "unknown product"},
		{"bad validity", func(r *OrderRequest) { r.Validity = "GTC" }, "unknown validity"},
		{"ioc validity ok", func(r *OrderRequest) { r.Validity = ValidityIOC }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewOrderRequestOptions(t *testing.T) {
	req, err := NewOrderRequest("RELIANCE", NSE, 5, OrderTypeLimit,
		TransactionSell, ProductMIS,
		WithPrice(2950.75),
		WithValidity(ValidityIOC),
		WithTag("algo-7"),
	)
	if err != nil {
		t.Fatalf("NewOrderRequest: %v", err)
	}
	if req.Price != 2950.75 || req.Validity != ValidityIOC || req.Tag != "algo-7" {
		t.Errorf("options not applied: %+v", req)
	}
}

func TestNewOrderRequestDefaultsValidityDay(t *testing.T) {
	req, err := NewOrderRequest("SBIN", NSE, 1, OrderTypeMarket,
		TransactionBuy, ProductCNC)
	if err != nil {
		t.Fatalf("NewOrderRequest: %v", err)
	}
	if req.Validity != ValidityDay {
		t.Errorf("validity = %q, want DAY", req.Validity)
	}
}

func TestNewOrderRequestRejectsInvalid(t *testing.T) {
	if _, err := NewOrderRequest("SBIN", NSE, 1, OrderTypeLimit,
		TransactionBuy, ProductCNC); err == nil {
		t.Fatal("limit order without price should fail construction")
	}
}

func TestOrderChangesEmpty(t *testing.T) {
	var nilChanges *OrderChanges
	if !nilChanges.Empty() {
		t.Error("nil changes should be empty")
	}
	if !(&OrderChanges{}).Empty() {
		t.Error("zero changes should be empty")
	}
	qty := 20
	if (&OrderChanges{Quantity: &qty}).Empty() {
		t.Error("quantity change should not be empty")
	}
}
