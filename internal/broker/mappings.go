package broker

import (
	"broker-gateway/internal/errors"
	"broker-gateway/internal/models"
)

// Per-broker wire representations of the domain enums. These tables are the
// only place a domain value is translated into broker vocabulary; drivers
// must not inline their own conversions.

var zerodhaOrderTypes = map[models.OrderType]string{
	models.OrderTypeMarket:    "MARKET",
	models.OrderTypeLimit:     "LIMIT",
	models.OrderTypeStop:      "SL-M",
	models.OrderTypeStopLimit: "SL",
}

var zerodhaOrderTypesReverse = map[string]models.OrderType{
	"MARKET": models.OrderTypeMarket,
	"LIMIT":  models.OrderTypeLimit,
	"SL-M":   models.OrderTypeStop,
	"SL":     models.OrderTypeStopLimit,
}

var fyersOrderTypes = map[models.OrderType]int{
	models.OrderTypeLimit:     1,
	models.OrderTypeMarket:    2,
	models.OrderTypeStop:      3,
	models.OrderTypeStopLimit: 4,
}

var fyersOrderTypesReverse = map[int]models.OrderType{
	1: models.OrderTypeLimit,
	2: models.OrderTypeMarket,
	3: models.OrderTypeStop,
	4: models.OrderTypeStopLimit,
}

var fyersSides = map[models.TransactionType]int{
	models.TransactionBuy:  1,
	models.TransactionSell: -1,
}

var fyersProducts = map[models.ProductType]string{
	models.ProductCNC:  "CNC",
	models.ProductMIS:  "INTRADAY",
	models.ProductNRML: "MARGIN",
}

var fyersProductsReverse = map[string]models.ProductType{
	"CNC":      models.ProductCNC,
	"INTRADAY": models.ProductMIS,
	"MARGIN":   models.ProductNRML,
}

func zerodhaOrderType(t models.OrderType) (string, error) {
	s, ok := zerodhaOrderTypes[t]
	if !ok {
		return "", errors.Wrapf(errors.ErrConfigInvalid, "no zerodha mapping for order type %q", t)
	}
	return s, nil
}

func fyersOrderType(t models.OrderType) (int, error) {
	n, ok := fyersOrderTypes[t]
	if !ok {
		return 0, errors.Wrapf(errors.ErrConfigInvalid, "no fyers mapping for order type %q", t)
	}
	return n, nil
}
