// Package store provides the instrument-master cache backing symbol and
// token lookups. This is static reference data, not market data; the gateway
// itself caches nothing.
package store

import (
	"context"
	"time"

	"broker-gateway/internal/models"
)

// InstrumentStore is the persistence interface for broker master contracts.
type InstrumentStore interface {
	SaveInstruments(ctx context.Context, broker string, instruments []models.Instrument) error
	GetInstrument(ctx context.Context, broker string, exchange models.Exchange, symbol string) (*models.Instrument, error)
	GetInstruments(ctx context.Context, broker string, exchange models.Exchange) ([]models.Instrument, error)
	TokenFor(ctx context.Context, broker string, exchange models.Exchange, symbol string) (uint32, error)
	LastSync(ctx context.Context, broker string) (time.Time, error)
	Close() error
}
