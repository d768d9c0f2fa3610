// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"broker-gateway/internal/errors"
	"broker-gateway/internal/models"
)

// SQLiteStore implements InstrumentStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based instrument store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS instruments (
		broker TEXT NOT NULL,
		exchange TEXT NOT NULL,
		symbol TEXT NOT NULL,
		name TEXT,
		token INTEGER NOT NULL,
		segment TEXT,
		lot_size INTEGER DEFAULT 1,
		tick_size REAL DEFAULT 0.05,
		expiry DATETIME,
		strike REAL DEFAULT 0,
		instr_type TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (broker, exchange, symbol)
	);
	CREATE INDEX IF NOT EXISTS idx_instruments_token ON instruments(broker, token);

	CREATE TABLE IF NOT EXISTS sync_meta (
		broker TEXT PRIMARY KEY,
		synced_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveInstruments replaces the master contract for a broker.
func (s *SQLiteStore) SaveInstruments(ctx context.Context, broker string, instruments []models.Instrument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin instrument sync")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM instruments WHERE broker = ?`, broker); err != nil {
		return errors.Wrap(err, "clear instruments")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO instruments (broker, exchange, symbol, name, token, segment, lot_size, tick_size, expiry, strike, instr_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare instrument insert")
	}
	defer stmt.Close()

	for _, inst := range instruments {
		var expiry interface{}
		if !inst.Expiry.IsZero() {
			expiry = inst.Expiry
		}
		if _, err := stmt.ExecContext(ctx, broker, string(inst.Exchange), inst.Symbol, inst.Name,
			inst.Token, inst.Segment, inst.LotSize, inst.TickSize, expiry, inst.Strike, inst.InstrType); err != nil {
			return errors.Wrapf(err, "insert instrument %s:%s", inst.Exchange, inst.Symbol)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sync_meta (broker, synced_at) VALUES (?, ?)
		ON CONFLICT(broker) DO UPDATE SET synced_at = excluded.synced_at`,
		broker, time.Now()); err != nil {
		return errors.Wrap(err, "record sync time")
	}

	return tx.Commit()
}

// GetInstrument fetches one instrument by exchange and trading symbol.
func (s *SQLiteStore) GetInstrument(ctx context.Context, broker string, exchange models.Exchange, symbol string) (*models.Instrument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT exchange, symbol, name, token, segment, lot_size, tick_size, expiry, strike, instr_type
		FROM instruments WHERE broker = ? AND exchange = ? AND symbol = ?`,
		broker, string(exchange), symbol)

	inst, err := scanInstrument(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewUnknownSymbolError(broker, string(exchange)+":"+symbol)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query instrument")
	}
	return inst, nil
}

// GetInstruments returns all cached instruments for an exchange.
func (s *SQLiteStore) GetInstruments(ctx context.Context, broker string, exchange models.Exchange) ([]models.Instrument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT exchange, symbol, name, token, segment, lot_size, tick_size, expiry, strike, instr_type
		FROM instruments WHERE broker = ? AND exchange = ?`,
		broker, string(exchange))
	if err != nil {
		return nil, errors.Wrap(err, "query instruments")
	}
	defer rows.Close()

	var out []models.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan instrument")
		}
		out = append(out, *inst)
	}
	return out, rows.Err()
}

// TokenFor resolves the broker's instrument token for a trading symbol.
// Derivative subscriptions and historical queries need this.
func (s *SQLiteStore) TokenFor(ctx context.Context, broker string, exchange models.Exchange, symbol string) (uint32, error) {
	inst, err := s.GetInstrument(ctx, broker, exchange, symbol)
	if err != nil {
		return 0, err
	}
	return inst.Token, nil
}

// LastSync returns when the broker's master contract was last downloaded.
func (s *SQLiteStore) LastSync(ctx context.Context, broker string) (time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx, `SELECT synced_at FROM sync_meta WHERE broker = ?`, broker).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, errors.Wrap(err, "query sync time")
	}
	return t, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInstrument(row rowScanner) (*models.Instrument, error) {
	var (
		inst     models.Instrument
		exchange string
		expiry   sql.NullTime
	)
	if err := row.Scan(&exchange, &inst.Symbol, &inst.Name, &inst.Token, &inst.Segment,
		&inst.LotSize, &inst.TickSize, &expiry, &inst.Strike, &inst.InstrType); err != nil {
		return nil, err
	}
	inst.Exchange = models.Exchange(exchange)
	if expiry.Valid {
		inst.Expiry = expiry.Time
	}
	return &inst, nil
}

var _ InstrumentStore = (*SQLiteStore)(nil)
