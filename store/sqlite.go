// Package store persists the little state the bot needs to resume after a
// restart: the tracked position (so reconciliation picks it back up) and
// periodic account snapshots for the status surface.
package store

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/tradebot/position"
	"github.com/rustyeddy/tradebot/xapi"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// SavePosition upserts the tracked position for its symbol.
func (s *Store) SavePosition(p position.Position) error {
	_, err := s.db.Exec(`
		INSERT INTO positions
		(symbol, order_id, side, entry_price, stop_price, target_price, volume, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
		order_id=excluded.order_id, side=excluded.side,
		entry_price=excluded.entry_price, stop_price=excluded.stop_price,
		target_price=excluded.target_price, volume=excluded.volume,
		opened_at=excluded.opened_at`,
		p.Symbol, p.OrderID, string(p.Side), p.EntryPrice,
		p.StopPrice, p.TargetPrice, p.Volume, p.OpenedAt,
	)
	return err
}

// ClearPosition removes the persisted position once reconciliation reports
// the symbol flat.
func (s *Store) ClearPosition(symbol string) error {
	_, err := s.db.Exec(`DELETE FROM positions WHERE symbol = ?`, symbol)
	return err
}

// LoadPosition returns the persisted position for symbol, if one exists.
func (s *Store) LoadPosition(symbol string) (position.Position, bool, error) {
	var p position.Position
	var side string
	err := s.db.QueryRow(`
		SELECT symbol, order_id, side, entry_price, stop_price, target_price, volume, opened_at
		FROM positions WHERE symbol = ?`, symbol).
		Scan(&p.Symbol, &p.OrderID, &side, &p.EntryPrice,
			&p.StopPrice, &p.TargetPrice, &p.Volume, &p.OpenedAt)
	if err == sql.ErrNoRows {
		return position.Position{}, false, nil
	}
	if err != nil {
		return position.Position{}, false, err
	}
	p.Side = position.Side(side)
	return p, true, nil
}

// RecordEquity appends an account snapshot.
func (s *Store) RecordEquity(t time.Time, ml xapi.MarginLevel) error {
	_, err := s.db.Exec(`
		INSERT INTO equity (time, balance, equity, margin, margin_free)
		VALUES (?, ?, ?, ?, ?)`,
		t, ml.Balance, ml.Equity, ml.Margin, ml.MarginFree,
	)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
