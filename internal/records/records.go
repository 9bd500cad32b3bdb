// Package records persists expenses, incomes and SIM delivery requests in SQLite.
package records

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/util/dbutil"

	"github.com/mmcdole/kiosk/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	name        TEXT NOT NULL,
	amount      REAL NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	date        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_kind_idx ON transactions (kind);

CREATE TABLE IF NOT EXISTS deliveries (
	id              TEXT PRIMARY KEY,
	reference_phone TEXT NOT NULL,
	latitude        REAL NOT NULL,
	longitude       REAL NOT NULL,
	address         TEXT NOT NULL DEFAULT '',
	timestamp       TEXT NOT NULL
);
`

// Store implements domain.TransactionRepository and domain.DeliveryRepository
type Store struct {
	db  *dbutil.Database
	raw *sql.DB
}

// Open opens (or creates) the SQLite database at path.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create records directory: %w", err)
		}
	}

	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database
		raw.SetMaxOpenConns(1)
	}

	db, err := dbutil.NewWithDB(raw, "sqlite3")
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("wrap db: %w", err)
	}

	if _, err := db.Exec(ctx, schema); err != nil {
		raw.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, raw: raw}, nil
}

func (s *Store) Close() error {
	return s.raw.Close()
}

// SaveTransaction inserts tx, assigning an ID when it has none
func (s *Store) SaveTransaction(ctx context.Context, tx domain.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO transactions (id, kind, name, amount, description, date)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		tx.ID, string(tx.Kind), tx.Name, tx.Amount, tx.Description, tx.Date,
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", tx.Kind, err)
	}
	return nil
}

// ListTransactions returns every record of kind in insertion order
func (s *Store) ListTransactions(ctx context.Context, kind domain.TransactionKind) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, kind, name, amount, description, date
         FROM transactions
         WHERE kind=$1
         ORDER BY rowid`,
		string(kind),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var k string
		if err := rows.Scan(&tx.ID, &k, &tx.Name, &tx.Amount, &tx.Description, &tx.Date); err != nil {
			return nil, err
		}
		tx.Kind = domain.TransactionKind(k)
		list = append(list, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// SaveDelivery inserts d, assigning an ID when it has none
func (s *Store) SaveDelivery(ctx context.Context, d domain.SimDelivery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO deliveries (id, reference_phone, latitude, longitude, address, timestamp)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.ReferencePhone, d.Latitude, d.Longitude, d.Address, d.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// ListDeliveries returns every delivery request in insertion order
func (s *Store) ListDeliveries(ctx context.Context) ([]domain.SimDelivery, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, reference_phone, latitude, longitude, address, timestamp
         FROM deliveries
         ORDER BY rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.SimDelivery
	for rows.Next() {
		var d domain.SimDelivery
		if err := rows.Scan(&d.ID, &d.ReferencePhone, &d.Latitude, &d.Longitude, &d.Address, &d.Timestamp); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
