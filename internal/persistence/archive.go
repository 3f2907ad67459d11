package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/saripos/saripos/internal/credit"
	"github.com/saripos/saripos/internal/inventory"
	"github.com/saripos/saripos/internal/platform/db"
	"github.com/saripos/saripos/internal/sales"
)

// Schema creates the archive, idempotency and audit tables.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	name TEXT PRIMARY KEY,
	unit TEXT NOT NULL,
	stock NUMERIC NOT NULL,
	price NUMERIC NOT NULL
);
CREATE TABLE IF NOT EXISTS debt_entries (
	id TEXT PRIMARY KEY,
	customer TEXT NOT NULL,
	seq BIGINT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	amount NUMERIC NOT NULL,
	status TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS debt_entries_customer_idx ON debt_entries (customer, occurred_at, seq);
CREATE TABLE IF NOT EXISTS sale_records (
	id TEXT PRIMARY KEY,
	position INT NOT NULL,
	sale_type TEXT NOT NULL,
	customer TEXT NOT NULL,
	total NUMERIC NOT NULL,
	debt_entry_id TEXT,
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS sale_lines (
	sale_id TEXT NOT NULL REFERENCES sale_records (id) ON DELETE CASCADE,
	line_no INT NOT NULL,
	name TEXT NOT NULL,
	unit TEXT NOT NULL,
	quantity NUMERIC NOT NULL,
	unit_price NUMERIC NOT NULL,
	amount NUMERIC NOT NULL,
	PRIMARY KEY (sale_id, line_no)
);
CREATE TABLE IF NOT EXISTS idempotency_keys (
	key TEXT PRIMARY KEY,
	module TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS audit_logs (
	id BIGSERIAL PRIMARY KEY,
	terminal TEXT NOT NULL,
	action TEXT NOT NULL,
	entity TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	meta JSONB,
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// ArchiveStore mirrors snapshots into PostgreSQL tables.
type ArchiveStore struct {
	pool *pgxpool.Pool
}

// NewArchiveStore constructs an ArchiveStore.
func NewArchiveStore(pool *pgxpool.Pool) *ArchiveStore {
	return &ArchiveStore{pool: pool}
}

// EnsureSchema creates missing tables.
func (s *ArchiveStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("persistence: ensure schema: %w", err)
	}
	return nil
}

// Save replaces the archived state with snap in one transaction.
func (s *ArchiveStore) Save(ctx context.Context, snap Snapshot) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE products, debt_entries, sale_lines, sale_records`); err != nil {
			return fmt.Errorf("persistence: truncate archive: %w", err)
		}

		batch := &pgx.Batch{}
		for _, p := range snap.Products {
			batch.Queue(`INSERT INTO products (name, unit, stock, price) VALUES ($1, $2, $3::numeric, $4::numeric)`,
				p.Name, p.Unit, p.Stock.String(), p.Price.String())
		}
		for customer, entries := range snap.Credit {
			for _, e := range entries {
				batch.Queue(`INSERT INTO debt_entries (id, customer, seq, occurred_at, amount, status) VALUES ($1, $2, $3, $4, $5::numeric, $6)`,
					e.ID, customer, e.Seq, e.Timestamp, e.Amount.String(), string(e.Status))
			}
		}
		for i, rec := range snap.Sales {
			batch.Queue(`INSERT INTO sale_records (id, position, sale_type, customer, total, debt_entry_id, occurred_at) VALUES ($1, $2, $3, $4, $5::numeric, NULLIF($6, ''), $7)`,
				rec.ID, i, string(rec.Type), rec.Customer, rec.Total.String(), rec.DebtEntryID, rec.Timestamp)
			for n, line := range rec.Items {
				batch.Queue(`INSERT INTO sale_lines (sale_id, line_no, name, unit, quantity, unit_price, amount) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric)`,
					rec.ID, n, line.Name, line.Unit, line.Quantity.String(), line.UnitPrice.String(), line.Amount.String())
			}
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("persistence: write archive: %w", err)
		}
		return nil
	})
}

// Load reads the archived state.
func (s *ArchiveStore) Load(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Credit: map[string][]credit.DebtEntry{}, SavedAt: time.Now().UTC()}

	rows, err := s.pool.Query(ctx, `SELECT name, unit, stock::text, price::text FROM products ORDER BY name`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("persistence: query products: %w", err)
	}
	for rows.Next() {
		var p inventory.Product
		var stock, price string
		if err := rows.Scan(&p.Name, &p.Unit, &stock, &price); err != nil {
			rows.Close()
			return Snapshot{}, fmt.Errorf("persistence: scan product: %w", err)
		}
		p.Stock = decimal.RequireFromString(stock)
		p.Price = decimal.RequireFromString(price)
		snap.Products = append(snap.Products, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	rows, err = s.pool.Query(ctx, `SELECT id, customer, seq, occurred_at, amount::text, status FROM debt_entries ORDER BY customer, occurred_at, seq`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("persistence: query debt entries: %w", err)
	}
	for rows.Next() {
		var e credit.DebtEntry
		var customer, amount, status string
		if err := rows.Scan(&e.ID, &customer, &e.Seq, &e.Timestamp, &amount, &status); err != nil {
			rows.Close()
			return Snapshot{}, fmt.Errorf("persistence: scan debt entry: %w", err)
		}
		e.Amount = decimal.RequireFromString(amount)
		e.Status = credit.Status(status)
		snap.Credit[customer] = append(snap.Credit[customer], e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	rows, err = s.pool.Query(ctx, `SELECT id, sale_type, customer, total::text, COALESCE(debt_entry_id, ''), occurred_at FROM sale_records ORDER BY position`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("persistence: query sales: %w", err)
	}
	index := make(map[string]int)
	for rows.Next() {
		var rec sales.Record
		var saleType, total string
		if err := rows.Scan(&rec.ID, &saleType, &rec.Customer, &total, &rec.DebtEntryID, &rec.Timestamp); err != nil {
			rows.Close()
			return Snapshot{}, fmt.Errorf("persistence: scan sale: %w", err)
		}
		rec.Type = sales.Type(saleType)
		rec.Total = decimal.RequireFromString(total)
		index[rec.ID] = len(snap.Sales)
		snap.Sales = append(snap.Sales, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	rows, err = s.pool.Query(ctx, `SELECT sale_id, name, unit, quantity::text, unit_price::text, amount::text FROM sale_lines ORDER BY sale_id, line_no`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("persistence: query sale lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var saleID, qty, unitPrice, amount string
		var line inventory.ReservedLine
		if err := rows.Scan(&saleID, &line.Name, &line.Unit, &qty, &unitPrice, &amount); err != nil {
			return Snapshot{}, fmt.Errorf("persistence: scan sale line: %w", err)
		}
		line.Quantity = decimal.RequireFromString(qty)
		line.UnitPrice = decimal.RequireFromString(unitPrice)
		line.Amount = decimal.RequireFromString(amount)
		if i, ok := index[saleID]; ok {
			snap.Sales[i].Items = append(snap.Sales[i].Items, line)
		}
	}
	return snap, rows.Err()
}
