package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS order_cache (
	id TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Cache is a local best-effort replica of recently seen orders, kept in a
// SQLite file next to the service. It is never authoritative while the
// primary store is reachable; it exists so lookups keep working through a
// primary outage.
type Cache struct {
	db *sqlx.DB
}

func NewCache(path string) (*Cache, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to open sqlite at %s: %w", path, err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: failed to ensure schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Put stores or overwrites the cached copy of an order.
func (c *Cache) Put(ctx context.Context, o *Order) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal order %s: %w", o.ID, err)
	}

	query := `
		INSERT INTO order_cache (id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`
	if _, err := c.db.ExecContext(ctx, query, o.ID.String(), string(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("cache: failed to put order %s: %w", o.ID, err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	var payload string
	err := c.db.GetContext(ctx, &payload, `SELECT payload FROM order_cache WHERE id = ?`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("cache: failed to get order %s: %w", id, err)
	}
	return decodeCached(payload)
}

// FindByCertificateID scans cached orders for a matching certificate ID,
// case-insensitively. The cache carries whole JSON documents, so there is
// no index to use here; the dataset is small by construction.
func (c *Cache) FindByCertificateID(ctx context.Context, certID string) (*Order, error) {
	return c.find(ctx, func(o *Order) bool {
		for _, id := range o.CertificateIDs {
			if strings.EqualFold(id, certID) {
				return true
			}
		}
		return false
	})
}

func (c *Cache) FindByTxRef(ctx context.Context, txRef string) (*Order, error) {
	return c.find(ctx, func(o *Order) bool {
		return o.CertificateTxRef != "" && strings.EqualFold(o.CertificateTxRef, txRef)
	})
}

func (c *Cache) find(ctx context.Context, match func(*Order) bool) (*Order, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT payload FROM order_cache ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to scan orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("cache: failed to scan row: %w", err)
		}
		o, err := decodeCached(payload)
		if err != nil {
			return nil, err
		}
		if match(o) {
			return o, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache: error iterating rows: %w", err)
	}
	return nil, ErrOrderNotFound
}

func decodeCached(payload string) (*Order, error) {
	var o Order
	if err := json.Unmarshal([]byte(payload), &o); err != nil {
		return nil, fmt.Errorf("cache: failed to unmarshal cached order: %w", err)
	}
	return &o, nil
}
