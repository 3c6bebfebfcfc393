package repo

import (
	"context"
	"fmt"
	"time"
)

// Migration is one schema step. Statements run one by one since not every
// driver accepts several statements per Exec.
type Migration struct {
	Version    int
	Statements []string
}

var migrations = map[string][]Migration{
	"mysql": {{
		Version: 1,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS products (
    id         BIGINT AUTO_INCREMENT PRIMARY KEY,
    name       VARCHAR(120)  NOT NULL,
    price      DECIMAL(15,2) NOT NULL,
    stock      INT           NOT NULL,
    created_at DATETIME(6)   NOT NULL,
    updated_at DATETIME(6)   NOT NULL,
    CONSTRAINT chk_products_price CHECK (price >= 0),
    CONSTRAINT chk_products_stock CHECK (stock >= 0)
) ENGINE=InnoDB`,
			`CREATE TABLE IF NOT EXISTS orders (
    id           BIGINT AUTO_INCREMENT PRIMARY KEY,
    order_number VARCHAR(40)   NULL UNIQUE,
    status       VARCHAR(20)   NOT NULL,
    total_amount DECIMAL(15,2) NOT NULL,
    created_at   DATETIME(6)   NOT NULL,
    updated_at   DATETIME(6)   NOT NULL,
    INDEX idx_orders_status (status, id)
) ENGINE=InnoDB`,
			`CREATE TABLE IF NOT EXISTS order_items (
    id           BIGINT AUTO_INCREMENT PRIMARY KEY,
    order_id     BIGINT        NOT NULL,
    line_no      INT           NOT NULL,
    product_id   BIGINT        NOT NULL,
    product_name VARCHAR(120)  NOT NULL,
    quantity     INT           NOT NULL,
    unit_price   DECIMAL(15,2) NOT NULL,
    INDEX idx_order_items_order (order_id, line_no),
    CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
) ENGINE=InnoDB`,
		},
	}, {
		Version: 2,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS categories (
    id         BIGINT AUTO_INCREMENT PRIMARY KEY,
    name       VARCHAR(100) NOT NULL,
    created_at DATETIME(6)  NOT NULL,
    updated_at DATETIME(6)  NOT NULL,
    UNIQUE KEY uq_categories_name (name)
) ENGINE=InnoDB`,
		},
	}},

	"postgres": {{
		Version: 1,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS products (
    id         BIGSERIAL PRIMARY KEY,
    name       VARCHAR(120)  NOT NULL,
    price      NUMERIC(15,2) NOT NULL CHECK (price >= 0),
    stock      INTEGER       NOT NULL CHECK (stock >= 0),
    created_at TIMESTAMPTZ   NOT NULL,
    updated_at TIMESTAMPTZ   NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS orders (
    id           BIGSERIAL PRIMARY KEY,
    order_number VARCHAR(40)   UNIQUE,
    status       VARCHAR(20)   NOT NULL,
    total_amount NUMERIC(15,2) NOT NULL,
    created_at   TIMESTAMPTZ   NOT NULL,
    updated_at   TIMESTAMPTZ   NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, id)`,
			`CREATE TABLE IF NOT EXISTS order_items (
    id           BIGSERIAL PRIMARY KEY,
    order_id     BIGINT        NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    line_no      INTEGER       NOT NULL,
    product_id   BIGINT        NOT NULL,
    product_name VARCHAR(120)  NOT NULL,
    quantity     INTEGER       NOT NULL,
    unit_price   NUMERIC(15,2) NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id, line_no)`,
		},
	}, {
		Version: 2,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS categories (
    id         BIGSERIAL PRIMARY KEY,
    name       VARCHAR(100) NOT NULL,
    created_at TIMESTAMPTZ  NOT NULL,
    updated_at TIMESTAMPTZ  NOT NULL
)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS uq_categories_name ON categories(LOWER(name))`,
		},
	}},

	// Money is kept as TEXT so SQLite's numeric affinity never turns it
	// into a float.
	"sqlite": {{
		Version: 1,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS products (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT     NOT NULL,
    price      TEXT     NOT NULL,
    stock      INTEGER  NOT NULL CHECK (stock >= 0),
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS orders (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    order_number TEXT     UNIQUE,
    status       TEXT     NOT NULL,
    total_amount TEXT     NOT NULL,
    created_at   DATETIME NOT NULL,
    updated_at   DATETIME NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, id)`,
			`CREATE TABLE IF NOT EXISTS order_items (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id     INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    line_no      INTEGER NOT NULL,
    product_id   INTEGER NOT NULL,
    product_name TEXT    NOT NULL,
    quantity     INTEGER NOT NULL,
    unit_price   TEXT    NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id, line_no)`,
		},
	}, {
		Version: 2,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS categories (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT     NOT NULL UNIQUE COLLATE NOCASE,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
)`,
		},
	}},
}

const schemaVersionTable = `CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at %s NOT NULL
)`

// Migrate applies every migration newer than the recorded schema version.
func (s *Store) Migrate(ctx context.Context) error {
	tsType := map[string]string{"mysql": "DATETIME(6)", "postgres": "TIMESTAMPTZ", "sqlite": "DATETIME"}[s.d.name]
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(schemaVersionTable, tsType)); err != nil {
		return fmt.Errorf("repo: create schema_version: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations[s.d.name] {
		if m.Version <= current {
			continue
		}
		err := s.WithinTx(ctx, func(ctx context.Context) error {
			for i, stmt := range m.Statements {
				if _, err := s.exec(ctx, stmt); err != nil {
					return fmt.Errorf("repo: migration %d statement %d: %w", m.Version, i, err)
				}
			}
			_, err := s.exec(ctx, `INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
				m.Version, time.Now().UTC())
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a fresh database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("repo: read schema version: %w", err)
	}
	return v, nil
}
