package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS crews (
    id         INTEGER PRIMARY KEY,
    number     INTEGER NOT NULL,
    name       TEXT NOT NULL,
    leader_id  INTEGER REFERENCES users(id),
    created_at DATETIME NOT NULL,
    deleted_at DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_crews_number_active
    ON crews(number) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'installer' CHECK (role IN ('admin', 'supervisor', 'warehouse', 'installer')),
    crew_id       INTEGER REFERENCES crews(id),
    push_token    TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS catalog_items (
    id                  INTEGER PRIMARY KEY,
    code                TEXT NOT NULL UNIQUE,
    description         TEXT NOT NULL DEFAULT '',
    unit                TEXT NOT NULL DEFAULT 'unit',
    type                TEXT NOT NULL CHECK (type IN ('material', 'equipment')),
    low_stock_threshold INTEGER NOT NULL DEFAULT 0 CHECK (low_stock_threshold >= 0),
    created_at          DATETIME NOT NULL,
    updated_at          DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS warehouse_stock (
    item_id    INTEGER PRIMARY KEY REFERENCES catalog_items(id),
    quantity   INTEGER NOT NULL CHECK (quantity >= 0),
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS crew_holdings (
    crew_id     INTEGER NOT NULL REFERENCES crews(id),
    item_id     INTEGER NOT NULL REFERENCES catalog_items(id),
    quantity    INTEGER NOT NULL CHECK (quantity >= 0),
    last_update DATETIME NOT NULL,
    PRIMARY KEY (crew_id, item_id)
);

CREATE TABLE IF NOT EXISTS batches (
    id                 INTEGER PRIMARY KEY,
    code               TEXT NOT NULL UNIQUE,
    item_id            INTEGER NOT NULL REFERENCES catalog_items(id),
    initial_quantity   TEXT NOT NULL,
    remaining_quantity TEXT NOT NULL,
    supplier           TEXT NOT NULL DEFAULT '',
    acquired_at        DATETIME,
    holder_crew_id     INTEGER REFERENCES crews(id),
    status             TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'exhausted')),
    created_at         DATETIME NOT NULL,
    updated_at         DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS instances (
    id             INTEGER PRIMARY KEY,
    item_id        INTEGER NOT NULL REFERENCES catalog_items(id),
    unique_id      TEXT NOT NULL,
    serial_number  TEXT NOT NULL,
    mac_address    TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'in_stock'
                   CHECK (status IN ('in_stock', 'assigned_to_crew', 'installed', 'returned', 'damaged')),
    holder_crew_id INTEGER REFERENCES crews(id),
    order_id       TEXT REFERENCES orders(id),
    created_at     DATETIME NOT NULL,
    updated_at     DATETIME NOT NULL,
    UNIQUE (item_id, unique_id)
);

CREATE TABLE IF NOT EXISTS orders (
    id                TEXT PRIMARY KEY,
    ticket_id         TEXT,
    subscriber_name   TEXT NOT NULL DEFAULT '',
    subscriber_number TEXT NOT NULL DEFAULT '',
    address           TEXT NOT NULL DEFAULT '',
    phone             TEXT NOT NULL DEFAULT '',
    type              TEXT NOT NULL CHECK (type IN ('installation', 'repair', 'recovery', 'other')),
    status            TEXT NOT NULL
                      CHECK (status IN ('pending', 'assigned', 'in_progress', 'completed', 'cancelled', 'visit', 'hard')),
    assigned_to       INTEGER REFERENCES crews(id),
    materials_used    TEXT NOT NULL DEFAULT '[]',
    notes             TEXT NOT NULL DEFAULT '',
    photo_urls        TEXT NOT NULL DEFAULT '[]',
    signature_url     TEXT NOT NULL DEFAULT '',
    reception_date    DATETIME NOT NULL,
    assignment_date   DATETIME,
    completion_date   DATETIME,
    created_by        INTEGER,
    created_at        DATETIME NOT NULL,
    updated_at        DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_ticket
    ON orders(ticket_id) WHERE ticket_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_orders_address ON orders(address);
CREATE INDEX IF NOT EXISTS idx_orders_assigned ON orders(assigned_to, status);

CREATE TABLE IF NOT EXISTS order_history (
    id             INTEGER PRIMARY KEY,
    order_id       TEXT REFERENCES orders(id),
    change_type    TEXT NOT NULL,
    previous_value TEXT NOT NULL DEFAULT '',
    new_value      TEXT NOT NULL DEFAULT '',
    description    TEXT NOT NULL,
    actor_id       INTEGER,
    created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_history_order ON order_history(order_id, id);

CREATE TABLE IF NOT EXISTS movements (
    id              INTEGER PRIMARY KEY,
    type            TEXT NOT NULL,
    item_id         INTEGER NOT NULL REFERENCES catalog_items(id),
    crew_id         INTEGER REFERENCES crews(id),
    order_id        TEXT REFERENCES orders(id),
    batch_code      TEXT NOT NULL DEFAULT '',
    meters          TEXT,
    quantity_change INTEGER NOT NULL DEFAULT 0,
    quantity_before INTEGER NOT NULL DEFAULT 0,
    quantity_after  INTEGER NOT NULL DEFAULT 0,
    notes           TEXT NOT NULL DEFAULT '',
    actor_id        INTEGER,
    created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_movements_crew_item ON movements(crew_id, item_id);

CREATE TRIGGER IF NOT EXISTS order_history_no_update BEFORE UPDATE ON order_history
BEGIN SELECT RAISE(ABORT, 'order history is append-only'); END;
CREATE TRIGGER IF NOT EXISTS order_history_no_delete BEFORE DELETE ON order_history
BEGIN SELECT RAISE(ABORT, 'order history is append-only'); END;
CREATE TRIGGER IF NOT EXISTS movements_no_update BEFORE UPDATE ON movements
BEGIN SELECT RAISE(ABORT, 'movements are append-only'); END;
CREATE TRIGGER IF NOT EXISTS movements_no_delete BEFORE DELETE ON movements
BEGIN SELECT RAISE(ABORT, 'movements are append-only'); END;

CREATE TABLE IF NOT EXISTS notification_stats (
    day       TEXT NOT NULL,
    kind      TEXT NOT NULL,
    sent      INTEGER NOT NULL DEFAULT 0,
    succeeded INTEGER NOT NULL DEFAULT 0,
    failed    INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (day, kind)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
