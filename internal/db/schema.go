package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Prices are stored as decimal text.
const schema = `
CREATE TABLE IF NOT EXISTS inventory (
    identifier      TEXT PRIMARY KEY,
    lot             TEXT NOT NULL DEFAULT '',
    sku             TEXT NOT NULL DEFAULT '',
    quantity        INTEGER NOT NULL DEFAULT 0,
    category        TEXT NOT NULL DEFAULT '',
    title           TEXT NOT NULL DEFAULT '',
    reference_price TEXT NOT NULL DEFAULT '0',
    imported_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scans (
    id               INTEGER PRIMARY KEY,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    bin              TEXT NOT NULL,
    identifier       TEXT NOT NULL,
    condition        TEXT NOT NULL CHECK (condition IN ('NEW', 'GOOD', 'USED', 'DONATION')),
    quantity         INTEGER NOT NULL CHECK (quantity > 0),
    weight_major     INTEGER NOT NULL DEFAULT 0,
    weight_minor     INTEGER NOT NULL DEFAULT 0,
    length           REAL NOT NULL DEFAULT 0,
    depth            REAL NOT NULL DEFAULT 0,
    width            REAL NOT NULL DEFAULT 0,
    lot              TEXT NOT NULL DEFAULT '',
    sku              TEXT NOT NULL DEFAULT '',
    title            TEXT NOT NULL DEFAULT '',
    reference_price  TEXT NOT NULL DEFAULT '0',
    author           TEXT NOT NULL DEFAULT '',
    publisher        TEXT NOT NULL DEFAULT '',
    publication_year TEXT NOT NULL DEFAULT '',
    page_count       INTEGER NOT NULL DEFAULT 0,
    binding          TEXT NOT NULL DEFAULT '',
    language         TEXT NOT NULL DEFAULT '',
    description      TEXT NOT NULL DEFAULT '',
    description_html TEXT NOT NULL DEFAULT '',
    image_url        TEXT NOT NULL DEFAULT '',
    list_price       TEXT NOT NULL DEFAULT '0',
    category_code    TEXT NOT NULL DEFAULT '',
    condition_code   TEXT NOT NULL DEFAULT '',
    sources          TEXT NOT NULL DEFAULT '',
    enriched         INTEGER NOT NULL DEFAULT 0,
    enriched_at      DATETIME,
    exported         INTEGER NOT NULL DEFAULT 0,
    exported_at      DATETIME,
    quantity_sold    INTEGER NOT NULL DEFAULT 0,
    status           TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'listed', 'sold'))
);

CREATE INDEX IF NOT EXISTS idx_scans_identifier ON scans(identifier);
CREATE INDEX IF NOT EXISTS idx_scans_bin ON scans(bin);
CREATE INDEX IF NOT EXISTS idx_scans_enriched ON scans(enriched);
CREATE INDEX IF NOT EXISTS idx_scans_exported ON scans(exported);

CREATE TABLE IF NOT EXISTS dimensions (
    identifier   TEXT PRIMARY KEY,
    weight_major INTEGER NOT NULL DEFAULT 0,
    weight_minor INTEGER NOT NULL DEFAULT 0,
    length       REAL NOT NULL DEFAULT 0,
    depth        REAL NOT NULL DEFAULT 0,
    width        REAL NOT NULL DEFAULT 0,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sales (
    id           INTEGER PRIMARY KEY,
    order_number TEXT NOT NULL,
    identifier   TEXT NOT NULL,
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    price        TEXT NOT NULL DEFAULT '0',
    sold_at      DATETIME NOT NULL,
    buyer        TEXT NOT NULL DEFAULT '',
    imported_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (order_number, identifier)
);

CREATE TABLE IF NOT EXISTS covers (
    identifier TEXT PRIMARY KEY,
    image      BLOB NOT NULL,
    image_mime TEXT NOT NULL,
    source_url TEXT NOT NULL DEFAULT '',
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// EnsureSchema creates all tables and applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return migrate(db)
}
