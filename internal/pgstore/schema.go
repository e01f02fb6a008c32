package pgstore

const schema = `
CREATE TABLE IF NOT EXISTS inventory (
    identifier      TEXT PRIMARY KEY,
    lot             TEXT NOT NULL DEFAULT '',
    sku             TEXT NOT NULL DEFAULT '',
    quantity        INTEGER NOT NULL DEFAULT 0,
    category        TEXT NOT NULL DEFAULT '',
    title           TEXT NOT NULL DEFAULT '',
    reference_price NUMERIC(12,2) NOT NULL DEFAULT 0,
    imported_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scans (
    id               BIGSERIAL PRIMARY KEY,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    bin              TEXT NOT NULL,
    identifier       TEXT NOT NULL,
    condition        TEXT NOT NULL CHECK (condition IN ('NEW', 'GOOD', 'USED', 'DONATION')),
    quantity         INTEGER NOT NULL CHECK (quantity > 0),
    weight_major     INTEGER NOT NULL DEFAULT 0,
    weight_minor     INTEGER NOT NULL DEFAULT 0,
    length           DOUBLE PRECISION NOT NULL DEFAULT 0,
    depth            DOUBLE PRECISION NOT NULL DEFAULT 0,
    width            DOUBLE PRECISION NOT NULL DEFAULT 0,
    lot              TEXT NOT NULL DEFAULT '',
    sku              TEXT NOT NULL DEFAULT '',
    title            TEXT NOT NULL DEFAULT '',
    reference_price  NUMERIC(12,2) NOT NULL DEFAULT 0,
    author           TEXT NOT NULL DEFAULT '',
    publisher        TEXT NOT NULL DEFAULT '',
    publication_year TEXT NOT NULL DEFAULT '',
    page_count       INTEGER NOT NULL DEFAULT 0,
    binding          TEXT NOT NULL DEFAULT '',
    language         TEXT NOT NULL DEFAULT '',
    description      TEXT NOT NULL DEFAULT '',
    description_html TEXT NOT NULL DEFAULT '',
    image_url        TEXT NOT NULL DEFAULT '',
    list_price       NUMERIC(12,2) NOT NULL DEFAULT 0,
    category_code    TEXT NOT NULL DEFAULT '',
    condition_code   TEXT NOT NULL DEFAULT '',
    sources          TEXT NOT NULL DEFAULT '',
    enriched         BOOLEAN NOT NULL DEFAULT false,
    enriched_at      TIMESTAMPTZ,
    exported         BOOLEAN NOT NULL DEFAULT false,
    exported_at      TIMESTAMPTZ,
    quantity_sold    INTEGER NOT NULL DEFAULT 0,
    status           TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'listed', 'sold'))
);

CREATE INDEX IF NOT EXISTS idx_scans_identifier ON scans(identifier);
CREATE INDEX IF NOT EXISTS idx_scans_pending ON scans(enriched, exported);

CREATE TABLE IF NOT EXISTS dimensions (
    identifier   TEXT PRIMARY KEY,
    weight_major INTEGER NOT NULL DEFAULT 0,
    weight_minor INTEGER NOT NULL DEFAULT 0,
    length       DOUBLE PRECISION NOT NULL DEFAULT 0,
    depth        DOUBLE PRECISION NOT NULL DEFAULT 0,
    width        DOUBLE PRECISION NOT NULL DEFAULT 0,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sales (
    id           BIGSERIAL PRIMARY KEY,
    order_number TEXT NOT NULL,
    identifier   TEXT NOT NULL,
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    price        NUMERIC(12,2) NOT NULL DEFAULT 0,
    sold_at      TIMESTAMPTZ NOT NULL,
    buyer        TEXT NOT NULL DEFAULT '',
    imported_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (order_number, identifier)
);

CREATE TABLE IF NOT EXISTS covers (
    identifier TEXT PRIMARY KEY,
    image      BYTEA NOT NULL,
    image_mime TEXT NOT NULL,
    source_url TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
