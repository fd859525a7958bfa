package db

// schema is the full database schema.
//
// Each record collection is a two-column table holding one JSON document
// per record, keyed by the record's numeric id. Attachments, counters and
// settings carry typed columns of their own.
const schema = `
CREATE TABLE IF NOT EXISTS locations (
    id   INTEGER PRIMARY KEY,
    data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
    id   INTEGER PRIMARY KEY,
    data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS owners (
    id   INTEGER PRIMARY KEY,
    data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    id   INTEGER PRIMARY KEY,
    data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
    item_id    INTEGER PRIMARY KEY,
    data       BLOB NOT NULL,
    filename   TEXT NOT NULL,
    mime       TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS counters (
    entity  TEXT PRIMARY KEY,
    next_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
