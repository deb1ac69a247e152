package storage

// sqlite.go — store de sorteos, catálogos y apuestas.
//
// Convenciones:
//   - Instantes como INTEGER en milisegundos unix (UTC) para comparar rangos.
//   - Montos y multiplicadores como TEXT decimal; se escanean a decimal.Decimal.
//   - Una sola conexión: cada View es una transacción que ve una foto
//     consistente de la base mientras dura la corrida del optimizador.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/drawbot/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS catalogs (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    kind TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_items (
    id         TEXT PRIMARY KEY,
    catalog_id TEXT    NOT NULL REFERENCES catalogs(id),
    code       INTEGER NOT NULL,
    name       TEXT    NOT NULL,
    multiplier TEXT    NOT NULL,
    last_win   INTEGER,
    active     INTEGER NOT NULL DEFAULT 1,
    UNIQUE (catalog_id, code)
);

CREATE TABLE IF NOT EXISTS events (
    id                  TEXT PRIMARY KEY,
    catalog_id          TEXT    NOT NULL REFERENCES catalogs(id),
    scheduled_at        INTEGER NOT NULL,
    status              TEXT    NOT NULL,
    preselected_item_id TEXT,
    outcome_item_id     TEXT,
    fixed_payout_cap    TEXT,
    payout_percentage   TEXT,
    closed_at           INTEGER
);

CREATE TABLE IF NOT EXISTS wagers (
    id        TEXT PRIMARY KEY,
    event_id  TEXT    NOT NULL REFERENCES events(id),
    voided    INTEGER NOT NULL DEFAULT 0,
    placed_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS wager_lines (
    wager_id   TEXT    NOT NULL REFERENCES wagers(id),
    line_no    INTEGER NOT NULL,
    item_id    TEXT    NOT NULL,
    amount     TEXT    NOT NULL,
    multiplier TEXT,
    PRIMARY KEY (wager_id, line_no)
);

CREATE TABLE IF NOT EXISTS compound_wagers (
    id              TEXT PRIMARY KEY,
    catalog_id      TEXT    NOT NULL REFERENCES catalogs(id),
    target_1        TEXT    NOT NULL,
    target_2        TEXT    NOT NULL,
    target_3        TEXT    NOT NULL,
    stake           TEXT    NOT NULL,
    multiplier      TEXT    NOT NULL,
    start_event_id  TEXT    NOT NULL,
    start_at        INTEGER NOT NULL,
    expiry_event_id TEXT    NOT NULL,
    expires_at      INTEGER NOT NULL,
    status          TEXT    NOT NULL
);

-- Auditoría de cambios manuales de resultado
CREATE TABLE IF NOT EXISTS outcome_overrides (
    id               TEXT PRIMARY KEY,
    event_id         TEXT    NOT NULL REFERENCES events(id),
    previous_item_id TEXT,
    new_item_id      TEXT    NOT NULL,
    actor            TEXT    NOT NULL,
    reason           TEXT    NOT NULL,
    at               INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_catalog_at ON events(catalog_id, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_events_status_at  ON events(status, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_wagers_event      ON wagers(event_id);
CREATE INDEX IF NOT EXISTS idx_compound_window   ON compound_wagers(catalog_id, status, start_at, expires_at);
CREATE INDEX IF NOT EXISTS idx_overrides_event   ON outcome_overrides(event_id, at);
`

// querier es lo común entre *sql.DB y *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage implementa ports.Store usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

var _ ports.Store = (*SQLiteStorage)(nil)

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// View ejecuta fn dentro de una transacción; siempre hace rollback.
func (s *SQLiteStorage) View(ctx context.Context, fn func(ports.Reader) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.View: begin tx: %w", err)
	}
	defer tx.Rollback()
	return fn(reader{q: tx})
}

// Close cierra la conexión a la base de datos limpiamente.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
