package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/coachgo/tradecoach/internal/errs"
)

// SQLite is the modernc.org/sqlite-backed Store implementation. A
// single file holds the entire database, per the single-local-file
// requirement: no server, no connection pool beyond *sql.DB's own.
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and brings its
// schema up to date. path must not be empty; use ":memory:" for a
// throwaway in-process database.
func Open(path string) (*SQLite, error) {
	if path == "" {
		return nil, &errs.StoreError{Op: "open", Message: "database path must not be empty"}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &errs.StoreError{Op: "open", Message: "open sqlite driver", Cause: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &errs.StoreError{Op: "open", Message: "ping database", Cause: err}
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, &errs.StoreError{Op: "open", Message: "migrate schema", Cause: err}
	}
	log.Info().Str("path", path).Msg("store opened")
	return s, nil
}

func (s *SQLite) migrate() error {
	var version int
	s.db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version)

	if version < 1 {
		_, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS trades (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				symbol        TEXT NOT NULL,
				entry_price   REAL NOT NULL,
				entry_date    TEXT NOT NULL,
				horizon       INTEGER NOT NULL,
				position_size REAL,
				stock_beta    REAL,
				sector        TEXT,
				created_at    TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
			CREATE INDEX IF NOT EXISTS idx_trades_created_at ON trades(created_at DESC);

			CREATE TABLE IF NOT EXISTS analyses (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				trade_id   INTEGER NOT NULL REFERENCES trades(id),
				kind       TEXT NOT NULL,
				payload    TEXT NOT NULL,
				created_at TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_analyses_trade_id ON analyses(trade_id);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		log.Debug().Msg("applied store migration v1")
	}

	return nil
}

// Close releases the underlying connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) SaveTrade(ctx context.Context, trade *Trade) error {
	now := time.Now().UTC()
	var positionSize, stockBeta sql.NullFloat64
	var sector sql.NullString
	if trade.Behavioral != nil {
		positionSize = sql.NullFloat64{Float64: trade.Behavioral.PositionSize, Valid: true}
		stockBeta = sql.NullFloat64{Float64: trade.Behavioral.StockBeta, Valid: true}
		sector = sql.NullString{String: trade.Behavioral.Sector, Valid: trade.Behavioral.Sector != ""}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (symbol, entry_price, entry_date, horizon, position_size, stock_beta, sector, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.Symbol, trade.EntryPrice, trade.EntryDate.UTC().Format(time.RFC3339), trade.Horizon,
		positionSize, stockBeta, sector, now.Format(time.RFC3339))
	if err != nil {
		return &errs.StoreError{Op: "save_trade", Message: "insert trade", Cause: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return &errs.StoreError{Op: "save_trade", Message: "read inserted id", Cause: err}
	}
	trade.ID = id
	trade.CreatedAt = now
	return nil
}

func (s *SQLite) SaveAnalysis(ctx context.Context, analysis *Analysis) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (trade_id, kind, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, analysis.TradeID, string(analysis.Kind), string(analysis.Payload), now.Format(time.RFC3339))
	if err != nil {
		return &errs.StoreError{Op: "save_analysis", Message: "insert analysis", Cause: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return &errs.StoreError{Op: "save_analysis", Message: "read inserted id", Cause: err}
	}
	analysis.ID = id
	analysis.CreatedAt = now
	return nil
}

func (s *SQLite) GetTrade(ctx context.Context, id int64) (*Trade, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, entry_price, entry_date, horizon, position_size, stock_beta, sector, created_at
		  FROM trades WHERE id = ?
	`, id)

	trade, err := scanTrade(row.Scan)
	if err == sql.ErrNoRows {
		return nil, &errs.StoreError{Op: "get_trade", Message: fmt.Sprintf("no trade with id %d", id)}
	}
	if err != nil {
		return nil, &errs.StoreError{Op: "get_trade", Message: "scan trade", Cause: err}
	}
	return trade, nil
}

func (s *SQLite) GetLastNTrades(ctx context.Context, n int) ([]Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, entry_price, entry_date, horizon, position_size, stock_beta, sector, created_at
		  FROM trades
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?
	`, n)
	if err != nil {
		return nil, &errs.StoreError{Op: "get_last_n_trades", Message: "query trades", Cause: err}
	}
	defer rows.Close()
	return collectTrades(rows)
}

func (s *SQLite) GetTradesForBehavioralHistory(ctx context.Context, excludeID int64, limit int) ([]Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, entry_price, entry_date, horizon, position_size, stock_beta, sector, created_at
		  FROM trades
		 WHERE id != ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?
	`, excludeID, limit)
	if err != nil {
		return nil, &errs.StoreError{Op: "get_behavioral_history", Message: "query trades", Cause: err}
	}
	defer rows.Close()
	return collectTrades(rows)
}

func (s *SQLite) GetAnalyses(ctx context.Context, tradeID int64) ([]Analysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trade_id, kind, payload, created_at
		  FROM analyses
		 WHERE trade_id = ?
		 ORDER BY created_at ASC, id ASC
	`, tradeID)
	if err != nil {
		return nil, &errs.StoreError{Op: "get_analyses", Message: "query analyses", Cause: err}
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		var a Analysis
		var kind, payload, createdAt string
		if err := rows.Scan(&a.ID, &a.TradeID, &kind, &payload, &createdAt); err != nil {
			return nil, &errs.StoreError{Op: "get_analyses", Message: "scan analysis", Cause: err}
		}
		a.Kind = AnalysisKind(kind)
		a.Payload = json.RawMessage(payload)
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.StoreError{Op: "get_analyses", Message: "iterate analyses", Cause: err}
	}
	return out, nil
}

// scanFunc matches both sql.Row.Scan and sql.Rows.Scan so a single
// trade-row decoder serves both single-row and multi-row queries.
type scanFunc func(dest ...any) error

func scanTrade(scan scanFunc) (*Trade, error) {
	var t Trade
	var entryDate, createdAt string
	var positionSize, stockBeta sql.NullFloat64
	var sector sql.NullString

	if err := scan(&t.ID, &t.Symbol, &t.EntryPrice, &entryDate, &t.Horizon, &positionSize, &stockBeta, &sector, &createdAt); err != nil {
		return nil, err
	}
	t.EntryDate, _ = time.Parse(time.RFC3339, entryDate)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if positionSize.Valid && stockBeta.Valid && sector.Valid {
		t.Behavioral = &BehavioralAttrs{
			PositionSize: positionSize.Float64,
			StockBeta:    stockBeta.Float64,
			Sector:       sector.String,
		}
	}
	return &t, nil
}

func collectTrades(rows *sql.Rows) ([]Trade, error) {
	var out []Trade
	for rows.Next() {
		trade, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, &errs.StoreError{Op: "scan_trades", Message: "scan trade row", Cause: err}
		}
		out = append(out, *trade)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.StoreError{Op: "scan_trades", Message: "iterate trades", Cause: err}
	}
	return out, nil
}
