package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"klinechart/internal/domain"
	"klinechart/internal/series"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ SecurityStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS securities (
	ts_code   TEXT PRIMARY KEY,
	symbol    TEXT NOT NULL DEFAULT '',
	name      TEXT NOT NULL DEFAULT '',
	area      TEXT NOT NULL DEFAULT '',
	industry  TEXT NOT NULL DEFAULT '',
	market    TEXT NOT NULL DEFAULT '',
	list_date TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_securities_industry ON securities(industry);
`

// SQLiteStore implements SecurityStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReplaceSecurities replaces the whole list in one transaction.
func (s *SQLiteStore) ReplaceSecurities(ctx context.Context, securities []domain.Security) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM securities`); err != nil {
		return 0, fmt.Errorf("clearing securities: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO securities
		(ts_code, symbol, name, area, industry, market, list_date) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, sec := range securities {
		if sec.TsCode == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, sec.TsCode, sec.Symbol, sec.Name, sec.Area, sec.Industry, sec.Market, sec.ListDate); err != nil {
			return 0, fmt.Errorf("inserting %s: %w", sec.TsCode, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM securities`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListSecurities matches name and ts_code as case-insensitive substrings and
// industry exactly. A page past the end serves the last page.
func (s *SQLiteStore) ListSecurities(ctx context.Context, f Filter, page, pageSize int) ([]domain.Security, int, int, error) {
	var where []string
	var args []any
	if f.Name != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+f.Name+"%")
	}
	if f.TsCode != "" {
		where = append(where, "ts_code LIKE ?")
		args = append(args, "%"+f.TsCode+"%")
	}
	if f.Industry != "" {
		where = append(where, "industry = ?")
		args = append(args, f.Industry)
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM securities"+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, 0, fmt.Errorf("counting securities: %w", err)
	}

	if pageSize < 1 {
		pageSize = 1
	}
	page = series.ClampPage(page, series.TotalPages(total, pageSize))
	offset := (page - 1) * pageSize

	query := "SELECT ts_code, symbol, name, area, industry, market, list_date FROM securities" +
		whereSQL + " ORDER BY ts_code LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("listing securities: %w", err)
	}
	defer rows.Close()

	items := []domain.Security{}
	for rows.Next() {
		var sec domain.Security
		if err := rows.Scan(&sec.TsCode, &sec.Symbol, &sec.Name, &sec.Area, &sec.Industry, &sec.Market, &sec.ListDate); err != nil {
			return nil, 0, 0, err
		}
		items = append(items, sec)
	}
	return items, total, page, rows.Err()
}

// Industries returns the distinct non-empty industries in order.
func (s *SQLiteStore) Industries(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT industry FROM securities WHERE industry <> '' ORDER BY industry`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	industries := []string{}
	for rows.Next() {
		var ind string
		if err := rows.Scan(&ind); err != nil {
			return nil, err
		}
		industries = append(industries, ind)
	}
	return industries, rows.Err()
}

// GetSecurity returns the security with tsCode, or nil if there is none.
func (s *SQLiteStore) GetSecurity(ctx context.Context, tsCode string) (*domain.Security, error) {
	var sec domain.Security
	err := s.db.QueryRowContext(ctx,
		`SELECT ts_code, symbol, name, area, industry, market, list_date FROM securities WHERE ts_code = ?`, tsCode).
		Scan(&sec.TsCode, &sec.Symbol, &sec.Name, &sec.Area, &sec.Industry, &sec.Market, &sec.ListDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sec, nil
}

// Codes returns every ts_code in order.
func (s *SQLiteStore) Codes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ts_code FROM securities ORDER BY ts_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
