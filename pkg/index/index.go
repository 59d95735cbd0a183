// Package index is a small persistent key-value index backed by sqlite. It
// holds non-secret bookkeeping such as item attributes, never plaintext.
//
// Tables are created on first write. Reading from a table that was never
// written behaves like reading a missing key.
package index

import (
	"context"
	"database/sql"
	goerrors "errors"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	perrors "github.com/glorpus-work/passd/pkg/errors"
	"github.com/glorpus-work/passd/pkg/fsutil"
)

const tablePrefix = "kv_"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Index is a set of named key-value tables in one database file.
type Index struct {
	db *sql.DB
}

// Open opens (or creates) the index database at path.
func Open(path string) (*Index, error) {
	if path != ":memory:" {
		if err := fsutil.EnsureFileDir(path, fsutil.DirModePrivate); err != nil {
			return nil, perrors.Index(fmt.Errorf("create index directory: %w", err))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, perrors.Index(fmt.Errorf("open index db: %w", err))
	}
	// a single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, perrors.Index(fmt.Errorf("set WAL mode: %w", err))
	}
	return &Index{db: db}, nil
}

// Close closes the underlying database connection.
func (i *Index) Close() error {
	return perrors.Index(i.db.Close())
}

// Get returns the value stored under key. A missing key or table is
// reported as errors.ErrNotFound.
func (i *Index) Get(ctx context.Context, table, key string) (string, error) {
	value, ok, err := i.lookup(ctx, table, key)
	if err != nil {
		return "", perrors.RaiseMissingTable(err)
	}
	return perrors.OrNotFound(value, ok)
}

// GetOr returns the value stored under key, or def when the key or table
// does not exist.
func (i *Index) GetOr(ctx context.Context, table, key, def string) (string, error) {
	value, ok, err := i.lookup(ctx, table, key)
	if err != nil {
		return perrors.RaiseMissingTableOr(err, def)
	}
	if !ok {
		return def, nil
	}
	return value, nil
}

// Put stores value under key, creating the table when needed.
func (i *Index) Put(ctx context.Context, table, key, value string) error {
	name, err := quoted(table)
	if err != nil {
		return err
	}
	if _, err := i.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value TEXT NOT NULL)`, name)); err != nil {
		return perrors.Index(fmt.Errorf("create table %s: %w", table, err))
	}
	_, err = i.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, name),
		key, value)
	return perrors.Index(err)
}

// Delete removes key. Missing keys and tables are not an error.
func (i *Index) Delete(ctx context.Context, table, key string) error {
	name, err := quoted(table)
	if err != nil {
		return err
	}
	_, err = i.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, name), key)
	_, err = perrors.RaiseMissingTableOr(classify(err, table), struct{}{})
	return err
}

// Keys returns the keys of table in ascending order. A missing table has no keys.
func (i *Index) Keys(ctx context.Context, table string) ([]string, error) {
	name, err := quoted(table)
	if err != nil {
		return nil, err
	}
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf(`SELECT key FROM %s ORDER BY key`, name))
	if err != nil {
		return perrors.RaiseMissingTableOr(classify(err, table), []string{})
	}
	defer func() { _ = rows.Close() }()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, perrors.Index(err)
		}
		keys = append(keys, key)
	}
	return keys, perrors.Index(rows.Err())
}

// Tables returns the names of all tables that have been written.
func (i *Index) Tables(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND substr(name, 1, ?) = ? ORDER BY name`,
		len(tablePrefix), tablePrefix)
	if err != nil {
		return nil, perrors.Index(err)
	}
	defer func() { _ = rows.Close() }()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, perrors.Index(err)
		}
		tables = append(tables, strings.TrimPrefix(name, tablePrefix))
	}
	return tables, perrors.Index(rows.Err())
}

func (i *Index) lookup(ctx context.Context, table, key string) (string, bool, error) {
	name, err := quoted(table)
	if err != nil {
		return "", false, err
	}
	var value string
	err = i.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, name), key).Scan(&value)
	switch {
	case err == nil:
		return value, true, nil
	case goerrors.Is(err, sql.ErrNoRows):
		return "", false, nil
	default:
		return "", false, classify(err, table)
	}
}

// quoted validates table and returns its quoted SQL identifier.
func quoted(table string) (string, error) {
	if !tableName.MatchString(table) {
		return "", perrors.Index(fmt.Errorf("%w: %q", perrors.ErrInvalidTableName, table))
	}
	return `"` + tablePrefix + table + `"`, nil
}

// classify marks sqlite's missing table failure with ErrTableNotExist.
func classify(err error, table string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %s", perrors.ErrTableNotExist, table)
	}
	return err
}
