package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

const createKVTable = `CREATE TABLE IF NOT EXISTS kv_store (
	k VARCHAR(191) NOT NULL PRIMARY KEY,
	v LONGTEXT NOT NULL
)`

// MySQL stores keys as rows of a single kv_store table.
type MySQL struct {
	db *sql.DB
}

// OpenMySQL connects to dsn, checks the connection and creates the table.
func OpenMySQL(ctx context.Context, dsn string) (*MySQL, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql store: open: %w", err)
	}

	s, err := NewMySQL(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQL wraps an already opened database handle.
func NewMySQL(ctx context.Context, db *sql.DB) (*MySQL, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("mysql store: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, createKVTable); err != nil {
		return nil, fmt.Errorf("mysql store: create table: %w", err)
	}
	return &MySQL{db: db}, nil
}

func (s *MySQL) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT v FROM kv_store WHERE k = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mysql store: get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *MySQL) Set(ctx context.Context, key, value string) error {
	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO kv_store (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)")
	if err != nil {
		return fmt.Errorf("mysql store: prepare: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("mysql store: set %s: %w", key, err)
	}
	return nil
}

func (s *MySQL) Close() error {
	return s.db.Close()
}
