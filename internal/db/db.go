// Package db opens the PostgreSQL connection of the dev server and applies
// its migrations.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose"

	"github.com/MosinFAM/decentratweet/internal/logging"
)

var ErrNoDSN = errors.New("database url is empty")

// Connect opens and pings the database at dsn.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logging.For("db").Info("connected to PostgreSQL")
	return db, nil
}

// Migrate applies every pending goose migration found in dir.
func Migrate(db *sql.DB, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return err
	}
	logging.For("db").WithField("version", version).Info("schema up to date")
	return nil
}
