package persist

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// withGoose hands fn a database/sql view of the pool configured for the
// embedded snapshot migrations.
func (db *DB) withGoose(fn func(*sql.DB) error) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()
	return fn(sqlDB)
}

// Migrate applies pending snapshot schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	return db.withGoose(func(s *sql.DB) error {
		if err := goose.UpContext(ctx, s, "migrations"); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	})
}

// Version reports the applied schema version.
func (db *DB) Version(ctx context.Context) (int64, error) {
	var v int64
	err := db.withGoose(func(s *sql.DB) error {
		var err error
		if v, err = goose.GetDBVersionContext(ctx, s); err != nil {
			return fmt.Errorf("schema version: %w", err)
		}
		return nil
	})
	return v, err
}
