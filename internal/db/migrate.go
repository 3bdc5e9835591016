package db

import (
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose"
	"go.uber.org/zap"
)

// Migrate applies every pending goose migration found in dir.
//
// goose works on database/sql, so the pgx pool is exposed through the pgx
// stdlib adapter for the duration of the run.
func (db *DB) Migrate(dir string) error {
	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer sqlDB.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(sqlDB, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	db.logger.Info("migrations applied", zap.String("dir", dir), zap.Int64("version", version))
	return nil
}
