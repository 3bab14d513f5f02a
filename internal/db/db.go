// Package db stores extraction runs and their cleaned telemetry series
// in SQLite. One database can hold many runs of many launches; every
// query is scoped by run ID.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the SQLite database at path and brings its
// schema up to the latest migration.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
