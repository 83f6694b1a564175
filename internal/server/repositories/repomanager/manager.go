// Package repomanager vends repository implementations for the configured
// database engine and owns schema migrations (via goose). The engine is
// picked from the DSN: "postgres://" (or "postgresql://") selects PostgreSQL
// through the pgx stdlib driver, anything else is treated as an SQLite path
// or URI served by the pure-Go modernc driver.
package repomanager

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dkorolev/slateboard/internal/dbx"
	"github.com/dkorolev/slateboard/internal/server/repositories/comments"
	"github.com/dkorolev/slateboard/internal/server/repositories/files"
	"github.com/dkorolev/slateboard/internal/server/repositories/posts"
	"github.com/dkorolev/slateboard/internal/server/repositories/users"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// any subset of them inside one transaction via dbx.WithTx.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Posts(db dbx.DBTX) posts.Repository
	Comments(db dbx.DBTX) comments.Repository
	Files(db dbx.DBTX) files.Repository

	// RunMigrations applies the embedded goose migrations for this engine.
	RunMigrations(ctx context.Context, db *sql.DB) error
}

// Open connects to the database named by dsn, applies migrations and returns
// the handle together with the matching RepositoryManager.
func Open(ctx context.Context, dsn string) (*sql.DB, RepositoryManager, error) {
	var (
		driver string
		rm     RepositoryManager
	)
	if isPostgresDSN(dsn) {
		driver = "pgx"
		rm = NewPostgresRepositoryManager()
	} else {
		driver = "sqlite"
		rm = NewSQLiteRepositoryManager()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return db, rm, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
