// Package migrations embeds the goose schema migrations. Each supported
// database engine keeps its own directory because id generation and
// timestamp types are not portable between SQLite and PostgreSQL.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

const (
	DirSQLite   = "sqlite"
	DirPostgres = "postgres"
)
