// Package db provides the storage layer of the sales tracker.
//
// The backing store is sqlite for simple single-binary deployment. Queries
// are held in runnable sql files in the `sql` directory, which can be
// exercised on the sqlite command line, and are prepared as sqlx named
// statements on startup. The named parameters expected by each statement are
// extracted from the sql file itself so that argument maps can be verified
// before execution.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"strings"

	"github.com/jmoiron/sqlx" // helper library
	_ "modernc.org/sqlite"    // pure go sqlite driver
)

//go:embed sql
var SQLEmbeddedFS embed.FS

// namedStmt is an sql file parsed into an sqlx NamedStmt expecting the
// provided named parameters.
type namedStmt struct {
	sqlFile string
	params  []string
	*sqlx.NamedStmt
}

// verifyArgs determines if the arguments provided to a namedStmt match the
// parameters named in its sql file.
func (n *namedStmt) verifyArgs(args map[string]any) error {
	if got, want := len(args), len(n.params); got != want {
		return fmt.Errorf(
			"argument length to named statement from %q incorrect: got %d want %d",
			n.sqlFile, got, want,
		)
	}
	for _, p := range n.params {
		if _, ok := args[p]; !ok {
			return fmt.Errorf("argument %q missing for named statement from %q", p, n.sqlFile)
		}
	}
	return nil
}

// DB wraps the sqlx connection with application-specific operations.
type DB struct {
	*sqlx.DB
	sqlFS fs.FS
	log   *slog.Logger

	// Prepared statements.
	userInsertStmt     *namedStmt
	userByUsernameStmt *namedStmt
	userByIDStmt       *namedStmt
	userUpdateStmt     *namedStmt
	usernameExistsStmt *namedStmt
	emailInUseStmt     *namedStmt

	saleInsertStmt  *namedStmt
	saleUpdateStmt  *namedStmt
	saleDeleteStmt  *namedStmt
	saleGetStmt     *namedStmt
	salesListStmt   *namedStmt
	salesSearchStmt *namedStmt
	salesMapStmt    *namedStmt

	careerTotalStmt  *namedStmt
	salesByDateStmt  *namedStmt
	salesByMonthStmt *namedStmt
	salesByCityStmt  *namedStmt
	saleYearsStmt    *namedStmt
}

// NewConnection creates a new connection to an SQLite database at the given
// path. Call InitSchema followed by PrepareStatements before use.
func NewConnection(dbPath string, sqlFS fs.FS, logger *slog.Logger) (*DB, error) {

	// dataSource is the default setting for file-based databases.
	dataSource := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)

	// In-memory test databases need the shared cache so that all
	// connections in the pool see the same database.
	if strings.Contains(dbPath, ":memory:") {
		if !strings.Contains(dbPath, "cache=shared") {
			return nil, fmt.Errorf("in-memory connection %q should contain 'cache=shared'", dbPath)
		}
		dataSource = dbPath + "&_pragma=foreign_keys(1)"
	}

	dbDB, err := sql.Open("sqlite", dataSource)
	if err != nil {
		return nil, err
	}
	if err := dbDB.Ping(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	db := &DB{
		DB:    sqlx.NewDb(dbDB, "sqlite"),
		sqlFS: sqlFS,
		log:   logger,
	}
	return db, nil
}

// InitSchema creates the necessary tables if they don't already exist. The
// schema file can be run idempotently.
func (db *DB) InitSchema(filePath string) error {

	schema, err := fs.ReadFile(db.sqlFS, "sql/"+filePath)
	if err != nil {
		return fmt.Errorf("could not read schema file at %q: %w", filePath, err)
	}

	_, err = db.ExecContext(context.Background(), string(schema))
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// PrepareStatements prepares all the named statements for this database
// connection. The schema must already be in place.
func (db *DB) PrepareStatements() error {

	for _, s := range []struct {
		stmt    **namedStmt
		sqlFile string
	}{
		{&db.userInsertStmt, "user_insert.sql"},
		{&db.userByUsernameStmt, "user_by_username.sql"},
		{&db.userByIDStmt, "user_by_id.sql"},
		{&db.userUpdateStmt, "user_update.sql"},
		{&db.usernameExistsStmt, "username_exists.sql"},
		{&db.emailInUseStmt, "email_in_use.sql"},
		{&db.saleInsertStmt, "sale_insert.sql"},
		{&db.saleUpdateStmt, "sale_update.sql"},
		{&db.saleDeleteStmt, "sale_delete.sql"},
		{&db.saleGetStmt, "sale_get.sql"},
		{&db.salesListStmt, "sales_list.sql"},
		{&db.salesSearchStmt, "sales_search.sql"},
		{&db.salesMapStmt, "sales_map.sql"},
		{&db.careerTotalStmt, "career_total.sql"},
		{&db.salesByDateStmt, "sales_by_date.sql"},
		{&db.salesByMonthStmt, "sales_by_month.sql"},
		{&db.salesByCityStmt, "sales_by_city.sql"},
		{&db.saleYearsStmt, "sale_years.sql"},
	} {
		var err error
		*s.stmt, err = db.prepNamedStatement(s.sqlFile)
		if err != nil {
			return fmt.Errorf("statement %q error: %w", s.sqlFile, err)
		}
	}
	return nil
}

// prepNamedStatement prepares a single named statement from an sql file.
func (db *DB) prepNamedStatement(filePath string) (*namedStmt, error) {
	query, err := LoadQuery(db.sqlFS, "sql/"+filePath)
	if err != nil {
		return nil, fmt.Errorf("could not load %q: %w", filePath, err)
	}

	pQuery, err := db.PrepareNamed(query.Body)
	if err != nil {
		return nil, fmt.Errorf("could not prepare statement %q: %w", filePath, err)
	}
	return &namedStmt{
		filePath,
		query.Parameters,
		pQuery,
	}, nil
}

// round2 rounds a currency value to two decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
