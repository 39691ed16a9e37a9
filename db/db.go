package db

import (
	"embed"
	"fmt"

	_ "github.com/fiberonix/netdesign/db/migrations"

	"github.com/fiberonix/netdesign/codec"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql migrations/*.go
var embedMigrations embed.FS

// Repository provides a centralized structure for database operations, embedding the database connection.
// It implements domain.DesignRepository.
type Repository struct {
	dbConn  *sqlx.DB       // dbConn is the active database connection pool.
	decoder *codec.Decoder // decoder normalizes stored ratio labels.
}

// NewDesignRepo initializes a new Repository with the given sqlx.DB database connection.
// A nil decoder uses codec.NewDecoder without logging.
func NewDesignRepo(db *sqlx.DB, decoder *codec.Decoder) *Repository {
	if decoder == nil {
		decoder = codec.NewDecoder(nil)
	}
	return &Repository{
		dbConn:  db,
		decoder: decoder,
	}
}

// Close terminates the database connection.
func (repo *Repository) Close() error {
	err := repo.dbConn.Close()
	if err != nil {
		return fmt.Errorf("closing repo : %w", err)
	}
	return nil
}

// New opens the design store at path and brings its schema up to date: the design and
// coupler_stage tables, then the per-stage fiber loss column with ':' ratio labels
// rewritten to '/'. Deleting a design removes its stages through the foreign key.
func New(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", fmt.Sprintf("%s?_journal=WAL&_timeout=5000&_fk=true", path))
	if err != nil {
		return nil, fmt.Errorf("connecting to db : %w", err)
	}

	// One writer; stage rows are replaced inside a transaction on every update.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sqlx.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("enabling foreign keys : %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return fmt.Errorf("setting dialect for migrations : %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("applying migrations : %w", err)
	}
	return nil
}
