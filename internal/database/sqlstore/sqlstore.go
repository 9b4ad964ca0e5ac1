// Package sqlstore snapshots the identity store into a two-row state table:
// one bucket for the key sequence and one for the embedding sequence, both
// rewritten inside a single transaction after every append.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/nandhiniannika/online-voting/internal/database"
)

// Dialect captures the SQL differences between supported engines.
type Dialect struct {
	Name        string
	DriverName  string
	CreateTable string
	Upsert      string
}

var (
	// SQLite stores state in a local file through modernc.org/sqlite.
	SQLite = Dialect{
		Name:       "sqlite",
		DriverName: "sqlite",
		CreateTable: `CREATE TABLE IF NOT EXISTS identity_state (
			bucket TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		)`,
		Upsert: `INSERT INTO identity_state(bucket, payload) VALUES(?, ?)
			ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
	}

	// MySQL stores state in a MySQL or MariaDB server.
	MySQL = Dialect{
		Name:       "mysql",
		DriverName: "mysql",
		CreateTable: `CREATE TABLE IF NOT EXISTS identity_state (
			bucket VARCHAR(32) PRIMARY KEY,
			payload LONGBLOB NOT NULL
		)`,
		Upsert: `INSERT INTO identity_state(bucket, payload) VALUES(?, ?)
			ON DUPLICATE KEY UPDATE payload=VALUES(payload)`,
	}
)

func init() {
	database.RegisterBackend(SQLite.Name, func(ctx context.Context, opts database.BackendOptions) (database.Backend, error) {
		return OpenSQLite(ctx, opts.Path)
	})
	database.RegisterBackend(MySQL.Name, func(ctx context.Context, opts database.BackendOptions) (database.Backend, error) {
		return OpenMySQL(ctx, opts)
	})
}

// Store is a SQL-backed database.Backend.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (or creates) a SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open(SQLite.DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serialises writers inside this process.
	db.SetMaxOpenConns(1)
	return newStore(ctx, db, SQLite)
}

// OpenMySQL connects to the DSN in opts.URL.
func OpenMySQL(ctx context.Context, opts database.BackendOptions) (*Store, error) {
	if opts.URL == "" {
		return nil, errors.New("database URL is required")
	}
	db, err := sql.Open(MySQL.DriverName, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return newStore(ctx, db, MySQL)
}

func newStore(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if _, err := db.ExecContext(ctx, dialect.CreateTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// Name returns the dialect name.
func (s *Store) Name() string {
	return s.dialect.Name
}

// DB exposes the underlying sql.DB for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Load reads both buckets. No rows is ErrStoreMissing; one bucket without
// the other, undecodable payloads or mismatched lengths are ErrStoreCorrupt.
func (s *Store) Load(ctx context.Context) (*database.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM identity_state`)
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payloads := make(map[string][]byte)
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state: %w", err)
	}

	keysRaw, hasKeys := payloads[database.BucketKeys]
	embRaw, hasEmb := payloads[database.BucketEmbeddings]
	switch {
	case !hasKeys && !hasEmb:
		return nil, database.ErrStoreMissing
	case hasKeys != hasEmb:
		return nil, fmt.Errorf("%w: only one of the %q and %q buckets is present", database.ErrStoreCorrupt, database.BucketKeys, database.BucketEmbeddings)
	}

	var (
		keys       []string
		embeddings [][]float32
	)
	if err := json.Unmarshal(keysRaw, &keys); err != nil {
		return nil, fmt.Errorf("%w: decode keys: %w", database.ErrStoreCorrupt, err)
	}
	if err := json.Unmarshal(embRaw, &embeddings); err != nil {
		return nil, fmt.Errorf("%w: decode embeddings: %w", database.ErrStoreCorrupt, err)
	}
	return database.NewSnapshot(keys, embeddings)
}

// Persist rewrites both buckets in one transaction.
func (s *Store) Persist(ctx context.Context, next *database.Snapshot, _ database.IdentityRecord) (retErr error) {
	keysRaw, err := json.Marshal(next.Keys())
	if err != nil {
		return fmt.Errorf("%w: encode keys: %w", database.ErrPersistenceWrite, err)
	}
	embRaw, err := json.Marshal(next.Embeddings())
	if err != nil {
		return fmt.Errorf("%w: encode embeddings: %w", database.ErrPersistenceWrite, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", database.ErrPersistenceWrite, err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, b := range []struct {
		bucket string
		data   []byte
	}{
		{database.BucketKeys, keysRaw},
		{database.BucketEmbeddings, embRaw},
	} {
		if _, err := tx.ExecContext(ctx, s.dialect.Upsert, b.bucket, b.data); err != nil {
			return fmt.Errorf("%w: upsert %s: %w", database.ErrPersistenceWrite, b.bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", database.ErrPersistenceWrite, err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database connection: %w", err)
	}
	return nil
}
