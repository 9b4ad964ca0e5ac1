package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/nandhiniannika/online-voting/internal/database"
)

// IdentityRepository stores identity records as rows of the identities table.
// Row order (by id) is the record order.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Name returns the backend name.
func (r *IdentityRepository) Name() string {
	return BackendName
}

// Load reads every record ordered by insertion.
func (r *IdentityRepository) Load(ctx context.Context) (*database.Snapshot, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT identity_key, embedding FROM identities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var (
		keys       []string
		embeddings [][]float32
	)
	for rows.Next() {
		var (
			key string
			vec pgvector.Vector
		)
		if err := rows.Scan(&key, &vec); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		keys = append(keys, key)
		embeddings = append(embeddings, vec.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	if len(keys) == 0 {
		return nil, database.ErrStoreMissing
	}
	return database.NewSnapshot(keys, embeddings)
}

// Persist inserts the appended record. The table is locked for the duration of
// the transaction and its row count must match the previous snapshot, so a
// second writer process cannot interleave rows unnoticed.
func (r *IdentityRepository) Persist(ctx context.Context, next *database.Snapshot, appended database.IdentityRecord) error {
	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", database.ErrPersistenceWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `LOCK TABLE identities IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("%w: lock identities: %w", database.ErrPersistenceWrite, err)
	}

	if err := checkRowCount(ctx, tx, next.Len()-1); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (identity_key, embedding) VALUES ($1, $2)`,
		appended.IdentityKey, pgvector.NewVector(appended.Embedding),
	)
	if err != nil {
		return fmt.Errorf("%w: insert identity: %w", database.ErrPersistenceWrite, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", database.ErrPersistenceWrite, err)
	}
	return nil
}

func checkRowCount(ctx context.Context, tx *sql.Tx, want int) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count); err != nil {
		return fmt.Errorf("%w: count identities: %w", database.ErrPersistenceWrite, err)
	}
	if count != want {
		return fmt.Errorf("%w: table holds %d rows, in-memory store holds %d", database.ErrStoreCorrupt, count, want)
	}
	return nil
}

// Close closes the connection pool.
func (r *IdentityRepository) Close() error {
	return r.pool.Close()
}
