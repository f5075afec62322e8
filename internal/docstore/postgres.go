// AngelaMos | 2026
// postgres.go

package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hotdog/elotto/internal/core"
)

const schema = `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT        NOT NULL,
		id         TEXT        NOT NULL,
		data       JSONB       NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	)`

const upsertQuery = `
	INSERT INTO documents (collection, id, data)
	VALUES ($1, $2, $3)
	ON CONFLICT (collection, id)
	DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`

const deleteQuery = `DELETE FROM documents WHERE collection = $1 AND id = $2`

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate documents: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(
	ctx context.Context,
	collection, id string,
) (json.RawMessage, error) {
	query := `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	var data []byte
	err := s.db.GetContext(ctx, &data, query, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w: %w", collection, id, core.ErrTransient, err)
	}

	return json.RawMessage(data), nil
}

func (s *PostgresStore) Put(
	ctx context.Context,
	collection, id string,
	data json.RawMessage,
) error {
	if _, err := s.db.ExecContext(ctx, upsertQuery, collection, id, string(data)); err != nil {
		return fmt.Errorf("put %s/%s: %w: %w", collection, id, core.ErrTransient, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	result, err := s.db.ExecContext(ctx, deleteQuery, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w: %w", collection, id, core.ErrTransient, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}

	if rows == 0 {
		return fmt.Errorf("delete %s/%s: %w", collection, id, core.ErrNotFound)
	}

	return nil
}

type documentRow struct {
	Collection string    `db:"collection"`
	ID         string    `db:"id"`
	Data       []byte    `db:"data"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (s *PostgresStore) List(
	ctx context.Context,
	collection string,
	params ListParams,
) ([]Document, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM documents WHERE collection = $1`
	if err := s.db.GetContext(ctx, &total, countQuery, collection); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w: %w", collection, core.ErrTransient, err)
	}

	query := `
		SELECT collection, id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY id`
	args := []any{collection}

	if !params.unbounded() {
		params.Normalize()
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, params.PageSize, params.Offset())
	}

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w: %w", collection, core.ErrTransient, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, Document{
			Collection: row.Collection,
			ID:         row.ID,
			Data:       json.RawMessage(row.Data),
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
		})
	}

	return docs, total, nil
}

func (s *PostgresStore) Apply(ctx context.Context, writes []Write) error {
	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, w := range writes {
			if w.Delete {
				if _, err := tx.ExecContext(ctx, deleteQuery, w.Collection, w.ID); err != nil {
					return fmt.Errorf("delete %s/%s: %w", w.Collection, w.ID, err)
				}
				continue
			}
			if _, err := tx.ExecContext(ctx, upsertQuery, w.Collection, w.ID, string(w.Data)); err != nil {
				return fmt.Errorf("put %s/%s: %w", w.Collection, w.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply batch: %w: %w", core.ErrTransient, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres store ping: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
