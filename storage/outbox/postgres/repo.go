package pgoutbox

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/protextify/edge/core/outbox"
)

// Repository keeps the deferred-write queue in Postgres, for server-side
// edge deployments where a shared database already exists.
type Repository struct {
	db *sqlx.DB
}

var _ outbox.Repository = (*Repository)(nil)

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: sqlx.NewDb(db, "postgres")}
}

type itemRow struct {
	ID         string       `db:"id"`
	Resource   string       `db:"resource"`
	Endpoint   string       `db:"endpoint"`
	Payload    []byte       `db:"payload"`
	AuthToken  string       `db:"auth_token"`
	EnqueuedAt sql.NullTime `db:"enqueued_at"`
}

func (repo *Repository) Save(ctx context.Context, item outbox.Item) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO edge_outbox (id, resource, endpoint, payload, auth_token, enqueued_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		item.ID, item.Resource, item.Endpoint, item.Payload, item.AuthToken, item.EnqueuedAt,
	)
	return errors.Wrap(err, "inserting queue item")
}

func (repo *Repository) All(ctx context.Context) ([]outbox.Item, error) {
	var rows []itemRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, resource, endpoint, payload, auth_token, enqueued_at
		 FROM edge_outbox ORDER BY enqueued_at`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying queue items")
	}

	items := make([]outbox.Item, 0, len(rows))
	for _, row := range rows {
		item := outbox.Item{
			ID:        row.ID,
			Resource:  row.Resource,
			Endpoint:  row.Endpoint,
			Payload:   row.Payload,
			AuthToken: row.AuthToken,
		}
		if row.EnqueuedAt.Valid {
			item.EnqueuedAt = row.EnqueuedAt.Time
		}
		items = append(items, item)
	}
	return items, nil
}

func (repo *Repository) Delete(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM edge_outbox WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting queue item")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return outbox.ErrNotFound
	}
	return nil
}
