package notify

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pubike/pubike/libs/db"
)

// Inbox remembers which events were already handled. Forget undoes a Record
// whose handling failed so a later delivery is processed again.
type Inbox interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type PostgresInbox struct {
	pool *db.Pool
}

func NewPostgresInbox(pool *db.Pool) *PostgresInbox {
	return &PostgresInbox{pool: pool}
}

// Record returns false when eventID was seen before.
func (r *PostgresInbox) Record(ctx context.Context, eventID, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return false, nil
	}
	return false, err
}

func (r *PostgresInbox) Forget(ctx context.Context, eventID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM inbox_events WHERE event_id = $1`, eventID)
	return err
}
