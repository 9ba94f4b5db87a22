package storage

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/pubike/pubike/libs/db"
	"github.com/pubike/pubike/services/appointment-service/internal/outbox"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func Migrate(ctx context.Context, pool *db.Pool) error {
	migrations, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	return db.Migrate(ctx, pool, migrations, "public.schema_version")
}

type PostgresStore struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

// NewPostgresStore stores documents as jsonb rows. When events is non-nil every
// insert also enqueues a documents.created.v1 event in the same transaction.
func NewPostgresStore(pool *db.Pool, events *outbox.Repository) *PostgresStore {
	return &PostgresStore{pool: pool, outbox: events}
}

func (s *PostgresStore) Create(ctx context.Context, collection string, doc any) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	var stored []byte
	err = tx.QueryRow(ctx, `
		INSERT INTO documents (collection, data)
		VALUES ($1, $2::jsonb || jsonb_build_object('createdAt', now()))
		RETURNING id::text, data
	`, collection, string(raw)).Scan(&id, &stored)
	if err != nil {
		return "", err
	}

	if s.outbox != nil {
		payload, err := json.Marshal(outbox.DocumentCreated{
			ID:         id,
			Collection: collection,
			Data:       stored,
		})
		if err != nil {
			return "", err
		}
		if err := s.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "document",
			AggregateID:   id,
			EventType:     outbox.EventDocumentCreated,
			Payload:       payload,
		}); err != nil {
			return "", fmt.Errorf("enqueue document event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}
