//go:build integration

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/pubike/pubike/libs/db"
	"github.com/pubike/pubike/services/appointment-service/internal/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testPool *db.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("pubike"),
		postgres.WithUsername("pubike"),
		postgres.WithPassword("pubike"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get connection string: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	testPool, err = db.Open(ctx, connStr, db.PoolOptions{MaxConns: 4})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}
	if err := Migrate(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		testPool.Close()
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	testPool.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestPostgresStoreCreateWritesDocumentAndOutbox(t *testing.T) {
	ctx := context.Background()
	events := outbox.NewRepository(testPool)
	store := NewPostgresStore(testPool, events)

	collection := "artifacts/it/public/data/appointments"
	id, err := store.Create(ctx, collection, map[string]any{"userName": "Maria da Silva", "status": "Pending"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var raw []byte
	var createdAt time.Time
	err = testPool.QueryRow(ctx, `SELECT data, created_at FROM documents WHERE id = $1`, id).Scan(&raw, &createdAt)
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, "Maria da Silva", data["userName"])
	assert.NotEmpty(t, data["createdAt"])
	assert.WithinDuration(t, time.Now(), createdAt, time.Minute)

	tx, err := testPool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := events.FetchUnpublished(ctx, tx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	var evt outbox.DocumentCreated
	require.NoError(t, json.Unmarshal(records[len(records)-1].Payload, &evt))
	assert.Equal(t, id, evt.ID)
	assert.Equal(t, collection, evt.Collection)
}

func TestPostgresStoreWithoutOutbox(t *testing.T) {
	ctx := context.Background()
	store := NewPostgresStore(testPool, nil)

	var before int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT count(*) FROM outbox_events`).Scan(&before))

	_, err := store.Create(ctx, "artifacts/it/public/data/other", map[string]any{"k": "v"})
	require.NoError(t, err)

	var after int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT count(*) FROM outbox_events`).Scan(&after))
	assert.Equal(t, before, after)
}
