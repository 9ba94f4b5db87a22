package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/pubike/pubike/libs/db"
	"github.com/pubike/pubike/services/appointment-service/internal/outbox"
)

// ErrNoConfig means the environment supplied no store configuration.
var ErrNoConfig = errors.New("store configuration not found")

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DocumentStore is the write side of the document database: one insert into a
// collection path, returning the generated document id.
type DocumentStore interface {
	Create(ctx context.Context, collection string, doc any) (string, error)
}

// Config is the JSON store configuration handed over by the hosting environment,
// e.g. {"driver":"postgres","url":"postgres://...","maxConns":10}.
type Config struct {
	Driver   string `json:"driver"`
	URL      string `json:"url"`
	MaxConns int32  `json:"maxConns"`
	MinConns int32  `json:"minConns"`
	// Outbox enables documents.created.v1 events; defaults to on for postgres.
	Outbox *bool `json:"outbox,omitempty"`
}

func ParseConfig(raw string) (Config, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return Config{}, ErrNoConfig
	}
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse store config: %w", err)
	}
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	if cfg.Driver == "" && cfg.URL != "" {
		cfg.Driver = DriverPostgres
	}
	switch cfg.Driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(cfg.URL) == "" {
			return Config{}, errors.New("store config: postgres driver requires url")
		}
	default:
		return Config{}, fmt.Errorf("store config: unknown driver %q", cfg.Driver)
	}
	return cfg, nil
}

func (c Config) OutboxEnabled() bool {
	if c.Outbox == nil {
		return c.Driver == DriverPostgres
	}
	return *c.Outbox
}

// Open connects the configured store. The returned pool is nil for the memory
// driver; callers close it when non-nil.
func Open(ctx context.Context, cfg Config, clock clockwork.Clock) (DocumentStore, *db.Pool, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryStore(clock), nil, nil
	case DriverPostgres:
		pool, err := db.Open(ctx, cfg.URL, db.PoolOptions{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		var events *outbox.Repository
		if cfg.OutboxEnabled() {
			events = outbox.NewRepository(pool)
		}
		return NewPostgresStore(pool, events), pool, nil
	default:
		return nil, nil, ErrNoConfig
	}
}
