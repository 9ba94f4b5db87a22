package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Document is a stored document as seen by MemoryStore readers.
type Document struct {
	ID         string
	Collection string
	Data       map[string]any
	CreatedAt  time.Time
}

// MemoryStore keeps documents in process memory. It backs local development
// and tests; contents are lost on restart.
type MemoryStore struct {
	clock clockwork.Clock
	mu    sync.Mutex
	docs  map[string][]Document
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{clock: clock, docs: map[string][]Document{}}
}

func (s *MemoryStore) Create(ctx context.Context, collection string, doc any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("document must be a JSON object: %w", err)
	}

	now := s.clock.Now().UTC()
	data["createdAt"] = now.Format(time.RFC3339Nano)
	stored := Document{
		ID:         uuid.NewString(),
		Collection: collection,
		Data:       data,
		CreatedAt:  now,
	}

	s.mu.Lock()
	s.docs[collection] = append(s.docs[collection], stored)
	s.mu.Unlock()
	return stored.ID, nil
}

// Documents returns a snapshot of the documents in collection, oldest first.
func (s *MemoryStore) Documents(collection string) []Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Document, len(s.docs[collection]))
	copy(out, s.docs[collection])
	return out
}
