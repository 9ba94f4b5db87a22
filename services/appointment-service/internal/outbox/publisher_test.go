package outbox

import (
	"context"
	"testing"

	"github.com/pubike/pubike/libs/kafkax"
)

func TestToMessage(t *testing.T) {
	msg := toMessage(context.Background(), Record{
		ID:          7,
		EventID:     "evt-1",
		AggregateID: "doc-1",
		EventType:   EventDocumentCreated,
		Payload:     []byte(`{"id":"doc-1"}`),
	})

	if msg.Topic != EventDocumentCreated {
		t.Fatalf("unexpected topic %q", msg.Topic)
	}
	if string(msg.Key) != "doc-1" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != EventDocumentCreated {
		t.Fatalf("unexpected meta %+v", meta)
	}
}
