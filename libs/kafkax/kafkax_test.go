package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestExtractEventMetaFallsBackToKeyAndTopic(t *testing.T) {
	msg := kafka.Message{Topic: "documents.created.v1", Key: []byte("doc-1")}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "doc-1" || meta.EventType != "documents.created.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}

	msg.Headers = MetaHeaders(EventMeta{EventID: "evt-9", EventType: "custom"})
	meta = ExtractEventMeta(msg)
	if meta.EventID != "evt-9" || meta.EventType != "custom" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	headers := InjectTraceHeaders(context.Background(), []kafka.Header{{Key: "a", Value: []byte("1")}})
	if HeaderValue(headers, "a") != "1" {
		t.Fatal("existing headers must be preserved")
	}
	_ = ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" k1:9092, ,k2:9092")
	if len(got) != 2 || got[0] != "k1:9092" || got[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	if err := ReadyCheck("")(context.Background()); err != ErrNoBrokers {
		t.Fatalf("expected ErrNoBrokers, got %v", err)
	}
}
