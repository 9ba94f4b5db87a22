package outbox

import "encoding/json"

// EventDocumentCreated is emitted once per stored document. The Kafka topic
// name equals the event type.
const EventDocumentCreated = "documents.created.v1"

// Event is the envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// DocumentCreated is the payload of EventDocumentCreated.
type DocumentCreated struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data"`
}
