package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/pubike/pubike/libs/kafkax"
	"github.com/pubike/pubike/services/appointment-service/internal/model"
	"github.com/pubike/pubike/services/appointment-service/internal/outbox"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct{ to, body string }

type fakeSender struct {
	sent  []sent
	err   error
	fails int
}

func (f *fakeSender) ProviderID() string { return "fake" }

func (f *fakeSender) Send(_ context.Context, to, body string) error {
	if f.err != nil {
		return f.err
	}
	if f.fails > 0 {
		f.fails--
		return errors.New("gateway timeout")
	}
	f.sent = append(f.sent, sent{to, body})
	return nil
}

type memInbox struct{ seen map[string]bool }

func (m *memInbox) Forget(_ context.Context, id string) error {
	delete(m.seen, id)
	return nil
}

func (m *memInbox) Record(_ context.Context, id, _ string) (bool, error) {
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func appointmentMessage(t *testing.T, eventID, collection string) kafka.Message {
	t.Helper()
	data, err := json.Marshal(model.Appointment{
		ServiceType:   model.ServiceTireTube,
		UserName:      "Maria da Silva",
		ContactInfo:   "305-B",
		PreferredDate: "2025-05-10",
		PreferredTime: "09:00",
		Status:        model.StatusPending,
	})
	require.NoError(t, err)
	payload, err := json.Marshal(outbox.DocumentCreated{ID: "a1b2c3d4e5f6", Collection: collection, Data: data})
	require.NoError(t, err)
	return kafka.Message{
		Topic:   outbox.EventDocumentCreated,
		Value:   payload,
		Headers: kafkax.MetaHeaders(kafkax.EventMeta{EventID: eventID, EventType: outbox.EventDocumentCreated}),
	}
}

func TestProviderHandlerSendsMessage(t *testing.T) {
	sender := &fakeSender{}
	h := ProviderHandler(sender, "+5511988887777", discardLogger())

	require.NoError(t, h(context.Background(), appointmentMessage(t, "e1", model.CollectionPath("pubike"))))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "+5511988887777", sender.sent[0].to)
	assert.Equal(t, "Novo agendamento a1b2c3d4: Reparo Pneu/Câmara para Maria da Silva em 2025-05-10 às 09:00. Contato: 305-B.", sender.sent[0].body)
}

func TestProviderHandlerIgnoresOtherCollections(t *testing.T) {
	sender := &fakeSender{}
	h := ProviderHandler(sender, "+55", discardLogger())
	require.NoError(t, h(context.Background(), appointmentMessage(t, "e1", "artifacts/pubike/public/data/reviews")))
	assert.Empty(t, sender.sent)
}

func TestProviderHandlerWithoutPhone(t *testing.T) {
	sender := &fakeSender{}
	require.NoError(t, ProviderHandler(sender, "", discardLogger())(context.Background(), appointmentMessage(t, "e1", model.CollectionPath("x"))))
	assert.Empty(t, sender.sent)
}

func TestProviderHandlerErrors(t *testing.T) {
	h := ProviderHandler(&fakeSender{err: errors.New("gateway down")}, "+55", discardLogger())
	assert.ErrorContains(t, h(context.Background(), appointmentMessage(t, "e1", model.CollectionPath("x"))), "gateway down")
	assert.Error(t, h(context.Background(), kafka.Message{Value: []byte("{")}))
}

func TestProviderMessageNotes(t *testing.T) {
	msg := ProviderMessage("abc", model.Appointment{ServiceType: model.ServiceOther, Notes: "freio traseiro"})
	assert.Contains(t, msg, "Novo agendamento abc:")
	assert.Contains(t, msg, "Obs: freio traseiro")
}

func newTestConsumer(sender *fakeSender, inbox Inbox) *Consumer {
	return &Consumer{
		logger:      discardLogger(),
		inbox:       inbox,
		handler:     ProviderHandler(sender, "+55", discardLogger()),
		maxAttempts: 3,
	}
}

func TestConsumerProcessDeduplicates(t *testing.T) {
	sender := &fakeSender{}
	c := newTestConsumer(sender, &memInbox{seen: map[string]bool{}})
	msg := appointmentMessage(t, "evt-1", model.CollectionPath("pubike"))
	require.NoError(t, c.process(context.Background(), msg))
	require.NoError(t, c.process(context.Background(), msg))
	require.NoError(t, c.process(context.Background(), appointmentMessage(t, "evt-2", model.CollectionPath("pubike"))))
	assert.Len(t, sender.sent, 2)
}

func TestConsumerFailedHandlerIsNotRecorded(t *testing.T) {
	sender := &fakeSender{fails: 1}
	inbox := &memInbox{seen: map[string]bool{}}
	c := newTestConsumer(sender, inbox)
	msg := appointmentMessage(t, "evt-1", model.CollectionPath("pubike"))

	assert.Error(t, c.process(context.Background(), msg))
	assert.False(t, inbox.seen["evt-1"])

	require.NoError(t, c.process(context.Background(), msg))
	assert.Len(t, sender.sent, 1)
	assert.True(t, inbox.seen["evt-1"])
}

func TestConsumerHandleRetries(t *testing.T) {
	sender := &fakeSender{fails: 2}
	c := newTestConsumer(sender, &memInbox{seen: map[string]bool{}})

	c.handle(context.Background(), appointmentMessage(t, "evt-1", model.CollectionPath("pubike")))
	assert.Len(t, sender.sent, 1)
}

func TestConsumerHandleGivesUp(t *testing.T) {
	sender := &fakeSender{fails: 5}
	inbox := &memInbox{seen: map[string]bool{}}
	c := newTestConsumer(sender, inbox)

	c.handle(context.Background(), appointmentMessage(t, "evt-1", model.CollectionPath("pubike")))
	assert.Empty(t, sender.sent)
	assert.Equal(t, 2, sender.fails)
	assert.False(t, inbox.seen["evt-1"], "a replay of the event is still delivered")
}
