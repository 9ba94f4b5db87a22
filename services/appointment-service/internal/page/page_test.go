package page

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pubike/pubike/services/appointment-service/internal/appointment"
	"github.com/pubike/pubike/services/appointment-service/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	mu      sync.Mutex
	calls   int
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubStore) Create(ctx context.Context, _ string, _ any) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.started != nil {
		close(s.started)
		select {
		case <-s.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return "9f8e7d6c5b4a", nil
}

func (s *stubStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func filledForm() appointment.FormInput {
	return appointment.FormInput{
		ServiceType:   "Limpeza e Lubrificação",
		UserName:      "Maria da Silva",
		ContactInfo:   "305-B",
		PreferredDate: "2025-05-10",
		PreferredTime: "09:00",
	}
}

func newPage(clock clockwork.Clock) *Page {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(appointment.NewSubmitter(logger, nil), clock)
}

func readySession(store *stubStore) *session.Context {
	return &session.Context{AppID: "pubike", UserID: "u1", Store: store}
}

func TestSubmitSuccessClearsFields(t *testing.T) {
	p := newPage(clockwork.NewFakeClock())
	store := &stubStore{}
	p.SetFields(filledForm())

	conf, err := p.Submit(context.Background(), readySession(store))
	require.NoError(t, err)
	assert.Equal(t, "9f8e7d6c", conf.Code)
	assert.Equal(t, appointment.FormInput{}, p.Fields())
	assert.Equal(t, BannerSuccess, p.Banner.Kind())
	assert.Equal(t, "Serviço agendado com sucesso! Código: 9f8e7d6c. Jeferson entrará em contato.", p.Banner.Message())
	assert.Equal(t, Idle, p.Button.State())
	assert.Equal(t, LabelIdle, p.Button.Label())
}

func TestSubmitWriteErrorKeepsFields(t *testing.T) {
	p := newPage(clockwork.NewFakeClock())
	p.SetFields(filledForm())

	_, err := p.Submit(context.Background(), readySession(&stubStore{err: errors.New("offline")}))
	require.Error(t, err)
	assert.Equal(t, filledForm(), p.Fields())
	assert.Equal(t, BannerError, p.Banner.Kind())
	assert.Equal(t, MsgWriteError, p.Banner.Message())
	assert.False(t, p.Button.Disabled())
}

func TestSubmitValidationDoesNotWrite(t *testing.T) {
	p := newPage(clockwork.NewFakeClock())
	store := &stubStore{}
	in := filledForm()
	in.UserName = "   "
	p.SetFields(in)

	_, err := p.Submit(context.Background(), readySession(store))
	assert.True(t, appointment.IsValidation(err))
	assert.Equal(t, 0, store.Calls())
	assert.Equal(t, MsgValidation, p.Banner.Message())
	assert.Equal(t, in, p.Fields())
	assert.Equal(t, Idle, p.Button.State())
}

func TestSubmitNotReady(t *testing.T) {
	p := newPage(clockwork.NewFakeClock())
	p.SetFields(filledForm())

	_, err := p.Submit(context.Background(), &session.Context{AppID: "pubike"})
	assert.ErrorIs(t, err, appointment.ErrNotReady)
	assert.Equal(t, MsgNotReady, p.Banner.Message())
	assert.Equal(t, filledForm(), p.Fields())
}

func TestSubmitWhileSubmittingIsRejected(t *testing.T) {
	p := newPage(clockwork.NewFakeClock())
	store := &stubStore{started: make(chan struct{}), release: make(chan struct{})}
	p.SetFields(filledForm())

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), readySession(store))
		done <- err
	}()
	<-store.started

	assert.Equal(t, Submitting, p.Button.State())
	assert.Equal(t, LabelSubmitting, p.Button.Label())
	_, err := p.Submit(context.Background(), readySession(store))
	assert.ErrorIs(t, err, ErrBusy)

	close(store.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, store.Calls())
	assert.Equal(t, Idle, p.Button.State())
}

func TestBannerAutoDismiss(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewBanner(clock)

	b.Show(BannerSuccess, "ok")
	assert.True(t, b.Visible())
	clock.Advance(4 * time.Second)
	assert.True(t, b.Visible())
	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return !b.Visible() }, time.Second, 5*time.Millisecond)
	assert.Empty(t, b.Message())
}

func TestBannerShowReplacesPendingHide(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewBanner(clock)

	b.Show(BannerError, "first")
	clock.Advance(3 * time.Second)
	b.Show(BannerSuccess, "second")
	clock.Advance(3 * time.Second)
	assert.True(t, b.Visible())
	assert.Equal(t, "second", b.Message())

	clock.Advance(2 * time.Second)
	assert.Eventually(t, func() bool { return !b.Visible() }, time.Second, 5*time.Millisecond)
}

func TestBannerClose(t *testing.T) {
	b := NewBanner(clockwork.NewFakeClock())
	b.Show(BannerError, "x")
	b.Close()
	assert.False(t, b.Visible())
}

func TestLoadMessages(t *testing.T) {
	assert.Equal(t, MsgNoConfig, LoadMessage(session.ErrNoConfig))
	assert.Equal(t, MsgAuthFailed, LoadMessage(session.ErrAuthFailed))
	assert.Empty(t, LoadMessage(nil))
}

func TestRender(t *testing.T) {
	p := newPage(clockwork.NewFakeClock())
	p.SetFields(appointment.FormInput{ServiceType: "Outro", UserName: "<b>Ana</b>"})
	p.Load(session.ErrNoConfig)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, p.View(false)))
	html := buf.String()
	assert.Contains(t, html, MsgNoConfig)
	assert.Contains(t, html, `data-dismiss-ms="5000"`)
	assert.Contains(t, html, `<option value="Outro" selected>`)
	assert.Contains(t, html, "&lt;b&gt;Ana&lt;/b&gt;")
	assert.Contains(t, html, `min="08:00" max="18:00"`)
	assert.Contains(t, html, "Agendar Serviço</button>")
	assert.Contains(t, html, `id="submit" disabled`)
}
