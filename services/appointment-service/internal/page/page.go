// Package page holds the state of the appointment form: the fields, the
// submit control and the status banner.
package page

import (
	"context"
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/pubike/pubike/services/appointment-service/internal/appointment"
	"github.com/pubike/pubike/services/appointment-service/internal/model"
	"github.com/pubike/pubike/services/appointment-service/internal/session"
)

const (
	MsgNotReady   = "O sistema de agendamento não está pronto. Tente novamente."
	MsgValidation = "Por favor, preencha todos os campos obrigatórios."
	MsgWriteError = "Erro ao agendar. Por favor, verifique sua conexão."
	MsgNoConfig   = "Erro: Configuração do armazenamento não encontrada."
	MsgAuthFailed = "Erro ao conectar ao serviço de agendamento."
)

// SuccessMessage is the banner text shown after a stored request.
func SuccessMessage(code string) string {
	return "Serviço agendado com sucesso! Código: " + code + ". " + model.ServiceProvider + " entrará em contato."
}

// LoadMessage maps a session initialization error to the banner shown on load.
func LoadMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrNoConfig):
		return MsgNoConfig
	default:
		return MsgAuthFailed
	}
}

type Page struct {
	Button *SubmitButton
	Banner *Banner

	submitter *appointment.Submitter

	mu     sync.Mutex
	fields appointment.FormInput
}

func New(submitter *appointment.Submitter, clock clockwork.Clock) *Page {
	return &Page{
		Button:    &SubmitButton{},
		Banner:    NewBanner(clock),
		submitter: submitter,
	}
}

func (p *Page) Fields() appointment.FormInput {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fields
}

func (p *Page) SetFields(in appointment.FormInput) {
	p.mu.Lock()
	p.fields = in
	p.mu.Unlock()
}

// Load shows the banner for a failed session initialization, if any.
func (p *Page) Load(err error) {
	if msg := LoadMessage(err); msg != "" {
		p.Banner.Show(BannerError, msg)
	}
}

// Submit sends the current fields. It returns ErrBusy without side effects when a
// submission is already running. On success the fields are cleared; on any
// failure they are kept. The button is idle again when Submit returns.
func (p *Page) Submit(ctx context.Context, sess *session.Context) (appointment.Confirmation, error) {
	if !sess.Ready() {
		p.Banner.Show(BannerError, MsgNotReady)
		return appointment.Confirmation{}, appointment.ErrNotReady
	}
	fields := p.Fields()
	if err := appointment.Validate(fields.Normalize()); err != nil {
		p.Banner.Show(BannerError, MsgValidation)
		return appointment.Confirmation{}, err
	}

	if err := p.Button.Begin(); err != nil {
		return appointment.Confirmation{}, err
	}
	defer p.Button.End()

	conf, err := p.submitter.Submit(ctx, sess, fields)
	switch {
	case err == nil:
		p.SetFields(appointment.FormInput{})
		p.Banner.Show(BannerSuccess, SuccessMessage(conf.Code))
	case errors.Is(err, appointment.ErrNotReady):
		p.Banner.Show(BannerError, MsgNotReady)
	case appointment.IsValidation(err):
		p.Banner.Show(BannerError, MsgValidation)
	default:
		p.Banner.Show(BannerError, MsgWriteError)
	}
	return conf, err
}
