package page

import (
	"errors"
	"sync"
)

// ErrBusy is returned by Begin while a submission is in flight.
var ErrBusy = errors.New("page: submission already in progress")

type ButtonState int

const (
	Idle ButtonState = iota
	Submitting
)

const (
	LabelIdle       = "Agendar Serviço"
	LabelSubmitting = "Agendando..."
)

// SubmitButton guards against duplicate submissions.
type SubmitButton struct {
	mu    sync.Mutex
	state ButtonState
}

func (b *SubmitButton) Begin() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Submitting {
		return ErrBusy
	}
	b.state = Submitting
	return nil
}

func (b *SubmitButton) End() {
	b.mu.Lock()
	b.state = Idle
	b.mu.Unlock()
}

func (b *SubmitButton) State() ButtonState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *SubmitButton) Label() string {
	if b.State() == Submitting {
		return LabelSubmitting
	}
	return LabelIdle
}

func (b *SubmitButton) Disabled() bool {
	return b.State() == Submitting
}
