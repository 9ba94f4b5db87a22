package page

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DismissAfter is how long a banner stays up.
const DismissAfter = 5 * time.Second

type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerError   BannerKind = "error"
)

// Banner is the status message above the form. It hides itself DismissAfter
// after the last Show.
type Banner struct {
	clock clockwork.Clock

	mu      sync.Mutex
	visible bool
	kind    BannerKind
	message string
	timer   clockwork.Timer
}

func NewBanner(clock clockwork.Clock) *Banner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Banner{clock: clock}
}

func (b *Banner) Show(kind BannerKind, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.visible = true
	b.kind = kind
	b.message = message

	var t clockwork.Timer
	t = b.clock.AfterFunc(DismissAfter, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.timer == t {
			b.hideLocked()
		}
	})
	b.timer = t
}

// Close hides the banner right away.
func (b *Banner) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.hideLocked()
}

func (b *Banner) hideLocked() {
	b.visible = false
	b.message = ""
	b.kind = ""
	b.timer = nil
}

func (b *Banner) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}

func (b *Banner) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.message
}

func (b *Banner) Kind() BannerKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kind
}
