// Package toast holds the transient user-facing notification surface.
// Toasts are fire and forget: emitting never blocks and no caller
// logic depends on delivery.
package toast

import (
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDuration is how long a toast stays visible before it
// dismisses itself.
const DefaultDuration = 5 * time.Second

// Toast is a single transient message.
type Toast struct {
	Message string
	IsError bool
}

// Toaster collects toasts and exposes the currently visible one. A new
// toast supersedes the visible one immediately. Implements the
// coordinator's Notifier.
type Toaster struct {
	Duration  time.Duration
	Logger    zerolog.Logger
	LogOutput io.Writer

	initLogOnce sync.Once

	mu      sync.Mutex
	current *Toast
	seq     int
	subs    map[int]chan Toast
	nextSub int
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (t *Toaster) Log() *zerolog.Logger {
	if t.LogOutput != nil {
		t.initLogOnce.Do(func() {
			t.Logger = zerolog.New(t.LogOutput).With().Timestamp().Logger()
		})
	}
	return &t.Logger
}

// New returns a toaster with the default display duration.
func New() *Toaster {
	return &Toaster{
		Duration: DefaultDuration,
		subs:     make(map[int]chan Toast),
	}
}

// Error shows an error toast. The message is the user-facing text; the
// underlying error only goes to the log.
func (t *Toaster) Error(msg string, err error) {
	t.Log().Error().Err(err).Msg(msg)
	t.emit(Toast{Message: msg, IsError: true})
}

// Info shows an informational toast.
func (t *Toaster) Info(msg string) {
	t.Log().Info().Msg(msg)
	t.emit(Toast{Message: msg})
}

// Current returns the toast on display, or nil when none is visible.
func (t *Toaster) Current() *Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Subscribe returns a channel receiving every new toast and a cancel
// function. Slow receivers miss toasts instead of blocking emitters.
func (t *Toaster) Subscribe() (<-chan Toast, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextSub++
	id := t.nextSub
	ch := make(chan Toast, 8)
	t.subs[id] = ch

	return ch, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

func (t *Toaster) emit(toast Toast) {
	t.mu.Lock()
	t.seq++
	seq := t.seq
	t.current = &toast
	duration := t.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}
	for _, ch := range t.subs {
		select {
		case ch <- toast:
		default:
		}
	}
	t.mu.Unlock()

	time.AfterFunc(duration, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		// A newer toast superseded this one; leave it alone.
		if t.seq != seq {
			return
		}
		t.current = nil
	})
}
