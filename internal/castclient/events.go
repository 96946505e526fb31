package castclient

import (
	"context"
	"sync"
	"time"

	"jellycast.app/jellycast/internal/playback"
)

// statusPollInterval matches the cadence of receiver status pushes.
const statusPollInterval = 1 * time.Second

// eventHub turns the request/response status API into the push-style
// event streams the coordinator subscribes to. A single polling
// goroutine runs while at least one subscriber is registered.
type eventHub struct {
	client *Client

	mu           sync.Mutex
	nextID       int
	statusFns    map[int]func(playback.MediaStatus)
	progressFns  map[int]func(float64)
	cancel       context.CancelFunc
	lastPosition float64
	hasPosition  bool
}

func newEventHub(client *Client) *eventHub {
	return &eventHub{
		client:      client,
		statusFns:   make(map[int]func(playback.MediaStatus)),
		progressFns: make(map[int]func(float64)),
	}
}

type subscription struct {
	hub *eventHub
	id  int
}

func (s *subscription) Unsubscribe() {
	s.hub.remove(s.id)
}

func (h *eventHub) subscribeStatus(fn func(playback.MediaStatus)) playback.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.statusFns[h.nextID] = fn
	h.ensurePollingLocked()
	return &subscription{hub: h, id: h.nextID}
}

func (h *eventHub) subscribeProgress(fn func(float64)) playback.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.progressFns[h.nextID] = fn
	h.ensurePollingLocked()
	return &subscription{hub: h, id: h.nextID}
}

func (h *eventHub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.statusFns, id)
	delete(h.progressFns, id)
	if len(h.statusFns) == 0 && len(h.progressFns) == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// stop tears down the polling loop and drops all subscribers.
func (h *eventHub) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusFns = make(map[int]func(playback.MediaStatus))
	h.progressFns = make(map[int]func(float64))
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

func (h *eventHub) ensurePollingLocked() {
	if h.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.poll(ctx)
}

func (h *eventHub) poll(ctx context.Context) {
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !h.client.IsConnected() {
			continue
		}

		st, err := h.client.MediaStatus(ctx)
		if err != nil || st == nil {
			continue
		}

		h.dispatch(*st)
	}
}

func (h *eventHub) dispatch(st playback.MediaStatus) {
	h.mu.Lock()
	statusFns := make([]func(playback.MediaStatus), 0, len(h.statusFns))
	for _, fn := range h.statusFns {
		statusFns = append(statusFns, fn)
	}

	var progressFns []func(float64)
	if !h.hasPosition || st.StreamPosition != h.lastPosition {
		h.lastPosition = st.StreamPosition
		h.hasPosition = true
		progressFns = make([]func(float64), 0, len(h.progressFns))
		for _, fn := range h.progressFns {
			progressFns = append(progressFns, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range statusFns {
		fn(st)
	}
	for _, fn := range progressFns {
		fn(st.StreamPosition)
	}
}
