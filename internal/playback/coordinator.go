package playback

import (
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultSeekForward is the forward skip applied when no amount is given.
	DefaultSeekForward = 30.0
	// DefaultSeekBackward is the backward skip applied when no amount is given.
	DefaultSeekBackward = 10.0

	// deviceSettleDelay gives the casting library time to finish
	// asynchronous session establishment after a session start.
	deviceSettleDelay = 1 * time.Second

	// TicksPerSecond is the media server's playback-position unit:
	// 1 tick = 100ns.
	TicksPerSecond = 10_000_000
)

// Coordinator unifies local and remote playback state. It owns the
// status snapshot, the selected device, the playback session id and
// the current subtitle track. There is exactly one instance per
// application session, injected into consumers.
type Coordinator struct {
	status  *StatusStore
	server  MediaServer
	session SessionManager
	lister  DeviceLister
	notify  Notifier

	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once

	settleDelay time.Duration
	reporter    *progressReporter

	mu               sync.Mutex
	selectedDeviceID string
	sessionID        string
	currentItem      *MediaItem
	serverTracks     []SubtitleStream
	currentTrack     *SubtitleTrack
	subs             []Subscription
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSettleDelay overrides the post-session-start settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.settleDelay = d }
}

// WithLogOutput directs coordinator logs to w.
func WithLogOutput(w io.Writer) Option {
	return func(c *Coordinator) { c.LogOutput = w }
}

// New builds a coordinator around the injected collaborators.
func New(server MediaServer, session SessionManager, lister DeviceLister, notify Notifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		status:           NewStatusStore(),
		server:           server,
		session:          session,
		lister:           lister,
		notify:           notify,
		settleDelay:      deviceSettleDelay,
		selectedDeviceID: DeviceIDLocal,
		sessionID:        uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reporter = newProgressReporter(c)
	return c
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (c *Coordinator) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Logger()
		})
	}
	return &c.Logger
}

// Snapshot returns the current playback status.
func (c *Coordinator) Snapshot() Status {
	return c.status.Snapshot()
}

// SelectedDeviceID returns the current playback target id.
func (c *Coordinator) SelectedDeviceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedDeviceID
}

// Connected reports whether a remote client handle is available.
func (c *Coordinator) Connected() bool {
	return c.session.Client() != nil
}

// SessionID returns the opaque id of the current playback session.
func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// CurrentSubtitleTrack returns the last successfully set subtitle
// track, or nil when none is active.
func (c *Coordinator) CurrentSubtitleTrack() *SubtitleTrack {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTrack
}

// Close detaches event listeners and releases the coordinator.
func (c *Coordinator) Close() {
	c.detachListeners()
}

// resetSession generates a fresh playback session id and clears
// per-item track state. Called on every cast and device change.
func (c *Coordinator) resetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = uuid.NewString()
	c.currentItem = nil
	c.serverTracks = nil
	c.currentTrack = nil
}

func (c *Coordinator) currentReport(position float64, paused bool) (PlaybackReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentItem == nil {
		return PlaybackReport{}, false
	}
	return PlaybackReport{
		ItemID:          c.currentItem.ID,
		MediaSourceID:   c.currentItem.MediaSourceID,
		SessionID:       c.sessionID,
		PositionSeconds: position,
		Paused:          paused,
	}, true
}

// TicksToSeconds converts server ticks (100ns units) to seconds.
func TicksToSeconds(ticks int64) float64 {
	return float64(ticks) / TicksPerSecond
}

// SecondsToTicks converts seconds to server ticks.
func SecondsToTicks(seconds float64) int64 {
	return int64(seconds * TicksPerSecond)
}
