// Package castclient wraps go-chromecast to provide the remote-control
// client surface the playback coordinator consumes.
package castclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vishen/go-chromecast/application"
	"github.com/vishen/go-chromecast/cast"

	"jellycast.app/jellycast/internal/playback"
)

const (
	// defaultCastPort is the Chromecast control port.
	defaultCastPort = 8009

	connectionRetries = 5
	transportRetries  = 8
)

// Client wraps a go-chromecast Application for a single device connection.
type Client struct {
	app         *application.Application
	conn        cast.Conn // kept for custom commands the library does not expose
	mu          sync.RWMutex
	host        string
	port        int
	connected   bool
	Logger      zerolog.Logger
	LogOutput   io.Writer
	initLogOnce sync.Once

	// Track state from the last load; the receiver does not echo
	// out-of-band tracks back in its media status.
	loadedTracks   []playback.MediaTrack
	activeTrackIDs []int

	hub *eventHub
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (c *Client) Log() *zerolog.Logger {
	if c.LogOutput != nil {
		c.initLogOnce.Do(func() {
			c.Logger = zerolog.New(c.LogOutput).With().Timestamp().Logger()
		})
	}
	return &c.Logger
}

// NewClient builds a client for the device at host:port. Port zero
// selects the default Chromecast port.
func NewClient(host string, port int) *Client {
	if port == 0 {
		port = defaultCastPort
	}

	conn := cast.NewConnection()
	app := application.NewApplication(
		application.WithConnection(conn),
		application.WithConnectionRetries(connectionRetries),
	)

	c := &Client{
		app:  app,
		conn: conn,
		host: host,
		port: port,
	}
	c.hub = newEventHub(c)
	return c
}

// Connect establishes the device connection. The library retries
// internally on connection failures.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Log().Debug().Str("Method", "Connect").Str("Host", c.host).Int("Port", c.port).Msg("connecting")
	if err := c.app.Start(c.host, c.port); err != nil {
		c.Log().Error().Str("Method", "Connect").Err(err).Msg("connection failed")
		return fmt.Errorf("cast connect: %w", err)
	}
	c.connected = true
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Host returns the device host.
func (c *Client) Host() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.host
}

// Close disconnects from the device and stops event polling.
func (c *Client) Close(stopMedia bool) error {
	c.hub.stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if err := c.app.Close(stopMedia); err != nil {
		c.Log().Error().Str("Method", "Close").Err(err).Msg("failed")
		return fmt.Errorf("cast close: %w", err)
	}
	return nil
}

// isTimeoutError checks for timeout/deadline errors; these typically
// mean the TV needs to wake from sleep.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// transportID waits for the media receiver's transport id, retrying
// with backoff while the receiver app spins up.
func (c *Client) transportID() (string, error) {
	for i := 0; i < transportRetries; i++ {
		if !c.IsConnected() {
			return "", errors.New("connection closed")
		}

		if err := c.app.Update(); err != nil {
			c.Log().Debug().Str("Method", "transportID").Int("Attempt", i+1).Err(err).Msg("app.Update retry")
			time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
			continue
		}
		app := c.app.App()
		if app != nil && app.TransportId != "" {
			return app.TransportId, nil
		}
		time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
	}
	return "", errors.New("failed to get transport ID after retries")
}

// LoadMedia launches the default receiver and sends a custom LOAD
// command carrying metadata and any out-of-band tracks.
func (c *Client) LoadMedia(ctx context.Context, req playback.LoadRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.IsConnected() {
		c.Log().Debug().Str("Method", "LoadMedia").Msg("connection closed, reconnecting")
		if err := c.Connect(); err != nil {
			return fmt.Errorf("reconnect before load: %w", err)
		}
	}

	c.Log().Debug().Str("Method", "LoadMedia").Str("URL", req.ContentURL).Str("ContentType", req.ContentType).Bool("Autoplay", req.Autoplay).Msg("loading media")

	if err := launchDefaultReceiver(c.conn); err != nil {
		if isTimeoutError(err) {
			c.Log().Debug().Str("Method", "LoadMedia").Err(err).Msg("timeout, TV may be waking up, retrying once")
			time.Sleep(4 * time.Second)
			if err = launchDefaultReceiver(c.conn); err != nil {
				return fmt.Errorf("launch receiver: %w", err)
			}
		} else {
			return fmt.Errorf("launch receiver: %w", err)
		}
	}

	transportID, err := c.transportID()
	if err != nil {
		return err
	}

	if err := sendLoad(c.conn, transportID, req); err != nil {
		c.Log().Error().Str("Method", "LoadMedia").Err(err).Msg("load failed")
		return err
	}

	c.mu.Lock()
	c.loadedTracks = req.Tracks
	c.activeTrackIDs = nil
	c.mu.Unlock()

	return nil
}

// Play resumes playback.
func (c *Client) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Log().Debug().Str("Method", "Play").Msg("resuming playback")
	if err := c.app.Unpause(); err != nil {
		c.Log().Error().Str("Method", "Play").Err(err).Msg("failed")
		return err
	}
	return nil
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Log().Debug().Str("Method", "Pause").Msg("pausing playback")
	if err := c.app.Pause(); err != nil {
		c.Log().Error().Str("Method", "Pause").Err(err).Msg("failed")
		return err
	}
	return nil
}

// Stop stops playback and closes the media session.
func (c *Client) Stop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Log().Debug().Str("Method", "Stop").Msg("stopping playback")
	if err := c.app.Stop(); err != nil {
		c.Log().Error().Str("Method", "Stop").Err(err).Msg("failed")
		return err
	}
	return nil
}

// Seek seeks to a position in seconds from the start.
func (c *Client) Seek(ctx context.Context, positionSeconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Log().Debug().Str("Method", "Seek").Float64("Seconds", positionSeconds).Msg("seeking")
	if err := c.app.SeekFromStart(int(positionSeconds)); err != nil {
		c.Log().Error().Str("Method", "Seek").Err(err).Msg("failed")
		return err
	}
	return nil
}

// MediaStatus requests fresh status from the device and maps it to
// the coordinator's status shape.
func (c *Client) MediaStatus(ctx context.Context) (*playback.MediaStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.app.Update(); err != nil {
		c.Log().Error().Str("Method", "MediaStatus").Err(err).Msg("app.Update failed")
		return nil, err
	}

	_, media, _ := c.app.Status()

	c.mu.RLock()
	tracks := c.loadedTracks
	active := c.activeTrackIDs
	c.mu.RUnlock()

	status := &playback.MediaStatus{
		MediaTracks:    tracks,
		ActiveTrackIDs: active,
	}
	if media == nil {
		status.PlayerState = "IDLE"
		return status, nil
	}

	status.PlayerState = media.PlayerState
	status.StreamPosition = float64(media.CurrentTime)
	if media.Media.Duration > 0 {
		status.StreamDuration = float64(media.Media.Duration)
	}
	return status, nil
}

// StreamPosition returns the current playback position in seconds.
func (c *Client) StreamPosition(ctx context.Context) (float64, error) {
	st, err := c.MediaStatus(ctx)
	if err != nil {
		return 0, err
	}
	return st.StreamPosition, nil
}

// SetActiveTrackIDs activates the given track ids on the running
// media session. An empty list disables all tracks.
func (c *Client) SetActiveTrackIDs(ctx context.Context, trackIDs []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.app.Update(); err != nil {
		return fmt.Errorf("refresh media session: %w", err)
	}
	_, media, _ := c.app.Status()
	if media == nil {
		return errors.New("no active media session")
	}

	transportID, err := c.transportID()
	if err != nil {
		return err
	}

	if err := sendEditTracksInfo(c.conn, transportID, media.MediaSessionId, trackIDs); err != nil {
		c.Log().Error().Str("Method", "SetActiveTrackIDs").Err(err).Msg("failed")
		return err
	}

	c.mu.Lock()
	c.activeTrackIDs = trackIDs
	c.mu.Unlock()
	return nil
}

// OnMediaStatusUpdated registers a callback for device status pushes.
func (c *Client) OnMediaStatusUpdated(fn func(playback.MediaStatus)) playback.Subscription {
	return c.hub.subscribeStatus(fn)
}

// OnMediaProgressUpdated registers a callback for playback progress.
func (c *Client) OnMediaProgressUpdated(fn func(float64)) playback.Subscription {
	return c.hub.subscribeProgress(fn)
}
