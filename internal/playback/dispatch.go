package playback

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Toast messages are fixed per operation so failures stay
// recognizable regardless of the underlying error.
const (
	msgNoCastClient    = "Cannot cast; no client available."
	msgNoClient        = "No cast client available."
	msgCastFailed      = "Failed to cast."
	msgPauseFailed     = "Failed to pause."
	msgResumeFailed    = "Failed to resume."
	msgSeekFwdFailed   = "Failed to seek forward."
	msgSeekBackFailed  = "Failed to seek backward."
	msgSeekFailed      = "Failed to seek."
	msgStopFailed      = "Failed to stop."
	msgSubSetFailed    = "Failed to set subtitle track."
	msgSubFetchFailed  = "Failed to get subtitle tracks."
	msgSelectDevFailed = "Failed to select device."
)

var errNoClient = errors.New("no remote client available")

// Cast loads the item on the selected remote device. Any failure is
// terminal here: it is reported via toast and never returned.
func (c *Coordinator) Cast(ctx context.Context, item MediaItem) {
	client := c.session.Client()
	if client == nil {
		c.notify.Error(msgNoCastClient, errNoClient)
		return
	}

	c.resetSession()

	var (
		streamURL string
		tracks    []SubtitleStream
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		streamURL, err = c.server.StreamURL(item)
		return err
	})
	g.Go(func() error {
		var err error
		tracks, err = c.server.SubtitleStreams(gctx, item)
		return err
	})
	if err := g.Wait(); err != nil {
		c.Log().Error().Err(err).Str("ItemID", item.ID).Msg("stream resolution failed")
		c.notify.Error(msgCastFailed, err)
		return
	}

	req := LoadRequest{
		ContentURL:  streamURL,
		ContentType: item.ContentType,
		Autoplay:    true,
		Metadata: MediaMetadata{
			Title:    item.Name,
			ImageURL: c.server.ImageURL(item.ID),
		},
	}
	// Ship subtitle streams as out-of-band text tracks so the device
	// can report and activate them later. The server index doubles as
	// the device track id.
	for _, track := range tracks {
		req.Tracks = append(req.Tracks, MediaTrack{
			ID:         track.Index,
			Name:       track.DisplayTitle,
			Type:       "TEXT",
			Language:   track.Language,
			ContentURL: c.server.SubtitleURL(item, track.Index),
		})
	}

	if err := client.LoadMedia(ctx, req); err != nil {
		c.Log().Error().Err(err).Str("ItemID", item.ID).Msg("load media failed")
		c.notify.Error(msgCastFailed, err)
		return
	}

	// Resume from the saved server position, converted from ticks.
	if item.PositionTicks > 0 {
		if err := client.Seek(ctx, TicksToSeconds(item.PositionTicks)); err != nil {
			c.Log().Error().Err(err).Msg("resume seek failed")
			c.notify.Error(msgCastFailed, err)
			return
		}
	}

	c.mu.Lock()
	itemCopy := item
	c.currentItem = &itemCopy
	c.serverTracks = tracks
	c.currentTrack = nil
	sessionID := c.sessionID
	c.mu.Unlock()

	report := PlaybackReport{
		ItemID:          item.ID,
		MediaSourceID:   item.MediaSourceID,
		SessionID:       sessionID,
		PositionSeconds: TicksToSeconds(item.PositionTicks),
	}
	if err := c.server.ReportPlaybackStart(ctx, report); err != nil {
		// Reporting is advisory; playback already started.
		c.Log().Warn().Err(err).Msg("playback start report failed")
	}
}

// Pause pauses remote playback, optimistically flipping the snapshot
// first and reverting if the device call fails.
func (c *Coordinator) Pause(ctx context.Context) {
	client := c.session.Client()
	if client == nil {
		c.notify.Error(msgNoClient, errNoClient)
		return
	}

	patch := Patch{IsPlaying: boolPtr(false), IsBusy: boolPtr(true)}
	if pos, err := client.StreamPosition(ctx); err == nil {
		patch.StreamPosition = floatPtr(pos)
	}
	c.status.Apply(patch)

	if err := client.Pause(ctx); err != nil {
		c.Log().Error().Err(err).Msg("pause failed")
		c.notify.Error(msgPauseFailed, err)
		c.status.Apply(Patch{IsPlaying: boolPtr(true), IsBusy: boolPtr(false)})
		return
	}
	c.status.Apply(Patch{IsBusy: boolPtr(false)})
}

// Resume resumes remote playback, symmetric to Pause.
func (c *Coordinator) Resume(ctx context.Context) {
	client := c.session.Client()
	if client == nil {
		c.notify.Error(msgNoClient, errNoClient)
		return
	}

	c.status.Apply(Patch{IsPlaying: boolPtr(true), IsBusy: boolPtr(true)})

	if err := client.Play(ctx); err != nil {
		c.Log().Error().Err(err).Msg("resume failed")
		c.notify.Error(msgResumeFailed, err)
		c.status.Apply(Patch{IsPlaying: boolPtr(false), IsBusy: boolPtr(false)})
		return
	}
	c.status.Apply(Patch{IsBusy: boolPtr(false)})
}

// Stop fires a stop command at the remote client. The snapshot is not
// touched; the device-pushed idle status will reflect the stop.
func (c *Coordinator) Stop(ctx context.Context) {
	client := c.session.Client()
	if client == nil {
		c.notify.Error(msgNoClient, errNoClient)
		return
	}

	if err := client.Stop(ctx); err != nil {
		c.Log().Error().Err(err).Msg("stop failed")
		c.notify.Error(msgStopFailed, err)
		return
	}

	if report, ok := c.currentReport(c.status.Snapshot().StreamPosition, true); ok {
		if err := c.server.ReportPlaybackStopped(ctx, report); err != nil {
			c.Log().Warn().Err(err).Msg("playback stopped report failed")
		}
	}
}

// SeekForward skips ahead by the default amount.
func (c *Coordinator) SeekForward(ctx context.Context) {
	c.SeekForwardBy(ctx, DefaultSeekForward)
}

// SeekForwardBy skips ahead by the given amount of seconds. The new
// position is not clamped to the duration; an over-seek is the
// device's to reject.
func (c *Coordinator) SeekForwardBy(ctx context.Context, seconds float64) {
	c.seekRelative(ctx, seconds, msgSeekFwdFailed)
}

// SeekBackward skips back by the default amount.
func (c *Coordinator) SeekBackward(ctx context.Context) {
	c.SeekBackwardBy(ctx, DefaultSeekBackward)
}

// SeekBackwardBy skips back by the given amount of seconds, clamped
// at the start of the media.
func (c *Coordinator) SeekBackwardBy(ctx context.Context, seconds float64) {
	c.seekRelative(ctx, -seconds, msgSeekBackFailed)
}

func (c *Coordinator) seekRelative(ctx context.Context, offset float64, failMsg string) {
	client := c.session.Client()
	if client == nil {
		c.notify.Error(msgNoClient, errNoClient)
		return
	}

	c.status.Apply(Patch{IsBusy: boolPtr(true)})

	st, err := client.MediaStatus(ctx)
	if err != nil || st == nil {
		c.status.Apply(Patch{IsBusy: boolPtr(false)})
		return
	}

	newPos := st.StreamPosition + offset
	if newPos < 0 {
		newPos = 0
	}

	if err := client.Seek(ctx, newPos); err != nil {
		c.Log().Error().Err(err).Float64("Position", newPos).Msg("seek failed")
		c.notify.Error(failMsg, err)
		c.status.Apply(Patch{IsBusy: boolPtr(false)})
		return
	}
	c.status.Apply(Patch{IsBusy: boolPtr(false)})
}

// SeekToPosition seeks to an absolute position in seconds. The
// position is applied optimistically and not reverted on failure; a
// later status event corrects it.
func (c *Coordinator) SeekToPosition(ctx context.Context, position float64) {
	client := c.session.Client()
	if client == nil {
		c.notify.Error(msgNoClient, errNoClient)
		return
	}

	c.status.Apply(Patch{StreamPosition: floatPtr(position), IsBusy: boolPtr(true)})

	if err := client.Seek(ctx, position); err != nil {
		c.Log().Error().Err(err).Float64("Position", position).Msg("seek to position failed")
		c.notify.Error(msgSeekFailed, err)
	}
	c.status.Apply(Patch{IsBusy: boolPtr(false)})
}
