package playback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errDevice = errors.New("device rejected the command")

func TestPauseOptimisticRevert(t *testing.T) {
	env := newTestEnv()
	env.coord.status.Apply(Patch{IsPlaying: boolPtr(true)})
	env.client.pauseErr = errDevice

	env.coord.Pause(context.Background())

	got := env.coord.Snapshot()
	require.True(t, got.IsPlaying, "failed pause must revert to playing")
	require.False(t, got.IsBusy)
	require.Equal(t, []string{msgPauseFailed}, env.notify.errorMessages())
}

func TestPauseSuccess(t *testing.T) {
	env := newTestEnv()
	env.coord.status.Apply(Patch{IsPlaying: boolPtr(true)})
	env.client.position = 123.4

	env.coord.Pause(context.Background())

	got := env.coord.Snapshot()
	require.False(t, got.IsPlaying)
	require.False(t, got.IsBusy)
	require.Equal(t, 123.4, got.StreamPosition)
	require.Equal(t, 1, env.client.pauseCalls)
	require.Empty(t, env.notify.errorMessages())
}

func TestResumeOptimisticRevert(t *testing.T) {
	env := newTestEnv()
	env.client.playErr = errDevice

	env.coord.Resume(context.Background())

	got := env.coord.Snapshot()
	require.False(t, got.IsPlaying, "failed resume must revert to paused")
	require.False(t, got.IsBusy)
	require.Equal(t, []string{msgResumeFailed}, env.notify.errorMessages())
}

func TestResumeSuccess(t *testing.T) {
	env := newTestEnv()

	env.coord.Resume(context.Background())

	got := env.coord.Snapshot()
	require.True(t, got.IsPlaying)
	require.False(t, got.IsBusy)
	require.Equal(t, 1, env.client.playCalls)
}

func TestSeekForwardDefaultOffset(t *testing.T) {
	env := newTestEnv()
	env.client.status = &MediaStatus{PlayerState: "PLAYING", StreamPosition: 100}

	env.coord.SeekForward(context.Background())

	pos, ok := env.client.lastSeek()
	require.True(t, ok)
	require.Equal(t, float64(130), pos)
	require.False(t, env.coord.Snapshot().IsBusy)
}

func TestSeekBackwardClampsToZero(t *testing.T) {
	env := newTestEnv()
	env.client.status = &MediaStatus{PlayerState: "PLAYING", StreamPosition: 5}

	env.coord.SeekBackwardBy(context.Background(), 15)

	pos, ok := env.client.lastSeek()
	require.True(t, ok)
	require.Equal(t, float64(0), pos)
}

func TestSeekForwardNoUpperClamp(t *testing.T) {
	env := newTestEnv()
	env.client.status = &MediaStatus{PlayerState: "PLAYING", StreamPosition: 100, StreamDuration: 110}

	env.coord.SeekForward(context.Background())

	pos, ok := env.client.lastSeek()
	require.True(t, ok)
	require.Equal(t, float64(130), pos, "over-seek is left to the device to reject")
}

func TestSeekRelativeNoStatusReturnsQuietly(t *testing.T) {
	env := newTestEnv()
	env.client.statusErr = errDevice

	env.coord.SeekForward(context.Background())

	_, ok := env.client.lastSeek()
	require.False(t, ok)
	require.False(t, env.coord.Snapshot().IsBusy)
	require.Empty(t, env.notify.errorMessages())
}

func TestSeekToPositionOptimistic(t *testing.T) {
	env := newTestEnv()

	env.coord.SeekToPosition(context.Background(), 777)

	got := env.coord.Snapshot()
	require.Equal(t, float64(777), got.StreamPosition)
	require.False(t, got.IsBusy)
	pos, ok := env.client.lastSeek()
	require.True(t, ok)
	require.Equal(t, float64(777), pos)
}

func TestSeekToPositionFailureKeepsPosition(t *testing.T) {
	env := newTestEnv()
	env.client.seekErr = errDevice

	env.coord.SeekToPosition(context.Background(), 777)

	got := env.coord.Snapshot()
	require.Equal(t, float64(777), got.StreamPosition, "optimistic position is not reverted")
	require.False(t, got.IsBusy)
	require.Equal(t, []string{msgSeekFailed}, env.notify.errorMessages())
}

func TestCastLoadsMediaWithMetadata(t *testing.T) {
	env := newTestEnv()

	env.coord.Cast(context.Background(), MediaItem{
		ID:          "test-item-id",
		Name:        "Test Movie",
		ContentType: "application/x-mpegURL",
	})

	require.Len(t, env.client.loadReqs, 1)
	req := env.client.loadReqs[0]
	require.True(t, req.Autoplay)
	require.Equal(t, "Test Movie", req.Metadata.Title)
	require.Contains(t, req.Metadata.ImageURL, "test-item-id")
	require.Equal(t, env.server.streamURL, req.ContentURL)
}

func TestCastShipsSubtitleTracks(t *testing.T) {
	env := newTestEnv()
	env.server.subtitles = []SubtitleStream{
		{Index: 2, Language: "eng", DisplayTitle: "English", IsExternal: true},
		{Index: 3, Language: "ger", DisplayTitle: "German"},
	}

	env.coord.Cast(context.Background(), MediaItem{ID: "item"})

	require.Len(t, env.client.loadReqs, 1)
	tracks := env.client.loadReqs[0].Tracks
	require.Len(t, tracks, 2)
	require.Equal(t, 2, tracks[0].ID)
	require.Equal(t, "English", tracks[0].Name)
	require.Equal(t, "TEXT", tracks[0].Type)
	require.Contains(t, tracks[0].ContentURL, "/Subtitles/2/")
}

func TestCastSeeksToSavedPosition(t *testing.T) {
	env := newTestEnv()

	env.coord.Cast(context.Background(), MediaItem{
		ID:            "item",
		PositionTicks: 12_345_000_000,
	})

	pos, ok := env.client.lastSeek()
	require.True(t, ok)
	require.Equal(t, 1234.5, pos)
}

func TestCastZeroPositionDoesNotSeek(t *testing.T) {
	env := newTestEnv()

	env.coord.Cast(context.Background(), MediaItem{ID: "item"})

	_, ok := env.client.lastSeek()
	require.False(t, ok)
}

func TestCastWithoutClientToasts(t *testing.T) {
	env := newTestEnv()
	env.session.client = nil

	env.coord.Cast(context.Background(), MediaItem{ID: "item"})

	require.Equal(t, []string{msgNoCastClient}, env.notify.errorMessages())
}

func TestCastStreamFailureToasts(t *testing.T) {
	env := newTestEnv()
	env.server.streamErr = errDevice

	env.coord.Cast(context.Background(), MediaItem{ID: "item"})

	require.Equal(t, []string{msgCastFailed}, env.notify.errorMessages())
	require.Empty(t, env.client.loadReqs)
}

func TestCastResetsSubtitleSelection(t *testing.T) {
	env := newTestEnv()
	env.coord.mu.Lock()
	env.coord.currentTrack = &SubtitleTrack{ID: 3}
	env.coord.mu.Unlock()

	env.coord.Cast(context.Background(), MediaItem{ID: "item"})

	require.Nil(t, env.coord.CurrentSubtitleTrack())
}

func TestCastReportsPlaybackStart(t *testing.T) {
	env := newTestEnv()

	env.coord.Cast(context.Background(), MediaItem{
		ID:            "item",
		MediaSourceID: "source",
		PositionTicks: 50_000_000,
	})

	require.Len(t, env.server.startReports, 1)
	report := env.server.startReports[0]
	require.Equal(t, "item", report.ItemID)
	require.Equal(t, "source", report.MediaSourceID)
	require.Equal(t, env.coord.SessionID(), report.SessionID)
	require.Equal(t, float64(5), report.PositionSeconds)
}

func TestStopFiresAndReports(t *testing.T) {
	env := newTestEnv()
	env.coord.Cast(context.Background(), MediaItem{ID: "item", MediaSourceID: "source"})

	env.coord.Stop(context.Background())

	require.Equal(t, 1, env.client.stopCalls)
	require.Len(t, env.server.stoppedReports, 1)
}

func TestStopFailureToasts(t *testing.T) {
	env := newTestEnv()
	env.client.stopErr = errDevice

	env.coord.Stop(context.Background())

	require.Equal(t, []string{msgStopFailed}, env.notify.errorMessages())
}

func TestOperationsWithoutClientToast(t *testing.T) {
	env := newTestEnv()
	env.session.client = nil
	ctx := context.Background()

	env.coord.Pause(ctx)
	env.coord.Resume(ctx)
	env.coord.SeekForward(ctx)
	env.coord.SeekToPosition(ctx, 10)
	env.coord.Stop(ctx)

	msgs := env.notify.errorMessages()
	require.Len(t, msgs, 5)
	for _, msg := range msgs {
		require.Equal(t, msgNoClient, msg)
	}
}
