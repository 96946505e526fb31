package playback

import "context"

// DeviceIDLocal is the reserved id for playback on this device.
const DeviceIDLocal = "local"

// CapabilityVideoOut marks devices that can render video. Only devices
// advertising it are selectable as cast targets.
const CapabilityVideoOut = "video_out"

// MediaItem is the subset of a media-server library item the
// coordinator needs to start playback.
type MediaItem struct {
	ID            string
	Name          string
	MediaSourceID string
	ContentType   string
	// PositionTicks is the saved resume position in server ticks
	// (1 tick = 100ns, 10,000,000 ticks = 1s).
	PositionTicks int64
	RuntimeTicks  int64
}

// SubtitleStream is server-side subtitle track metadata.
type SubtitleStream struct {
	Index        int
	Language     string
	DisplayTitle string
	Codec        string
	IsDefault    bool
	IsForced     bool
	IsExternal   bool
}

// PlaybackReport carries playback state to the media server's
// session-reporting endpoints.
type PlaybackReport struct {
	ItemID          string
	MediaSourceID   string
	SessionID       string
	PositionSeconds float64
	Paused          bool
}

// MediaServer is the media-server client surface consumed by the
// coordinator. Implemented by internal/jellyfin.
type MediaServer interface {
	StreamURL(item MediaItem) (string, error)
	ImageURL(itemID string) string
	SubtitleStreams(ctx context.Context, item MediaItem) ([]SubtitleStream, error)
	// SubtitleURL points at the stream's content in a device-playable
	// text format, fetchable without auth headers.
	SubtitleURL(item MediaItem, streamIndex int) string
	ReportPlaybackStart(ctx context.Context, report PlaybackReport) error
	ReportPlaybackProgress(ctx context.Context, report PlaybackReport) error
	ReportPlaybackStopped(ctx context.Context, report PlaybackReport) error
}

// MediaTrack is a device-reported track descriptor.
type MediaTrack struct {
	ID       int
	Name     string
	Type     string // "TEXT", "AUDIO", "VIDEO"
	Language string
	// ContentURL points at out-of-band track content (e.g. a WebVTT
	// file) when the track is delivered separately from the stream.
	ContentURL string
}

// MediaMetadata is the display metadata sent with a load request.
type MediaMetadata struct {
	Title    string
	ImageURL string
}

// LoadRequest describes media to load on a remote device.
type LoadRequest struct {
	ContentURL  string
	ContentType string
	Autoplay    bool
	Metadata    MediaMetadata
	Tracks      []MediaTrack
}

// MediaStatus is the device-reported playback status.
type MediaStatus struct {
	PlayerState    string // "PLAYING", "PAUSED", "BUFFERING", "IDLE" or ""
	StreamPosition float64
	StreamDuration float64
	MediaTracks    []MediaTrack
	ActiveTrackIDs []int
}

// Subscription is a disposable handle to a device event stream.
type Subscription interface {
	Unsubscribe()
}

// RemoteClient is the remote-control handle to a connected cast
// device. Implemented by internal/castclient.
type RemoteClient interface {
	LoadMedia(ctx context.Context, req LoadRequest) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	Seek(ctx context.Context, positionSeconds float64) error
	MediaStatus(ctx context.Context) (*MediaStatus, error)
	StreamPosition(ctx context.Context) (float64, error)
	SetActiveTrackIDs(ctx context.Context, trackIDs []int) error
	OnMediaStatusUpdated(fn func(MediaStatus)) Subscription
	OnMediaProgressUpdated(fn func(positionSeconds float64)) Subscription
}

// Device is a discovered remote playback target.
type Device struct {
	ID           string
	FriendlyName string
	Capabilities []string
}

// HasCapability reports whether the device advertises the capability.
func (d Device) HasCapability(capability string) bool {
	for _, c := range d.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// DeviceLister exposes the currently discovered devices.
type DeviceLister interface {
	Devices() []Device
}

// SessionManager owns the lifecycle of the single active remote
// session and its client handle.
type SessionManager interface {
	StartSession(ctx context.Context, deviceID string) error
	EndCurrentSession(ctx context.Context) error
	// Client returns the current remote client, or nil when no remote
	// session is active.
	Client() RemoteClient
}

// Notifier is the user-visible toast surface. Calls are fire and
// forget; no coordinator logic depends on delivery.
type Notifier interface {
	Error(msg string, err error)
	Info(msg string)
}
