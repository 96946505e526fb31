package castclient

import (
	"fmt"
	"sync/atomic"

	"github.com/vishen/go-chromecast/cast"

	"jellycast.app/jellycast/internal/playback"
)

const (
	// defaultReceiverAppID is the Chromecast Default Media Receiver.
	defaultReceiverAppID = "CC1AD845"

	senderID       = "sender-0"
	receiverID     = "receiver-0"
	namespaceRecv  = "urn:x-cast:com.google.cast.receiver"
	namespaceMedia = "urn:x-cast:com.google.cast.media"
)

// Request ID counter for Chromecast messages
var requestIDCounter int32

func nextRequestID() int {
	return int(atomic.AddInt32(&requestIDCounter, 1))
}

// mediaTrack is a track entry in a LOAD payload.
type mediaTrack struct {
	TrackID     int    `json:"trackId"`
	Type        string `json:"type"`
	SubType     string `json:"subtype,omitempty"`
	ContentID   string `json:"trackContentId,omitempty"`
	ContentType string `json:"trackContentType,omitempty"`
	Name        string `json:"name,omitempty"`
	Language    string `json:"language,omitempty"`
}

type mediaImage struct {
	URL string `json:"url"`
}

type mediaMeta struct {
	MetadataType int          `json:"metadataType"`
	Title        string       `json:"title,omitempty"`
	Images       []mediaImage `json:"images,omitempty"`
}

// mediaItemWithTracks extends the standard load media item with
// metadata images and subtitle tracks.
type mediaItemWithTracks struct {
	ContentID   string       `json:"contentId"`
	ContentType string       `json:"contentType"`
	StreamType  string       `json:"streamType"`
	Metadata    *mediaMeta   `json:"metadata,omitempty"`
	Tracks      []mediaTrack `json:"tracks,omitempty"`
}

// loadPayload is a LOAD command with tracks and metadata support,
// which the library's LoadMediaCommand does not carry.
type loadPayload struct {
	Type           string              `json:"type"`
	RequestID      int                 `json:"requestId"`
	Media          mediaItemWithTracks `json:"media"`
	CurrentTime    int                 `json:"currentTime"`
	Autoplay       bool                `json:"autoplay"`
	ActiveTrackIDs []int               `json:"activeTrackIds,omitempty"`
}

// SetRequestId implements cast.Payload.
func (p *loadPayload) SetRequestId(id int) {
	p.RequestID = id
}

// editTracksPayload switches the active tracks on a media session.
type editTracksPayload struct {
	Type           string `json:"type"`
	RequestID      int    `json:"requestId"`
	MediaSessionID int    `json:"mediaSessionId"`
	ActiveTrackIDs []int  `json:"activeTrackIds"`
}

// SetRequestId implements cast.Payload.
func (p *editTracksPayload) SetRequestId(id int) {
	p.RequestID = id
}

var (
	_ cast.Payload = (*loadPayload)(nil)
	_ cast.Payload = (*editTracksPayload)(nil)
)

// launchDefaultReceiver asks the device to start the Default Media
// Receiver without loading media, so a follow-up custom LOAD does not
// race a library-issued one.
func launchDefaultReceiver(conn cast.Conn) error {
	payload := &cast.LaunchRequest{
		PayloadHeader: cast.LaunchHeader,
		AppId:         defaultReceiverAppID,
	}

	requestID := nextRequestID()
	payload.SetRequestId(requestID)

	if err := conn.Send(requestID, payload, senderID, receiverID, namespaceRecv); err != nil {
		return fmt.Errorf("send launch: %w", err)
	}
	return nil
}

// sendLoad sends the custom LOAD command to the media receiver.
func sendLoad(conn cast.Conn, transportID string, req playback.LoadRequest) error {
	contentType := req.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}

	media := mediaItemWithTracks{
		ContentID:   req.ContentURL,
		ContentType: contentType,
		StreamType:  "BUFFERED",
	}

	if req.Metadata.Title != "" || req.Metadata.ImageURL != "" {
		meta := &mediaMeta{Title: req.Metadata.Title}
		if req.Metadata.ImageURL != "" {
			meta.Images = []mediaImage{{URL: req.Metadata.ImageURL}}
		}
		media.Metadata = meta
	}

	for _, track := range req.Tracks {
		media.Tracks = append(media.Tracks, mediaTrack{
			TrackID:     track.ID,
			Type:        track.Type,
			SubType:     "SUBTITLES",
			ContentID:   track.ContentURL,
			ContentType: "text/vtt",
			Name:        track.Name,
			Language:    track.Language,
		})
	}

	payload := &loadPayload{
		Type:     "LOAD",
		Media:    media,
		Autoplay: req.Autoplay,
	}

	requestID := nextRequestID()
	payload.SetRequestId(requestID)

	if err := conn.Send(requestID, payload, senderID, transportID, namespaceMedia); err != nil {
		return fmt.Errorf("send load: %w", err)
	}
	return nil
}

// sendEditTracksInfo sends an EDIT_TRACKS_INFO command for the
// running media session.
func sendEditTracksInfo(conn cast.Conn, transportID string, mediaSessionID int, trackIDs []int) error {
	if trackIDs == nil {
		trackIDs = []int{}
	}

	payload := &editTracksPayload{
		Type:           "EDIT_TRACKS_INFO",
		MediaSessionID: mediaSessionID,
		ActiveTrackIDs: trackIDs,
	}

	requestID := nextRequestID()
	payload.SetRequestId(requestID)

	if err := conn.Send(requestID, payload, senderID, transportID, namespaceMedia); err != nil {
		return fmt.Errorf("send edit tracks info: %w", err)
	}
	return nil
}
