package jellyfin

import (
	"context"
	"net/http"

	"jellycast.app/jellycast/internal/playback"
)

// playstateBody is the payload of the Sessions/Playing endpoints.
// Positions are in server ticks (1 tick = 100ns).
type playstateBody struct {
	ItemID        string `json:"ItemId"`
	MediaSourceID string `json:"MediaSourceId,omitempty"`
	PlaySessionID string `json:"PlaySessionId,omitempty"`
	PositionTicks int64  `json:"PositionTicks"`
	IsPaused      bool   `json:"IsPaused"`
	CanSeek       bool   `json:"CanSeek"`
	PlayMethod    string `json:"PlayMethod"`
}

func playstateFromReport(report playback.PlaybackReport) playstateBody {
	return playstateBody{
		ItemID:        report.ItemID,
		MediaSourceID: report.MediaSourceID,
		PlaySessionID: report.SessionID,
		PositionTicks: playback.SecondsToTicks(report.PositionSeconds),
		IsPaused:      report.Paused,
		CanSeek:       true,
		PlayMethod:    "DirectStream",
	}
}

// ReportPlaybackStart tells the server a play session began, so the
// item shows as now playing and resume tracking starts.
func (c *Client) ReportPlaybackStart(ctx context.Context, report playback.PlaybackReport) error {
	c.Log().Debug().Str("ItemID", report.ItemID).Str("PlaySessionID", report.SessionID).Msg("reporting playback start")
	return c.do(ctx, http.MethodPost, "/Sessions/Playing", nil, playstateFromReport(report), nil)
}

// ReportPlaybackProgress updates the server's resume position.
func (c *Client) ReportPlaybackProgress(ctx context.Context, report playback.PlaybackReport) error {
	return c.do(ctx, http.MethodPost, "/Sessions/Playing/Progress", nil, playstateFromReport(report), nil)
}

// ReportPlaybackStopped closes the play session on the server.
func (c *Client) ReportPlaybackStopped(ctx context.Context, report playback.PlaybackReport) error {
	c.Log().Debug().Str("ItemID", report.ItemID).Str("PlaySessionID", report.SessionID).Msg("reporting playback stopped")
	return c.do(ctx, http.MethodPost, "/Sessions/Playing/Stopped", nil, playstateFromReport(report), nil)
}

var _ playback.MediaServer = (*Client)(nil)
