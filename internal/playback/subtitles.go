package playback

import "context"

// subtitleLanguage is the only language retained by the reconciler.
const subtitleLanguage = "eng"

// SubtitleTrack is a device track merged with its server-side
// metadata. ID is the device track id used for activation.
type SubtitleTrack struct {
	ID          int
	Name        string
	Language    string
	Codec       string
	IsDefault   bool
	IsForced    bool
	IsExternal  bool
	ServerIndex int
}

// matchTracks joins device-reported text tracks with server-side
// subtitle metadata. A device track matches the server track whose
// display title equals its name; a nameless device track falls back
// to the first server track flagged as forced. Unmatched device
// tracks are dropped, and only tracks resolving to the retained
// language survive.
func matchTracks(serverTracks []SubtitleStream, deviceTracks []MediaTrack) []SubtitleTrack {
	var merged []SubtitleTrack

	for _, dev := range deviceTracks {
		if dev.Type != "TEXT" {
			continue
		}

		match, ok := matchServerTrack(serverTracks, dev)
		if !ok {
			continue
		}
		if match.Language != subtitleLanguage {
			continue
		}

		name := dev.Name
		if name == "" {
			name = match.DisplayTitle
		}

		merged = append(merged, SubtitleTrack{
			ID:          dev.ID,
			Name:        name,
			Language:    match.Language,
			Codec:       match.Codec,
			IsDefault:   match.IsDefault,
			IsForced:    match.IsForced,
			IsExternal:  match.IsExternal,
			ServerIndex: match.Index,
		})
	}

	return merged
}

func matchServerTrack(serverTracks []SubtitleStream, dev MediaTrack) (SubtitleStream, bool) {
	if dev.Name == "" {
		for _, srv := range serverTracks {
			if srv.IsForced {
				return srv, true
			}
		}
		return SubtitleStream{}, false
	}

	for _, srv := range serverTracks {
		if srv.DisplayTitle == dev.Name {
			return srv, true
		}
	}
	return SubtitleStream{}, false
}

// SubtitleTracks returns the merged subtitle tracks for the loaded
// media. Failures are reported via toast and yield an empty list;
// this never fails loudly.
func (c *Coordinator) SubtitleTracks(ctx context.Context) []SubtitleTrack {
	client := c.session.Client()
	if client == nil {
		c.notify.Error(msgSubFetchFailed, errNoClient)
		return nil
	}

	st, err := client.MediaStatus(ctx)
	if err != nil {
		c.Log().Error().Err(err).Msg("media status fetch failed")
		c.notify.Error(msgSubFetchFailed, err)
		return nil
	}
	if st == nil {
		return nil
	}

	c.mu.Lock()
	serverTracks := c.serverTracks
	c.mu.Unlock()

	return matchTracks(serverTracks, st.MediaTracks)
}

// SetSubtitleTrack activates the given track on the device, or
// disables subtitles when track is nil. The locally held current
// track only moves on success, so a failure leaves state consistent
// with the last successful set.
func (c *Coordinator) SetSubtitleTrack(ctx context.Context, track *SubtitleTrack) {
	client := c.session.Client()
	if client == nil {
		c.notify.Error(msgSubSetFailed, errNoClient)
		return
	}

	trackIDs := []int{}
	if track != nil {
		trackIDs = []int{track.ID}
	}

	if err := client.SetActiveTrackIDs(ctx, trackIDs); err != nil {
		c.Log().Error().Err(err).Msg("set active tracks failed")
		c.notify.Error(msgSubSetFailed, err)
		return
	}

	c.mu.Lock()
	c.currentTrack = track
	c.mu.Unlock()
}
