package playback

// attachListeners subscribes to the current remote client's status
// and progress streams. Both fold into the same status store, so the
// UI observes one snapshot regardless of the update source.
func (c *Coordinator) attachListeners() {
	client := c.session.Client()
	if client == nil {
		return
	}

	statusSub := client.OnMediaStatusUpdated(c.onMediaStatus)
	progressSub := client.OnMediaProgressUpdated(c.onMediaProgress)

	c.mu.Lock()
	c.subs = append(c.subs, statusSub, progressSub)
	c.mu.Unlock()
}

// detachListeners unsubscribes all active device event streams.
func (c *Coordinator) detachListeners() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (c *Coordinator) onMediaProgress(positionSeconds float64) {
	c.status.Apply(Patch{StreamPosition: floatPtr(positionSeconds)})
	c.reporter.observe(positionSeconds, c.status.Snapshot().IsPlaying)
}

// onMediaStatus folds a device-pushed status payload into the
// snapshot. Player state mapping: PLAYING and PAUSED are settled
// states, BUFFERING and anything unrecognized count as busy, IDLE
// means stopped.
func (c *Coordinator) onMediaStatus(st MediaStatus) {
	patch := Patch{
		IsMediaTrackInfoAvailable: boolPtr(len(st.MediaTracks) > 0),
	}

	switch st.PlayerState {
	case "PLAYING":
		patch.IsPlaying = boolPtr(true)
		patch.IsBusy = boolPtr(false)
		patch.IsStopped = boolPtr(false)
	case "PAUSED":
		patch.IsPlaying = boolPtr(false)
		patch.IsBusy = boolPtr(false)
		patch.IsStopped = boolPtr(false)
	case "IDLE":
		patch.IsStopped = boolPtr(true)
		patch.IsPlaying = boolPtr(false)
	default:
		// BUFFERING or an unknown/absent state.
		patch.IsBusy = boolPtr(true)
	}

	if st.StreamPosition > 0 {
		patch.StreamPosition = floatPtr(st.StreamPosition)
	}
	if st.StreamDuration > 0 {
		patch.MaxPosition = floatPtr(st.StreamDuration)
	}

	cur := c.status.Apply(patch)
	c.reporter.observe(cur.StreamPosition, cur.IsPlaying)
}
