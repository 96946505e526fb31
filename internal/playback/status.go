package playback

import "sync"

// Status is the current playback snapshot for the active session.
// Positions and durations are in seconds.
type Status struct {
	IsPlaying                 bool
	IsBusy                    bool
	IsStopped                 bool
	IsMediaTrackInfoAvailable bool
	StreamPosition            float64
	MaxPosition               float64
}

// Patch is a partial Status update. Nil fields are left untouched,
// so a patch never replaces the snapshot wholesale.
type Patch struct {
	IsPlaying                 *bool
	IsBusy                    *bool
	IsStopped                 *bool
	IsMediaTrackInfoAvailable *bool
	StreamPosition            *float64
	MaxPosition               *float64
}

// StatusStore holds the shared playback snapshot. All mutations go
// through Apply, which is the single serialization point for updates
// coming from both user commands and device-pushed events.
type StatusStore struct {
	mu  sync.RWMutex
	cur Status
}

// NewStatusStore returns a store with a zero snapshot.
func NewStatusStore() *StatusStore {
	return &StatusStore{}
}

// Apply merges the patch into the current snapshot and returns the result.
func (s *StatusStore) Apply(p Patch) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IsPlaying != nil {
		s.cur.IsPlaying = *p.IsPlaying
	}
	if p.IsBusy != nil {
		s.cur.IsBusy = *p.IsBusy
	}
	if p.IsStopped != nil {
		s.cur.IsStopped = *p.IsStopped
	}
	if p.IsMediaTrackInfoAvailable != nil {
		s.cur.IsMediaTrackInfoAvailable = *p.IsMediaTrackInfoAvailable
	}
	if p.StreamPosition != nil {
		s.cur.StreamPosition = *p.StreamPosition
	}
	if p.MaxPosition != nil {
		s.cur.MaxPosition = *p.MaxPosition
	}

	return s.cur
}

// Snapshot returns a copy of the current status.
func (s *StatusStore) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
