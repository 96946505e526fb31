package castclient

import (
	"context"
	"fmt"
	"io"
	"sync"

	"jellycast.app/jellycast/internal/playback"
)

// SessionManager owns the single active device connection. Starting a
// session against a new device tears down the previous one first.
type SessionManager struct {
	discovery *Discovery
	LogOutput io.Writer

	mu     sync.Mutex
	client *Client
}

// NewSessionManager builds a session manager resolving devices
// through the given discovery cache.
func NewSessionManager(discovery *Discovery) *SessionManager {
	return &SessionManager{discovery: discovery}
}

// StartSession connects to the discovered device with the given id.
func (m *SessionManager) StartSession(ctx context.Context, deviceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	host, port, ok := m.discovery.Resolve(deviceID)
	if !ok {
		return fmt.Errorf("device %q not discovered", deviceID)
	}

	// A failed teardown must not block the new session.
	_ = m.EndCurrentSession(ctx)

	client := NewClient(host, port)
	client.LogOutput = m.LogOutput
	if err := client.Connect(); err != nil {
		return err
	}

	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
	return nil
}

// EndCurrentSession disconnects the active device, if any.
func (m *SessionManager) EndCurrentSession(context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close(true)
}

// Client returns the active remote client, or nil when no session is
// running.
func (m *SessionManager) Client() playback.RemoteClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	return m.client
}
