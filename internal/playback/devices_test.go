package playback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListDevicesLocalFirst(t *testing.T) {
	env := newTestEnv()
	env.lister.devices = []Device{
		{ID: "cc-2", FriendlyName: "living room tv", Capabilities: []string{CapabilityVideoOut}},
		{ID: "cc-3", FriendlyName: "Bedroom TV", Capabilities: []string{CapabilityVideoOut}},
		{ID: "cc-1", FriendlyName: "Kitchen Speaker", Capabilities: []string{"audio_out"}},
	}

	got := env.coord.ListDevices()

	require.NotEmpty(t, got)
	require.Equal(t, DeviceIDLocal, got[0].Value)
	require.Equal(t, "This Device", got[0].Label)

	// Audio-only devices are not selectable; the rest sorts
	// case-insensitively by display name, title-cased.
	require.Len(t, got, 3)
	require.Equal(t, "Bedroom TV", got[1].Label)
	require.Equal(t, "cc-3", got[1].Value)
	require.Equal(t, "Living Room Tv", got[2].Label)
	require.Equal(t, "cc-2", got[2].Value)
}

func TestListDevicesNoDiscovered(t *testing.T) {
	env := newTestEnv()

	got := env.coord.ListDevices()

	require.Len(t, got, 1)
	require.Equal(t, DeviceIDLocal, got[0].Value)
}

func TestSelectDeviceLocalEndsSession(t *testing.T) {
	env := newTestEnv()

	env.coord.SelectDevice(context.Background(), DeviceIDLocal)

	require.Equal(t, 1, env.session.endCalls)
	require.Empty(t, env.session.startCalls)
	require.Equal(t, DeviceIDLocal, env.coord.SelectedDeviceID())
}

func TestSelectDeviceEmptyEndsSession(t *testing.T) {
	env := newTestEnv()

	env.coord.SelectDevice(context.Background(), "")

	require.Equal(t, 1, env.session.endCalls)
	require.Empty(t, env.session.startCalls)
}

func TestSelectDeviceUnknownIsSilentNoop(t *testing.T) {
	env := newTestEnv()
	env.lister.devices = []Device{
		{ID: "cc-1", FriendlyName: "Living Room TV", Capabilities: []string{CapabilityVideoOut}},
	}

	env.coord.SelectDevice(context.Background(), "gone-device")

	require.Empty(t, env.session.startCalls)
	require.Equal(t, 0, env.session.endCalls)
	require.Empty(t, env.notify.errorMessages())
	require.False(t, env.coord.Snapshot().IsBusy)
}

func TestSelectDeviceStartsSession(t *testing.T) {
	env := newTestEnv()
	env.lister.devices = []Device{
		{ID: "cc-1", FriendlyName: "Living Room TV", Capabilities: []string{CapabilityVideoOut}},
	}

	env.coord.SelectDevice(context.Background(), "cc-1")

	require.Equal(t, []string{"cc-1"}, env.session.startCalls)
	require.Equal(t, "cc-1", env.coord.SelectedDeviceID())
	require.False(t, env.coord.Snapshot().IsBusy)
}

func TestSelectDeviceStartFailureToasts(t *testing.T) {
	env := newTestEnv()
	env.lister.devices = []Device{
		{ID: "cc-1", FriendlyName: "Living Room TV", Capabilities: []string{CapabilityVideoOut}},
	}
	env.session.startErr = context.DeadlineExceeded

	env.coord.SelectDevice(context.Background(), "cc-1")

	require.Equal(t, []string{msgSelectDevFailed}, env.notify.errorMessages())
	require.False(t, env.coord.Snapshot().IsBusy)
	require.Equal(t, DeviceIDLocal, env.coord.SelectedDeviceID())
}

func TestSelectDeviceResetsSessionID(t *testing.T) {
	env := newTestEnv()
	env.lister.devices = []Device{
		{ID: "cc-1", FriendlyName: "Living Room TV", Capabilities: []string{CapabilityVideoOut}},
	}
	before := env.coord.SessionID()

	env.coord.SelectDevice(context.Background(), "cc-1")

	require.NotEqual(t, before, env.coord.SessionID())
}
