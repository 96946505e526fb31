package playback

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DeviceOption is a selectable playback target as shown to the user.
type DeviceOption struct {
	Label string
	Value string
}

var titleCaser = cases.Title(language.English)

// ListDevices returns the selectable playback targets. The local
// device is always present and first; discovered devices follow,
// filtered to video-capable ones and sorted case-insensitively by
// display name.
func (c *Coordinator) ListDevices() []DeviceOption {
	options := []DeviceOption{{Label: "This Device", Value: DeviceIDLocal}}

	var remote []DeviceOption
	for _, dev := range c.lister.Devices() {
		if !dev.HasCapability(CapabilityVideoOut) {
			continue
		}
		remote = append(remote, DeviceOption{
			Label: titleCaser.String(dev.FriendlyName),
			Value: dev.ID,
		})
	}

	sort.Slice(remote, func(i, j int) bool {
		return strings.ToLower(remote[i].Label) < strings.ToLower(remote[j].Label)
	})

	return append(options, remote...)
}

// SelectDevice switches the playback target. An empty or local id ends
// any active remote session. An id that is no longer discovered is a
// silent no-op. Otherwise a session is started against the device and
// we wait a fixed settle delay for the casting library to finish
// asynchronous connection establishment.
func (c *Coordinator) SelectDevice(ctx context.Context, deviceID string) {
	c.status.Apply(Patch{IsBusy: boolPtr(true)})
	defer c.status.Apply(Patch{IsBusy: boolPtr(false)})

	if deviceID == "" || deviceID == DeviceIDLocal {
		c.detachListeners()
		if err := c.session.EndCurrentSession(ctx); err != nil {
			c.Log().Error().Err(err).Msg("end session failed")
			c.notify.Error(msgSelectDevFailed, err)
			return
		}
		c.setSelectedDevice(DeviceIDLocal)
		c.resetSession()
		return
	}

	if !c.deviceDiscovered(deviceID) {
		c.Log().Debug().Str("DeviceID", deviceID).Msg("device not in discovered set, ignoring")
		return
	}

	c.detachListeners()
	if err := c.session.StartSession(ctx, deviceID); err != nil {
		c.Log().Error().Err(err).Str("DeviceID", deviceID).Msg("start session failed")
		c.notify.Error(msgSelectDevFailed, err)
		return
	}

	// The casting library reports the session before the device is
	// ready to accept media commands.
	select {
	case <-time.After(c.settleDelay):
	case <-ctx.Done():
	}

	c.setSelectedDevice(deviceID)
	c.resetSession()
	c.attachListeners()
}

func (c *Coordinator) deviceDiscovered(deviceID string) bool {
	for _, dev := range c.lister.Devices() {
		if dev.ID == deviceID {
			return true
		}
	}
	return false
}

func (c *Coordinator) setSelectedDevice(deviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedDeviceID = deviceID
}
