package castclient

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"

	"jellycast.app/jellycast/internal/playback"
)

const (
	googlecastService = "_googlecast._tcp"

	// capabilityVideoOutBit is bit 0 of the mDNS "ca" TXT field.
	capabilityVideoOutBit = 1

	queryTimeout = 750 * time.Millisecond
	// Faster polling while the cache is empty for quick first discovery,
	// slower once at least one device is known to reduce network load.
	pollIntervalFast     = 1 * time.Second
	pollIntervalSlow     = 4 * time.Second
	healthCheckInterval  = 5 * time.Second
	aliveProbeTimeout    = 2 * time.Second
	ifaceRefreshInterval = 20 * time.Second
)

type castDevice struct {
	id           string
	friendlyName string
	host         string
	port         int
	videoOut     bool
}

// Discovery finds Google Cast devices on the local network via mDNS
// and keeps a live cache of them. It implements the coordinator's
// DeviceLister.
type Discovery struct {
	Logger zerolog.Logger

	mu      sync.Mutex
	devices map[string]castDevice // keyed by device id
	warmed  bool
}

// NewDiscovery returns an empty discovery cache. Call Start to begin
// background discovery.
func NewDiscovery(logger zerolog.Logger) *Discovery {
	return &Discovery{
		Logger:  logger,
		devices: make(map[string]castDevice),
	}
}

// Start launches the discovery and health-check loops. They run until
// the context is canceled.
func (d *Discovery) Start(ctx context.Context) {
	go d.discoverLoop(ctx)
	go d.healthCheckLoop(ctx)
}

// Devices returns the currently known devices. The capability set
// carries video output when the device advertises it.
func (d *Discovery) Devices() []playback.Device {
	d.mu.Lock()
	warmed := d.warmed
	d.mu.Unlock()
	if !warmed {
		d.warmup()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	result := make([]playback.Device, 0, len(d.devices))
	for _, dev := range d.devices {
		caps := []string{"audio_out"}
		if dev.videoOut {
			caps = append(caps, playback.CapabilityVideoOut)
		}
		result = append(result, playback.Device{
			ID:           dev.id,
			FriendlyName: dev.friendlyName,
			Capabilities: caps,
		})
	}
	return result
}

// Resolve returns the network address of a discovered device.
func (d *Discovery) Resolve(deviceID string) (host string, port int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, ok := d.devices[deviceID]
	if !ok {
		return "", 0, false
	}
	return dev.host, dev.port, true
}

func (d *Discovery) upsertFromEntry(entry *mdns.ServiceEntry) {
	if entry == nil || entry.AddrV4 == nil {
		return
	}
	if !strings.Contains(entry.Name, "_googlecast") {
		return
	}

	friendlyName := entry.Name
	id := fmt.Sprintf("%s:%d", entry.AddrV4, entry.Port)
	videoOut := true

	for _, txt := range entry.InfoFields {
		if after, found := strings.CutPrefix(txt, "fn="); found {
			friendlyName = after
			continue
		}
		if after, found := strings.CutPrefix(txt, "id="); found {
			id = after
			continue
		}
		if after, found := strings.CutPrefix(txt, "ca="); found {
			videoOut = hasVideoOut(after)
		}
	}

	if idx := strings.Index(friendlyName, "._googlecast"); idx > 0 {
		friendlyName = friendlyName[:idx]
	}

	d.mu.Lock()
	d.devices[id] = castDevice{
		id:           id,
		friendlyName: friendlyName,
		host:         entry.AddrV4.String(),
		port:         entry.Port,
		videoOut:     videoOut,
	}
	d.mu.Unlock()
}

// hasVideoOut parses the "ca" capability bitmask; bit 0 is Video Out.
// Parse failures default to true to avoid hiding standard devices.
func hasVideoOut(caField string) bool {
	ca, err := strconv.Atoi(caField)
	if err != nil {
		return true
	}
	return ca&capabilityVideoOutBit != 0
}

func (d *Discovery) query(iface *net.Interface, entriesCh chan *mdns.ServiceEntry) {
	params := mdns.DefaultParams(googlecastService)
	params.Entries = entriesCh
	params.Timeout = queryTimeout
	params.DisableIPv6 = true
	params.WantUnicastResponse = true
	params.Logger = log.New(io.Discard, "", 0)
	params.Interface = iface
	_ = mdns.Query(params)
}

// warmup runs one blocking round of queries on all active interfaces,
// used for a fast first device listing.
func (d *Discovery) warmup() {
	d.mu.Lock()
	if d.warmed {
		d.mu.Unlock()
		return
	}
	d.warmed = true
	d.mu.Unlock()

	interfaces := activeInterfaces()

	entriesCh := make(chan *mdns.ServiceEntry, 256)
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		for entry := range entriesCh {
			d.upsertFromEntry(entry)
		}
	}()

	if len(interfaces) > 0 {
		var wg sync.WaitGroup
		for _, iface := range interfaces {
			wg.Add(1)
			go func(iface net.Interface) {
				defer wg.Done()
				d.query(&iface, entriesCh)
			}(iface)
		}
		wg.Wait()
	} else {
		d.query(nil, entriesCh)
	}

	close(entriesCh)
	<-doneCh
}

func (d *Discovery) pollInterval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.devices) > 0 {
		return pollIntervalSlow
	}
	return pollIntervalFast
}

// discoverLoop continuously browses for devices, querying on all
// active interfaces so systems with multiple adapters (VPN, Hyper-V,
// Docker) still reach the network the devices live on.
func (d *Discovery) discoverLoop(ctx context.Context) {
	d.warmup()

	startWorker := func(parent context.Context, iface *net.Interface) context.CancelFunc {
		workerCtx, cancel := context.WithCancel(parent)
		entriesCh := make(chan *mdns.ServiceEntry, 256)

		go func() {
			for {
				select {
				case <-workerCtx.Done():
					return
				case entry := <-entriesCh:
					d.upsertFromEntry(entry)
				}
			}
		}()

		go func() {
			pollTimer := time.NewTimer(0)
			defer pollTimer.Stop()

			for {
				select {
				case <-workerCtx.Done():
					return
				case <-pollTimer.C:
				}

				d.query(iface, entriesCh)
				pollTimer.Reset(d.pollInterval())
			}
		}()

		return cancel
	}

	workers := make(map[int]context.CancelFunc)
	refresh := func() {
		interfaces := activeInterfaces()

		active := make(map[int]struct{}, len(interfaces))
		for _, iface := range interfaces {
			active[iface.Index] = struct{}{}
			if _, ok := workers[iface.Index]; ok {
				continue
			}
			pollIface := iface
			workers[iface.Index] = startWorker(ctx, &pollIface)
		}

		for idx, cancel := range workers {
			if idx == -1 {
				continue
			}
			if _, ok := active[idx]; !ok {
				cancel()
				delete(workers, idx)
			}
		}

		if len(interfaces) == 0 {
			if _, ok := workers[-1]; !ok {
				workers[-1] = startWorker(ctx, nil)
			}
		} else if cancel, ok := workers[-1]; ok {
			cancel()
			delete(workers, -1)
		}
	}

	refresh()

	refreshTicker := time.NewTicker(ifaceRefreshInterval)
	defer refreshTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, cancel := range workers {
				cancel()
			}
			return
		case <-refreshTicker.C:
			refresh()
		}
	}
}

// healthCheckLoop evicts devices that no longer answer on their
// control port.
func (d *Discovery) healthCheckLoop(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			stale := make([]string, 0)
			for id, dev := range d.devices {
				if !hostPortIsAlive(net.JoinHostPort(dev.host, strconv.Itoa(dev.port))) {
					stale = append(stale, id)
				}
			}
			for _, id := range stale {
				d.Logger.Debug().Str("DeviceID", id).Msg("evicting stale device")
				delete(d.devices, id)
			}
			d.mu.Unlock()
		}
	}
}

func hostPortIsAlive(address string) bool {
	conn, err := net.DialTimeout("tcp", address, aliveProbeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// activeInterfaces returns interfaces that are up, multicast-capable,
// not loopback, and carry an IPv4 address.
func activeInterfaces() []net.Interface {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var active []net.Interface
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 ||
			iface.Flags&net.FlagLoopback != 0 ||
			iface.Flags&net.FlagMulticast == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		hasIPv4 := false
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok {
				if ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
					hasIPv4 = true
					break
				}
			}
		}

		if hasIPv4 {
			active = append(active, iface)
		}
	}

	return active
}
