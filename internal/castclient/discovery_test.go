package castclient

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"jellycast.app/jellycast/internal/playback"
)

func TestHasVideoOut(t *testing.T) {
	tt := []struct {
		name string
		ca   string
		want bool
	}{
		{"chromecast", "4101", true},
		{"audio only", "2052", false},
		{"zero", "0", false},
		{"bit zero only", "1", true},
		{"garbage defaults to true", "not-a-number", true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, hasVideoOut(tc.ca))
		})
	}
}

func testDiscovery() *Discovery {
	d := NewDiscovery(zerolog.Nop())
	// Pretend the first blocking query round already ran so Devices()
	// does not hit the network.
	d.warmed = true
	return d
}

func TestUpsertFromEntry(t *testing.T) {
	d := testDiscovery()

	d.upsertFromEntry(&mdns.ServiceEntry{
		Name:   "Living-Room-TV._googlecast._tcp.local.",
		AddrV4: net.IPv4(192, 168, 1, 50),
		Port:   8009,
		InfoFields: []string{
			"id=abcd1234",
			"fn=Living Room TV",
			"ca=4101",
		},
	})

	host, port, ok := d.Resolve("abcd1234")
	require.True(t, ok)
	require.Equal(t, "192.168.1.50", host)
	require.Equal(t, 8009, port)

	devices := d.Devices()
	require.Len(t, devices, 1)
	require.Equal(t, "Living Room TV", devices[0].FriendlyName)
	require.True(t, devices[0].HasCapability(playback.CapabilityVideoOut))
}

func TestUpsertFromEntryAudioOnly(t *testing.T) {
	d := testDiscovery()

	d.upsertFromEntry(&mdns.ServiceEntry{
		Name:       "Kitchen-speaker._googlecast._tcp.local.",
		AddrV4:     net.IPv4(192, 168, 1, 51),
		Port:       8009,
		InfoFields: []string{"id=spk1", "fn=Kitchen speaker", "ca=2052"},
	})

	devices := d.Devices()
	require.Len(t, devices, 1)
	require.False(t, devices[0].HasCapability(playback.CapabilityVideoOut))
}

func TestUpsertFromEntryStripsServiceSuffix(t *testing.T) {
	d := testDiscovery()

	// No fn= field: the friendly name falls back to the instance name
	// with the service suffix removed.
	d.upsertFromEntry(&mdns.ServiceEntry{
		Name:       "Bedroom-TV._googlecast._tcp.local.",
		AddrV4:     net.IPv4(192, 168, 1, 52),
		Port:       8009,
		InfoFields: []string{"id=bed1"},
	})

	devices := d.Devices()
	require.Len(t, devices, 1)
	require.Equal(t, "Bedroom-TV", devices[0].FriendlyName)
}

func TestUpsertFromEntryIgnoresForeignServices(t *testing.T) {
	d := testDiscovery()

	d.upsertFromEntry(&mdns.ServiceEntry{
		Name:   "printer._ipp._tcp.local.",
		AddrV4: net.IPv4(192, 168, 1, 53),
		Port:   631,
	})
	d.upsertFromEntry(nil)
	d.upsertFromEntry(&mdns.ServiceEntry{Name: "no-addr._googlecast._tcp.local."})

	require.Empty(t, d.Devices())
}

func TestUpsertFromEntryUpdatesExisting(t *testing.T) {
	d := testDiscovery()

	entry := &mdns.ServiceEntry{
		Name:       "TV._googlecast._tcp.local.",
		AddrV4:     net.IPv4(192, 168, 1, 50),
		Port:       8009,
		InfoFields: []string{"id=tv1", "fn=TV"},
	}
	d.upsertFromEntry(entry)

	// Same device comes back with a new DHCP lease.
	entry.AddrV4 = net.IPv4(192, 168, 1, 60)
	d.upsertFromEntry(entry)

	require.Len(t, d.Devices(), 1)
	host, _, ok := d.Resolve("tv1")
	require.True(t, ok)
	require.Equal(t, "192.168.1.60", host)
}

func TestResolveUnknownDevice(t *testing.T) {
	d := testDiscovery()
	_, _, ok := d.Resolve("nope")
	require.False(t, ok)
}
