// Package castdiscover feeds the device registry with Chromecast
// playback state. It discovers devices over mDNS and polls each one's
// media status through the cast protocol.
package castdiscover

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
	"github.com/vishen/go-chromecast/application"
	"github.com/vishen/go-chromecast/cast"

	"castbar.app/castbar/internal/devices"
)

const (
	// mDNS query timeout per request
	queryTimeout = 750 * time.Millisecond
	// Faster polling while no device is known for quick first discovery
	pollIntervalFast = 1 * time.Second
	// Slower polling once at least one device is known to reduce network load
	pollIntervalSlow = 4 * time.Second
	// Devices unseen over mDNS for this long are dropped
	deviceTTL = 3 * time.Minute
)

// Found is one mDNS discovery result.
type Found struct {
	ID   string
	Name string
	Addr string // host:port
}

// statusApp is the slice of go-chromecast's Application the backend
// uses. Narrowed to an interface so tests can fake the device side.
type statusApp interface {
	Start(addr string, port int) error
	Update() error
	Status() (*cast.Application, *cast.Media, *cast.Volume)
	Close(stopMedia bool) error
}

var newStatusApp = func() statusApp {
	return application.NewApplication(application.WithConnectionRetries(2))
}

// monitor is one tracked Chromecast: its discovery identity plus the
// cast connection used for status polls.
type monitor struct {
	id        string
	name      string
	addr      string
	lastSeen  time.Time
	app       statusApp
	connected bool
}

// Backend discovers Chromecast devices and pushes their snapshots into
// the registry. It owns its monitors exclusively; the registry is the
// only shared surface.
type Backend struct {
	Registry *devices.Registry
	Logger   zerolog.Logger

	monitors map[string]*monitor
}

// Run polls until ctx is cancelled. Discovery failures are absorbed: a
// device missing from the network is represented by its absence, never
// by an error.
func (b *Backend) Run(ctx context.Context) {
	b.monitors = make(map[string]*monitor)

	for {
		for _, found := range Lookup(queryTimeout) {
			b.upsert(found)
		}

		b.expire(time.Now())

		for _, m := range b.monitors {
			if ctx.Err() != nil {
				break
			}
			b.poll(m)
		}

		interval := pollIntervalFast
		if len(b.monitors) > 0 {
			interval = pollIntervalSlow
		}

		select {
		case <-ctx.Done():
			b.close()
			return
		case <-time.After(interval):
		}
	}
}

func (b *Backend) upsert(found Found) {
	m, ok := b.monitors[found.ID]
	if !ok {
		b.Logger.Info().Str("device", found.ID).Str("name", found.Name).Str("addr", found.Addr).Msg("chromecast discovered")
		m = &monitor{id: found.ID, app: newStatusApp()}
		b.monitors[found.ID] = m
	}

	if m.addr != "" && m.addr != found.Addr && m.connected {
		// Device moved; the old connection points nowhere useful.
		_ = m.app.Close(false)
		m.app = newStatusApp()
		m.connected = false
	}

	m.name = found.Name
	m.addr = found.Addr
	m.lastSeen = time.Now()
}

func (b *Backend) expire(now time.Time) {
	for id, m := range b.monitors {
		if now.Sub(m.lastSeen) <= deviceTTL {
			continue
		}

		b.Logger.Info().Str("device", id).Str("name", m.name).Msg("chromecast gone")
		if m.connected {
			_ = m.app.Close(false)
		}
		delete(b.monitors, id)
		b.Registry.Remove(id)
	}
}

// poll refreshes one device's playback snapshot. Errors degrade the
// device to idle rather than interrupting the pipeline.
func (b *Backend) poll(m *monitor) {
	if !m.connected {
		host, port, err := splitAddr(m.addr)
		if err != nil {
			b.Logger.Debug().Str("device", m.id).Str("addr", m.addr).Err(err).Msg("bad chromecast address")
			return
		}

		if err := m.app.Start(host, port); err != nil {
			b.Logger.Debug().Str("device", m.id).Err(err).Msg("chromecast connect failed")
			b.Registry.Update(devices.Snapshot{ID: m.id, Name: m.name, Status: devices.StatusIdle})
			return
		}
		m.connected = true
	}

	if err := m.app.Update(); err != nil {
		b.Logger.Debug().Str("device", m.id).Err(err).Msg("chromecast status update failed")
		_ = m.app.Close(false)
		m.app = newStatusApp()
		m.connected = false
		b.Registry.Update(devices.Snapshot{ID: m.id, Name: m.name, Status: devices.StatusIdle})
		return
	}

	_, media, _ := m.app.Status()
	b.Registry.Update(snapshotFromMedia(m.id, m.name, media))
}

func (b *Backend) close() {
	for _, m := range b.monitors {
		if m.connected {
			_ = m.app.Close(false)
		}
	}
}

// snapshotFromMedia converts a cast media status into a registry
// snapshot. A nil media status means nothing is loaded, so idle.
func snapshotFromMedia(id, name string, media *cast.Media) devices.Snapshot {
	snap := devices.Snapshot{ID: id, Name: name, Status: devices.StatusIdle}
	if media == nil {
		return snap
	}

	snap.Status = devices.ParsePlayerState(media.PlayerState)
	snap.Artist = media.Media.Metadata.Artist
	snap.Title = media.Media.Metadata.Title

	return snap
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}

	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return "", 0, err
	}

	return host, port, nil
}

// deviceFromEntry extracts a Found from an mDNS answer. The googlecast
// TXT record carries the stable device id (id=) and the friendly name
// (fn=); entries without an IPv4 address or outside the googlecast
// service are dropped.
func deviceFromEntry(entry *mdns.ServiceEntry) (Found, bool) {
	if entry == nil || entry.AddrV4 == nil {
		return Found{}, false
	}
	if !strings.Contains(entry.Name, "_googlecast") {
		return Found{}, false
	}

	found := Found{
		Addr: fmt.Sprintf("%s:%d", entry.AddrV4, entry.Port),
		Name: entry.Name,
	}

	for _, txt := range entry.InfoFields {
		if after, ok := strings.CutPrefix(txt, "id="); ok {
			found.ID = after
		}
		if after, ok := strings.CutPrefix(txt, "fn="); ok {
			found.Name = after
		}
	}

	if idx := strings.Index(found.Name, "._googlecast"); idx > 0 {
		found.Name = found.Name[:idx]
	}

	if found.ID == "" {
		// Old firmware without an id TXT field; the address is the
		// most stable identity left.
		found.ID = found.Addr
	}

	return found, true
}

var mdnsQuery = mdns.Query

// Lookup runs one mDNS query round for googlecast devices across all
// active multicast interfaces.
func Lookup(timeout time.Duration) []Found {
	interfaces := activeInterfaces()

	entriesCh := make(chan *mdns.ServiceEntry, 256)
	doneCh := make(chan struct{})

	byID := make(map[string]Found)
	go func() {
		defer close(doneCh)
		for entry := range entriesCh {
			if found, ok := deviceFromEntry(entry); ok {
				byID[found.ID] = found
			}
		}
	}()

	queryIface := func(iface *net.Interface) {
		params := mdns.DefaultParams("_googlecast._tcp")
		params.Entries = entriesCh
		params.Timeout = timeout
		params.DisableIPv6 = true
		params.WantUnicastResponse = true
		params.Logger = log.New(io.Discard, "", 0)
		params.Interface = iface
		_ = mdnsQuery(params)
	}

	if len(interfaces) > 0 {
		var wg sync.WaitGroup
		for _, iface := range interfaces {
			wg.Add(1)
			go func(iface net.Interface) {
				defer wg.Done()
				queryIface(&iface)
			}(iface)
		}
		wg.Wait()
	} else {
		queryIface(nil)
	}

	close(entriesCh)
	<-doneCh

	out := make([]Found, 0, len(byID))
	for _, found := range byID {
		out = append(out, found)
	}
	return out
}

// activeInterfaces returns all network interfaces that are up,
// multicast-capable, not loopback, and have an IPv4 address.
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
