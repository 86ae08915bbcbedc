// Package dlna feeds the device registry with DLNA/UPnP media renderer
// playback state, discovered over SSDP and polled through the
// AVTransport SOAP service.
package dlna

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/koron/go-ssdp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"castbar.app/castbar/internal/devices"
)

const (
	// SSDP search wait, in seconds (the protocol's MX header).
	searchDelay = 2
	// Poll cadence for renderer status.
	pollInterval = 4 * time.Second
	// Renderers unseen over SSDP for this long are dropped.
	deviceTTL = 3 * time.Minute

	avTransportService = "urn:schemas-upnp-org:service:AVTransport:1"
	avTransportID      = "urn:upnp-org:serviceId:AVTransport"
)

var ErrNoRenderer = errors.New("dlna: device description has no AVTransport service")

// Found is one discovered media renderer.
type Found struct {
	ID         string
	Name       string
	ControlURL string
}

// Stubbed in tests.
var (
	ssdpSearch               = ssdp.Search
	loadRendererFromLocation = extractRenderer
)

type renderer struct {
	id         string
	name       string
	controlURL string
	lastSeen   time.Time
}

// Backend discovers DLNA renderers and pushes their snapshots into the
// registry.
type Backend struct {
	Registry *devices.Registry
	Logger   zerolog.Logger

	client    *http.Client
	renderers map[string]*renderer
}

// Run polls until ctx is cancelled. As with the Chromecast backend,
// network failures degrade devices to idle or absent, never to a
// pipeline error.
func (b *Backend) Run(ctx context.Context) {
	b.client = newRetryableHTTPClient(2)
	b.renderers = make(map[string]*renderer)

	for {
		found, err := Lookup(searchDelay)
		if err != nil {
			b.Logger.Debug().Err(err).Msg("ssdp search failed")
		}

		for _, f := range found {
			b.upsert(f)
		}

		b.expire(time.Now())

		for _, r := range b.renderers {
			if ctx.Err() != nil {
				break
			}
			b.poll(ctx, r)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}

func (b *Backend) upsert(found Found) {
	r, ok := b.renderers[found.ID]
	if !ok {
		b.Logger.Info().Str("device", found.ID).Str("name", found.Name).Msg("dlna renderer discovered")
		r = &renderer{id: found.ID}
		b.renderers[found.ID] = r
	}

	r.name = found.Name
	r.controlURL = found.ControlURL
	r.lastSeen = time.Now()
}

func (b *Backend) expire(now time.Time) {
	for id, r := range b.renderers {
		if now.Sub(r.lastSeen) <= deviceTTL {
			continue
		}

		b.Logger.Info().Str("device", id).Str("name", r.name).Msg("dlna renderer gone")
		delete(b.renderers, id)
		b.Registry.Remove(id)
	}
}

// poll refreshes one renderer's snapshot: transport state first, track
// metadata only when something is actually playing or paused.
func (b *Backend) poll(ctx context.Context, r *renderer) {
	snap := devices.Snapshot{ID: r.id, Name: r.name, Status: devices.StatusIdle}

	state, err := getTransportInfo(ctx, b.client, r.controlURL)
	if err != nil {
		b.Logger.Debug().Str("device", r.id).Err(err).Msg("transport info failed")
		b.Registry.Update(snap)
		return
	}

	snap.Status = devices.ParsePlayerState(state)

	if snap.Status != devices.StatusIdle {
		meta, err := getPositionInfo(ctx, b.client, r.controlURL)
		if err != nil {
			b.Logger.Debug().Str("device", r.id).Err(err).Msg("position info failed")
		} else {
			snap.Artist = meta.Artist
			snap.Title = meta.Title
		}
	}

	b.Registry.Update(snap)
}

// Lookup runs one SSDP search round and resolves every AVTransport
// service's device description.
func Lookup(delay int) ([]Found, error) {
	list, err := ssdpSearch(ssdp.All, delay, "")
	if err != nil {
		return nil, fmt.Errorf("Lookup search error: %w", err)
	}

	seen := make(map[string]bool)
	var out []Found

	for _, srv := range list {
		// We only care about the AVTransport service; status polling
		// needs nothing else.
		if srv.Type != avTransportService {
			continue
		}
		if seen[srv.Location] {
			continue
		}
		seen[srv.Location] = true

		found, err := loadRendererFromLocation(srv.Location)
		if err != nil {
			continue
		}

		out = append(out, found)
	}

	return out, nil
}

type descService struct {
	ID         string `xml:"serviceId"`
	ControlURL string `xml:"controlURL"`
}

type deviceDescription struct {
	FriendlyName string        `xml:"device>friendlyName"`
	UDN          string        `xml:"device>UDN"`
	Services     []descService `xml:"device>serviceList>service"`
}

// extractRenderer fetches a device description and pulls out the
// friendly name, stable id and AVTransport control URL.
func extractRenderer(location string) (Found, error) {
	parsedURL, err := url.Parse(location)
	if err != nil {
		return Found{}, fmt.Errorf("extractRenderer parse error: %w", err)
	}

	client := &http.Client{Timeout: soapHTTPClientTimeout}
	req, err := http.NewRequest(http.MethodGet, location, nil)
	if err != nil {
		return Found{}, fmt.Errorf("extractRenderer GET error: %w", err)
	}

	req.Header.Set("Connection", "close")

	resp, err := client.Do(req)
	if err != nil {
		return Found{}, fmt.Errorf("extractRenderer Do GET error: %w", err)
	}
	defer resp.Body.Close()

	var desc deviceDescription
	if err := xml.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return Found{}, fmt.Errorf("extractRenderer decode error: %w", err)
	}

	found := Found{Name: desc.FriendlyName, ID: desc.UDN}
	if found.ID == "" {
		found.ID = location
	}

	for _, svc := range desc.Services {
		if svc.ID == avTransportID {
			found.ControlURL = parsedURL.Scheme + "://" + parsedURL.Host + svc.ControlURL
		}
	}

	if found.ControlURL == "" {
		return Found{}, ErrNoRenderer
	}

	return found, nil
}
