package devices

import (
	"sort"
	"sync"
)

// Status is the last-known playback state of a cast device.
type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "PLAYING"
	case StatusPaused:
		return "PAUSED"
	}
	return "IDLE"
}

// ParsePlayerState maps the player state strings reported by cast
// devices (Chromecast media channel, DLNA AVTransport) to a Status.
// BUFFERING counts as playing. Unknown states count as idle.
func ParsePlayerState(state string) Status {
	switch state {
	case "PLAYING", "BUFFERING", "TRANSITIONING":
		return StatusPlaying
	case "PAUSED", "PAUSED_PLAYBACK":
		return StatusPaused
	}
	return StatusIdle
}

// Snapshot is one device's last-known state. ID is a stable opaque
// identifier (Chromecast uuid or DLNA USN).
type Snapshot struct {
	ID     string
	Name   string
	Artist string
	Title  string
	Status Status
}

// Placeholder reports whether this is the synthetic "nothing playing"
// snapshot used when no device is active.
func (s Snapshot) Placeholder() bool {
	return s.ID == ""
}

// Registry holds the latest snapshot per device id. Discovery backends
// write into it concurrently; the cycler reads from it.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Snapshot
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Snapshot),
	}
}

// Update inserts or replaces the entry for snap.ID. Last write wins.
// Snapshots with an empty id are ignored.
func (r *Registry) Update(snap Snapshot) {
	if snap.ID == "" {
		return
	}

	r.mu.Lock()
	r.entries[snap.ID] = snap
	r.mu.Unlock()
}

// Remove deletes the entry for id. No-op if absent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Get returns the latest snapshot for id.
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := r.entries[id]
	return snap, ok
}

// Active returns every device that is currently playing or paused,
// ordered by ascending id so repeated calls with unchanged data yield
// an identical order.
func (r *Registry) Active() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Snapshot, 0, len(r.entries))
	for _, snap := range r.entries {
		if snap.Status != StatusIdle {
			out = append(out, snap)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out
}

// All returns every known device ordered by ascending id.
func (r *Registry) All() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Snapshot, 0, len(r.entries))
	for _, snap := range r.entries {
		out = append(out, snap)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out
}
