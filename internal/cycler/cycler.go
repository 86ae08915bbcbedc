// Package cycler selects which active device the status line shows,
// rotating through the registry's active set on a fixed period.
package cycler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"castbar.app/castbar/internal/devices"
)

// Selection is the shared latest-value cell between the cycler (single
// writer) and the output driver (single reader).
type Selection struct {
	mu   sync.Mutex
	snap devices.Snapshot
}

func (s *Selection) Store(snap devices.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *Selection) Load() devices.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Cycler walks the registry's active devices round-robin. When the
// active set is empty it selects the placeholder snapshot. Skip, when
// set, drops individual devices from the rotation.
type Cycler struct {
	Registry *devices.Registry
	Period   time.Duration
	Skip     func(devices.Snapshot) bool
	Logger   zerolog.Logger

	index  int
	lastID string
}

// Next computes the selection for one tick. The active list is
// re-fetched from the registry every call so an unchanged selection
// still picks up fresh artist/title metadata.
func (c *Cycler) Next() devices.Snapshot {
	active := c.Registry.Active()

	if c.Skip != nil {
		kept := active[:0]
		for _, snap := range active {
			if !c.Skip(snap) {
				kept = append(kept, snap)
			}
		}
		active = kept
	}

	if len(active) == 0 {
		c.index = 0
		c.lastID = ""
		return devices.Snapshot{}
	}

	if c.lastID == "" || !containsID(active, c.lastID) {
		// Fresh start, or the device we were showing is gone.
		c.index = 0
	} else {
		// The set may have resized since the last tick; clamp before
		// advancing so the position degrades instead of going out of
		// range.
		c.index = (c.index%len(active) + 1) % len(active)
	}

	snap := active[c.index]
	c.lastID = snap.ID

	return snap
}

func containsID(snaps []devices.Snapshot, id string) bool {
	for _, snap := range snaps {
		if snap.ID == id {
			return true
		}
	}
	return false
}

// Run ticks every Period, storing each tick's selection into sel. The
// first selection is stored immediately so the driver never waits a
// full period for output.
func (c *Cycler) Run(ctx context.Context, sel *Selection) {
	sel.Store(c.Next())

	ticker := time.NewTicker(c.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := c.Next()
			c.Logger.Debug().Str("device", snap.ID).Str("name", snap.Name).Msg("cycler selection")
			sel.Store(snap)
		}
	}
}
