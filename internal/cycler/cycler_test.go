package cycler

import (
	"strings"
	"testing"

	"castbar.app/castbar/internal/devices"
)

func playing(id string) devices.Snapshot {
	return devices.Snapshot{ID: id, Name: "Device " + id, Status: devices.StatusPlaying}
}

func TestNextRoundRobin(t *testing.T) {
	r := devices.NewRegistry()
	r.Update(playing("a"))
	r.Update(playing("b"))

	c := &Cycler{Registry: r}

	want := []string{"a", "b", "a", "b", "a"}
	for i, id := range want {
		got := c.Next()
		if got.ID != id {
			t.Fatalf("tick %d: Next() = %q, want %q", i, got.ID, id)
		}
	}
}

func TestNextVisitsEachDeviceOncePerRound(t *testing.T) {
	r := devices.NewRegistry()
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		r.Update(playing(id))
	}

	c := &Cycler{Registry: r}

	seen := make(map[string]int)
	for n := 0; n < len(ids); n++ {
		seen[c.Next().ID]++
	}

	for _, id := range ids {
		if seen[id] != 1 {
			t.Fatalf("device %q selected %d times in one round, want 1", id, seen[id])
		}
	}

	if got := c.Next().ID; got != "a" {
		t.Fatalf("after full round Next() = %q, want %q", got, "a")
	}
}

func TestNextEmptyRegistrySelectsPlaceholder(t *testing.T) {
	c := &Cycler{Registry: devices.NewRegistry()}

	for n := 0; n < 3; n++ {
		got := c.Next()
		if !got.Placeholder() {
			t.Fatalf("Next() = %+v, want placeholder", got)
		}
	}
}

func TestNextRecoversFromEmpty(t *testing.T) {
	r := devices.NewRegistry()
	c := &Cycler{Registry: r}

	if !c.Next().Placeholder() {
		t.Fatalf("Next() on empty registry should be placeholder")
	}

	r.Update(playing("b"))
	r.Update(playing("a"))

	if got := c.Next().ID; got != "a" {
		t.Fatalf("Next() after empty = %q, want %q (index reset to 0)", got, "a")
	}
}

func TestNextShrinkClampsIndex(t *testing.T) {
	r := devices.NewRegistry()
	for _, id := range []string{"a", "b", "c", "d"} {
		r.Update(playing(id))
	}

	c := &Cycler{Registry: r}
	c.Next() // a
	c.Next() // b
	c.Next() // c

	// Shrink the set while keeping the current device, so the stored
	// index is beyond the new length.
	r.Remove("a")
	r.Remove("b")
	r.Remove("d")

	if got := c.Next().ID; got != "c" {
		t.Fatalf("Next() after shrink = %q, want %q", got, "c")
	}
}

func TestNextSelectedDeviceRemoved(t *testing.T) {
	r := devices.NewRegistry()
	r.Update(playing("a"))
	r.Update(playing("b"))

	c := &Cycler{Registry: r}
	c.Next() // a
	r.Remove("a")

	if got := c.Next().ID; got != "b" {
		t.Fatalf("Next() after removing selected = %q, want %q", got, "b")
	}
}

func TestNextRefetchesLatestMetadata(t *testing.T) {
	r := devices.NewRegistry()
	r.Update(devices.Snapshot{ID: "a", Title: "First Track", Status: devices.StatusPlaying})

	c := &Cycler{Registry: r}
	if got := c.Next().Title; got != "First Track" {
		t.Fatalf("Next() title = %q, want %q", got, "First Track")
	}

	r.Update(devices.Snapshot{ID: "a", Title: "Second Track", Status: devices.StatusPlaying})

	if got := c.Next().Title; got != "Second Track" {
		t.Fatalf("Next() title after update = %q, want %q", got, "Second Track")
	}
}

func TestNextSkipPredicate(t *testing.T) {
	r := devices.NewRegistry()
	r.Update(playing("a"))
	r.Update(devices.Snapshot{ID: "b", Name: "Ad Break", Status: devices.StatusPlaying})

	c := &Cycler{
		Registry: r,
		Skip: func(snap devices.Snapshot) bool {
			return strings.Contains(snap.Name, "Ad")
		},
	}

	for i := 0; i < 4; i++ {
		if got := c.Next().ID; got != "a" {
			t.Fatalf("tick %d: Next() = %q, want %q (b skipped)", i, got, "a")
		}
	}
}

func TestSelectionStoreLoad(t *testing.T) {
	var sel Selection

	if !sel.Load().Placeholder() {
		t.Fatalf("zero Selection should load placeholder")
	}

	sel.Store(playing("a"))
	if got := sel.Load().ID; got != "a" {
		t.Fatalf("Load() = %q, want %q", got, "a")
	}
}
