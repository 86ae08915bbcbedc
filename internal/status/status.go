// Package status renders device snapshots through a user format
// template into the plain text line fed to the marquee.
package status

import (
	"strings"

	"castbar.app/castbar/internal/devices"
)

// Placeholders understood in format templates. Unknown {p.*} sequences
// pass through literally rather than failing.
const (
	phName   = "{p.name}"
	phArtist = "{p.artist}"
	phTitle  = "{p.title}"
	phStatus = "{p.status}"
)

var textLabels = map[devices.Status]string{
	devices.StatusPlaying: ">",
	devices.StatusPaused:  "||",
	devices.StatusIdle:    "#",
}

var unicodeLabels = map[devices.Status]string{
	devices.StatusPlaying: "▶",
	devices.StatusPaused:  "⏸",
	devices.StatusIdle:    "⏹",
}

// Label returns the display symbol for a playback status.
func Label(s devices.Status, unicode bool) string {
	if unicode {
		return unicodeLabels[s]
	}
	return textLabels[s]
}

// Format renders snap through tmpl. Idle devices always format with
// empty artist and title, whatever stale metadata the snapshot still
// carries. An empty tmpl falls back to DefaultFormat.
func Format(tmpl string, snap devices.Snapshot, unicode bool) string {
	if tmpl == "" {
		return DefaultFormat(snap, unicode)
	}

	artist, title := snap.Artist, snap.Title
	if snap.Status == devices.StatusIdle {
		artist, title = "", ""
	}

	r := strings.NewReplacer(
		phName, snap.Name,
		phArtist, artist,
		phTitle, title,
		phStatus, Label(snap.Status, unicode),
	)

	return r.Replace(tmpl)
}

// DefaultFormat builds a status line from the snapshot's non-empty
// fields only: status label, name, " | " artist, " - " title. The
// placeholder snapshot renders as an empty string so the bar clears
// when nothing is playing.
func DefaultFormat(snap devices.Snapshot, unicode bool) string {
	if snap.Placeholder() {
		return ""
	}

	artist, title := snap.Artist, snap.Title
	if snap.Status == devices.StatusIdle {
		artist, title = "", ""
	}

	parts := []string{Label(snap.Status, unicode)}
	if snap.Name != "" {
		parts = append(parts, " ", snap.Name)
	}
	if artist != "" {
		parts = append(parts, " | ", artist)
	}
	if title != "" {
		parts = append(parts, " - ", title)
	}

	return strings.Join(parts, "")
}
