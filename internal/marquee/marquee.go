// Package marquee turns a formatted status line into fixed-width
// display frames, scrolling the line horizontally when it does not fit.
package marquee

import (
	"strings"
	"time"
)

// Renderer produces width-bounded frames for one piece of text. Frames
// are a pure function of the time elapsed since the renderer was
// created, so restarting the marquee is just creating a new Renderer.
//
// Width and scroll offsets are measured in Unicode codepoints; the
// status-bar column budget is codepoint based, not byte based.
type Renderer struct {
	runes []rune
	width int
	speed float64
	pause time.Duration
}

// New builds a renderer for text at the given display width
// (codepoints), scroll speed (codepoints per second) and pause duration
// held at the start of each scroll cycle.
func New(text string, width int, speed float64, pause time.Duration) *Renderer {
	return &Renderer{
		runes: []rune(text),
		width: width,
		speed: speed,
		pause: pause,
	}
}

// Fits reports whether the text fits the display width without
// scrolling. Text exactly as wide as the display counts as fitting.
func (r *Renderer) Fits() bool {
	return len(r.runes) <= r.width
}

// Frame returns the frame shown at the given elapsed time since the
// renderer was created. Every frame is exactly the display width in
// codepoints.
//
// Fitting text yields the same space-padded frame forever. Non-fitting
// text holds the leading slice for the pause duration, scrolls left one
// codepoint every 1/speed seconds through a circular copy of the text
// joined by a single space, and re-enters the pause once the loop
// completes. With speed zero the leading slice is held forever.
func (r *Renderer) Frame(elapsed time.Duration) string {
	if r.Fits() {
		return string(r.runes) + strings.Repeat(" ", r.width-len(r.runes))
	}

	if r.speed <= 0 {
		return r.slice(0)
	}

	loop := len(r.runes) + 1
	step := time.Duration(float64(time.Second) / r.speed)

	// A zero pause still shows the leading frame for one scroll step.
	hold := r.pause
	if hold == 0 {
		hold = step
	}

	cycle := hold + time.Duration(loop-1)*step

	if elapsed < 0 {
		elapsed = 0
	}
	t := elapsed % cycle

	if t < hold {
		return r.slice(0)
	}

	offset := 1 + int(float64(t-hold)/float64(time.Second)*r.speed)
	if offset > loop-1 {
		offset = loop - 1
	}

	return r.slice(offset)
}

// slice returns the width-length window into the circular text starting
// at the given codepoint offset. Index len(runes) is the separator
// space between the end of the text and its repeated start.
func (r *Renderer) slice(offset int) string {
	loop := len(r.runes) + 1

	out := make([]rune, r.width)
	for i := range out {
		idx := (offset + i) % loop
		if idx == len(r.runes) {
			out[i] = ' '
			continue
		}
		out[i] = r.runes[idx]
	}

	return string(out)
}
