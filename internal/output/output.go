// Package output drives the sink: on a fast tick it renders the
// current selection's marquee frame and writes it out, one
// newline-terminated frame per tick.
package output

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"castbar.app/castbar/internal/config"
	"castbar.app/castbar/internal/cycler"
	"castbar.app/castbar/internal/marquee"
	"castbar.app/castbar/internal/status"
)

const (
	minTick = 20 * time.Millisecond
	maxTick = time.Second
)

// Driver owns the fast timing domain. It re-formats the current
// selection every tick and restarts the marquee whenever the formatted
// text changes, discarding the old scroll offset.
type Driver struct {
	Sink   io.Writer
	Sel    *cycler.Selection
	Conf   config.Config
	Logger zerolog.Logger

	lastText  string
	renderer  *marquee.Renderer
	startedAt time.Time
}

// Interval is the fast tick rate: one tick per scroll step, clamped so
// selection changes still show up promptly when scrolling is slow or
// disabled.
func (d *Driver) Interval() time.Duration {
	if d.Conf.MarqueeSpeed <= 0 {
		return maxTick
	}

	tick := time.Duration(float64(time.Second) / d.Conf.MarqueeSpeed)
	if tick < minTick {
		return minTick
	}
	if tick > maxTick {
		return maxTick
	}
	return tick
}

// emit produces and writes the frame for one tick.
func (d *Driver) emit(now time.Time) error {
	snap := d.Sel.Load()
	text := status.Format(d.Conf.Format, snap, d.Conf.Unicode)

	if d.renderer == nil || text != d.lastText {
		d.Logger.Debug().Str("text", text).Msg("marquee restart")
		d.lastText = text
		d.renderer = marquee.New(text, d.Conf.Width, d.Conf.MarqueeSpeed, d.Conf.PauseDuration())
		d.startedAt = now
	}

	frame := d.renderer.Frame(now.Sub(d.startedAt))

	if _, err := io.WriteString(d.Sink, frame+"\n"); err != nil {
		return fmt.Errorf("output: sink write failed: %w", err)
	}

	return nil
}

// Run writes frames until ctx is cancelled or a sink write fails. Write
// failures are fatal; the sink's liveness is its owner's concern. On
// shutdown a single empty line is written so the bar clears.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.Interval())
	defer ticker.Stop()

	if err := d.emit(time.Now()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			_, _ = io.WriteString(d.Sink, "\n")
			return nil
		case now := <-ticker.C:
			if err := d.emit(now); err != nil {
				return err
			}
		}
	}
}
