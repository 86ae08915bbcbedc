package output

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"castbar.app/castbar/internal/config"
	"castbar.app/castbar/internal/cycler"
	"castbar.app/castbar/internal/devices"
)

func testConf() config.Config {
	conf := config.Default()
	conf.Width = 12
	conf.Format = "{p.title}"
	return conf
}

func TestEmitWritesPaddedFrameWithNewline(t *testing.T) {
	var buf bytes.Buffer
	sel := &cycler.Selection{}
	sel.Store(devices.Snapshot{ID: "a", Title: "Short", Status: devices.StatusPlaying})

	d := &Driver{Sink: &buf, Sel: sel, Conf: testConf()}

	if err := d.emit(time.Now()); err != nil {
		t.Fatalf("emit() err = %v, want nil", err)
	}

	want := "Short       \n"
	if got := buf.String(); got != want {
		t.Fatalf("emit() wrote %q, want %q", got, want)
	}
}

func TestEmitRestartsMarqueeOnTextChange(t *testing.T) {
	var buf bytes.Buffer
	sel := &cycler.Selection{}
	sel.Store(devices.Snapshot{ID: "a", Title: "a very long title that scrolls", Status: devices.StatusPlaying})

	conf := testConf()
	conf.MarqueePause = 0
	conf.MarqueeSpeed = 10

	d := &Driver{Sink: &buf, Sel: sel, Conf: conf}

	start := time.Now()
	if err := d.emit(start); err != nil {
		t.Fatalf("emit() err = %v", err)
	}

	// Deep into the scroll cycle the frame no longer starts at the
	// beginning of the text.
	if err := d.emit(start.Add(time.Second)); err != nil {
		t.Fatalf("emit() err = %v", err)
	}

	// A new title must restart from offset zero, not inherit the old
	// scroll position.
	sel.Store(devices.Snapshot{ID: "a", Title: "another very long title here", Status: devices.StatusPlaying})
	buf.Reset()
	if err := d.emit(start.Add(time.Second)); err != nil {
		t.Fatalf("emit() err = %v", err)
	}

	if got := buf.String(); !strings.HasPrefix(got, "another very") {
		t.Fatalf("frame after text change = %q, want scroll restarted from text start", got)
	}
}

func TestEmitKeepsScrollPositionForUnchangedText(t *testing.T) {
	var buf bytes.Buffer
	sel := &cycler.Selection{}
	sel.Store(devices.Snapshot{ID: "a", Title: "abcdefghijklmnopqrstuvwxyz", Status: devices.StatusPlaying})

	conf := testConf()
	conf.MarqueePause = 0
	conf.MarqueeSpeed = 1

	d := &Driver{Sink: &buf, Sel: sel, Conf: conf}

	start := time.Now()
	_ = d.emit(start)

	buf.Reset()
	_ = d.emit(start.Add(2 * time.Second))

	want := "cdefghijklmn\n"
	if got := buf.String(); got != want {
		t.Fatalf("frame at +2s = %q, want %q", got, want)
	}
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestEmitSinkFailureIsFatal(t *testing.T) {
	sel := &cycler.Selection{}
	sel.Store(devices.Snapshot{ID: "a", Title: "x", Status: devices.StatusPlaying})

	d := &Driver{Sink: failWriter{}, Sel: sel, Conf: testConf()}

	if err := d.emit(time.Now()); err == nil {
		t.Fatalf("emit() err = nil, want sink write error")
	}
}

func TestRunReturnsOnSinkFailure(t *testing.T) {
	sel := &cycler.Selection{}
	sel.Store(devices.Snapshot{ID: "a", Title: "x", Status: devices.StatusPlaying})

	d := &Driver{Sink: failWriter{}, Sel: sel, Conf: testConf()}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.Run(ctx); err == nil {
		t.Fatalf("Run() err = nil, want sink write error")
	}
}

func TestRunWritesEmptyLineOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	sel := &cycler.Selection{}

	d := &Driver{Sink: &buf, Sel: sel, Conf: testConf()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run() err = %v, want nil on cancellation", err)
	}

	if got := buf.String(); !strings.HasSuffix(got, "\n\n") && !strings.HasSuffix(got, "\n") {
		t.Fatalf("Run() output %q, want trailing empty line", got)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if last := lines[len(lines)-1]; last != "" {
		t.Fatalf("last line = %q, want empty", last)
	}
}

func TestInterval(t *testing.T) {
	tt := []struct {
		name  string
		speed float64
		want  time.Duration
	}{
		{"zero speed falls back to slow tick", 0, time.Second},
		{"normal speed", 5, 200 * time.Millisecond},
		{"very fast speed clamps to min", 1000, minTick},
		{"very slow speed clamps to max", 0.1, time.Second},
	}

	for _, tc := range tt {
		conf := config.Default()
		conf.MarqueeSpeed = tc.speed
		d := &Driver{Conf: conf}

		if got := d.Interval(); got != tc.want {
			t.Errorf("%s: Interval() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
