// castbar tails local cast devices (Chromecast, DLNA renderers) and
// writes a fixed-width, optionally scrolling status line to a sink for
// consumption by a status bar.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"runtime"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"castbar.app/castbar/internal/castdiscover"
	"castbar.app/castbar/internal/config"
	"castbar.app/castbar/internal/cycler"
	"castbar.app/castbar/internal/devices"
	"castbar.app/castbar/internal/dlna"
	"castbar.app/castbar/internal/output"
	"castbar.app/castbar/internal/status"
)

var (
	periodArg    = flag.Float64("p", 0, "Seconds to display each active device before cycling to the next one.")
	formatArg    = flag.String("f", "", "Format template for the status line ({p.name}, {p.artist}, {p.title}, {p.status}).")
	unicodeArg   = flag.Bool("u", false, "Use unicode glyphs for {p.status}.")
	widthArg     = flag.Int("width", 0, "Output at most this many unicode codepoints per line.")
	speedArg     = flag.Float64("speed", -1, "Marquee scroll speed in codepoints per second (0 disables scrolling).")
	pauseArg     = flag.Float64("pause", -1, "Seconds the marquee holds at the start of each scroll cycle.")
	blacklistArg = flag.String("blacklist", "", "Skip devices whose formatted status matches this regex.")
	outputArg    = flag.String("o", "", "Sink path (file or FIFO). Defaults to stdout.")
	listPtr      = flag.Bool("l", false, "List all discovered cast devices and exit.")
	noCastPtr    = flag.Bool("no-cast", false, "Disable Chromecast discovery.")
	noDLNAPtr    = flag.Bool("no-dlna", false, "Disable DLNA renderer discovery.")
	verbosePtr   = flag.Bool("v", false, "Log more.")
	quietPtr     = flag.Bool("q", false, "Log less.")

	ErrNoBackend = errors.New("both discovery backends disabled, nothing to track")
	ErrVerbosity = errors.New("can't combine -v with -q")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Encountered error(s): %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		return err
	}

	conf, err := loadConfig(logger)
	if err != nil {
		return err
	}

	if err := conf.Validate(); err != nil {
		return err
	}

	if *listPtr {
		return listDevices()
	}

	if *noCastPtr && *noDLNAPtr {
		return ErrNoBackend
	}

	skip, err := blacklistSkipper(conf)
	if err != nil {
		return err
	}

	sink, closeSink, err := openSink(conf.Output)
	if err != nil {
		return err
	}
	defer closeSink()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := devices.NewRegistry()

	if !*noCastPtr {
		backend := &castdiscover.Backend{
			Registry: registry,
			Logger:   logger.With().Str("component", "castdiscover").Logger(),
		}
		go backend.Run(ctx)
	}

	if !*noDLNAPtr {
		backend := &dlna.Backend{
			Registry: registry,
			Logger:   logger.With().Str("component", "dlna").Logger(),
		}
		go backend.Run(ctx)
	}

	sel := &cycler.Selection{}
	cyc := &cycler.Cycler{
		Registry: registry,
		Period:   conf.PeriodDuration(),
		Skip:     skip,
		Logger:   logger.With().Str("component", "cycler").Logger(),
	}
	go cyc.Run(ctx, sel)

	driver := &output.Driver{
		Sink:   sink,
		Sel:    sel,
		Conf:   conf,
		Logger: logger.With().Str("component", "output").Logger(),
	}

	return driver.Run(ctx)
}

func newLogger() (zerolog.Logger, error) {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	switch {
	case *verbosePtr && *quietPtr:
		return logger, ErrVerbosity
	case *verbosePtr:
		return logger.Level(zerolog.DebugLevel), nil
	case *quietPtr:
		return logger.Level(zerolog.WarnLevel), nil
	}

	return logger.Level(zerolog.InfoLevel), nil
}

// loadConfig merges the optional config file with the flags; explicitly
// set flags win.
func loadConfig(logger zerolog.Logger) (config.Config, error) {
	conf, err := config.GetAppConfig()
	if err != nil {
		// A broken config file should not keep the bar empty; fall
		// back to defaults and say so.
		logger.Warn().Err(err).Msg("config file unusable, using defaults")
		conf = config.Default()
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			conf.Period = *periodArg
		case "f":
			conf.Format = *formatArg
		case "u":
			conf.Unicode = *unicodeArg
		case "width":
			conf.Width = *widthArg
		case "speed":
			conf.MarqueeSpeed = *speedArg
		case "pause":
			conf.MarqueePause = *pauseArg
		case "blacklist":
			conf.Blacklist = *blacklistArg
		case "o":
			conf.Output = *outputArg
		}
	})

	return conf, nil
}

// blacklistSkipper builds the cycler's skip predicate: a device is
// skipped when its formatted status line matches the blacklist regex.
func blacklistSkipper(conf config.Config) (func(devices.Snapshot) bool, error) {
	if conf.Blacklist == "" {
		return nil, nil
	}

	matcher, err := regexp.Compile(conf.Blacklist)
	if err != nil {
		return nil, fmt.Errorf("bad blacklist regex: %w", err)
	}

	return func(snap devices.Snapshot) bool {
		return matcher.MatchString(status.Format(conf.Format, snap, conf.Unicode))
	}, nil
}

// openSink opens the output target. FIFOs block here until a reader
// attaches, which is the desired behavior under a status bar.
func openSink(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open output sink: %w", err)
	}

	return f, func() { _ = f.Close() }, nil
}

func listDevices() error {
	boldStart := ""
	boldEnd := ""
	if runtime.GOOS == "linux" {
		boldStart = "\033[1m"
		boldEnd = "\033[0m"
	}

	fmt.Println()

	if !*noCastPtr {
		for _, found := range castdiscover.Lookup(2 * time.Second) {
			fmt.Printf("%sChromecast%s\n", boldStart, boldEnd)
			fmt.Printf("%s----------%s\n", boldStart, boldEnd)
			fmt.Printf("%sName:%s %s\n", boldStart, boldEnd, found.Name)
			fmt.Printf("%sID:%s   %s\n", boldStart, boldEnd, found.ID)
			fmt.Printf("%sAddr:%s %s\n", boldStart, boldEnd, found.Addr)
			fmt.Println()
		}
	}

	if !*noDLNAPtr {
		found, err := dlna.Lookup(2)
		if err != nil {
			return err
		}

		for _, f := range found {
			fmt.Printf("%sDLNA Renderer%s\n", boldStart, boldEnd)
			fmt.Printf("%s-------------%s\n", boldStart, boldEnd)
			fmt.Printf("%sName:%s %s\n", boldStart, boldEnd, f.Name)
			fmt.Printf("%sID:%s   %s\n", boldStart, boldEnd, f.ID)
			fmt.Printf("%sURL:%s  %s\n", boldStart, boldEnd, f.ControlURL)
			fmt.Println()
		}
	}

	return nil
}
