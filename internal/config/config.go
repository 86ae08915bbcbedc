package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrBadWidth  = errors.New("config: width must be a positive number of codepoints")
	ErrBadPeriod = errors.New("config: period must be greater than zero")
	ErrBadSpeed  = errors.New("config: marquee speed must not be negative")
	ErrBadPause  = errors.New("config: marquee pause must not be negative")
)

// Config is the runtime configuration, read once at startup. Zero-value
// fields are filled from Default before validation.
type Config struct {
	// Period is the number of seconds each active device stays
	// selected before cycling to the next one.
	Period float64 `json:"period"`
	// Format is the status template; empty selects the built-in
	// default format.
	Format string `json:"format"`
	// Unicode switches {p.status} to glyphs instead of text labels.
	Unicode bool `json:"unicode"`
	// Width is the display width in Unicode codepoints.
	Width int `json:"width"`
	// MarqueeSpeed is the scroll speed in codepoints per second. Zero
	// disables scrolling.
	MarqueeSpeed float64 `json:"marquee_speed"`
	// MarqueePause is the number of seconds the marquee holds at the
	// start of each scroll cycle.
	MarqueePause float64 `json:"marquee_pause"`
	// Output is the sink path (file or FIFO); empty means stdout.
	Output string `json:"output"`
	// Blacklist drops devices whose formatted status matches this
	// regular expression.
	Blacklist string `json:"blacklist"`
}

// Default mirrors the historical cast-statusbar defaults.
func Default() Config {
	return Config{
		Period:       10,
		Width:        85,
		MarqueeSpeed: 5,
		MarqueePause: 2,
	}
}

// Validate rejects configurations the pipeline cannot run with. Called
// once at startup, before any frame is produced.
func (c Config) Validate() error {
	if c.Width <= 0 {
		return ErrBadWidth
	}
	if c.Period <= 0 {
		return ErrBadPeriod
	}
	if c.MarqueeSpeed < 0 {
		return ErrBadSpeed
	}
	if c.MarqueePause < 0 {
		return ErrBadPause
	}
	return nil
}

// PeriodDuration returns the cycler period as a time.Duration.
func (c Config) PeriodDuration() time.Duration {
	return time.Duration(c.Period * float64(time.Second))
}

// PauseDuration returns the marquee pause as a time.Duration.
func (c Config) PauseDuration() time.Duration {
	return time.Duration(c.MarqueePause * float64(time.Second))
}

func appPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "castbar", "castbar.json"), nil
}

// GetAppConfig loads the config file from the user config dir, creating
// it with defaults on first run.
func GetAppConfig() (Config, error) {
	conf := Default()

	path, err := appPath()
	if err != nil {
		return conf, fmt.Errorf("GetAppConfig: failed to access config path due to error %w:", err)
	}

	cfgfile, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return conf, fmt.Errorf("GetAppConfig: failed to create default path due to error %w:", err)
			}

			b, err := json.Marshal(conf)
			if err != nil {
				return conf, fmt.Errorf("GetAppConfig: failed to convert and store default config %w:", err)
			}

			if err := os.WriteFile(path, b, 0644); err != nil {
				return conf, fmt.Errorf("GetAppConfig: failed to create default config due to error %w:", err)
			}

			return conf, nil
		}

		return conf, fmt.Errorf("GetAppConfig: failed to open config due to error %w:", err)
	}
	defer cfgfile.Close()

	if err := json.NewDecoder(cfgfile).Decode(&conf); err != nil {
		return conf, fmt.Errorf("GetAppConfig: failed to parse config due to error %w:", err)
	}

	return conf, nil
}
