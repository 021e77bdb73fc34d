// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"

	"github.com/wneessen/gypsy-status/internal/tile"
)

const (
	configEnv = "GYPSYSTATUS"

	SourceGypsy = "gypsy"
	SourceGPSD  = "gpsd"

	ProviderQuadkey = "quadkey"
	ProviderRounded = "rounded"
	ProviderXYZ     = "xyz"

	DefaultTextTpl    = "{{.FixIcon}} {{.Latitude}} {{.Longitude}}"
	DefaultAltTextTpl = "{{.FixIcon}} {{.Altitude}} {{.Course}}"
	DefaultTooltipTpl = "{{loc \"Fix\"}}: {{.Fix}}\n{{loc \"Time\"}}: {{.Time}}\n" +
		"{{loc \"Position\"}}: {{.Latitude}} {{.Longitude}} {{.Altitude}}\n{{loc \"Accuracy\"}}: {{.Accuracy}}\n" +
		"{{loc \"Course\"}}: {{.Course}}\n{{loc \"Satellites\"}}:\n{{.Satellites}}\n" +
		"{{loc \"Map\"}}: {{.Map}}\n{{loc \"Last update\"}}: {{humanTime .UpdateTime}}"
)

var (
	ErrUnknownSource   = errors.New("unknown location source")
	ErrUnknownProvider = errors.New("unknown map provider")
)

// Config represents the application's configuration structure.
type Config struct {
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Source struct {
		// Allowed values: gypsy, gpsd
		Type string `fig:"type" default:"gypsy"`
		// Bluetooth address or device node of the GPS receiver, handed to Gypsy's Create call
		Device      string `fig:"device" default:"/dev/ttyUSB0"`
		GPSDAddress string `fig:"gpsd_address" default:"localhost:2947"`
	} `fig:"source"`

	Map struct {
		Disable bool `fig:"disable"`
		// Allowed values: quadkey, rounded, xyz
		Provider string `fig:"provider" default:"quadkey"`
		Depth    uint   `fig:"depth" default:"16"`
		// Allowed values: wrap, reject
		LongitudePolicy string `fig:"longitude_policy" default:"wrap"`
		URLTemplate     string `fig:"url_template"`
		Endpoint        string `fig:"endpoint"`
		AppID           string `fig:"app_id"`
		ImageWidth      uint   `fig:"image_width" default:"300"`
		ImageHeight     uint   `fig:"image_height" default:"300"`
		Zoom            uint   `fig:"zoom"`
		CacheDir        string `fig:"cache_dir"`
	} `fig:"map"`

	Intervals struct {
		Output time.Duration `fig:"output" default:"5s"`
	} `fig:"intervals"`

	Templates struct {
		Text    string `fig:"text"`
		AltText string `fig:"alt_text"`
		Tooltip string `fig:"tooltip"`
	} `fig:"templates"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Locale == "" {
		c.Locale = getLocale()
	}

	c.Source.Type = strings.ToLower(c.Source.Type)
	switch c.Source.Type {
	case SourceGypsy:
		if c.Source.Device == "" {
			return errors.New("gypsy source requires a device")
		}
	case SourceGPSD:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSource, c.Source.Type)
	}

	if c.Intervals.Output <= 0 {
		return fmt.Errorf("invalid output interval: %s", c.Intervals.Output)
	}
	if err := c.validateMap(); err != nil {
		return err
	}

	if c.Templates.Text == "" {
		c.Templates.Text = DefaultTextTpl
	}
	if c.Templates.AltText == "" {
		c.Templates.AltText = DefaultAltTextTpl
	}
	if c.Templates.Tooltip == "" {
		c.Templates.Tooltip = DefaultTooltipTpl
	}

	return nil
}

func (c *Config) validateMap() error {
	if _, err := tile.ParseLongitudePolicy(c.Map.LongitudePolicy); err != nil {
		return fmt.Errorf("invalid longitude policy: %w", err)
	}

	c.Map.Provider = strings.ToLower(c.Map.Provider)
	switch c.Map.Provider {
	case ProviderQuadkey:
		if c.Map.Depth < 1 || c.Map.Depth > tile.MaxDepth {
			return fmt.Errorf("invalid quadkey depth: %d", c.Map.Depth)
		}
	case ProviderRounded:
		if !c.Map.Disable && c.Map.AppID == "" {
			return errors.New("rounded map provider requires an app_id")
		}
		if c.Map.Zoom == 0 {
			c.Map.Zoom = tile.DefaultZoom
		}
	case ProviderXYZ:
		if c.Map.Zoom == 0 {
			c.Map.Zoom = tile.DefaultXYZZoom
		}
		if c.Map.Zoom > tile.MaxDepth {
			return fmt.Errorf("invalid tile zoom: %d", c.Map.Zoom)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownProvider, c.Map.Provider)
	}

	if c.Map.CacheDir == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		c.Map.CacheDir = filepath.Join(dir, "gypsy-status", "tiles")
	}
	return nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
