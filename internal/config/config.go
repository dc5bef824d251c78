package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes one roster export.
type SourceConfig struct {
	// ID is used in logs and as the record source; defaults to Name, then
	// to the location.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// Path is a local CSV/ICS file. Ignored when URL is set.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// URL is an http(s) CSV/ICS download (e.g. a published spreadsheet).
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
}

// Location returns URL if set, else Path.
func (s SourceConfig) Location() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Path
}

// EffectiveID returns ID, falling back to Name and then Location.
func (s SourceConfig) EffectiveID() string {
	switch {
	case s.ID != "":
		return s.ID
	case s.Name != "":
		return s.Name
	default:
		return s.Location()
	}
}

// StandingDutyConfig is a recurring duty not listed in the exports.
type StandingDutyConfig struct {
	Title      string `yaml:"title" json:"title"`
	DutyType   string `yaml:"duty_type" json:"duty_type"`
	AssignedTo string `yaml:"assigned_to" json:"assigned_to"`
	// RRule without DTSTART, e.g. "FREQ=WEEKLY;BYDAY=MO".
	RRule string `yaml:"rrule" json:"rrule"`
	// Start of the first occurrence, DD/MM/YYYY HH:MM in Timezone.
	Start string `yaml:"start" json:"start"`
	// Duration of each occurrence, Go duration syntax ("4h").
	Duration string `yaml:"duration" json:"duration"`
	// Except lists skipped occurrence starts, DD/MM/YYYY HH:MM.
	Except []string `yaml:"except,omitempty" json:"except,omitempty"`
}

// ParsedDuration returns Duration, or one hour if it is empty or invalid.
func (s StandingDutyConfig) ParsedDuration() time.Duration {
	d, err := time.ParseDuration(s.Duration)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone the roster dates are written in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is the cron schedule for reloading sources
	// (e.g. "*/15 * * * *"). "off" disables periodic reload.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Sources are the roster exports, loaded in order.
	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// CacheDir holds cached downloads of remote sources.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Labels are leading title labels stripped before people are read from
	// a title ("RA On Call", ...).
	Labels []string `yaml:"labels" json:"labels"`

	// TypeColors maps a duty-type substring to a display color. The longest
	// matching key wins.
	TypeColors map[string]string `yaml:"type_colors" json:"type_colors"`
	// DefaultColor applies to duty types matching no TypeColors entry.
	DefaultColor string `yaml:"default_color" json:"default_color"`
	// EmptyTypeColor applies to duties without a type.
	EmptyTypeColor string `yaml:"empty_type_color" json:"empty_type_color"`

	// CalendarName is the X-WR-CALNAME of exported calendars.
	CalendarName string `yaml:"calendar_name" json:"calendar_name"`

	// StandingDuties are expanded over [now-HorizonDays, now+HorizonDays].
	StandingDuties []StandingDutyConfig `yaml:"standing_duties" json:"standing_duties"`
	HorizonDays    int                  `yaml:"horizon_days" json:"horizon_days"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen         = "127.0.0.1:8080"
	defaultTimezone       = "Europe/London"
	defaultRefreshCron    = "*/15 * * * *"
	defaultCacheDir       = "./var/roster-cache"
	defaultCalendarName   = "Duty Calendar"
	defaultColor          = "#3b82f6"
	defaultEmptyTypeColor = "#6b7280"
	defaultHorizonDays    = 120
	defaultLogLevel       = "info"
)

func defaultLabels() []string {
	return []string{"RA On Call", "PG On Call", "On Call"}
}

func defaultTypeColors() map[string]string {
	return map[string]string{"PG Only Duty": "#10b981"}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Timezone:       defaultTimezone,
		RefreshCron:    defaultRefreshCron,
		Sources:        []SourceConfig{},
		CacheDir:       defaultCacheDir,
		Labels:         defaultLabels(),
		TypeColors:     defaultTypeColors(),
		DefaultColor:   defaultColor,
		EmptyTypeColor: defaultEmptyTypeColor,
		CalendarName:   defaultCalendarName,
		StandingDuties: []StandingDutyConfig{},
		HorizonDays:    defaultHorizonDays,
		LogLevel:       defaultLogLevel,
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Labels == nil {
		c.Labels = defaultLabels()
	}
	if c.TypeColors == nil {
		c.TypeColors = defaultTypeColors()
	}
	if c.DefaultColor == "" {
		c.DefaultColor = defaultColor
	}
	if c.EmptyTypeColor == "" {
		c.EmptyTypeColor = defaultEmptyTypeColor
	}
	if c.CalendarName == "" {
		c.CalendarName = defaultCalendarName
	}
	if c.StandingDuties == nil {
		c.StandingDuties = []StandingDutyConfig{}
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// Validate reports configuration that cannot work at all.
func (c *Config) Validate() error {
	var errs []error
	for i, s := range c.Sources {
		if s.Location() == "" {
			errs = append(errs, fmt.Errorf("config: sources[%d] has neither path nor url", i))
		}
	}
	for i, d := range c.StandingDuties {
		if strings.TrimSpace(d.Title) == "" || d.RRule == "" || d.Start == "" {
			errs = append(errs, fmt.Errorf("config: standing_duties[%d] needs title, rrule and start", i))
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("config: timezone %q: %w", c.Timezone, err))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ColorFor returns the display color for a duty type.
func (c *Config) ColorFor(dutyType string) string {
	if dutyType == "" {
		return c.EmptyTypeColor
	}
	best := ""
	for substr := range c.TypeColors {
		// Longest key wins so results do not depend on map order.
		if strings.Contains(dutyType, substr) && len(substr) > len(best) {
			best = substr
		}
	}
	if best != "" {
		return c.TypeColors[best]
	}
	return c.DefaultColor
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     permissions (creating the parent directory) and returned.
//   - Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".dutycal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
