package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/mediashelf/internal/source"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Source SourceConfig      `yaml:"source"`
	Watch  WatchConfig       `yaml:"watch"`
	Events EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SourceConfig selects where category data is read from.
//
// Kind is one of:
//   - "file" (default): <data_dir>/<locator>.json documents.
//   - "sheet": a spreadsheet-to-JSON bridge serving <sheet_url>/<sheet name>.
//   - "sqlite": a read-only snapshot database at sqlite_path.
type SourceConfig struct {
	Kind       string            `yaml:"kind"`
	DataDir    string            `yaml:"data_dir"`
	SheetURL   string            `yaml:"sheet_url"`
	SQLitePath string            `yaml:"sqlite_path"`
	Home       string            `yaml:"home"`
	Locators   map[string]string `yaml:"locators"`
}

// locatorPattern restricts locators to names directly inside the data directory,
// which is the only directory the watcher observes.
var locatorPattern = regexp.MustCompile(`^[^/\\]+$`)

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	if c.Kind == "" {
		c.Kind = source.KindFile
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required, validation.In(source.KindFile, source.KindSheet, source.KindSQLite)),
		validation.Field(&c.DataDir, validation.When(c.Kind == source.KindFile, validation.Required)),
		validation.Field(&c.SheetURL, validation.When(c.Kind == source.KindSheet, validation.Required, is.URL)),
		validation.Field(&c.SQLitePath, validation.When(c.Kind == source.KindSQLite, validation.Required)),
		validation.Field(&c.Home, validation.Match(locatorPattern).Error("must not contain a path separator")),
		validation.Field(&c.Locators, validation.Each(validation.Match(locatorPattern).Error("must not contain a path separator"))),
	)
}

// WatchConfig controls the data directory watcher. It only applies to the file source.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// EventsConfig holds SSE configuration.
type EventsConfig struct {
	StatsThrottle time.Duration `yaml:"stats_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StatsThrottle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Source: SourceConfig{
			Kind:       source.KindFile,
			DataDir:    "./data",
			SQLitePath: "./mediashelf.db",
			Home:       source.DefaultHomeLocator,
		},
		Watch: WatchConfig{
			Enabled: true,
		},
		Events: EventsConfig{
			StatsThrottle: 2 * time.Second,
		},
	}
}
