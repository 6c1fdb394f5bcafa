// Package config handles configuration loading for joltsplot.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/seenimoa/joltsplot/internal/frame"
)

// Config represents the complete application configuration.
type Config struct {
	Fetch   FetchConfig   `mapstructure:"fetch"   yaml:"fetch"`
	Chart   ChartConfig   `mapstructure:"chart"   yaml:"chart"`
	FRED    FREDConfig    `mapstructure:"fred"    yaml:"fred"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// FetchConfig selects what to download and from where.
type FetchConfig struct {
	Source string   `mapstructure:"source" yaml:"source"` // "fred" or "fred-api"
	Series []string `mapstructure:"series" yaml:"series"` // source series codes
	Names  []string `mapstructure:"names"  yaml:"names"`  // display names, same order as series
	Start  string   `mapstructure:"start"  yaml:"start"`  // YYYY-MM-DD
	End    string   `mapstructure:"end"    yaml:"end"`    // YYYY-MM-DD, empty = latest available
}

// ChartConfig holds the plot layout and output settings.
type ChartConfig struct {
	Area   []string `mapstructure:"area"   yaml:"area"` // display names drawn as stacked area
	Line   []string `mapstructure:"line"   yaml:"line"` // display names drawn as lines
	Title  string   `mapstructure:"title"  yaml:"title"`
	Width  int      `mapstructure:"width"  yaml:"width"`
	Height int      `mapstructure:"height" yaml:"height"`
	Output string   `mapstructure:"output" yaml:"output"`
	Format string   `mapstructure:"format" yaml:"format"` // "svg", "png", or empty to use the output extension
}

// FREDConfig holds settings for the FRED data sources.
type FREDConfig struct {
	APIKey     string `mapstructure:"api_key"     yaml:"api_key"`
	RateLimit  int    `mapstructure:"rate_limit"  yaml:"rate_limit"`  // requests per minute
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"` // per request
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
	Output string `mapstructure:"output" yaml:"output"` // "stderr" or "stdout"
}

const envPrefix = "JOLTSPLOT"

// MaxRateLimit caps fred.rate_limit, in requests per minute.
const MaxRateLimit = 6000

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.joltsplot/config.yaml (home directory)
//  3. /etc/joltsplot/config.yaml (system)
//
// Environment variables override config file values.
// Format: JOLTSPLOT_<SECTION>_<KEY>, e.g., JOLTSPLOT_FETCH_START
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".joltsplot"))
	v.AddConfigPath("/etc/joltsplot")

	// Config file is optional.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults reproduces the JOLTS openings/quits/hires/layoffs chart.
func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.source", "fred")
	v.SetDefault("fetch.series", []string{"JTSJOL", "JTSQUL", "JTSHIL", "JTSLDL"})
	v.SetDefault("fetch.names", []string{"openings", "quits", "hires", "layoffs"})
	v.SetDefault("fetch.start", "2000-01-01")
	v.SetDefault("fetch.end", "")

	v.SetDefault("chart.area", []string{"quits", "layoffs"})
	v.SetDefault("chart.line", []string{"hires", "openings"})
	v.SetDefault("chart.title", "JOLTS: openings, hires and separations")
	v.SetDefault("chart.width", 1000)
	v.SetDefault("chart.height", 500)
	v.SetDefault("chart.output", "jolts.svg")
	v.SetDefault("chart.format", "")

	v.SetDefault("fred.api_key", "")
	v.SetDefault("fred.rate_limit", 120) // FRED allows 120 requests/minute
	v.SetDefault("fred.timeout_sec", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
}

// overrideFromEnv reads the FRED key from the variable FRED tooling
// conventionally uses, when the prefixed one is unset.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("JOLTSPLOT_FRED_API_KEY"); key != "" {
		cfg.FRED.APIKey = key
		return
	}
	if cfg.FRED.APIKey == "" {
		if key := os.Getenv("FRED_API_KEY"); key != "" {
			cfg.FRED.APIKey = key
		}
	}
}

// Validate checks the fetch and FRED settings every command relies on.
func (c *Config) Validate() error {
	if c.Fetch.Source == "" {
		return fmt.Errorf("fetch.source must be set")
	}
	if _, err := c.Labels(); err != nil {
		return err
	}
	start, err := c.StartDate()
	if err != nil {
		return err
	}
	end, err := c.EndDate()
	if err != nil {
		return err
	}
	if !end.IsZero() && end.Before(start) {
		return fmt.Errorf("fetch.end %s is before fetch.start %s", c.Fetch.End, c.Fetch.Start)
	}
	if c.FRED.RateLimit <= 0 || c.FRED.RateLimit > MaxRateLimit {
		return fmt.Errorf("fred.rate_limit %d must be between 1 and %d", c.FRED.RateLimit, MaxRateLimit)
	}
	return nil
}

// ValidateChart checks the chart layout against fetch.names. Only commands
// that draw need it.
func (c *Config) ValidateChart() error {
	labels, err := c.Labels()
	if err != nil {
		return err
	}
	names := make(map[string]bool, labels.Len())
	for _, n := range labels.Names() {
		names[n] = true
	}
	for _, group := range []struct {
		key  string
		cols []string
	}{{"chart.area", c.Chart.Area}, {"chart.line", c.Chart.Line}} {
		for _, col := range group.cols {
			if !names[col] {
				return fmt.Errorf("%s: %q is not one of fetch.names", group.key, col)
			}
		}
	}
	if len(c.Chart.Area) == 0 && len(c.Chart.Line) == 0 {
		return fmt.Errorf("chart.area and chart.line are both empty")
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("chart size %dx%d must be positive", c.Chart.Width, c.Chart.Height)
	}
	return nil
}

// Labels returns the code to display-name mapping.
func (c *Config) Labels() (frame.Labels, error) {
	return frame.NewLabels(c.Fetch.Series, c.Fetch.Names)
}

// StartDate parses fetch.start.
func (c *Config) StartDate() (time.Time, error) {
	t, err := frame.ParseDate(c.Fetch.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch.start: %w", err)
	}
	return t, nil
}

// EndDate parses fetch.end. The zero time means latest available.
func (c *Config) EndDate() (time.Time, error) {
	if c.Fetch.End == "" {
		return time.Time{}, nil
	}
	t, err := frame.ParseDate(c.Fetch.End)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch.end: %w", err)
	}
	return t, nil
}

// Timeout returns the per-request HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.FRED.TimeoutSec) * time.Second
}

// Credentials returns the credential map handed to data sources.
func (c *Config) Credentials() map[string]string {
	creds := map[string]string{}
	if c.FRED.APIKey != "" {
		creds["api_key"] = c.FRED.APIKey
	}
	return creds
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
