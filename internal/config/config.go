// Package config provides configuration management for canvas.
// It reads .canvas-config.yaml (or .canvas-config.toml) found by walking up
// from the working directory, then applies environment variable overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Brehove/canvas-cli-for-codex/internal/route"
	"github.com/Brehove/canvas-cli-for-codex/internal/util"
)

// Config file names, in lookup order within each directory.
const (
	FileName     = ".canvas-config.yaml"
	TOMLFileName = ".canvas-config.toml"
)

// ErrNotFound is returned by Load when no config file exists above the
// start directory.
var ErrNotFound = errors.New("no " + FileName + " found; run 'canvas config' to set up")

// Config represents the complete canvas configuration.
type Config struct {
	// CanvasURL is the base URL of the Canvas instance, such as
	// https://school.instructure.com
	CanvasURL string `yaml:"canvas_url" toml:"canvas_url"`
	// APIToken is a Canvas access token
	APIToken string `yaml:"api_token" toml:"api_token"`

	// DefaultFolder holds courses no course_folders prefix matches.
	// Relative paths are resolved from the config file's directory.
	DefaultFolder string `yaml:"default_folder,omitempty" toml:"default_folder,omitempty"`
	// CourseFolders routes courses to folders by course code prefix, e.g.
	// PHIL: Philosophy
	CourseFolders map[string]string `yaml:"course_folders,omitempty" toml:"course_folders,omitempty"`

	// Deprecated: Use DefaultFolder instead. Kept for configs written by
	// earlier versions.
	CoursesDir string `yaml:"courses_dir,omitempty" toml:"courses_dir,omitempty"`

	// Pull configures pull behavior
	Pull PullConfig `yaml:"pull,omitempty" toml:"pull,omitempty"`

	// HTTP configures the Canvas transport
	HTTP HTTPConfig `yaml:"http,omitempty" toml:"http,omitempty"`

	// Output configures display preferences
	Output OutputConfig `yaml:"output,omitempty" toml:"output,omitempty"`

	// Dir is the directory holding the loaded config file.
	Dir string `yaml:"-" toml:"-"`
	// Path is the loaded config file.
	Path string `yaml:"-" toml:"-"`
}

// PullConfig holds pull settings.
type PullConfig struct {
	// Workers bounds concurrent fetches
	Workers int `yaml:"workers,omitempty" toml:"workers,omitempty"`
}

// HTTPConfig holds transport settings.
type HTTPConfig struct {
	// RateLimit is requests per second; negative disables limiting
	RateLimit float64 `yaml:"rate_limit,omitempty" toml:"rate_limit,omitempty"`
	// Timeout bounds each request
	Timeout time.Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	// MaxAttempts bounds retries of transient failures
	MaxAttempts int `yaml:"max_attempts,omitempty" toml:"max_attempts,omitempty"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Color controls color output (auto, always, never)
	Color string `yaml:"color,omitempty" toml:"color,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Pull: PullConfig{
			Workers: 4,
		},
		HTTP: HTTPConfig{
			RateLimit:   10,
			Timeout:     2 * time.Minute,
			MaxAttempts: 5,
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}

// Find returns the nearest config file in start or its parents, or "".
func Find(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		for _, name := range []string{FileName, TOMLFileName} {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load finds the config file above start and loads it. It returns
// ErrNotFound when there is none.
func Load(start string) (*Config, error) {
	path := Find(start)
	if path == "" {
		return nil, ErrNotFound
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific path, merging it over
// the defaults and applying environment overrides.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.Path = abs
	cfg.Dir = filepath.Dir(abs)

	cfg.applyEnvironment()
	return cfg, nil
}

// Save writes the configuration back to the file it was loaded from, or
// to FileName in dir when it was not loaded from a file.
func (c *Config) Save(dir string) error {
	path := c.Path
	if path == "" {
		path = filepath.Join(dir, FileName)
	}
	return c.SaveToPath(path)
}

// SaveToPath writes the configuration to a specific path. The file holds a
// token, so it is only readable by the user.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(c); err != nil {
			return err
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	c.Path = path
	c.Dir = filepath.Dir(path)
	return nil
}

// Validate reports missing connection settings.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.CanvasURL) == "" {
		errs = append(errs, errors.New("canvas_url is not set"))
	}
	if strings.TrimSpace(c.APIToken) == "" {
		errs = append(errs, errors.New("api_token is not set"))
	}
	return errors.Join(errs...)
}

// DefaultFolderName returns the configured default folder, honoring the
// legacy courses_dir key.
func (c *Config) DefaultFolderName() string {
	switch {
	case c.DefaultFolder != "":
		return c.DefaultFolder
	case c.CoursesDir != "":
		return c.CoursesDir
	default:
		return route.DefaultFolder
	}
}

// Root returns the directory course folders are resolved against.
func (c *Config) Root() string {
	if c.Dir != "" {
		return c.Dir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// CoursesPath returns the absolute default course folder.
func (c *Config) CoursesPath() string {
	folder := util.ExpandHome(c.DefaultFolderName())
	if filepath.IsAbs(folder) {
		return folder
	}
	return filepath.Join(c.Root(), folder)
}

// Router returns the folder router for this configuration.
func (c *Config) Router() *route.Router {
	return route.New(c.CourseFolders, c.DefaultFolderName())
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern CANVAS_<KEY>.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("CANVAS_URL"); v != "" {
		c.CanvasURL = v
	}
	if v := os.Getenv("CANVAS_API_TOKEN"); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv("CANVAS_DEFAULT_FOLDER"); v != "" {
		c.DefaultFolder = v
	}

	if v := os.Getenv("CANVAS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pull.Workers = n
		}
	}
	if v := os.Getenv("CANVAS_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.HTTP.RateLimit = f
		}
	}
	if v := os.Getenv("CANVAS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.HTTP.Timeout = d
		}
	}
	if v := os.Getenv("CANVAS_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("CANVAS_NO_COLOR"); v != "" && parseBool(v) {
		c.Output.Color = "never"
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Exists returns true if a config file exists above start.
func Exists(start string) bool {
	return Find(start) != ""
}
