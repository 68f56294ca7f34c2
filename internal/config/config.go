package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config mirrors the YAML schema. All values should be supplied via YAML; we
// avoid hard-coded defaults beyond what Validate tolerates.
type Config struct {
	Version    int        `yaml:"version"`
	General    General    `yaml:"general"`
	Server     Server     `yaml:"server"`
	Cache      Cache      `yaml:"cache"`
	Thumbnails Thumbnails `yaml:"thumbnails"`
	Network    Network    `yaml:"network"`
	Logging    Logging    `yaml:"logging"`
	Metrics    Metrics    `yaml:"metrics"`
	UI         UIOptions  `yaml:"ui"`
}

type General struct {
	// DataRoot holds state.db, the thumbnail cache, and metrics output.
	DataRoot string `yaml:"data_root"`
	// InputRoot is the default source folder. It is always registered and
	// cannot be removed from the folder registry.
	InputRoot string `yaml:"input_root"`
}

type Server struct {
	Listen string `yaml:"listen"` // host:port the API server binds
	// BaseURL is what clients dial; defaults to http://<listen> when empty.
	BaseURL string `yaml:"base_url"`
	PerPage int    `yaml:"per_page"` // page size for /gallery/images
}

type Cache struct {
	ListingTTLSeconds  int `yaml:"listing_ttl_seconds"`  // directory listings
	MetadataTTLSeconds int `yaml:"metadata_ttl_seconds"` // per-file metadata status
}

type Thumbnails struct {
	MaxSize int `yaml:"max_size"` // longest edge in pixels
	Quality int `yaml:"quality"`  // JPEG quality
}

type Network struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxRetries     int `yaml:"max_retries"`
}

type Logging struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // human|json
}

type Metrics struct {
	PrometheusTextfile PromTextfile `yaml:"prometheus_textfile"`
}

type PromTextfile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type UIOptions struct {
	// PreviewSize is the initial cell width driver; clamped to [50,400] by
	// the gallery core.
	PreviewSize int `yaml:"preview_size"`
	// SearchDebounceMS delays local re-filtering while typing. 0 means the
	// default of 150ms.
	SearchDebounceMS int `yaml:"search_debounce_ms"`
}

// Load reads, parses, expands, and validates a YAML config file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	expanded, err := expandTilde(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(expanded)
	if err != nil {
		return nil, err
	}
	// Expand ${ENV} placeholders before unmarshalling
	b = []byte(os.ExpandEnv(string(b)))
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if err := c.expandPaths(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) expandPaths() error {
	var err error
	if c.General.DataRoot, err = expandTilde(c.General.DataRoot); err != nil {
		return err
	}
	if c.General.InputRoot, err = expandTilde(c.General.InputRoot); err != nil {
		return err
	}
	if c.Metrics.PrometheusTextfile.Path, err = expandTilde(c.Metrics.PrometheusTextfile.Path); err != nil {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d", c.Version)
	}
	if c.General.DataRoot == "" {
		return errors.New("general.data_root is required")
	}
	if c.General.InputRoot == "" {
		return errors.New("general.input_root is required")
	}
	if c.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if c.Server.PerPage < 0 {
		return fmt.Errorf("server.per_page must be >= 0")
	}
	if c.Cache.ListingTTLSeconds < 0 || c.Cache.MetadataTTLSeconds < 0 {
		return fmt.Errorf("cache TTLs must be >= 0")
	}
	if c.Thumbnails.Quality < 0 || c.Thumbnails.Quality > 100 {
		return fmt.Errorf("thumbnails.quality must be within [0,100]")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
		// ok
	default:
		return fmt.Errorf("logging.level invalid: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "human", "json":
		// ok
	default:
		return fmt.Errorf("logging.format invalid: %s", c.Logging.Format)
	}
	if c.UI.PreviewSize < 0 {
		return fmt.Errorf("ui.preview_size must be >= 0")
	}
	if c.UI.SearchDebounceMS < 0 {
		return fmt.Errorf("ui.search_debounce_ms must be >= 0")
	}
	return nil
}

// BaseURL returns the client-facing server URL.
func (c *Config) BaseURL() string {
	if c.Server.BaseURL != "" {
		return strings.TrimRight(c.Server.BaseURL, "/")
	}
	return "http://" + c.Server.Listen
}

// PerPage returns the configured page size, defaulting to 100.
func (c *Config) PerPage() int {
	if c.Server.PerPage > 0 {
		return c.Server.PerPage
	}
	return 100
}

func expandTilde(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p[0] != '~' {
		return p, nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if p == "~" {
		return h, nil
	}
	return filepath.Join(h, p[2:]), nil
}

// EnsureDir creates a directory if a path is configured.
func EnsureDir(path string, perm fs.FileMode) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, perm)
}
