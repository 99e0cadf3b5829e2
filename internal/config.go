package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/search"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Graph provider modes.
const (
	GraphModeLocal  = "local"
	GraphModeRemote = "remote"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Graph  GraphConfig       `yaml:"graph"`
	Cache  CacheConfig       `yaml:"cache"`
	Search SearchConfig      `yaml:"search"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Graph.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// GraphConfig selects and configures the content provider.
//
// Mode controls where graph data comes from:
//   - "local" (default): parse a Logseq-style directory of Markdown files
//     at Path; edits are picked up by the filesystem watcher.
//   - "remote": call a graph HTTP API at Endpoint, optionally with Token.
type GraphConfig struct {
	Mode     string `yaml:"mode"`
	Path     string `yaml:"path"`
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
	Watch    bool   `yaml:"watch"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = GraphModeLocal
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(GraphModeLocal, GraphModeRemote)),
	); err != nil {
		return err
	}
	switch c.Mode {
	case GraphModeLocal:
		if c.Path == "" {
			return fmt.Errorf("graph: mode is %q but path is empty", GraphModeLocal)
		}
	case GraphModeRemote:
		if c.Endpoint == "" {
			return fmt.Errorf("graph: mode is %q but endpoint is empty", GraphModeRemote)
		}
	}
	return nil
}

// CacheConfig holds optional TTL overrides. Zero values keep the
// built-in defaults (pages 5m, blocks 3m, results 1m, templates 10m).
type CacheConfig struct {
	PagesTTL     time.Duration `yaml:"pages_ttl"`
	BlocksTTL    time.Duration `yaml:"blocks_ttl"`
	ResultsTTL   time.Duration `yaml:"results_ttl"`
	TemplatesTTL time.Duration `yaml:"templates_ttl"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	for _, ttl := range []time.Duration{c.PagesTTL, c.BlocksTTL, c.ResultsTTL, c.TemplatesTTL} {
		if ttl < 0 {
			return fmt.Errorf("cache: TTLs must not be negative")
		}
	}
	return nil
}

// SearchConfig tunes the query engine.
type SearchConfig struct {
	MaxNesting int `yaml:"max_nesting"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxNesting, validation.Min(0), validation.Max(100)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
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
		Graph: GraphConfig{
			Mode:  GraphModeLocal,
			Path:  "./graph",
			Watch: true,
		},
		Search: SearchConfig{
			MaxNesting: search.DefaultMaxNesting,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
