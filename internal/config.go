package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/recurrence"
	"github.com/starford/quire/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Index  IndexConfig       `yaml:"index"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// SetVault points the config at another vault. An index path still at its
// default location follows the vault.
func (c *Config) SetVault(path string) {
	if filepath.Clean(c.SQLite.Path) == defaultIndexPath(c.Vault.Path) {
		c.SQLite.Path = defaultIndexPath(path)
	}
	c.Vault.Path = path
}

func defaultIndexPath(vault string) string {
	return filepath.Join(vault, ".quire", "index.db")
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
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// IndexConfig tunes scanning, watching and search.
type IndexConfig struct {
	// Reserved folder names are skipped when scanning and watching.
	Reserved []string `yaml:"reserved"`
	// DailyDir is the vault folder receiving recurring todo instances.
	DailyDir string `yaml:"daily_dir"`
	// Watch enables the filesystem watcher in serve mode.
	Watch bool `yaml:"watch"`
	// Debounce delays reindexing until a file has been quiet this long.
	Debounce time.Duration `yaml:"debounce"`
	// SearchLimit is the result cap when a search names none.
	SearchLimit int `yaml:"search_limit"`
}

var errNestedName = errors.New("must be a single folder name")

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Reserved, validation.Each(validation.Required, validation.By(singleName))),
		validation.Field(&c.DailyDir, validation.Required, validation.By(insideVault)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
		validation.Field(&c.SearchLimit, validation.Required, validation.Min(1), validation.Max(1000)),
	)
}

func singleName(v any) error {
	s, _ := v.(string)
	if strings.ContainsAny(s, `/\`) || s == "." || s == ".." {
		return errNestedName
	}
	return nil
}

func insideVault(v any) error {
	s, _ := v.(string)
	if filepath.IsAbs(s) || strings.HasPrefix(filepath.Clean(s), "..") {
		return errors.New("must be relative to the vault")
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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
				Port:            8080,
				ShutdownTimeout: 10 * time.Second,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: defaultIndexPath("./vault"),
		},
		Index: IndexConfig{
			Reserved:    append([]string(nil), storage.DefaultReserved...),
			DailyDir:    recurrence.DefaultDailyDir,
			Watch:       true,
			Debounce:    100 * time.Millisecond,
			SearchLimit: 50,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
