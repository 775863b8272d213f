package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Extraction  ExtractionConfig  `toml:"extraction"`
	Landing     LandingConfig     `toml:"landing"`
	Warehouse   WarehouseConfig   `toml:"warehouse"`
}

// CredentialsConfig names the secret bundles fetched at cycle start.
//
// The bundles themselves live in the configured secret store; only their
// names are configuration.
type CredentialsConfig struct {
	APISecretName       string `toml:"api_secret_name"`
	WarehouseSecretName string `toml:"warehouse_secret_name"`
	Region              string `toml:"region"`
}

// ExtractionConfig contains catalog API extraction settings.
type ExtractionConfig struct {
	ReleaseLimit int     `toml:"release_limit"` // new-release albums fetched per cycle
	ArtistLimit  int     `toml:"artist_limit"`  // artists flattened per track (0 = unlimited)
	RateLimit    float64 `toml:"rate_limit"`    // catalog API requests per second
}

// LandingConfig contains object-store landing zone settings.
//
// When LocalDir is set the landing zone is a local directory instead of an
// S3 bucket, which is how tests and dev runs operate.
type LandingConfig struct {
	Bucket   string `toml:"bucket"`
	Prefix   string `toml:"prefix"`
	LocalDir string `toml:"local_dir"`
}

// WarehouseConfig contains warehouse connection settings.
//
// Driver selects between the embedded sqlite3 store (local runs, tests) and
// postgres (deployed warehouse, DSN assembled from the warehouse credential
// bundle).
type WarehouseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"` // sqlite3 database path, ":memory:" allowed
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidArgument)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that settings required before any external call are present.
func (c *Config) Validate() error {
	if c.Landing.Bucket == "" && c.Landing.LocalDir == "" {
		return fmt.Errorf("%w: landing bucket or local_dir must be set", ErrInvalidConfig)
	}
	switch c.Warehouse.Driver {
	case "sqlite3", "postgres":
	case "":
		return fmt.Errorf("%w: warehouse driver must be set", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unsupported warehouse driver %q", ErrInvalidConfig, c.Warehouse.Driver)
	}
	if c.Warehouse.Driver == "sqlite3" && c.Warehouse.Path == "" {
		return fmt.Errorf("%w: warehouse path must be set for sqlite3", ErrInvalidConfig)
	}
	if c.Warehouse.Driver == "postgres" && c.Credentials.WarehouseSecretName == "" {
		return fmt.Errorf("%w: warehouse_secret_name must be set for postgres", ErrInvalidConfig)
	}
	return nil
}
