package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied by Normalize.
const (
	DefaultLogLevel      = "info"
	DefaultBonusAmount   = 5
	DefaultMaxRetries    = 5
	DefaultRetryBackoff  = 20 * time.Millisecond
	DefaultUnitsPerBatch = 10
	DefaultListen        = ":8080"
	DefaultScanWorkers   = 8
)

// Config represents the main configuration for herbtrace.
type Config struct {
	LedgerID   string           `toml:"ledger_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"`
	Database   DatabaseConfig   `toml:"database"`
	Archives   []ArchiveConfig  `toml:"archives"`
	Encryption EncryptionConfig `toml:"encryption"`
	Compliance ComplianceConfig `toml:"compliance"`
	Rewards    RewardsConfig    `toml:"rewards"`
	Labels     LabelsConfig     `toml:"labels"`
	Server     ServerConfig     `toml:"server"`
	Scan       ScanConfig       `toml:"scan"`
}

// DatabaseConfig represents configuration for the ledger database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ArchiveConfig represents configuration for a snapshot archive backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", or "s3"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"` // S3-compatible stores such as MinIO
	S3PathStyle       bool   `toml:"s3_path_style,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"` // default credential chain when empty
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSArchiveRoot string `toml:"fs_archive_root,omitempty"`
}

// EncryptionConfig holds the snapshot sealing settings.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "none" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// ComplianceConfig points at an optional TOML rule file. The built-in NMPB
// rule set is used when RulesPath is empty.
type ComplianceConfig struct {
	RulesPath string `toml:"rules_path,omitempty"`
}

// RewardsConfig controls the consumer-scan bonus.
type RewardsConfig struct {
	BonusAmount   int64    `toml:"bonus_amount"`
	OncePerSerial bool     `toml:"once_per_serial"`
	MaxRetries    int      `toml:"max_retries"`
	RetryBackoff  Duration `toml:"retry_backoff"`
}

// LabelsConfig controls how many serials are printed per batch.
type LabelsConfig struct {
	UnitsPerBatch int `toml:"units_per_batch"`
}

// ServerConfig configures `herbtrace serve`.
type ServerConfig struct {
	Listen string `toml:"listen"`
}

// ScanConfig sizes the bulk scan worker pool.
type ScanConfig struct {
	Workers int `toml:"workers"`
}

// Duration is a time.Duration written as a Go duration string ("20ms").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// NewConfig creates a new Config with the provided values, default paths
// under baseDir and default policy values.
func NewConfig(ledgerID, baseDir string) *Config {
	cfg := &Config{
		LedgerID: ledgerID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Archives: []ArchiveConfig{
			{Type: "filesystem", Name: "local", FSArchiveRoot: filepath.Join(baseDir, "archive")},
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "herbtrace.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "herbtrace.key"),
		},
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogDir == "" && c.BaseDir != "" {
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
	if c.Rewards.BonusAmount == 0 {
		c.Rewards.BonusAmount = DefaultBonusAmount
	}
	if c.Rewards.MaxRetries == 0 {
		c.Rewards.MaxRetries = DefaultMaxRetries
	}
	if c.Rewards.RetryBackoff.Duration == 0 {
		c.Rewards.RetryBackoff.Duration = DefaultRetryBackoff
	}
	if c.Labels.UnitsPerBatch == 0 {
		c.Labels.UnitsPerBatch = DefaultUnitsPerBatch
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = DefaultScanWorkers
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.LedgerID == "" {
		return fmt.Errorf("ledger_id is required")
	}
	if c.Rewards.BonusAmount < 0 {
		return fmt.Errorf("rewards.bonus_amount must not be negative")
	}
	if c.Rewards.MaxRetries < 0 {
		return fmt.Errorf("rewards.max_retries must not be negative")
	}
	if c.Labels.UnitsPerBatch < 1 || c.Labels.UnitsPerBatch > 9999 {
		return fmt.Errorf("labels.units_per_batch must be within 1-9999")
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path and applies defaults.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
