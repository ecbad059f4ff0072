package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Library contains configuration for the external media library API.
type Library struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Provider contains per-provider connection and throttling settings.
type Provider struct {
	Enabled           bool    `toml:"enabled"`
	BaseURL           string  `toml:"base_url"`
	APIKey            string  `toml:"api_key"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// Providers groups the configured metadata sources.
type Providers struct {
	GoogleBooks Provider `toml:"googlebooks"`
	OpenLibrary Provider `toml:"openlibrary"`
}

// Resolution contains thresholds for the resolution waterfall.
type Resolution struct {
	// TitleSimilarityThreshold is the minimum cosine similarity for the
	// title+author stage to accept a candidate. Default: 0.60
	TitleSimilarityThreshold float64 `toml:"title_similarity_threshold"`
	// FuzzyFloor is the minimum similarity for the fuzzy stage. Default: 0.45
	FuzzyFloor float64 `toml:"fuzzy_floor"`
	// RetryAttempts bounds retries for rate-limited/timed-out provider calls.
	RetryAttempts int `toml:"retry_attempts"`
	// BreakerFailures is the consecutive-failure count that opens a
	// provider's circuit for the remainder of a pass.
	BreakerFailures int `toml:"breaker_failures"`
	// VariantWords is the word count used for the truncated fuzzy variant.
	VariantWords int `toml:"variant_words"`
}

// Merge contains conflict-resolution settings.
type Merge struct {
	// ProviderPriority orders providers from most to least trusted. Fields
	// only overwrite existing values when the candidate's provider outranks
	// the field's last-known source.
	ProviderPriority []string `toml:"provider_priority"`
}

// Cache contains TTL settings for the provider response cache.
type Cache struct {
	PositiveTTLHours int `toml:"positive_ttl_hours"`
	NegativeTTLHours int `toml:"negative_ttl_hours"`
}

// Sync contains orchestration settings for a metadata pass.
type Sync struct {
	Workers            int  `toml:"workers"`
	PageSize           int  `toml:"page_size"`
	ItemTimeoutSeconds int  `toml:"item_timeout_seconds"`
	AutoUpdate         bool `toml:"auto_update"`
	DryRun             bool `toml:"dry_run"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shelfsync.
//
// Configuration sections by subsystem:
//   - Paths: state (cache/audit databases, pass lock) and log directories
//   - Library: external library API endpoint and credentials
//   - Providers: per-provider endpoints, keys, and throttling
//   - Resolution: waterfall thresholds and retry/circuit limits
//   - Merge: provider trust order for field overwrites
//   - Cache: positive/negative TTLs
//   - Sync: worker pool, paging, timeouts, auto-update and dry-run
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Library    Library    `toml:"library"`
	Providers  Providers  `toml:"providers"`
	Resolution Resolution `toml:"resolution"`
	Merge      Merge      `toml:"merge"`
	Cache      Cache      `toml:"cache"`
	Sync       Sync       `toml:"sync"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shelfsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shelfsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the engine needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EnabledProviders returns the names of providers enabled in config, in
// declaration order.
func (c *Config) EnabledProviders() []string {
	var names []string
	if c.Providers.GoogleBooks.Enabled {
		names = append(names, "googlebooks")
	}
	if c.Providers.OpenLibrary.Enabled {
		names = append(names, "openlibrary")
	}
	return names
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		path = filepath.Join(home, path[2:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return abs, nil
}
