package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Failures here are the only
// fatal conditions in the system; anything discovered mid-pass stays
// item-scoped.
func (c *Config) Validate() error {
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateResolution(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if strings.TrimSpace(c.Library.URL) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/shelfsync/config.toml"
		}
		return fmt.Errorf("library.url is required. Edit %s (create with 'shelfsync config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateProviders() error {
	if len(c.EnabledProviders()) == 0 {
		return errors.New("at least one provider must be enabled")
	}
	return nil
}

func (c *Config) validateResolution() error {
	if c.Resolution.TitleSimilarityThreshold < 0 || c.Resolution.TitleSimilarityThreshold > 1 {
		return errors.New("resolution.title_similarity_threshold must be between 0 and 1")
	}
	if c.Resolution.FuzzyFloor < 0 || c.Resolution.FuzzyFloor > 1 {
		return errors.New("resolution.fuzzy_floor must be between 0 and 1")
	}
	if c.Resolution.RetryAttempts > 10 {
		return errors.New("resolution.retry_attempts must be 10 or fewer")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Workers < 1 {
		return errors.New("sync.workers must be positive")
	}
	if c.Sync.PageSize < 1 {
		return errors.New("sync.page_size must be positive")
	}
	return nil
}
