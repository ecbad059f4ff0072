package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLibrary()
	c.normalizeProviders()
	c.normalizeResolution()
	c.normalizeMerge()
	c.normalizeCache()
	c.normalizeSync()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLibrary() {
	c.Library.URL = strings.TrimRight(strings.TrimSpace(c.Library.URL), "/")
	c.Library.APIKey = strings.TrimSpace(c.Library.APIKey)
	if c.Library.TimeoutSeconds <= 0 {
		c.Library.TimeoutSeconds = defaultLibraryTimeout
	}
}

func (c *Config) normalizeProviders() {
	normalizeProvider(&c.Providers.GoogleBooks, defaultGoogleBooksBaseURL)
	normalizeProvider(&c.Providers.OpenLibrary, defaultOpenLibraryBaseURL)
}

func normalizeProvider(p *Provider, defaultBaseURL string) {
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	if p.BaseURL == "" {
		p.BaseURL = defaultBaseURL
	}
	p.APIKey = strings.TrimSpace(p.APIKey)
	if p.RequestsPerSecond <= 0 {
		p.RequestsPerSecond = defaultRequestsPerSecond
	}
	if p.Burst <= 0 {
		p.Burst = defaultBurst
	}
}

func (c *Config) normalizeResolution() {
	if c.Resolution.TitleSimilarityThreshold <= 0 {
		c.Resolution.TitleSimilarityThreshold = defaultTitleSimilarity
	}
	if c.Resolution.FuzzyFloor <= 0 {
		c.Resolution.FuzzyFloor = defaultFuzzyFloor
	}
	if c.Resolution.RetryAttempts <= 0 {
		c.Resolution.RetryAttempts = defaultRetryAttempts
	}
	if c.Resolution.BreakerFailures <= 0 {
		c.Resolution.BreakerFailures = defaultBreakerFailures
	}
	if c.Resolution.VariantWords <= 0 {
		c.Resolution.VariantWords = defaultVariantWords
	}
}

func (c *Config) normalizeMerge() {
	cleaned := make([]string, 0, len(c.Merge.ProviderPriority))
	for _, name := range c.Merge.ProviderPriority {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			cleaned = append(cleaned, name)
		}
	}
	if len(cleaned) == 0 {
		cleaned = Default().Merge.ProviderPriority
	}
	c.Merge.ProviderPriority = cleaned
}

func (c *Config) normalizeCache() {
	if c.Cache.PositiveTTLHours <= 0 {
		c.Cache.PositiveTTLHours = defaultPositiveTTLHours
	}
	if c.Cache.NegativeTTLHours <= 0 {
		c.Cache.NegativeTTLHours = defaultNegativeTTLHours
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.Workers <= 0 {
		c.Sync.Workers = defaultSyncWorkers
	}
	if c.Sync.PageSize <= 0 {
		c.Sync.PageSize = defaultSyncPageSize
	}
	if c.Sync.ItemTimeoutSeconds <= 0 {
		c.Sync.ItemTimeoutSeconds = defaultItemTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
