package config

const (
	defaultStateDir           = "~/.local/share/shelfsync/state"
	defaultLogDir             = "~/.local/share/shelfsync/logs"
	defaultLibraryTimeout     = 30
	defaultGoogleBooksBaseURL = "https://www.googleapis.com/books/v1"
	defaultOpenLibraryBaseURL = "https://openlibrary.org"
	defaultRequestsPerSecond  = 1.0
	defaultBurst              = 1
	defaultTitleSimilarity    = 0.60
	defaultFuzzyFloor         = 0.45
	defaultRetryAttempts      = 3
	defaultBreakerFailures    = 5
	defaultVariantWords       = 5
	defaultPositiveTTLHours   = 24 * 30
	defaultNegativeTTLHours   = 24 * 3
	defaultSyncWorkers        = 4
	defaultSyncPageSize       = 100
	defaultItemTimeoutSeconds = 120
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Library: Library{
			TimeoutSeconds: defaultLibraryTimeout,
		},
		Providers: Providers{
			GoogleBooks: Provider{
				Enabled:           true,
				BaseURL:           defaultGoogleBooksBaseURL,
				RequestsPerSecond: defaultRequestsPerSecond,
				Burst:             defaultBurst,
			},
			OpenLibrary: Provider{
				Enabled:           true,
				BaseURL:           defaultOpenLibraryBaseURL,
				RequestsPerSecond: defaultRequestsPerSecond,
				Burst:             defaultBurst,
			},
		},
		Resolution: Resolution{
			TitleSimilarityThreshold: defaultTitleSimilarity,
			FuzzyFloor:               defaultFuzzyFloor,
			RetryAttempts:            defaultRetryAttempts,
			BreakerFailures:          defaultBreakerFailures,
			VariantWords:             defaultVariantWords,
		},
		Merge: Merge{
			ProviderPriority: []string{"googlebooks", "openlibrary"},
		},
		Cache: Cache{
			PositiveTTLHours: defaultPositiveTTLHours,
			NegativeTTLHours: defaultNegativeTTLHours,
		},
		Sync: Sync{
			Workers:            defaultSyncWorkers,
			PageSize:           defaultSyncPageSize,
			ItemTimeoutSeconds: defaultItemTimeoutSeconds,
			AutoUpdate:         false,
			DryRun:             false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
