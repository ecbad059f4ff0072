package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shelfsync/internal/auditstore"
	"shelfsync/internal/cachestore"
	"shelfsync/internal/config"
	"shelfsync/internal/library"
	"shelfsync/internal/merge"
	"shelfsync/internal/provider"
	"shelfsync/internal/provider/googlebooks"
	"shelfsync/internal/provider/openlibrary"
	"shelfsync/internal/report"
	"shelfsync/internal/resolve"
	"shelfsync/internal/services"
	"shelfsync/internal/syncer"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var (
		offset     int
		limit      int
		workers    int
		dryRun     bool
		autoUpdate bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one metadata resolution pass over the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}

			clients, err := buildProviderClients(cfg, logger)
			if err != nil {
				return err
			}

			libraryClient, err := library.NewHTTPClient(
				cfg.Library.URL,
				cfg.Library.APIKey,
				time.Duration(cfg.Library.TimeoutSeconds)*time.Second,
			)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "sync", "library", "build client", err)
			}

			cache, err := cachestore.Open(cfg.Paths.StateDir)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "sync", "cache", "open store", err)
			}
			defer cache.Close()

			audits, err := auditstore.Open(cfg.Paths.StateDir)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "sync", "audit", "open store", err)
			}
			defer audits.Close()

			resolver := resolve.NewEngine(clients, cache, resolve.Options{
				TitleSimilarityThreshold: cfg.Resolution.TitleSimilarityThreshold,
				FuzzyFloor:               cfg.Resolution.FuzzyFloor,
				VariantWords:             cfg.Resolution.VariantWords,
				PositiveTTL:              time.Duration(cfg.Cache.PositiveTTLHours) * time.Hour,
				NegativeTTL:              time.Duration(cfg.Cache.NegativeTTLHours) * time.Hour,
			}, logger)
			merger := merge.NewEngine(cfg.Merge.ProviderPriority, logger)

			orchestrator := syncer.New(libraryClient, resolver, merger, audits, cfg.Paths.StateDir, logger)

			opts := syncer.Options{
				Offset:      offset,
				Limit:       limit,
				PageSize:    cfg.Sync.PageSize,
				Workers:     cfg.Sync.Workers,
				ItemTimeout: time.Duration(cfg.Sync.ItemTimeoutSeconds) * time.Second,
				AutoUpdate:  cfg.Sync.AutoUpdate,
				DryRun:      cfg.Sync.DryRun,
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}
			if cmd.Flags().Changed("dry-run") {
				opts.DryRun = dryRun
			}
			if cmd.Flags().Changed("auto-update") {
				opts.AutoUpdate = autoUpdate
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, runErr := orchestrator.Run(runCtx, opts)
			if summary != nil {
				if jsonOutput {
					if err := report.RenderJSON(cmd.OutOrStdout(), summary); err != nil {
						return err
					}
				} else if err := report.Render(cmd.OutOrStdout(), summary); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Library offset to resume from")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum items to process (0 = all)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent item workers")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without writing them back")
	cmd.Flags().BoolVar(&autoUpdate, "auto-update", false, "Write back high-confidence updates")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the summary as JSON")

	return cmd
}

// buildProviderClients constructs one rate-limited client per enabled
// provider. At least one provider must be enabled; that is a pre-pass
// configuration failure.
func buildProviderClients(cfg *config.Config, logger *slog.Logger) ([]resolve.Client, error) {
	var clients []resolve.Client

	if cfg.Providers.GoogleBooks.Enabled {
		adapter, err := googlebooks.New(cfg.Providers.GoogleBooks.BaseURL, cfg.Providers.GoogleBooks.APIKey)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "sync", "googlebooks", "build adapter", err)
		}
		clients = append(clients, provider.NewLimited(adapter, limitsFor(cfg, cfg.Providers.GoogleBooks), logger))
	}
	if cfg.Providers.OpenLibrary.Enabled {
		adapter, err := openlibrary.New(cfg.Providers.OpenLibrary.BaseURL)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "sync", "openlibrary", "build adapter", err)
		}
		clients = append(clients, provider.NewLimited(adapter, limitsFor(cfg, cfg.Providers.OpenLibrary), logger))
	}

	if len(clients) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "sync", "providers", "no providers enabled", nil)
	}
	return clients, nil
}

func limitsFor(cfg *config.Config, p config.Provider) provider.Limits {
	return provider.Limits{
		RequestsPerSecond: p.RequestsPerSecond,
		Burst:             p.Burst,
		RetryAttempts:     cfg.Resolution.RetryAttempts,
		BreakerFailures:   cfg.Resolution.BreakerFailures,
	}
}
