package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shelfsync/internal/cachestore"
	"shelfsync/internal/library"
	"shelfsync/internal/logging"
	"shelfsync/internal/provider"
	"shelfsync/internal/services"
)

// Client is the provider surface the engine consumes. Limited satisfies it;
// tests substitute fakes.
type Client interface {
	provider.Adapter
	CircuitOpen() bool
}

// Options tunes stage acceptance and cache TTLs.
type Options struct {
	// TitleSimilarityThreshold is the minimum title similarity for the
	// title+author stage.
	TitleSimilarityThreshold float64
	// FuzzyFloor is the minimum similarity for fuzzy candidates.
	FuzzyFloor float64
	// VariantWords is the word count for the truncated title variant.
	VariantWords int
	PositiveTTL  time.Duration
	NegativeTTL  time.Duration
}

func (o Options) withDefaults() Options {
	if o.TitleSimilarityThreshold <= 0 {
		o.TitleSimilarityThreshold = 0.60
	}
	if o.FuzzyFloor <= 0 {
		o.FuzzyFloor = 0.45
	}
	if o.VariantWords <= 0 {
		o.VariantWords = 5
	}
	if o.PositiveTTL <= 0 {
		o.PositiveTTL = 30 * 24 * time.Hour
	}
	if o.NegativeTTL <= 0 {
		o.NegativeTTL = 3 * 24 * time.Hour
	}
	return o
}

// Engine resolves library items against the configured providers.
type Engine struct {
	clients []Client
	cache   *cachestore.Store
	opts    Options
	logger  *slog.Logger
}

// NewEngine builds an engine over the given provider clients. cache may be
// nil, in which case every query goes to the provider.
func NewEngine(clients []Client, cache *cachestore.Store, opts Options, logger *slog.Logger) *Engine {
	return &Engine{
		clients: clients,
		cache:   cache,
		opts:    opts.withDefaults(),
		logger:  logging.NewComponentLogger(logger, "resolve"),
	}
}

// Resolve runs the waterfall for one item. It never returns an error;
// provider failures become attempt-history entries and an exhausted waterfall
// yields method none.
func (e *Engine) Resolve(ctx context.Context, item *library.Item) Result {
	result := Result{ItemID: item.ID, Method: MethodNone}

	if isbn := item.ISBN; isbn != "" {
		if e.stageISBN(ctx, item, &result) {
			return result
		}
	}
	if e.stageTitleAuthor(ctx, item, &result) {
		return result
	}
	if e.stageFuzzy(ctx, item, &result) {
		return result
	}

	e.logger.Info("all stages exhausted",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int("attempts", len(result.Attempts)))
	return result
}

// query performs one cached provider call. It returns the candidate (nil for
// not-found) and records the attempt on result.
func (e *Engine) query(
	ctx context.Context,
	result *Result,
	client Client,
	stage Method,
	operation string,
	parts []string,
	call func(context.Context) (*provider.Candidate, error),
) *provider.Candidate {
	name := client.Name()

	if client.CircuitOpen() {
		result.Attempts = append(result.Attempts, Attempt{Provider: name, Stage: stage, Outcome: OutcomeCircuitOpen})
		return nil
	}

	fingerprint := cachestore.Fingerprint(name, operation, parts...)
	if e.cache != nil {
		candidate, lookup, err := e.cache.Get(ctx, fingerprint)
		if err != nil {
			e.logger.Warn("cache read failed",
				logging.String(logging.FieldProvider, name),
				logging.Error(err))
		}
		switch lookup {
		case cachestore.Hit:
			result.Attempts = append(result.Attempts, Attempt{Provider: name, Stage: stage, Outcome: OutcomeFound, Cached: true})
			return candidate
		case cachestore.Negative:
			result.Attempts = append(result.Attempts, Attempt{Provider: name, Stage: stage, Outcome: OutcomeNotFound, Cached: true})
			return nil
		}
	}

	candidate, err := call(ctx)
	if err != nil {
		outcome := OutcomeError
		if provider.KindOf(err) == provider.KindCircuitOpen {
			outcome = OutcomeCircuitOpen
		}
		result.Attempts = append(result.Attempts, Attempt{
			Provider: name,
			Stage:    stage,
			Outcome:  outcome,
			Detail:   string(provider.KindOf(err)),
		})
		e.logger.Warn("provider query failed",
			logging.String(logging.FieldProvider, name),
			logging.String(logging.FieldStage, string(stage)),
			logging.Error(err))
		return nil
	}

	if candidate == nil {
		result.Attempts = append(result.Attempts, Attempt{Provider: name, Stage: stage, Outcome: OutcomeNotFound})
		e.cachePut(ctx, result, name, fingerprint, nil)
		return nil
	}

	result.Attempts = append(result.Attempts, Attempt{Provider: name, Stage: stage, Outcome: OutcomeFound})
	e.cachePut(ctx, result, name, fingerprint, candidate)
	return candidate
}

func (e *Engine) cachePut(ctx context.Context, result *Result, providerName, fingerprint string, candidate *provider.Candidate) {
	if e.cache == nil {
		return
	}
	ttl := e.opts.PositiveTTL
	if candidate == nil {
		ttl = e.opts.NegativeTTL
	}
	if err := e.cache.Put(ctx, fingerprint, candidate, ttl); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Warn("cache write failed",
			logging.String(logging.FieldProvider, providerName),
			logging.Error(err))
		result.Warnings = append(result.Warnings, fmt.Sprintf("provider %s: %v", providerName,
			services.Wrap(services.ErrCacheWrite, "resolve", "cache", "write failed after retries", err)))
	}
}
