package provider

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"shelfsync/internal/logging"
)

// Backoff bounds for retried provider calls.
const (
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 15 * time.Second
	// breakerHold keeps an opened circuit open for the remainder of a pass;
	// limited clients are constructed per run, so the hold never carries over.
	breakerHold = time.Hour
)

// Limits configures throttling, retry, and circuit behavior for one provider.
type Limits struct {
	RequestsPerSecond float64
	Burst             int
	RetryAttempts     int
	BreakerFailures   int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.RequestsPerSecond <= 0 {
		l.RequestsPerSecond = 1
	}
	if l.Burst <= 0 {
		l.Burst = 1
	}
	if l.RetryAttempts <= 0 {
		l.RetryAttempts = 3
	}
	if l.BreakerFailures <= 0 {
		l.BreakerFailures = 5
	}
	if l.InitialBackoff <= 0 {
		l.InitialBackoff = DefaultInitialBackoff
	}
	if l.MaxBackoff <= 0 {
		l.MaxBackoff = DefaultMaxBackoff
	}
	return l
}

// Limited wraps one Adapter with a token-bucket limiter, bounded retries
// with exponential backoff and jitter, and a circuit breaker that opens
// after consecutive failures. Item-level concurrency never bypasses the
// limiter: all workers share this client per provider.
type Limited struct {
	adapter Adapter
	limits  Limits
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]Candidate]
	logger  *slog.Logger
}

var _ Adapter = (*Limited)(nil)

// NewLimited wraps adapter with the given limits.
func NewLimited(adapter Adapter, limits Limits, logger *slog.Logger) *Limited {
	limits = limits.withDefaults()
	logger = logging.NewComponentLogger(logger, "provider."+adapter.Name())

	settings := gobreaker.Settings{
		Name:    adapter.Name(),
		Timeout: breakerHold,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(limits.BreakerFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit state changed",
				logging.String(logging.FieldProvider, name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
				logging.String(logging.FieldImpact, "provider will be skipped while the circuit is open"))
		},
	}

	return &Limited{
		adapter: adapter,
		limits:  limits,
		limiter: rate.NewLimiter(rate.Limit(limits.RequestsPerSecond), limits.Burst),
		breaker: gobreaker.NewCircuitBreaker[[]Candidate](settings),
		logger:  logger,
	}
}

// Name returns the wrapped adapter's name.
func (l *Limited) Name() string { return l.adapter.Name() }

// CircuitOpen reports whether the provider's circuit is currently open.
func (l *Limited) CircuitOpen() bool {
	return l.breaker.State() == gobreaker.StateOpen
}

// ResolveISBN queries by ISBN through the limiter and breaker.
func (l *Limited) ResolveISBN(ctx context.Context, isbn string) (*Candidate, error) {
	out, err := l.execute(ctx, func(ctx context.Context) ([]Candidate, error) {
		candidate, err := l.adapter.ResolveISBN(ctx, isbn)
		return wrapSingle(candidate), err
	})
	return firstCandidate(out), err
}

// ResolveTitleAuthor queries by normalized title and author.
func (l *Limited) ResolveTitleAuthor(ctx context.Context, title, author string) (*Candidate, error) {
	out, err := l.execute(ctx, func(ctx context.Context) ([]Candidate, error) {
		candidate, err := l.adapter.ResolveTitleAuthor(ctx, title, author)
		return wrapSingle(candidate), err
	})
	return firstCandidate(out), err
}

// ResolveFuzzy queries for ordered candidates.
func (l *Limited) ResolveFuzzy(ctx context.Context, title, author string) ([]Candidate, error) {
	return l.execute(ctx, func(ctx context.Context) ([]Candidate, error) {
		return l.adapter.ResolveFuzzy(ctx, title, author)
	})
}

func (l *Limited) execute(ctx context.Context, op func(context.Context) ([]Candidate, error)) ([]Candidate, error) {
	var lastErr error
	for attempt := 0; attempt < l.limits.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, l.backoffDelay(attempt)); err != nil {
				return nil, Classify(l.Name(), err)
			}
		}

		if l.CircuitOpen() {
			return nil, NewError(l.Name(), KindCircuitOpen, errors.New("circuit open"))
		}

		if err := l.limiter.Wait(ctx); err != nil {
			return nil, Classify(l.Name(), err)
		}

		out, err := l.breaker.Execute(func() ([]Candidate, error) {
			return op(ctx)
		})
		if err == nil {
			return out, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, NewError(l.Name(), KindCircuitOpen, err)
		}

		classified := Classify(l.Name(), err)
		lastErr = classified
		if !IsRetriable(classified) {
			return nil, classified
		}
		l.logger.Debug("retrying provider call",
			logging.Int("attempt", attempt+1),
			logging.String("kind", string(classified.Kind)),
			logging.Error(err))
	}
	return nil, lastErr
}

func (l *Limited) backoffDelay(attempt int) time.Duration {
	delay := l.limits.InitialBackoff << (attempt - 1)
	if delay > l.limits.MaxBackoff || delay <= 0 {
		delay = l.limits.MaxBackoff
	}
	// Half fixed, half jitter, so concurrent retries spread out.
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + rand.N(half)
}

// sleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func wrapSingle(candidate *Candidate) []Candidate {
	if candidate == nil {
		return nil
	}
	return []Candidate{*candidate}
}

func firstCandidate(out []Candidate) *Candidate {
	if len(out) == 0 {
		return nil
	}
	return &out[0]
}
