package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"shelfsync/internal/auditstore"
	"shelfsync/internal/library"
	"shelfsync/internal/logging"
	"shelfsync/internal/merge"
	"shelfsync/internal/resolve"
	"shelfsync/internal/services"
)

// Options controls one pass.
type Options struct {
	// Offset is the library position the pass resumes from.
	Offset int
	// Limit caps how many items the pass processes; 0 means all.
	Limit int
	// PageSize bounds each library list request.
	PageSize    int
	Workers     int
	ItemTimeout time.Duration
	AutoUpdate  bool
	DryRun      bool
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = 100
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = 2 * time.Minute
	}
	return o
}

// Orchestrator drives passes over the library.
type Orchestrator struct {
	library  library.Client
	resolver *resolve.Engine
	merger   *merge.Engine
	audits   *auditstore.Store
	stateDir string
	logger   *slog.Logger

	mu      sync.Mutex
	summary *Summary
}

// New builds an orchestrator. audits may be nil only in tests that do not
// exercise the audit path.
func New(
	libraryClient library.Client,
	resolver *resolve.Engine,
	merger *merge.Engine,
	audits *auditstore.Store,
	stateDir string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		library:  libraryClient,
		resolver: resolver,
		merger:   merger,
		audits:   audits,
		stateDir: stateDir,
		logger:   logging.NewComponentLogger(logger, "syncer"),
	}
}

// Run executes one pass and returns its summary. Only lock acquisition and
// library listing failures abort the pass; item-level failures are recorded
// and skipped.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Summary, error) {
	opts = opts.withDefaults()

	lock := flock.New(filepath.Join(o.stateDir, "sync.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "syncer", "lock", "acquire pass lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "syncer", "lock", "another pass is already running", nil)
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			o.logger.Warn("release pass lock failed", logging.Error(unlockErr))
		}
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)

	o.mu.Lock()
	o.summary = &Summary{RunID: runID, Started: time.Now(), DryRun: opts.DryRun}
	o.mu.Unlock()

	o.logger.Info("pass started",
		logging.String(logging.FieldRunID, runID),
		logging.Int("offset", opts.Offset),
		logging.Int("limit", opts.Limit),
		logging.Int("workers", opts.Workers),
		logging.Bool("dry_run", opts.DryRun),
		logging.Bool("auto_update", opts.AutoUpdate))

	err = o.runPages(ctx, opts)

	o.mu.Lock()
	summary := o.summary
	summary.Finished = time.Now()
	o.mu.Unlock()

	o.logger.Info("pass finished",
		logging.String(logging.FieldRunID, runID),
		logging.Int("total", summary.Total),
		logging.Int("resolved", summary.Resolved),
		logging.Int("warnings", len(summary.Warnings)))
	return summary, err
}

func (o *Orchestrator) runPages(ctx context.Context, opts Options) error {
	var (
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, opts.Workers)
	)
	defer wg.Wait()

	offset := opts.Offset
	remaining := opts.Limit

	for {
		// Cooperative cancellation: in-flight items finish, no new pages
		// start.
		if ctx.Err() != nil {
			o.warn(fmt.Sprintf("pass cancelled at offset %d", offset))
			return nil
		}

		pageSize := opts.PageSize
		if opts.Limit > 0 && remaining < pageSize {
			pageSize = remaining
		}
		if pageSize <= 0 {
			return nil
		}

		items, err := o.library.ListItems(ctx, offset, pageSize)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "syncer", "list", "library unreachable", err)
		}
		if len(items) == 0 {
			return nil
		}

		for i := range items {
			if ctx.Err() != nil {
				o.warn(fmt.Sprintf("pass cancelled at offset %d", offset+i))
				return nil
			}
			semaphore <- struct{}{}
			wg.Add(1)
			go func(item library.Item) {
				defer wg.Done()
				defer func() { <-semaphore }()
				o.processItem(ctx, opts, item)
			}(items[i])
		}

		offset += len(items)
		if opts.Limit > 0 {
			remaining -= len(items)
			if remaining <= 0 {
				return nil
			}
		}
		if len(items) < pageSize {
			return nil
		}
	}
}

func (o *Orchestrator) processItem(ctx context.Context, opts Options, item library.Item) {
	itemCtx, cancel := context.WithTimeout(ctx, opts.ItemTimeout)
	defer cancel()
	itemCtx = services.WithItemID(itemCtx, item.ID)

	before := item.Snapshot()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("item processing panicked",
				logging.String(logging.FieldItemID, item.ID),
				logging.Any("panic", r))
			o.finishItem(ctx, item, before, before, resolve.Result{ItemID: item.ID, Method: resolve.MethodNone},
				merge.Decision{ItemID: item.ID, Status: merge.StatusFailed})
			o.warn(fmt.Sprintf("item %s: panic recovered: %v", item.ID, r))
		}
	}()

	result := o.resolver.Resolve(itemCtx, &item)
	decision := o.merger.Merge(&item, result)

	if errors.Is(itemCtx.Err(), context.DeadlineExceeded) {
		decision.Status = merge.StatusFailed
		decision.Changed = nil
		o.warn(fmt.Sprintf("item %s: %v", item.ID,
			services.Wrap(services.ErrTimeout, "syncer", "resolve", "item exceeded timeout", nil)))
	}

	after := patchSnapshot(before, decision.Changed)

	if decision.Status == merge.StatusUpdated && opts.AutoUpdate && !opts.DryRun {
		if err := o.library.UpdateItem(itemCtx, item.ID, decision.Changed); err != nil {
			decision.Status = merge.StatusFailed
			after = before
			o.warn(fmt.Sprintf("item %s: %v", item.ID,
				services.Wrap(services.ErrItemWrite, "syncer", "update", "library write-back failed", err)))
		}
	}

	o.finishItem(ctx, item, before, after, result, decision)
}

// finishItem appends the audit record and folds the item into the summary.
// The audit write uses the pass context, not the item context, so a timed-out
// item still leaves a trail.
func (o *Orchestrator) finishItem(
	ctx context.Context,
	item library.Item,
	before, after map[string]string,
	result resolve.Result,
	decision merge.Decision,
) {
	if o.audits != nil {
		record := auditstore.Record{
			RunID:      runID(ctx),
			ItemID:     item.ID,
			Method:     string(result.Method),
			Decision:   string(decision.Status),
			Confidence: decision.Confidence,
			Before:     before,
			After:      after,
		}
		if err := o.audits.Append(context.WithoutCancel(ctx), record); err != nil {
			o.warn(fmt.Sprintf("item %s: %v", item.ID,
				services.Wrap(services.ErrAuditWrite, "syncer", "audit", "append failed after retries", err)))
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary.Total++
	if result.Resolved() {
		o.summary.Resolved++
	}
	o.summary.recordStatus(decision.Status)
	o.summary.recordAttempts(result.Attempts)
	for _, warning := range result.Warnings {
		o.summary.Warnings = append(o.summary.Warnings, fmt.Sprintf("item %s: %s", item.ID, warning))
	}
	if decision.NeedsReview {
		o.summary.Warnings = append(o.summary.Warnings,
			fmt.Sprintf("item %s: unresolved field conflict, flagged for review", item.ID))
	}
}

func (o *Orchestrator) warn(message string) {
	o.logger.Warn(message)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary.Warnings = append(o.summary.Warnings, message)
}

func runID(ctx context.Context) string {
	id, _ := services.RunIDFromContext(ctx)
	return id
}

// patchSnapshot overlays changed fields on a copy of the before snapshot.
func patchSnapshot(before, changed map[string]string) map[string]string {
	if len(changed) == 0 {
		return before
	}
	after := make(map[string]string, len(before))
	for field, value := range before {
		after[field] = value
	}
	for field, value := range changed {
		after[field] = value
	}
	return after
}
