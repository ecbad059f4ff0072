package merge

import (
	"log/slog"
	"strings"

	"shelfsync/internal/library"
	"shelfsync/internal/logging"
	"shelfsync/internal/provider"
	"shelfsync/internal/resolve"
	"shelfsync/internal/textutil"
)

// consensusBoost is added to resolution confidence when at least two
// providers independently agree on title and author.
const consensusBoost = 0.05

// mergeableFields are evaluated in a fixed order so decisions are
// deterministic across runs.
var mergeableFields = []string{
	provider.FieldTitle,
	provider.FieldSubtitle,
	provider.FieldAuthors,
	provider.FieldNarrator,
	provider.FieldSeries,
	provider.FieldSeriesSequence,
	provider.FieldISBN,
	provider.FieldPublicationDate,
	provider.FieldPublisher,
	provider.FieldDescription,
	provider.FieldGenres,
	provider.FieldRating,
}

// Engine merges resolution results into library items.
type Engine struct {
	priority []string
	logger   *slog.Logger
}

// NewEngine builds a merge engine. priority orders providers from most to
// least trusted; providers absent from it rank below every listed one.
func NewEngine(priority []string, logger *slog.Logger) *Engine {
	normalized := make([]string, 0, len(priority))
	for _, name := range priority {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			normalized = append(normalized, name)
		}
	}
	return &Engine{
		priority: normalized,
		logger:   logging.NewComponentLogger(logger, "merge"),
	}
}

// Merge evaluates every field independently against the item's snapshot and
// returns the record-level decision.
func (e *Engine) Merge(item *library.Item, result resolve.Result) Decision {
	decision := Decision{ItemID: item.ID}

	if !result.Resolved() {
		decision.Status = StatusFailed
		return decision
	}

	decision.Confidence = result.Confidence
	if e.hasConsensus(result) {
		decision.Confidence = min(decision.Confidence+consensusBoost, 1.0)
	}

	snapshot := item.Snapshot()
	for _, field := range mergeableFields {
		e.mergeField(&decision, item, snapshot[field], field, result.Candidates)
	}

	switch {
	case len(decision.Changed) == 0:
		decision.Status = StatusUnchanged
	case decision.Confidence >= AutoUpdateThreshold:
		decision.Status = StatusUpdated
	default:
		decision.Status = StatusPendingVerification
	}

	e.logger.Debug("merge decided",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldDecision, string(decision.Status)),
		logging.Float64(logging.FieldConfidence, decision.Confidence),
		logging.Int("changed_fields", len(decision.Changed)))
	return decision
}

func (e *Engine) mergeField(decision *Decision, item *library.Item, existing, field string, candidates []provider.Candidate) {
	value, source, conflict := e.fieldWinner(field, candidates)
	if conflict {
		decision.outcome(field, UnresolvedConflict, "equal-priority providers disagree")
		decision.NeedsReview = true
		return
	}
	if value == "" {
		decision.outcome(field, KeptExisting, "")
		return
	}
	if existing == "" {
		decision.outcome(field, Updated, "filled empty field")
		decision.change(field, value, source)
		return
	}
	if value == existing {
		decision.outcome(field, KeptExisting, "")
		return
	}
	if e.rank(source) < e.existingRank(item.SourceOf(field)) {
		decision.outcome(field, Updated, "provider outranks current source")
		decision.change(field, value, source)
		return
	}
	decision.outcome(field, KeptExisting, "current source outranks provider")
}

// fieldWinner picks the value the best-ranked candidate offers for field.
// Equal-rank candidates whose normalized values disagree are a conflict; when
// they agree, the higher-quality rendering wins.
func (e *Engine) fieldWinner(field string, candidates []provider.Candidate) (value, source string, conflict bool) {
	bestRank := -1
	var bestQuality float64
	var bestKey string

	for i := range candidates {
		candidate := &candidates[i]
		fieldValue := candidate.Field(field)
		if fieldValue == "" {
			continue
		}
		rank := e.rank(candidate.Provider)
		quality := candidate.Fields[field].Quality
		key := textutil.NormalizeKey(fieldValue)

		switch {
		case bestRank == -1 || rank < bestRank:
			value, source, conflict = fieldValue, candidate.Provider, false
			bestRank, bestQuality, bestKey = rank, quality, key
		case rank == bestRank && key != bestKey:
			conflict = true
		case rank == bestRank && quality > bestQuality:
			value, source = fieldValue, candidate.Provider
			bestQuality = quality
		}
	}
	if conflict {
		return "", "", true
	}
	return value, source, false
}

// rank returns a provider's position in the priority order; unlisted
// providers rank below every listed one.
func (e *Engine) rank(providerName string) int {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	for i, name := range e.priority {
		if name == providerName {
			return i
		}
	}
	return len(e.priority)
}

// existingRank ranks the last-known source of an existing field. Fields with
// no recorded provenance rank below everything, so any resolved provider may
// refresh them.
func (e *Engine) existingRank(source string) int {
	if source == "" {
		return len(e.priority) + 1
	}
	return e.rank(source)
}

// hasConsensus reports whether at least two distinct providers agree with the
// chosen candidate on normalized title and author.
func (e *Engine) hasConsensus(result resolve.Result) bool {
	chosen := result.Candidate
	if chosen == nil || len(result.Candidates) < 2 {
		return false
	}
	chosenKey := agreementKey(chosen)

	agreeing := make(map[string]struct{})
	for i := range result.Candidates {
		candidate := &result.Candidates[i]
		if agreementKey(candidate) == chosenKey {
			agreeing[strings.ToLower(candidate.Provider)] = struct{}{}
		}
	}
	return len(agreeing) >= 2
}

func agreementKey(candidate *provider.Candidate) string {
	author := ""
	if len(candidate.Authors) > 0 {
		author = candidate.Authors[0]
	}
	return textutil.NormalizeKey(candidate.Title) + "|" + textutil.NormalizeKey(author)
}
