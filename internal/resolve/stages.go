package resolve

import (
	"context"
	"fmt"
	"sort"

	"shelfsync/internal/library"
	"shelfsync/internal/logging"
	"shelfsync/internal/provider"
	"shelfsync/internal/textutil"
)

func (e *Engine) stageISBN(ctx context.Context, item *library.Item, result *Result) bool {
	var accepted []provider.Candidate
	for _, client := range e.clients {
		candidate := e.query(ctx, result, client, MethodISBN, "isbn", []string{item.ISBN},
			func(ctx context.Context) (*provider.Candidate, error) {
				return client.ResolveISBN(ctx, item.ISBN)
			})
		if candidate == nil {
			continue
		}
		candidate.Confidence = 1.0
		accepted = append(accepted, *candidate)
	}
	if len(accepted) == 0 {
		return false
	}

	result.Method = MethodISBN
	result.Confidence = 1.0
	result.Candidates = accepted
	result.Candidate = &result.Candidates[0]
	e.logResolved(item.ID, result)
	return true
}

func (e *Engine) stageTitleAuthor(ctx context.Context, item *library.Item, result *Result) bool {
	if item.Title == "" {
		return false
	}
	author := item.PrimaryAuthor()

	var accepted []provider.Candidate
	for _, client := range e.clients {
		candidate := e.query(ctx, result, client, MethodTitleAuthor, "title_author", []string{item.Title, author},
			func(ctx context.Context) (*provider.Candidate, error) {
				return client.ResolveTitleAuthor(ctx, item.Title, author)
			})
		if candidate == nil {
			continue
		}

		similarity := textutil.TitleSimilarity(item.Title, candidate.Title)
		if similarity < e.opts.TitleSimilarityThreshold {
			rejectLastAttempt(result, fmt.Sprintf("title similarity %.2f below threshold", similarity))
			continue
		}
		if !authorMatches(author, candidate.Authors) {
			rejectLastAttempt(result, "author mismatch")
			continue
		}

		candidate.Confidence = 0.85 + 0.15*similarity
		accepted = append(accepted, *candidate)
	}
	if len(accepted) == 0 {
		return false
	}

	result.Method = MethodTitleAuthor
	result.Candidates = orderByConfidence(accepted)
	result.Candidate = &result.Candidates[0]
	result.Confidence = result.Candidate.Confidence
	e.logResolved(item.ID, result)
	return true
}

func (e *Engine) stageFuzzy(ctx context.Context, item *library.Item, result *Result) bool {
	variants := textutil.TitleVariants(item.Title, e.opts.VariantWords)
	if len(variants) == 0 {
		return false
	}
	author := item.PrimaryAuthor()

	var accepted []provider.Candidate
	for _, client := range e.clients {
		var best *provider.Candidate
		var bestSimilarity float64

		for _, variant := range variants {
			// The fingerprint includes the full target title so sibling items
			// sharing a variant never inherit each other's closest match.
			candidate := e.query(ctx, result, client, MethodFuzzy, "fuzzy", []string{item.Title, variant, author},
				func(ctx context.Context) (*provider.Candidate, error) {
					candidates, err := client.ResolveFuzzy(ctx, variant, author)
					if err != nil {
						return nil, err
					}
					return closestTitle(item.Title, candidates), nil
				})
			if candidate == nil {
				continue
			}

			similarity := textutil.TitleSimilarity(item.Title, candidate.Title)
			if similarity < e.opts.FuzzyFloor {
				rejectLastAttempt(result, fmt.Sprintf("similarity %.2f below fuzzy floor", similarity))
				continue
			}
			if similarity > bestSimilarity {
				best = candidate
				bestSimilarity = similarity
			}
		}

		if best != nil {
			best.Confidence = 0.70 + 0.15*bestSimilarity
			accepted = append(accepted, *best)
		}
	}
	if len(accepted) == 0 {
		return false
	}

	result.Method = MethodFuzzy
	result.Candidates = orderByConfidence(accepted)
	result.Candidate = &result.Candidates[0]
	result.Confidence = result.Candidate.Confidence
	e.logResolved(item.ID, result)
	return true
}

func (e *Engine) logResolved(itemID string, result *Result) {
	e.logger.Debug("item resolved",
		logging.String(logging.FieldItemID, itemID),
		logging.String(logging.FieldMethod, string(result.Method)),
		logging.Float64(logging.FieldConfidence, result.Confidence),
		logging.String(logging.FieldProvider, result.Candidate.Provider))
}

// rejectLastAttempt downgrades the most recent attempt from found to
// rejected. The provider answered, but the answer failed stage acceptance.
func rejectLastAttempt(result *Result, detail string) {
	if len(result.Attempts) == 0 {
		return
	}
	last := &result.Attempts[len(result.Attempts)-1]
	last.Outcome = OutcomeRejected
	last.Detail = detail
}

func authorMatches(author string, candidateAuthors []string) bool {
	key := textutil.NormalizeKey(author)
	if key == "" {
		return true
	}
	for _, candidate := range candidateAuthors {
		if textutil.NormalizeKey(candidate) == key {
			return true
		}
	}
	return false
}

// closestTitle picks the candidate whose title best matches the target.
func closestTitle(title string, candidates []provider.Candidate) *provider.Candidate {
	var best *provider.Candidate
	var bestSimilarity float64
	for i := range candidates {
		similarity := textutil.TitleSimilarity(title, candidates[i].Title)
		if best == nil || similarity > bestSimilarity {
			best = &candidates[i]
			bestSimilarity = similarity
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// orderByConfidence returns candidates sorted best-first, stable for ties so
// provider configuration order breaks them.
func orderByConfidence(candidates []provider.Candidate) []provider.Candidate {
	out := make([]provider.Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
