package resolve

import "shelfsync/internal/provider"

// Method identifies which waterfall stage produced a match.
type Method string

const (
	MethodISBN        Method = "isbn"
	MethodTitleAuthor Method = "title_author"
	MethodFuzzy       Method = "fuzzy"
	MethodNone        Method = "none"
)

// Attempt outcomes recorded per provider query.
const (
	OutcomeFound       = "found"
	OutcomeNotFound    = "not_found"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
	OutcomeCircuitOpen = "skipped_circuit_open"
)

// Attempt is one provider query's outcome within a stage. Every query is
// recorded regardless of success so audit history stays complete.
type Attempt struct {
	Provider string `json:"provider"`
	Stage    Method `json:"stage"`
	Outcome  string `json:"outcome"`
	Cached   bool   `json:"cached,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Result is the outcome of resolving one library item.
type Result struct {
	ItemID     string
	Method     Method
	Confidence float64
	// Candidate is the chosen match, nil when Method is none.
	Candidate *provider.Candidate
	// Candidates holds every accepted candidate from the winning stage,
	// chosen first. The merge engine uses the extras for consensus.
	Candidates []provider.Candidate
	Attempts   []Attempt
	// Warnings records non-fatal infrastructure failures hit while resolving,
	// such as cache writes that failed after retries. They surface in the run
	// summary alongside item-level warnings.
	Warnings []string
}

// Resolved reports whether any stage produced a match.
func (r *Result) Resolved() bool {
	return r.Method != MethodNone && r.Candidate != nil
}
