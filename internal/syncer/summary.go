package syncer

import (
	"time"

	"shelfsync/internal/merge"
	"shelfsync/internal/resolve"
)

// ProviderTally counts one provider's attempt outcomes across a pass.
type ProviderTally struct {
	Found       int `json:"found"`
	NotFound    int `json:"not_found"`
	Rejected    int `json:"rejected"`
	Errors      int `json:"errors"`
	CircuitOpen int `json:"skipped_circuit_open"`
	CacheHits   int `json:"cache_hits"`
}

// Summary is the structured result of one pass.
type Summary struct {
	RunID     string                   `json:"run_id"`
	Started   time.Time                `json:"started"`
	Finished  time.Time                `json:"finished"`
	Total     int                      `json:"total"`
	Resolved  int                      `json:"resolved"`
	Counts    map[merge.Status]int     `json:"counts"`
	Providers map[string]ProviderTally `json:"providers"`
	Warnings  []string                 `json:"warnings,omitempty"`
	DryRun    bool                     `json:"dry_run"`
}

// ResolutionRate is the fraction of processed items any stage matched.
func (s *Summary) ResolutionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Resolved) / float64(s.Total)
}

func (s *Summary) recordStatus(status merge.Status) {
	if s.Counts == nil {
		s.Counts = make(map[merge.Status]int)
	}
	s.Counts[status]++
}

func (s *Summary) recordAttempts(attempts []resolve.Attempt) {
	if s.Providers == nil {
		s.Providers = make(map[string]ProviderTally)
	}
	for _, attempt := range attempts {
		tally := s.Providers[attempt.Provider]
		if attempt.Cached {
			tally.CacheHits++
		}
		switch attempt.Outcome {
		case resolve.OutcomeFound:
			tally.Found++
		case resolve.OutcomeNotFound:
			tally.NotFound++
		case resolve.OutcomeRejected:
			tally.Rejected++
		case resolve.OutcomeCircuitOpen:
			tally.CircuitOpen++
		default:
			tally.Errors++
		}
		s.Providers[attempt.Provider] = tally
	}
}
