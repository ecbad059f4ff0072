package merge

// FieldOutcome is the per-field merge result.
type FieldOutcome string

const (
	KeptExisting       FieldOutcome = "kept_existing"
	Updated            FieldOutcome = "updated"
	UnresolvedConflict FieldOutcome = "unresolved_conflict"
)

// Status is the record-level merge result.
type Status string

const (
	// StatusUnchanged means no field changed.
	StatusUnchanged Status = "unchanged"
	// StatusUpdated means at least one field changed with confidence high
	// enough for automatic write-back.
	StatusUpdated Status = "updated"
	// StatusPendingVerification means fields changed but confidence is below
	// the auto-update threshold.
	StatusPendingVerification Status = "pending_verification"
	// StatusFailed means resolution produced no candidate.
	StatusFailed Status = "failed"
)

// AutoUpdateThreshold is the minimum confidence for StatusUpdated.
const AutoUpdateThreshold = 0.95

// Decision is the outcome of merging candidates into one item.
type Decision struct {
	ItemID     string
	Status     Status
	Confidence float64
	// Fields maps each considered field to its outcome.
	Fields map[string]FieldOutcome
	// Rationale explains non-trivial field outcomes.
	Rationale map[string]string
	// Changed holds the new value for every updated field; this is the patch
	// written back to the library.
	Changed map[string]string
	// Sources names the providing adapter for every updated field.
	Sources map[string]string
	// NeedsReview is set when any field hit an unresolved conflict.
	NeedsReview bool
}

func (d *Decision) outcome(field string, outcome FieldOutcome, why string) {
	if d.Fields == nil {
		d.Fields = make(map[string]FieldOutcome)
	}
	d.Fields[field] = outcome
	if why != "" {
		if d.Rationale == nil {
			d.Rationale = make(map[string]string)
		}
		d.Rationale[field] = why
	}
}

func (d *Decision) change(field, value, source string) {
	if d.Changed == nil {
		d.Changed = make(map[string]string)
	}
	d.Changed[field] = value
	if d.Sources == nil {
		d.Sources = make(map[string]string)
	}
	d.Sources[field] = source
}
