package logging

// Standardized attribute keys. Components log with these constants so
// downstream filters can rely on stable names.
const (
	FieldComponent  = "component"
	FieldEventType  = "event_type"
	FieldErrorHint  = "error_hint"
	FieldImpact     = "impact"
	FieldRunID      = "run_id"
	FieldItemID     = "item_id"
	FieldProvider   = "provider"
	FieldStage      = "stage"
	FieldMethod     = "method"
	FieldConfidence = "confidence"
	FieldDecision   = "decision"
)
