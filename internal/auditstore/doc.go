// Package auditstore keeps the append-only history of every resolution
// decision. Rows are written once per resolved item and never mutated;
// losing them defeats the system's purpose, so appends are retried before
// surfacing as pass-level warnings.
package auditstore
