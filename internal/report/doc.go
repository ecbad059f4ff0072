// Package report renders pass summaries for terminals and pipelines:
// rounded tables on TTYs, indented JSON everywhere else.
package report
