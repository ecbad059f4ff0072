// Package services holds cross-cutting helpers shared by the sync pipeline:
// sentinel error markers for failure classification and context annotation
// for run/item correlation.
package services
