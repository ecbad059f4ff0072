// Package merge folds resolved candidates into an item's existing metadata
// under a quality-preservation policy: absent candidate values never
// overwrite existing data, provider priority gates overwrites of non-empty
// fields, and unresolvable disagreements keep the existing value and flag
// the item for review.
package merge
