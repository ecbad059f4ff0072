// Package resolve drives the per-item resolution waterfall: ISBN lookup,
// then title+author matching, then fuzzy search over title variants. Stages
// run in strict order and short-circuit on the first success; within a stage
// every configured provider is consulted so the merge step can weigh
// corroborating candidates.
package resolve
