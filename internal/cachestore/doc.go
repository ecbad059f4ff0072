// Package cachestore persists provider query results keyed by deterministic
// fingerprints so repeated passes avoid redundant provider calls. Positive
// hits live long; negative hits ("confirmed not found") expire sooner so
// later catalog additions are eventually rediscovered.
package cachestore
